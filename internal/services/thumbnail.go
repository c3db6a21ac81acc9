package services

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Alexander-D-Karpov/photokml/internal/profile"
	"github.com/disintegration/imaging"
)

const iconDir = "icons"

// ThumbnailService renders thumbnails and icons into a staging directory
// next to the output. The staging directory only becomes visible under its
// final name once the document it belongs to has been written.
type ThumbnailService struct {
	stagingDir string
	cfg        profile.PhotoConfig
	thumbs     bool
}

// ThumbnailDir is the final directory for the thumbnails of output.
func ThumbnailDir(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + "-thumbs"
}

func NewThumbnailService(output string, cfg profile.PhotoConfig) (*ThumbnailService, error) {
	dir, err := os.MkdirTemp(filepath.Dir(output), "."+filepath.Base(ThumbnailDir(output))+"-*")
	if err != nil {
		return nil, err
	}
	if cfg.Icon {
		if err := os.MkdirAll(filepath.Join(dir, iconDir), 0755); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	}
	return &ThumbnailService{
		stagingDir: dir,
		cfg:        cfg,
		thumbs:     cfg.Embed && cfg.Reference == profile.ReferenceThumbnail,
	}, nil
}

// ThumbnailName is the file name used for the photo at index.
func ThumbnailName(index int, source string) string {
	base := path.Base(source)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r < ' ' {
			return '_'
		}
		return r
	}, base)
	return fmt.Sprintf("%05d_%s.jpg", index, base)
}

// IconPath returns the path of an icon relative to the thumbnail directory.
func IconPath(name string) string {
	return iconDir + "/" + name
}

// Render writes the thumbnail and icon for one photo and returns their
// shared file name.
func (s *ThumbnailService) Render(index int, source string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}

	name := ThumbnailName(index, source)
	if s.thumbs {
		if err := s.save(img, s.cfg.MaxWidth, s.cfg.MaxHeight, filepath.Join(s.stagingDir, name)); err != nil {
			return "", err
		}
	}
	if s.cfg.Icon {
		if err := s.save(img, s.cfg.IconSize, s.cfg.IconSize, filepath.Join(s.stagingDir, iconDir, name)); err != nil {
			return "", err
		}
	}
	return name, nil
}

func (s *ThumbnailService) save(img image.Image, width, height int, dst string) error {
	thumb := imaging.Fit(img, width, height, imaging.Lanczos)
	return imaging.Save(thumb, dst, imaging.JPEGQuality(s.cfg.Quality))
}

// Finalize moves the staged thumbnails to dir, replacing whatever a previous
// run left there.
func (s *ThumbnailService) Finalize(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.Rename(s.stagingDir, dir)
}

func (s *ThumbnailService) Discard() error {
	return os.RemoveAll(s.stagingDir)
}

func (s *ThumbnailService) StagingDir() string {
	return s.stagingDir
}
