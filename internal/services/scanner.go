package services

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/Alexander-D-Karpov/photokml/internal/profile"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var skipFolders = map[string]bool{
	"$RECYCLE.BIN":              true,
	"System Volume Information": true,
	"lost+found":                true,
	"@eaDir":                    true,
	"__MACOSX":                  true,
}

// Source is an opened photo source: a directory or an archive, both seen
// through fs.FS with slash separated paths relative to the root.
type Source struct {
	FS      fs.FS
	Root    string
	Archive bool

	cfg     profile.SourceConfig
	exclude *regexp.Regexp
	log     *zap.Logger
}

type ScannerService struct {
	exif    *ExifService
	metrics *Metrics
	workers int
	log     *zap.Logger
}

func NewScannerService(exif *ExifService, metrics *Metrics, workers int, log *zap.Logger) *ScannerService {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ScannerService{exif: exif, metrics: metrics, workers: workers, log: log}
}

func (s *ScannerService) Open(ctx context.Context, cfg profile.SourceConfig) (*Source, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "open source")
	}

	src := &Source{Root: root, cfg: cfg, log: s.log}
	if cfg.Exclude != "" {
		if src.exclude, err = regexp.Compile(cfg.Exclude); err != nil {
			return nil, errors.Wrap(err, "compile exclude")
		}
	}

	if info.IsDir() {
		src.FS = os.DirFS(root)
		return src, nil
	}

	fsys, err := archives.FileSystem(ctx, root, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", root)
	}
	src.FS = fsys
	src.Archive = true
	return src, nil
}

// Enumerate lists the photo files of the source in lexical order. Folders
// that cannot be read are logged and skipped.
func (src *Source) Enumerate(ctx context.Context) ([]string, error) {
	var files []string
	err := fs.WalkDir(src.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == "." {
				return err
			}
			src.log.Warn("skipping unreadable entry", zap.String("path", p), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if p == "." {
				return nil
			}
			if !src.cfg.Recursive || skipFolders[name] || (!src.cfg.IncludeHidden && isHidden(name)) {
				return fs.SkipDir
			}
			return nil
		}

		if !src.cfg.IncludeHidden && isHidden(name) {
			return nil
		}
		if !src.matches(name) {
			return nil
		}
		if src.exclude != nil && src.exclude.MatchString(p) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (src *Source) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range src.cfg.Patterns {
		if ok, _ := path.Match(strings.ToLower(pattern), lower); ok {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

type scanResult struct {
	record  *models.PlacemarkRecord
	outcome *models.FileOutcome
}

// Scan extracts every file in paths using a bounded pool of workers. thumbs
// may be nil when no thumbnails are wanted. Records and outcomes come back
// in the order of paths. When ctx is cancelled the partial results are
// dropped and the context error is returned.
func (s *ScannerService) Scan(ctx context.Context, src *Source, paths []string, thumbs *ThumbnailService) ([]models.PlacemarkRecord, []models.FileOutcome, error) {
	results := make([]scanResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, p := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.scanFile(gctx, src, i, p, thumbs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var records []models.PlacemarkRecord
	var outcomes []models.FileOutcome
	for _, r := range results {
		if r.record != nil {
			records = append(records, *r.record)
		}
		if r.outcome != nil {
			outcomes = append(outcomes, *r.outcome)
		}
	}
	return records, outcomes, nil
}

func (s *ScannerService) scanFile(ctx context.Context, src *Source, index int, name string, thumbs *ThumbnailService) scanResult {
	start := time.Now()
	data, info, err := s.exif.Read(ctx, src.FS, name)
	if err != nil {
		return s.failed(name, &models.ExtractError{Kind: models.UnreadableFile, Path: name, Err: err}, start)
	}

	pt, err := s.exif.Decode(name, data, info.ModTime())
	rec := &models.PlacemarkRecord{Index: index, SourceFile: name, TakenAt: pt.Time()}
	var result scanResult
	if err != nil {
		var xe *models.ExtractError
		if !errors.As(err, &xe) {
			xe = &models.ExtractError{Kind: models.UnreadableFile, Path: name, Err: err}
		}
		result = s.failed(name, xe, start)
		if xe.Kind == models.UnreadableFile {
			return result
		}
	} else {
		rec.Point = &pt
		s.metrics.ObserveFile(outcomeOK, time.Since(start))
	}

	if thumbs != nil {
		thumb, err := thumbs.Render(index, name, data)
		if err != nil {
			s.log.Warn("thumbnail failed", zap.String("file", name), zap.Error(err))
		} else {
			rec.Thumbnail = thumb
		}
	}
	result.record = rec
	return result
}

func (s *ScannerService) failed(name string, xe *models.ExtractError, start time.Time) scanResult {
	s.log.Warn("extract failed",
		zap.String("file", name),
		zap.String("kind", xe.Kind.String()),
		zap.Error(xe.Err),
	)
	s.metrics.ObserveFile(xe.Kind.String(), time.Since(start))

	reason := ""
	if xe.Err != nil {
		reason = xe.Err.Error()
	}
	return scanResult{outcome: &models.FileOutcome{Path: name, Kind: xe.Kind, Reason: reason}}
}
