package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/Alexander-D-Karpov/photokml/internal/dateformat"
	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/mholt/archives"
)

var (
	placeholderRe = regexp.MustCompile(`\{([A-Z_]+)\}`)
	colorRe       = regexp.MustCompile(`^[0-9a-fA-F]{8}$`)
)

// Placeholders lists the description template fields, in the order the
// header prints them.
var Placeholders = []string{"NAME", "FILENAME", "BASENAME", "PATH", "FOLDER", "DATE", "LAT", "LON", "PHOTO"}

// PlaceholderPattern matches one {FIELD} occurrence in a template.
func PlaceholderPattern() *regexp.Regexp { return placeholderRe }

// Validate checks that p can be executed. It stops at the first violated
// rule and reports it as a *models.ValidationError tagged with the section
// that failed. p is never modified.
func Validate(p *Profile) error {
	if p == nil {
		return invalid(models.SectionProfile, "no profile")
	}
	checks := []func(*Profile) error{
		validateProfile,
		validateSource,
		validateFolders,
		validatePlacemark,
		validateDescription,
		validatePhoto,
		validatePath,
	}
	for _, check := range checks {
		if err := check(p); err != nil {
			return err
		}
	}
	return nil
}

func invalid(section models.Section, format string, args ...any) error {
	return &models.ValidationError{Section: section, Reason: fmt.Sprintf(format, args...)}
}

func validateProfile(p *Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid(models.SectionProfile, "name is required")
	}
	if _, err := dateformat.ParseLocale(p.Locale); err != nil {
		return invalid(models.SectionProfile, "%v", err)
	}
	return nil
}

func validateSource(p *Profile) error {
	src := p.Source
	if strings.TrimSpace(src.Root) == "" {
		return invalid(models.SectionSource, "source root is required")
	}
	info, err := os.Stat(src.Root)
	if err != nil {
		return invalid(models.SectionSource, "source %s is not accessible: %v", src.Root, err)
	}
	if info.IsDir() {
		f, err := os.Open(src.Root)
		if err != nil {
			return invalid(models.SectionSource, "source %s is not readable: %v", src.Root, err)
		}
		_, err = f.ReadDir(1)
		f.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return invalid(models.SectionSource, "source %s is not readable: %v", src.Root, err)
		}
	} else if !IsArchive(src.Root) {
		return invalid(models.SectionSource, "source %s is neither a directory nor a supported archive", src.Root)
	}

	if len(src.Patterns) == 0 {
		return invalid(models.SectionSource, "at least one file pattern is required")
	}
	for _, pattern := range src.Patterns {
		if strings.TrimSpace(pattern) == "" {
			return invalid(models.SectionSource, "empty file pattern")
		}
		if _, err := path.Match(strings.ToLower(pattern), ""); err != nil {
			return invalid(models.SectionSource, "bad file pattern %q", pattern)
		}
	}
	if src.Exclude != "" {
		if _, err := regexp.Compile(src.Exclude); err != nil {
			return invalid(models.SectionSource, "bad exclude expression: %v", err)
		}
	}
	return nil
}

// IsArchive reports whether name is a readable file in an archive format the
// scanner can walk.
func IsArchive(name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	format, _, err := archives.Identify(context.Background(), name, f)
	if err != nil {
		return false
	}
	_, ok := format.(archives.Extractor)
	return ok
}

func validateFolders(p *Profile) error {
	f := p.Folders
	switch f.By {
	case FolderByNone, FolderByDir:
	case FolderByDate:
		if _, err := dateformat.CompileTag(f.DatePattern, p.Locale); err != nil {
			return invalid(models.SectionFolders, "%v", err)
		}
	case FolderByRegex:
		if strings.TrimSpace(f.Regex) == "" {
			return invalid(models.SectionFolders, "folder expression is required")
		}
		if _, err := regexp.Compile(f.Regex); err != nil {
			return invalid(models.SectionFolders, "bad folder expression: %v", err)
		}
	default:
		return invalid(models.SectionFolders, "unknown folder mode %q", f.By)
	}
	return nil
}

func validatePlacemark(p *Profile) error {
	pm := p.Placemark
	switch pm.NameBy {
	case NameByFile, NameByNone:
	case NameByDate:
		if _, err := dateformat.CompileTag(pm.DatePattern, p.Locale); err != nil {
			return invalid(models.SectionPlacemark, "invalid date pattern: %v", err)
		}
	default:
		return invalid(models.SectionPlacemark, "unknown name mode %q", pm.NameBy)
	}

	if pm.IncludeNullCoordinate {
		if !models.ValidLatitude(pm.Lat) {
			return invalid(models.SectionPlacemark, "fallback latitude %f outside [-90, 90]", pm.Lat)
		}
		if !models.ValidLongitude(pm.Lon) {
			return invalid(models.SectionPlacemark, "fallback longitude %f outside [-180, 180]", pm.Lon)
		}
	}
	return nil
}

func validateDescription(p *Profile) error {
	d := p.Description
	switch d.Mode {
	case DescriptionNone:
		return nil
	case DescriptionStatic:
		return checkPlaceholders(d.Template)
	case DescriptionExternal:
		if strings.TrimSpace(d.ExternalFile) == "" {
			return invalid(models.SectionDescription, "external description file is required")
		}
		b, err := os.ReadFile(d.ExternalFile)
		if err != nil {
			return invalid(models.SectionDescription, "external description file: %v", err)
		}
		return checkPlaceholders(string(b))
	default:
		return invalid(models.SectionDescription, "unknown description mode %q", d.Mode)
	}
}

func checkPlaceholders(template string) error {
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !knownPlaceholder(m[1]) {
			return invalid(models.SectionDescription, "unknown placeholder %s", m[0])
		}
	}
	return nil
}

func knownPlaceholder(name string) bool {
	for _, p := range Placeholders {
		if p == name {
			return true
		}
	}
	return false
}

func validatePhoto(p *Profile) error {
	ph := p.Photo
	if !ph.Embed && !ph.Icon {
		return nil
	}

	switch ph.Reference {
	case ReferenceThumbnail:
	case ReferenceAbsolute, ReferenceRelative:
		if ph.Embed && !isDir(p.Source.Root) {
			return invalid(models.SectionPhoto, "%s photo references need a directory source", strings.ToLower(string(ph.Reference)))
		}
	case ReferenceBaseURL:
		u, err := url.Parse(ph.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid(models.SectionPhoto, "base url %q must be an absolute http(s) url", ph.BaseURL)
		}
	default:
		return invalid(models.SectionPhoto, "unknown photo reference %q", ph.Reference)
	}

	if p.NeedsThumbnails() {
		if ph.Quality < 1 || ph.Quality > 100 {
			return invalid(models.SectionPhoto, "thumbnail quality %d outside [1, 100]", ph.Quality)
		}
	}
	if ph.Embed && ph.Reference == ReferenceThumbnail {
		if !sizeInRange(ph.MaxWidth) || !sizeInRange(ph.MaxHeight) {
			return invalid(models.SectionPhoto, "thumbnail size %dx%d outside [16, 4096]", ph.MaxWidth, ph.MaxHeight)
		}
	} else if ph.Embed && !sizeInRange(ph.MaxWidth) {
		return invalid(models.SectionPhoto, "photo width %d outside [16, 4096]", ph.MaxWidth)
	}
	if ph.Icon && !sizeInRange(ph.IconSize) {
		return invalid(models.SectionPhoto, "icon size %d outside [16, 4096]", ph.IconSize)
	}
	return nil
}

func sizeInRange(v int) bool { return v >= 16 && v <= 4096 }

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

func validatePath(p *Profile) error {
	pc := p.Path
	if !pc.Enabled {
		return nil
	}
	switch pc.SplitBy {
	case SplitNone, SplitHour, SplitDay, SplitWeek, SplitMonth, SplitYear:
	default:
		return invalid(models.SectionPath, "unknown split mode %q", pc.SplitBy)
	}
	if pc.Width <= 0 || pc.Width > 100 {
		return invalid(models.SectionPath, "line width %g outside (0, 100]", pc.Width)
	}
	if !colorRe.MatchString(pc.Color) {
		return invalid(models.SectionPath, "line color %q is not aabbggrr hex", pc.Color)
	}
	return nil
}
