package services

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Alexander-D-Karpov/photokml/internal/dateformat"
	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/Alexander-D-Karpov/photokml/internal/profile"
	"github.com/mholt/archives"
	"go.uber.org/zap"
)

type BuilderOptions struct {
	// SourceRoot is the absolute path of the source directory or archive.
	SourceRoot string
	// Archive is set when SourceRoot is an archive file rather than a directory.
	Archive bool
	// OutputDir is the directory the document is written to.
	OutputDir string
	// ThumbDir is the thumbnail directory relative to OutputDir.
	ThumbDir string
	Log      *zap.Logger
}

// Builder turns scan records into the folder/placemark/path tree of one
// document. It holds no state between Build calls apart from the namer's
// degraded flag.
type Builder struct {
	p     *profile.Profile
	opts  BuilderOptions
	namer *Namer
	desc  *DescriptionRenderer

	folderPattern *dateformat.Pattern
	folderRe      *regexp.Regexp
	rootName      string
}

func NewBuilder(p *profile.Profile, opts BuilderOptions) (*Builder, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	desc, err := NewDescriptionRenderer(p.Description)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		p:     p,
		opts:  opts,
		namer: NewNamer(p.Placemark, p.Locale),
		desc:  desc,
	}
	b.rootName = rootFolderName(opts.SourceRoot, opts.Archive)

	switch p.Folders.By {
	case profile.FolderByNone, profile.FolderByDir:
	case profile.FolderByDate:
		if b.folderPattern, err = dateformat.CompileTag(p.Folders.DatePattern, p.Locale); err != nil {
			return nil, &models.ConfigError{Code: models.InvalidDatePattern, Detail: err.Error()}
		}
	case profile.FolderByRegex:
		if b.folderRe, err = regexp.Compile(p.Folders.Regex); err != nil {
			return nil, &models.ConfigError{Code: models.UnknownFolderMode, Detail: err.Error()}
		}
	default:
		return nil, &models.ConfigError{Code: models.UnknownFolderMode, Detail: string(p.Folders.By)}
	}
	return b, nil
}

// Degraded reports whether a placemark got the invalid pattern sentinel name.
func (b *Builder) Degraded() bool {
	return b.namer.Degraded()
}

type folderGroup struct {
	node    *models.DocumentNode
	records []models.PlacemarkRecord
}

func (b *Builder) Build(records []models.PlacemarkRecord) (*models.DocumentNode, error) {
	sorted := append([]models.PlacemarkRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	root := &models.DocumentNode{
		Name:        b.p.DocumentName(),
		Description: profile.Header(b.p),
	}

	var groups []*folderGroup
	byKey := make(map[string]*folderGroup)
	for _, rec := range sorted {
		key := b.folderKey(rec)
		g, ok := byKey[key]
		if !ok {
			g = &folderGroup{node: root}
			if b.p.Folders.By != profile.FolderByNone {
				g.node = &models.DocumentNode{Name: key}
			}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, rec)
	}

	for _, g := range groups {
		for _, rec := range g.records {
			pm, ok, err := b.placemark(rec, g.node.Name)
			if err != nil {
				return nil, err
			}
			if ok {
				g.node.Placemarks = append(g.node.Placemarks, pm)
			}
		}
		if b.p.Path.Enabled {
			g.node.Paths = append(g.node.Paths, b.paths(g.node.Name, g.records)...)
		}
		if g.node != root && (len(g.node.Placemarks) > 0 || len(g.node.Paths) > 0) {
			root.Folders = append(root.Folders, g.node)
		}
	}

	b.opts.Log.Debug("document built",
		zap.Int("folders", len(root.Folders)),
		zap.Int("placemarks", root.PlacemarkCount()),
		zap.Int("paths", root.PathCount()),
	)
	return root, nil
}

func (b *Builder) folderKey(rec models.PlacemarkRecord) string {
	switch b.p.Folders.By {
	case profile.FolderByDir:
		dir := path.Dir(rec.SourceFile)
		if dir == "." {
			return b.rootName
		}
		return dir
	case profile.FolderByDate:
		return b.folderPattern.Format(rec.TakenAt)
	case profile.FolderByRegex:
		m := b.folderRe.FindStringSubmatch(rec.SourceFile)
		switch {
		case m == nil:
			return b.p.Folders.RegexDefault
		case len(m) > 1:
			return m[1]
		default:
			return m[0]
		}
	}
	return ""
}

// rootFolderName names the folder of files at the top of the source. Archive
// names lose their whole extension ("trip.tar.gz" is "trip"); directory names
// are kept as they are.
func rootFolderName(root string, archive bool) string {
	name := filepath.Base(root)
	if !archive {
		return name
	}
	if format, _, err := archives.Identify(context.Background(), name, nil); err == nil {
		if ext := format.Extension(); ext != "" && strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (b *Builder) placemark(rec models.PlacemarkRecord, folder string) (models.Placemark, bool, error) {
	var lat, lon float64
	switch {
	case rec.Point != nil:
		lat, lon = rec.Point.Lat(), rec.Point.Lon()
	case b.p.Placemark.IncludeNullCoordinate:
		lat, lon = b.p.Placemark.Lat, b.p.Placemark.Lon
	default:
		return models.Placemark{}, false, nil
	}

	name, err := b.namer.Name(rec)
	if err != nil {
		return models.Placemark{}, false, err
	}

	pm := models.Placemark{
		Name:        name,
		Description: b.desc.Render(b.fields(rec, name, folder, lat, lon)),
		Lat:         lat,
		Lon:         lon,
		Time:        rec.TakenAt,
	}
	if b.p.Photo.Icon && rec.Thumbnail != "" {
		pm.Icon = escapePath(b.opts.ThumbDir + "/" + IconPath(rec.Thumbnail))
	}
	return pm, true, nil
}

// fields holds the description placeholders. lat and lon are where the
// placemark is drawn, the fallback position for records without a geotag.
func (b *Builder) fields(rec models.PlacemarkRecord, name, folder string, lat, lon float64) map[string]string {
	base := path.Base(rec.SourceFile)
	fields := map[string]string{
		"NAME":     html.EscapeString(name),
		"FILENAME": html.EscapeString(base),
		"BASENAME": html.EscapeString(strings.TrimSuffix(base, path.Ext(base))),
		"PATH":     html.EscapeString(rec.SourceFile),
		"FOLDER":   html.EscapeString(folder),
		"LAT":      formatCoord(lat),
		"LON":      formatCoord(lon),
	}
	if !rec.TakenAt.IsZero() {
		fields["DATE"] = rec.TakenAt.UTC().Format(time.RFC3339)
	}
	if b.p.Photo.Embed {
		if ref := b.photoRef(rec); ref != "" {
			fields["PHOTO"] = b.imgTag(ref)
		}
	}
	return fields
}

func (b *Builder) imgTag(ref string) string {
	if b.p.Photo.Reference == profile.ReferenceThumbnail {
		return fmt.Sprintf(`<img src="%s"/>`, html.EscapeString(ref))
	}
	return fmt.Sprintf(`<img src="%s" width="%d"/>`, html.EscapeString(ref), b.p.Photo.MaxWidth)
}

func (b *Builder) photoRef(rec models.PlacemarkRecord) string {
	abs := filepath.Join(b.opts.SourceRoot, filepath.FromSlash(rec.SourceFile))
	switch b.p.Photo.Reference {
	case profile.ReferenceAbsolute:
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
		return u.String()
	case profile.ReferenceRelative:
		rel, err := filepath.Rel(b.opts.OutputDir, abs)
		if err != nil {
			return ""
		}
		return escapePath(filepath.ToSlash(rel))
	case profile.ReferenceThumbnail:
		if rec.Thumbnail == "" {
			return ""
		}
		return escapePath(b.opts.ThumbDir + "/" + rec.Thumbnail)
	case profile.ReferenceBaseURL:
		return strings.TrimSuffix(b.p.Photo.BaseURL, "/") + "/" + escapePath(rec.SourceFile)
	}
	return ""
}

// paths connects the geotagged records of one folder in time order. Records
// without a point are not vertices. Segments shorter than two points are
// dropped.
func (b *Builder) paths(folder string, recs []models.PlacemarkRecord) []models.LinePath {
	var pts []models.GeoPoint
	for _, r := range recs {
		if r.Point != nil {
			pts = append(pts, *r.Point)
		}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time().Before(pts[j].Time()) })

	var out []models.LinePath
	var cur []models.GeoPoint
	curKey := ""
	flush := func() {
		if len(cur) >= 2 {
			name := folder
			if curKey != "" {
				name = strings.TrimSpace(folder + " " + curKey)
			}
			out = append(out, models.LinePath{Name: name, Points: cur})
		}
		cur = nil
	}
	for _, pt := range pts {
		key := splitKey(pt.Time(), b.p.Path.SplitBy)
		if len(cur) > 0 && key != curKey {
			flush()
		}
		cur = append(cur, pt)
		curKey = key
	}
	flush()
	return out
}

func splitKey(t time.Time, by profile.SplitBy) string {
	switch by {
	case profile.SplitHour:
		return t.Format("2006-01-02 15h")
	case profile.SplitDay:
		return t.Format("2006-01-02")
	case profile.SplitWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case profile.SplitMonth:
		return t.Format("2006-01")
	case profile.SplitYear:
		return t.Format("2006")
	}
	return ""
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
