package profile

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// LoadFile reads a profile from a YAML, JSON or TOML file. Settings missing
// from the file take their values from Default. Relative source and
// description paths are resolved against the directory of the file.
func LoadFile(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read profile %s", path)
	}

	p := &Profile{}
	if err := v.Unmarshal(p); err != nil {
		return nil, errors.Wrapf(err, "decode profile %s", path)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	dir := filepath.Dir(path)
	p.Source.Root = resolve(dir, p.Source.Root)
	p.Description.ExternalFile = resolve(dir, p.Description.ExternalFile)
	p.Normalize()
	return p, nil
}

// Normalize upper-cases the enumerated settings so profiles written by hand
// may use any case.
func (p *Profile) Normalize() {
	p.Folders.By = FolderBy(strings.ToUpper(string(p.Folders.By)))
	p.Placemark.NameBy = NameBy(strings.ToUpper(string(p.Placemark.NameBy)))
	p.Description.Mode = DescriptionMode(strings.ToUpper(string(p.Description.Mode)))
	p.Photo.Reference = PhotoReference(strings.ToUpper(string(p.Photo.Reference)))
	p.Path.SplitBy = SplitBy(strings.ToUpper(string(p.Path.SplitBy)))
}

func resolve(dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func setDefaults(v *viper.Viper, d *Profile) {
	v.SetDefault("locale", d.Locale)

	v.SetDefault("source.patterns", d.Source.Patterns)
	v.SetDefault("source.recursive", d.Source.Recursive)

	v.SetDefault("folders.by", string(d.Folders.By))
	v.SetDefault("folders.date_pattern", d.Folders.DatePattern)
	v.SetDefault("folders.regex_default", d.Folders.RegexDefault)

	v.SetDefault("placemark.name_by", string(d.Placemark.NameBy))
	v.SetDefault("placemark.date_pattern", d.Placemark.DatePattern)

	v.SetDefault("description.mode", string(d.Description.Mode))
	v.SetDefault("description.template", d.Description.Template)

	v.SetDefault("photo.reference", string(d.Photo.Reference))
	v.SetDefault("photo.max_width", d.Photo.MaxWidth)
	v.SetDefault("photo.max_height", d.Photo.MaxHeight)
	v.SetDefault("photo.icon_size", d.Photo.IconSize)
	v.SetDefault("photo.quality", d.Photo.Quality)

	v.SetDefault("path.split_by", string(d.Path.SplitBy))
	v.SetDefault("path.width", d.Path.Width)
	v.SetDefault("path.color", d.Path.Color)
}
