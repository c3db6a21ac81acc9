// Package profile holds the run configuration of the KML pipeline: where
// photos come from, how they are grouped, named and described, and whether
// they are connected by paths.
package profile

type NameBy string

const (
	NameByFile NameBy = "FILE"
	NameByDate NameBy = "DATE"
	NameByNone NameBy = "NONE"
)

type FolderBy string

const (
	FolderByNone  FolderBy = "NONE"
	FolderByDir   FolderBy = "DIR"
	FolderByDate  FolderBy = "DATE"
	FolderByRegex FolderBy = "REGEX"
)

type DescriptionMode string

const (
	DescriptionNone     DescriptionMode = "NONE"
	DescriptionStatic   DescriptionMode = "STATIC"
	DescriptionExternal DescriptionMode = "EXTERNAL"
)

type PhotoReference string

const (
	ReferenceAbsolute  PhotoReference = "ABSOLUTE"
	ReferenceRelative  PhotoReference = "RELATIVE"
	ReferenceThumbnail PhotoReference = "THUMBNAIL"
	ReferenceBaseURL   PhotoReference = "BASE_URL"
)

type SplitBy string

const (
	SplitNone  SplitBy = "NONE"
	SplitHour  SplitBy = "HOUR"
	SplitDay   SplitBy = "DAY"
	SplitWeek  SplitBy = "WEEK"
	SplitMonth SplitBy = "MONTH"
	SplitYear  SplitBy = "YEAR"
)

type Profile struct {
	Name        string            `json:"name" mapstructure:"name"`
	Locale      string            `json:"locale" mapstructure:"locale"`
	Source      SourceConfig      `json:"source" mapstructure:"source"`
	Folders     FolderConfig      `json:"folders" mapstructure:"folders"`
	Placemark   PlacemarkConfig   `json:"placemark" mapstructure:"placemark"`
	Description DescriptionConfig `json:"description" mapstructure:"description"`
	Photo       PhotoConfig       `json:"photo" mapstructure:"photo"`
	Path        PathConfig        `json:"path" mapstructure:"path"`
}

type SourceConfig struct {
	Root          string   `json:"root" mapstructure:"root"`
	Patterns      []string `json:"patterns" mapstructure:"patterns"`
	Recursive     bool     `json:"recursive" mapstructure:"recursive"`
	Exclude       string   `json:"exclude,omitempty" mapstructure:"exclude"`
	IncludeHidden bool     `json:"include_hidden,omitempty" mapstructure:"include_hidden"`
}

type FolderConfig struct {
	By           FolderBy `json:"by" mapstructure:"by"`
	DatePattern  string   `json:"date_pattern,omitempty" mapstructure:"date_pattern"`
	Regex        string   `json:"regex,omitempty" mapstructure:"regex"`
	RegexDefault string   `json:"regex_default,omitempty" mapstructure:"regex_default"`
	RootName     string   `json:"root_name,omitempty" mapstructure:"root_name"`
}

type PlacemarkConfig struct {
	NameBy                NameBy  `json:"name_by" mapstructure:"name_by"`
	DatePattern           string  `json:"date_pattern,omitempty" mapstructure:"date_pattern"`
	IncludeNullCoordinate bool    `json:"include_null_coordinate" mapstructure:"include_null_coordinate"`
	Lat                   float64 `json:"lat" mapstructure:"lat"`
	Lon                   float64 `json:"lon" mapstructure:"lon"`
}

type DescriptionConfig struct {
	Mode         DescriptionMode `json:"mode" mapstructure:"mode"`
	Template     string          `json:"template,omitempty" mapstructure:"template"`
	ExternalFile string          `json:"external_file,omitempty" mapstructure:"external_file"`
}

type PhotoConfig struct {
	Embed     bool           `json:"embed" mapstructure:"embed"`
	Reference PhotoReference `json:"reference" mapstructure:"reference"`
	BaseURL   string         `json:"base_url,omitempty" mapstructure:"base_url"`
	MaxWidth  int            `json:"max_width" mapstructure:"max_width"`
	MaxHeight int            `json:"max_height" mapstructure:"max_height"`
	Icon      bool           `json:"icon" mapstructure:"icon"`
	IconSize  int            `json:"icon_size" mapstructure:"icon_size"`
	Quality   int            `json:"quality" mapstructure:"quality"`
}

type PathConfig struct {
	Enabled bool    `json:"enabled" mapstructure:"enabled"`
	SplitBy SplitBy `json:"split_by" mapstructure:"split_by"`
	Width   float64 `json:"width" mapstructure:"width"`
	Color   string  `json:"color" mapstructure:"color"`
}

const (
	DefaultDatePattern       = "yyyy-MM-dd HH.mm"
	DefaultFolderDatePattern = "yyyy-MM-dd"
	DefaultTemplate          = "{PHOTO}<br/>{DATE}<br/>{LAT}, {LON}"
)

func Default() *Profile {
	return &Profile{
		Name:   "default",
		Locale: "en-US",
		Source: SourceConfig{
			Patterns:  []string{"*.jpg", "*.jpeg"},
			Recursive: true,
		},
		Folders: FolderConfig{
			By:           FolderByDir,
			DatePattern:  DefaultFolderDatePattern,
			RegexDefault: "Other",
		},
		Placemark: PlacemarkConfig{
			NameBy:      NameByFile,
			DatePattern: DefaultDatePattern,
		},
		Description: DescriptionConfig{
			Mode:     DescriptionStatic,
			Template: DefaultTemplate,
		},
		Photo: PhotoConfig{
			Reference: ReferenceThumbnail,
			MaxWidth:  640,
			MaxHeight: 640,
			IconSize:  64,
			Quality:   85,
		},
		Path: PathConfig{
			SplitBy: SplitNone,
			Width:   2,
			Color:   "ff0000ff",
		},
	}
}

// Clone returns a deep copy, so a run can hold a snapshot that later edits
// to the original cannot reach.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Source.Patterns = append([]string(nil), p.Source.Patterns...)
	return &c
}

// NeedsThumbnails reports whether a run has to render thumbnails.
func (p *Profile) NeedsThumbnails() bool {
	return p.Photo.Icon || (p.Photo.Embed && p.Photo.Reference == ReferenceThumbnail)
}

// DocumentName is the name of the KML document root.
func (p *Profile) DocumentName() string {
	if p.Folders.RootName != "" {
		return p.Folders.RootName
	}
	return p.Name
}
