package profile

import (
	"fmt"
	"strings"
)

// Header renders the human readable summary of p that is written into the
// KML document description. Each section contributes its own block.
func Header(p *Profile) string {
	var sb strings.Builder
	sb.WriteString("\n")
	for _, section := range []func(*strings.Builder, *Profile){
		sourceHeader,
		foldersHeader,
		placemarkHeader,
		descriptionHeader,
		photoHeader,
		pathHeader,
	} {
		section(&sb, p)
		sb.WriteString("\n")
	}
	return sb.String()
}

func appendLine(sb *strings.Builder, key, value string) {
	fmt.Fprintf(sb, "  %s: %s\n", key, value)
}

func optAppend(sb *strings.Builder, enabled bool, text string) {
	if enabled {
		fmt.Fprintf(sb, "  %s\n", text)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func sourceHeader(sb *strings.Builder, p *Profile) {
	sb.WriteString("Source\n")
	appendLine(sb, "Root", p.Source.Root)
	appendLine(sb, "Patterns", strings.Join(p.Source.Patterns, ", "))
	appendLine(sb, "Recursive", yesNo(p.Source.Recursive))
	optAppend(sb, p.Source.Exclude != "", "Exclude: "+p.Source.Exclude)
	optAppend(sb, p.Source.IncludeHidden, "Include hidden files")
}

func foldersHeader(sb *strings.Builder, p *Profile) {
	sb.WriteString("Folders\n")
	by := string(p.Folders.By)
	switch p.Folders.By {
	case FolderByDate:
		by = fmt.Sprintf("%s (%s)", by, p.Folders.DatePattern)
	case FolderByRegex:
		by = fmt.Sprintf("%s (%s, default %q)", by, p.Folders.Regex, p.Folders.RegexDefault)
	}
	appendLine(sb, "Folder by", by)
	optAppend(sb, p.Folders.RootName != "", "Root name: "+p.Folders.RootName)
}

func placemarkHeader(sb *strings.Builder, p *Profile) {
	sb.WriteString("Placemark\n")
	nameBy := ""
	switch p.Placemark.NameBy {
	case NameByFile:
		nameBy = "File name"
	case NameByDate:
		nameBy = fmt.Sprintf("Date pattern: %s", p.Placemark.DatePattern)
	case NameByNone:
		nameBy = "None"
	}
	appendLine(sb, "Name by", nameBy)
	optAppend(sb, p.Placemark.IncludeNullCoordinate, fmt.Sprintf("Include null coordinate (%f, %f)",
		p.Placemark.Lat, p.Placemark.Lon))
}

func descriptionHeader(sb *strings.Builder, p *Profile) {
	sb.WriteString("Description\n")
	appendLine(sb, "Mode", string(p.Description.Mode))
	switch p.Description.Mode {
	case DescriptionStatic:
		appendLine(sb, "Template", p.Description.Template)
	case DescriptionExternal:
		appendLine(sb, "File", p.Description.ExternalFile)
	}
}

func photoHeader(sb *strings.Builder, p *Profile) {
	sb.WriteString("Photo\n")
	appendLine(sb, "Embed", yesNo(p.Photo.Embed))
	if p.Photo.Embed {
		ref := string(p.Photo.Reference)
		switch p.Photo.Reference {
		case ReferenceBaseURL:
			ref = fmt.Sprintf("%s (%s)", ref, p.Photo.BaseURL)
		case ReferenceThumbnail:
			ref = fmt.Sprintf("%s (%dx%d)", ref, p.Photo.MaxWidth, p.Photo.MaxHeight)
		}
		appendLine(sb, "Reference", ref)
	}
	optAppend(sb, p.Photo.Icon, fmt.Sprintf("Thumbnail icons (%d px)", p.Photo.IconSize))
}

func pathHeader(sb *strings.Builder, p *Profile) {
	sb.WriteString("Path\n")
	appendLine(sb, "Draw path", yesNo(p.Path.Enabled))
	if p.Path.Enabled {
		appendLine(sb, "Split by", string(p.Path.SplitBy))
		appendLine(sb, "Line", fmt.Sprintf("%g px #%s", p.Path.Width, p.Path.Color))
	}
}
