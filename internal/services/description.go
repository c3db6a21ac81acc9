package services

import (
	"os"

	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/Alexander-D-Karpov/photokml/internal/profile"
)

// DescriptionRenderer fills {FIELD} placeholders of the description
// template. Fields without data render as empty text.
type DescriptionRenderer struct {
	mode     profile.DescriptionMode
	template string
}

func NewDescriptionRenderer(cfg profile.DescriptionConfig) (*DescriptionRenderer, error) {
	r := &DescriptionRenderer{mode: cfg.Mode}
	switch cfg.Mode {
	case profile.DescriptionNone:
	case profile.DescriptionStatic:
		r.template = cfg.Template
	case profile.DescriptionExternal:
		b, err := os.ReadFile(cfg.ExternalFile)
		if err != nil {
			return nil, &models.ConfigError{Code: models.DescriptionUnreadable, Detail: err.Error()}
		}
		r.template = string(b)
	default:
		return nil, &models.ConfigError{Code: models.DescriptionUnreadable, Detail: "unknown mode " + string(cfg.Mode)}
	}
	return r, nil
}

func (r *DescriptionRenderer) Render(fields map[string]string) string {
	if r.template == "" {
		return ""
	}
	return profile.PlaceholderPattern().ReplaceAllStringFunc(r.template, func(m string) string {
		return fields[m[1:len(m)-1]]
	})
}
