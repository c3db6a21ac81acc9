package services

import (
	"path"
	"strings"
	"sync"

	"github.com/Alexander-D-Karpov/photokml/internal/dateformat"
	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/Alexander-D-Karpov/photokml/internal/profile"
)

// Namer derives placemark names. A DATE namer whose pattern does not
// compile keeps working and hands out models.InvalidPatternName instead.
type Namer struct {
	cfg     profile.PlacemarkConfig
	pattern *dateformat.Pattern
	patErr  error

	mu       sync.Mutex
	degraded bool
}

func NewNamer(cfg profile.PlacemarkConfig, locale string) *Namer {
	n := &Namer{cfg: cfg}
	if cfg.NameBy == profile.NameByDate {
		n.pattern, n.patErr = dateformat.CompileTag(cfg.DatePattern, locale)
	}
	return n
}

func (n *Namer) Name(rec models.PlacemarkRecord) (string, error) {
	switch n.cfg.NameBy {
	case profile.NameByFile:
		base := path.Base(rec.SourceFile)
		return strings.TrimSuffix(base, path.Ext(base)), nil
	case profile.NameByDate:
		if n.patErr != nil {
			n.mu.Lock()
			n.degraded = true
			n.mu.Unlock()
			return models.InvalidPatternName, nil
		}
		return n.pattern.Format(rec.TakenAt), nil
	case profile.NameByNone:
		return "", nil
	}
	return "", &models.ConfigError{Code: models.UnknownNameMode, Detail: string(n.cfg.NameBy)}
}

// Degraded reports whether any name so far fell back to the sentinel.
func (n *Namer) Degraded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.degraded
}
