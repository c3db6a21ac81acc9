package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type GeoPoint struct {
	time time.Time
	lat  float64
	lon  float64
}

func NewGeoPoint(t time.Time, lat, lon float64) (GeoPoint, error) {
	if !ValidLatitude(lat) || !ValidLongitude(lon) {
		return TimeOnly(t), fmt.Errorf("coordinate out of range: (%f, %f)", lat, lon)
	}
	return GeoPoint{time: t, lat: lat, lon: lon}, nil
}

// TimeOnly returns a point that carries a capture time but no usable position.
// It is what the extractor hands back together with a NoMetadata error.
func TimeOnly(t time.Time) GeoPoint {
	return GeoPoint{time: t, lat: math.NaN(), lon: math.NaN()}
}

func (p GeoPoint) Time() time.Time { return p.time }
func (p GeoPoint) Lat() float64    { return p.lat }
func (p GeoPoint) Lon() float64    { return p.lon }

func (p GeoPoint) Valid() bool {
	return ValidLatitude(p.lat) && ValidLongitude(p.lon)
}

func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

func ValidLongitude(lon float64) bool {
	return !math.IsNaN(lon) && lon >= -180 && lon <= 180
}

// PlacemarkRecord is the per-photo result of a scan. Point is nil when the
// photo has no usable geotag.
type PlacemarkRecord struct {
	Index      int
	SourceFile string
	TakenAt    time.Time
	Point      *GeoPoint
	Thumbnail  string
}

type DocumentNode struct {
	Name        string
	Description string
	Folders     []*DocumentNode
	Placemarks  []Placemark
	Paths       []LinePath
}

type Placemark struct {
	Name        string
	Description string
	Lat         float64
	Lon         float64
	Time        time.Time
	Icon        string
}

type LinePath struct {
	Name   string
	Points []GeoPoint
}

// Walk visits n and every folder below it, depth first.
func (n *DocumentNode) Walk(fn func(*DocumentNode)) {
	fn(n)
	for _, f := range n.Folders {
		f.Walk(fn)
	}
}

func (n *DocumentNode) PlacemarkCount() int {
	count := 0
	n.Walk(func(d *DocumentNode) { count += len(d.Placemarks) })
	return count
}

func (n *DocumentNode) PathCount() int {
	count := 0
	n.Walk(func(d *DocumentNode) { count += len(d.Paths) })
	return count
}

type FileOutcome struct {
	Path   string      `json:"path"`
	Kind   ExtractKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

type RunReport struct {
	ID         uuid.UUID     `json:"id"`
	Profile    string        `json:"profile"`
	Output     string        `json:"output"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Files      int           `json:"files"`
	Placemarks int           `json:"placemarks"`
	Paths      int           `json:"paths"`
	Skipped    []FileOutcome `json:"skipped,omitempty"`
	Warnings   []FileOutcome `json:"warnings,omitempty"`
	Degraded   bool          `json:"degraded"`
}

func NewRunReport(profile, output string) *RunReport {
	return &RunReport{
		ID:        uuid.New(),
		Profile:   profile,
		Output:    output,
		StartedAt: time.Now(),
	}
}

// Summary is the one line the CLI prints after a run.
func (r *RunReport) Summary() string {
	s := fmt.Sprintf("%d files, %d placemarks, %d paths, %d skipped, %d warnings",
		r.Files, r.Placemarks, r.Paths, len(r.Skipped), len(r.Warnings))
	if r.Degraded {
		s += " (degraded)"
	}
	return s
}

// SkippedByKind counts skipped files per extraction outcome.
func (r *RunReport) SkippedByKind() map[ExtractKind]int {
	counts := make(map[ExtractKind]int)
	for _, o := range r.Skipped {
		counts[o.Kind]++
	}
	return counts
}
