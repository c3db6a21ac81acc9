package kml

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Alexander-D-Karpov/photokml/internal/models"
)

func mustPoint(t *testing.T, ts time.Time, lat, lon float64) models.GeoPoint {
	t.Helper()
	pt, err := models.NewGeoPoint(ts, lat, lon)
	if err != nil {
		t.Fatalf("point: %v", err)
	}
	return pt
}

func sampleDocument(t *testing.T) *models.DocumentNode {
	ts := time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC)
	return &models.DocumentNode{
		Name:        "Trip",
		Description: "\nSource\n  Root: /photos\n",
		Folders: []*models.DocumentNode{
			{
				Name: "day1",
				Placemarks: []models.Placemark{
					{Name: "A", Description: `<img src="a.jpg"/>`, Lat: 40, Lon: -70, Time: ts, Icon: "map-thumbs/icons/00000_A.jpg"},
					{Name: "B", Lat: 40.5, Lon: -70.25, Time: ts.Add(time.Hour)},
				},
				Paths: []models.LinePath{{
					Name: "day1",
					Points: []models.GeoPoint{
						mustPoint(t, ts, 40, -70),
						mustPoint(t, ts.Add(time.Hour), 40.5, -70.25),
					},
				}},
			},
		},
		Placemarks: []models.Placemark{{Name: "root", Lat: -33.123456, Lon: 151.654321}},
	}
}

func TestEncodeFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleDocument(t), PathStyle{Width: 3, Color: "ff00ff00"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<kml xmlns="http://www.opengis.net/kml/2.2">`,
		`<coordinates>-70.000000,40.000000</coordinates>`,
		`<coordinates>151.654321,-33.123456</coordinates>`,
		`<coordinates>-70.000000,40.000000 -70.250000,40.500000</coordinates>`,
		`<when>2021-06-01T10:00:00Z</when>`,
		`<Style id="path">`,
		`<color>ff00ff00</color>`,
		`<styleUrl>#path</styleUrl>`,
		`<href>map-thumbs/icons/00000_A.jpg</href>`,
		`&lt;img src=&#34;a.jpg&#34;/&gt;`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEncodeWithoutPathsHasNoStyle(t *testing.T) {
	doc := &models.DocumentNode{Name: "x", Placemarks: []models.Placemark{{Name: "a", Lat: 1, Lon: 2}}}
	var buf bytes.Buffer
	if err := Encode(&buf, doc, PathStyle{Width: 2, Color: "ff0000ff"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(buf.String(), "<Style") {
		t.Fatalf("expected no shared style without paths:\n%s", buf.String())
	}
}

func TestRoundTrip(t *testing.T) {
	doc := sampleDocument(t)
	var buf bytes.Buffer
	if err := Encode(&buf, doc, PathStyle{Width: 2, Color: "ff0000ff"}); err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != doc.Name || got.Description != doc.Description {
		t.Fatalf("document mismatch: %q %q", got.Name, got.Description)
	}
	if got.PlacemarkCount() != doc.PlacemarkCount() || got.PathCount() != doc.PathCount() {
		t.Fatalf("counts differ: %d/%d vs %d/%d", got.PlacemarkCount(), got.PathCount(), doc.PlacemarkCount(), doc.PathCount())
	}
	if len(got.Folders) != 1 || got.Folders[0].Name != "day1" {
		t.Fatalf("folder structure lost: %+v", got.Folders)
	}

	a := got.Folders[0].Placemarks[0]
	want := doc.Folders[0].Placemarks[0]
	if a.Name != want.Name || a.Description != want.Description || a.Icon != want.Icon {
		t.Fatalf("placemark mismatch: %+v", a)
	}
	if a.Lat != want.Lat || a.Lon != want.Lon || !a.Time.Equal(want.Time) {
		t.Fatalf("placemark position mismatch: %+v", a)
	}

	path := got.Folders[0].Paths[0]
	if len(path.Points) != 2 || path.Points[1].Lat() != 40.5 || path.Points[1].Lon() != -70.25 {
		t.Fatalf("path mismatch: %+v", path)
	}
	if got.Placemarks[0].Lat != -33.123456 || got.Placemarks[0].Lon != 151.654321 {
		t.Fatalf("root placemark mismatch: %+v", got.Placemarks[0])
	}
}

func TestDecodeRejectsBadCoordinates(t *testing.T) {
	in := `<kml><Document><name>x</name><Placemark><name>a</name><Point><coordinates>abc</coordinates></Point></Placemark></Document></kml>`
	if _, err := Decode(strings.NewReader(in)); err == nil {
		t.Fatalf("expected error for malformed coordinates")
	}
	in = `<kml><Document><Placemark><Point><coordinates>10,95</coordinates></Point></Placemark></Document></kml>`
	if _, err := Decode(strings.NewReader(in)); err == nil {
		t.Fatalf("expected error for out of range latitude")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "map.kml")
	if err := os.WriteFile(name, []byte("old"), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	failure := errors.New("disk full")
	err := WriteFile(name, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return failure
	})
	var serr *models.SerializationError
	if !errors.As(err, &serr) || !errors.Is(err, failure) {
		t.Fatalf("expected SerializationError wrapping the cause, got %v", err)
	}
	if b, _ := os.ReadFile(name); string(b) != "old" {
		t.Fatalf("failed write touched the target: %q", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary file left behind: %v", entries)
	}

	if err := WriteFile(name, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if b, _ := os.ReadFile(name); string(b) != "new" {
		t.Fatalf("expected new content, got %q", b)
	}
}
