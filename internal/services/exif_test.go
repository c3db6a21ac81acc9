package services

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Alexander-D-Karpov/photokml/internal/kml"
	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/Alexander-D-Karpov/photokml/internal/profile"
)

func expectKind(t *testing.T, err error, kind models.ExtractKind) {
	t.Helper()
	var xe *models.ExtractError
	if !errors.As(err, &xe) {
		t.Fatalf("expected ExtractError %s, got %v", kind, err)
	}
	if xe.Kind != kind {
		t.Fatalf("expected %s, got %s (%v)", kind, xe.Kind, xe.Err)
	}
}

func TestExtractGeotagged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg", photoJPEG(t, at(10), geo(40.5, -70.25)))

	svc := NewExifService(1<<20, time.Second)
	pt, err := svc.Extract(context.Background(), os.DirFS(dir), "a.jpg")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if math.Abs(pt.Lat()-40.5) > 1e-6 || math.Abs(pt.Lon()+70.25) > 1e-6 {
		t.Fatalf("unexpected position %f, %f", pt.Lat(), pt.Lon())
	}
	if !pt.Time().Equal(at(10)) {
		t.Fatalf("unexpected time %v", pt.Time())
	}
}

func TestExtractSouthernHemisphere(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sydney.jpg", photoJPEG(t, at(9), geo(-33.8568, 151.2153)))

	pt, err := NewExifService(0, 0).Extract(context.Background(), os.DirFS(dir), "sydney.jpg")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if math.Abs(pt.Lat()+33.8568) > 1e-6 || math.Abs(pt.Lon()-151.2153) > 1e-6 {
		t.Fatalf("unexpected position %f, %f", pt.Lat(), pt.Lon())
	}
}

func TestExtractWithoutGPS(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.jpg", photoJPEG(t, at(11), nil))

	pt, err := NewExifService(1<<20, time.Second).Extract(context.Background(), os.DirFS(dir), "b.jpg")
	expectKind(t, err, models.NoMetadata)
	if pt.Valid() {
		t.Fatalf("expected no position, got %f, %f", pt.Lat(), pt.Lon())
	}
	if !pt.Time().Equal(at(11)) {
		t.Fatalf("expected capture time to survive, got %v", pt.Time())
	}
}

func TestExtractWithoutExifUsesModTime(t *testing.T) {
	dir := t.TempDir()
	name := writeFile(t, dir, "plain.jpg", plainJPEG(t))
	mtime := time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := os.Chtimes(name, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	pt, err := NewExifService(1<<20, time.Second).Extract(context.Background(), os.DirFS(dir), "plain.jpg")
	expectKind(t, err, models.NoMetadata)
	if !pt.Time().Equal(mtime) {
		t.Fatalf("expected modification time, got %v", pt.Time())
	}
}

func TestExtractInvalidCoordinate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.jpg", photoJPEG(t, at(12), geo(95, 10)))

	_, err := NewExifService(1<<20, time.Second).Extract(context.Background(), os.DirFS(dir), "bad.jpg")
	expectKind(t, err, models.InvalidCoordinate)
}

func TestExtractUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "junk.jpg", []byte("definitely not an image"))
	writeFile(t, dir, "big.jpg", photoJPEG(t, at(10), geo(1, 2)))
	fsys := os.DirFS(dir)

	_, err := NewExifService(1<<20, time.Second).Extract(context.Background(), fsys, "junk.jpg")
	expectKind(t, err, models.UnreadableFile)

	_, err = NewExifService(1<<20, time.Second).Extract(context.Background(), fsys, "missing.jpg")
	expectKind(t, err, models.UnreadableFile)

	_, err = NewExifService(64, time.Second).Extract(context.Background(), fsys, "big.jpg")
	expectKind(t, err, models.UnreadableFile)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewExifService(1<<20, time.Second).Extract(ctx, fsys, "big.jpg")
	expectKind(t, err, models.UnreadableFile)
}

func TestDecodeIndependentOfHostZone(t *testing.T) {
	data := photoJPEG(t, at(10), geo(40, -70))
	local := time.Local
	t.Cleanup(func() { time.Local = local })

	namer := NewNamer(profile.PlacemarkConfig{NameBy: profile.NameByDate, DatePattern: "yyyy-MM-dd HH:mm Z"}, "en-US")
	var outputs []string
	for _, zone := range []*time.Location{time.UTC, time.FixedZone("EDT", -4*3600), time.FixedZone("JST", 9*3600)} {
		time.Local = zone
		pt, err := NewExifService(1<<20, time.Second).Decode("a.jpg", data, time.Now())
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		name, err := namer.Name(models.PlacemarkRecord{SourceFile: "a.jpg", TakenAt: pt.Time(), Point: &pt})
		if err != nil {
			t.Fatalf("name: %v", err)
		}
		doc := &models.DocumentNode{
			Name:       "map",
			Placemarks: []models.Placemark{{Name: name, Lat: pt.Lat(), Lon: pt.Lon(), Time: pt.Time()}},
		}
		var buf bytes.Buffer
		if err := kml.Encode(&buf, doc, kml.PathStyle{Width: 2, Color: "ff0000ff"}); err != nil {
			t.Fatalf("encode: %v", err)
		}
		outputs = append(outputs, buf.String())
	}

	if !strings.Contains(outputs[0], "<when>2021-06-01T10:00:00Z</when>") {
		t.Fatalf("expected the recorded wall clock time, got\n%s", outputs[0])
	}
	if !strings.Contains(outputs[0], "<name>2021-06-01 10:00 +0000</name>") {
		t.Fatalf("unexpected name in\n%s", outputs[0])
	}
	for i, out := range outputs[1:] {
		if out != outputs[0] {
			t.Fatalf("output differs under zone %d:\n%s\nvs\n%s", i+1, out, outputs[0])
		}
	}
}

func TestDecodeModTimeIndependentOfHostZone(t *testing.T) {
	local := time.Local
	t.Cleanup(func() { time.Local = local })

	mtime := time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, zone := range []*time.Location{time.UTC, time.FixedZone("PST", -8*3600)} {
		time.Local = zone
		pt, err := NewExifService(1<<20, time.Second).Decode("plain.jpg", plainJPEG(t), mtime.In(zone))
		expectKind(t, err, models.NoMetadata)
		if pt.Time().Location() != time.UTC || !pt.Time().Equal(mtime) {
			t.Fatalf("expected %v in UTC, got %v", mtime, pt.Time())
		}
	}
}
