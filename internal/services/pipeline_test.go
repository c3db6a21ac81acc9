package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Alexander-D-Karpov/photokml/internal/kml"
	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/Alexander-D-Karpov/photokml/internal/profile"
)

type fakeRecorder struct {
	reports []*models.RunReport
}

func (f *fakeRecorder) Record(_ context.Context, r *models.RunReport) error {
	f.reports = append(f.reports, r)
	return nil
}

func newPipeline(runs RunRecorder, metricsFile string) *PipelineService {
	metrics := NewMetrics()
	scanner := NewScannerService(NewExifService(1<<20, 0), metrics, 3, nil)
	return NewPipelineService(scanner, PipelineOptions{Metrics: metrics, Runs: runs, MetricsFile: metricsFile})
}

func pipelineProfile(root string) *profile.Profile {
	p := profile.Default()
	p.Name = "test"
	p.Source.Root = root
	p.Folders.By = profile.FolderByNone
	return p
}

func readDocument(t *testing.T, name string) *models.DocumentNode {
	t.Helper()
	f, err := os.Open(name)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	doc, err := kml.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return doc
}

func TestRunSkipsPhotoWithoutGeotag(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "A.jpg", photoJPEG(t, at(10), geo(40, -70)))
	writeFile(t, src, "B.jpg", photoJPEG(t, at(11), nil))
	out := filepath.Join(t.TempDir(), "map.kml")

	runs := &fakeRecorder{}
	report, err := newPipeline(runs, "").Run(context.Background(), pipelineProfile(src), out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Files != 2 || report.Placemarks != 1 || report.Paths != 0 {
		t.Fatalf("unexpected report: %s", report.Summary())
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Path != "B.jpg" || report.Skipped[0].Kind != models.NoMetadata {
		t.Fatalf("expected B.jpg skipped with NoMetadata, got %+v", report.Skipped)
	}
	if len(runs.reports) != 1 || runs.reports[0].ID != report.ID {
		t.Fatalf("expected the run to be recorded")
	}

	doc := readDocument(t, out)
	if len(doc.Placemarks) != 1 || doc.Placemarks[0].Name != "A" {
		t.Fatalf("expected one placemark A, got %+v", doc.Placemarks)
	}
	if doc.Placemarks[0].Lat != 40 || doc.Placemarks[0].Lon != -70 {
		t.Fatalf("unexpected position %+v", doc.Placemarks[0])
	}
}

func TestRunNullCoordinatesBecomeWarnings(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "A.jpg", photoJPEG(t, at(10), geo(40, -70)))
	writeFile(t, src, "B.jpg", photoJPEG(t, at(11), nil))
	writeFile(t, src, "C.jpg", []byte("corrupt"))
	out := filepath.Join(t.TempDir(), "map.kml")

	p := pipelineProfile(src)
	p.Placemark.IncludeNullCoordinate = true
	report, err := newPipeline(nil, "").Run(context.Background(), p, out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Placemarks != 2 {
		t.Fatalf("expected 2 placemarks, got %d", report.Placemarks)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Path != "B.jpg" {
		t.Fatalf("expected B.jpg as warning, got %+v", report.Warnings)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Kind != models.UnreadableFile {
		t.Fatalf("expected corrupt file skipped, got %+v", report.Skipped)
	}
}

func TestRunWritesThumbnailsAndPaths(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "day/1.jpg", photoJPEG(t, at(9), geo(10, 10)))
	writeFile(t, src, "day/2.jpg", photoJPEG(t, at(10), geo(10.5, 10.5)))
	outDir := t.TempDir()
	out := filepath.Join(outDir, "map.kml")
	metricsFile := filepath.Join(outDir, "metrics.prom")

	p := pipelineProfile(src)
	p.Folders.By = profile.FolderByDir
	p.Photo.Embed = true
	p.Photo.Icon = true
	p.Path.Enabled = true

	report, err := newPipeline(nil, metricsFile).Run(context.Background(), p, out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Paths != 1 {
		t.Fatalf("expected one path, got %d", report.Paths)
	}

	thumbs := filepath.Join(outDir, "map-thumbs")
	for _, name := range []string{"00000_1.jpg", "00001_2.jpg", "icons/00000_1.jpg"} {
		if _, err := os.Stat(filepath.Join(thumbs, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	doc := readDocument(t, out)
	pm := doc.Folders[0].Placemarks[0]
	if !strings.Contains(pm.Description, `src="map-thumbs/00000_1.jpg"`) || pm.Icon != "map-thumbs/icons/00000_1.jpg" {
		t.Fatalf("unexpected photo references: %+v", pm)
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 3 {
		t.Fatalf("expected document, thumbnails and metrics only, got %v", entries)
	}
	if b, _ := os.ReadFile(metricsFile); !strings.Contains(string(b), "photokml_last_run_success 1") {
		t.Fatalf("metrics file missing success gauge:\n%s", b)
	}
}

func TestRunRejectsInvalidProfile(t *testing.T) {
	outDir := t.TempDir()
	p := pipelineProfile(filepath.Join(outDir, "missing"))
	_, err := newPipeline(nil, "").Run(context.Background(), p, filepath.Join(outDir, "map.kml"))

	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.Section != models.SectionSource {
		t.Fatalf("expected source validation error, got %v", err)
	}
	if entries, _ := os.ReadDir(outDir); len(entries) != 0 {
		t.Fatalf("invalid run left files behind: %v", entries)
	}
}

func TestRunCancelledLeavesNothing(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "A.jpg", photoJPEG(t, at(10), geo(40, -70)))
	outDir := t.TempDir()

	p := pipelineProfile(src)
	p.Photo.Embed = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newPipeline(nil, "").Run(ctx, p, filepath.Join(outDir, "map.kml"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if entries, _ := os.ReadDir(outDir); len(entries) != 0 {
		t.Fatalf("cancelled run left files behind: %v", entries)
	}
}

func TestRunDoesNotSeeLaterProfileEdits(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "A.jpg", photoJPEG(t, at(10), geo(40, -70)))
	out := filepath.Join(t.TempDir(), "map.kml")

	p := pipelineProfile(src)
	report, err := newPipeline(nil, "").Run(context.Background(), p, out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	p.Name = "renamed"
	if report.Profile != "test" {
		t.Fatalf("report should keep the profile name of the run, got %q", report.Profile)
	}
}
