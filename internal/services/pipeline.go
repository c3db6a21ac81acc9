package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Alexander-D-Karpov/photokml/internal/kml"
	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/Alexander-D-Karpov/photokml/internal/profile"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RunRecorder stores finished run reports. database.RunStore implements it.
type RunRecorder interface {
	Record(ctx context.Context, r *models.RunReport) error
}

type PipelineService struct {
	scanner     *ScannerService
	metrics     *Metrics
	runs        RunRecorder
	metricsFile string
	log         *zap.Logger
}

type PipelineOptions struct {
	Metrics     *Metrics
	Runs        RunRecorder
	MetricsFile string
	Log         *zap.Logger
}

func NewPipelineService(scanner *ScannerService, opts PipelineOptions) *PipelineService {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &PipelineService{
		scanner:     scanner,
		metrics:     opts.Metrics,
		runs:        opts.Runs,
		metricsFile: opts.MetricsFile,
		log:         log,
	}
}

// Run converts the photos selected by p into a KML document at output. The
// run either writes the document (and its thumbnail directory) or leaves
// nothing behind. Per-file problems are reported in the RunReport and do
// not fail the run.
func (s *PipelineService) Run(ctx context.Context, p *profile.Profile, output string) (*models.RunReport, error) {
	start := time.Now()
	report, err := s.run(ctx, p.Clone(), output)

	if report != nil {
		s.metrics.ObserveRun(report.Placemarks, report.Paths, time.Since(start), err == nil)
	} else {
		s.metrics.ObserveRun(0, 0, time.Since(start), false)
	}
	if s.metrics != nil && s.metricsFile != "" {
		if werr := s.metrics.WriteTextfile(s.metricsFile); werr != nil {
			s.log.Warn("failed to write metrics", zap.String("file", s.metricsFile), zap.Error(werr))
		}
	}

	if err != nil {
		s.log.Error("run failed", zap.String("profile", p.Name), zap.Error(err))
		return nil, err
	}

	if s.runs != nil {
		if err := s.runs.Record(ctx, report); err != nil {
			s.log.Warn("failed to record run", zap.String("run", report.ID.String()), zap.Error(err))
		}
	}
	s.log.Info("run finished",
		zap.String("run", report.ID.String()),
		zap.String("output", report.Output),
		zap.Int("files", report.Files),
		zap.Int("placemarks", report.Placemarks),
		zap.Int("paths", report.Paths),
		zap.Int("skipped", len(report.Skipped)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (s *PipelineService) run(ctx context.Context, p *profile.Profile, output string) (*models.RunReport, error) {
	if err := profile.Validate(p); err != nil {
		return nil, err
	}
	output, err := filepath.Abs(output)
	if err != nil {
		return nil, errors.Wrap(err, "resolve output")
	}
	report := models.NewRunReport(p.Name, output)

	src, err := s.scanner.Open(ctx, p.Source)
	if err != nil {
		return nil, err
	}
	files, err := src.Enumerate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate source")
	}
	report.Files = len(files)
	s.log.Info("run started",
		zap.String("run", report.ID.String()),
		zap.String("profile", p.Name),
		zap.String("source", src.Root),
		zap.Int("files", len(files)),
	)

	var thumbs *ThumbnailService
	if p.NeedsThumbnails() {
		if thumbs, err = NewThumbnailService(output, p.Photo); err != nil {
			return nil, &models.SerializationError{Path: ThumbnailDir(output), Err: err}
		}
	}
	finalized := false
	defer func() {
		if thumbs != nil && !finalized {
			thumbs.Discard()
		}
	}()

	records, outcomes, err := s.scanner.Scan(ctx, src, files, thumbs)
	if err != nil {
		return nil, err
	}

	builder, err := NewBuilder(p, BuilderOptions{
		SourceRoot: src.Root,
		Archive:    src.Archive,
		OutputDir:  filepath.Dir(output),
		ThumbDir:   filepath.Base(ThumbnailDir(output)),
		Log:        s.log,
	})
	if err != nil {
		return nil, err
	}
	doc, err := builder.Build(records)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	style := kml.PathStyle{Width: p.Path.Width, Color: p.Path.Color}
	if err := kml.WriteFile(output, func(w io.Writer) error { return kml.Encode(w, doc, style) }); err != nil {
		return nil, err
	}
	if thumbs != nil {
		if err := thumbs.Finalize(ThumbnailDir(output)); err != nil {
			os.Remove(output)
			return nil, &models.SerializationError{Path: ThumbnailDir(output), Err: err}
		}
		finalized = true
	}

	for _, o := range outcomes {
		if o.Kind != models.UnreadableFile && p.Placemark.IncludeNullCoordinate {
			report.Warnings = append(report.Warnings, o)
		} else {
			report.Skipped = append(report.Skipped, o)
		}
	}
	report.Placemarks = doc.PlacemarkCount()
	report.Paths = doc.PathCount()
	report.Degraded = builder.Degraded()
	report.FinishedAt = time.Now()
	return report, nil
}
