package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"time"

	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
)

type ExifService struct {
	maxSize int64
	timeout time.Duration
}

func NewExifService(maxSize int64, timeout time.Duration) *ExifService {
	return &ExifService{maxSize: maxSize, timeout: timeout}
}

// Extract reads the geotag and capture time of one photo. When the photo has
// no usable geotag the error is an *models.ExtractError of kind NoMetadata or
// InvalidCoordinate and the returned point still carries the capture time.
func (s *ExifService) Extract(ctx context.Context, fsys fs.FS, name string) (models.GeoPoint, error) {
	data, info, err := s.Read(ctx, fsys, name)
	if err != nil {
		return models.TimeOnly(time.Time{}), &models.ExtractError{Kind: models.UnreadableFile, Path: name, Err: err}
	}
	return s.Decode(name, data, info.ModTime())
}

// Read loads a whole file, refusing files above the size cap and reads that
// outlive the per-file timeout.
func (s *ExifService) Read(ctx context.Context, fsys fs.FS, name string) ([]byte, fs.FileInfo, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%s is a directory", name)
	}
	if s.maxSize > 0 && info.Size() > s.maxSize {
		f.Close()
		return nil, nil, fmt.Errorf("file size %d exceeds limit %d", info.Size(), s.maxSize)
	}

	type readResult struct {
		data []byte
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		defer f.Close()
		var r io.Reader = &ctxReader{ctx: ctx, r: f}
		if s.maxSize > 0 {
			r = io.LimitReader(r, s.maxSize+1)
		}
		data, err := io.ReadAll(r)
		done <- readResult{data: data, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, nil, errors.Wrap(res.err, "read")
		}
		if s.maxSize > 0 && int64(len(res.data)) > s.maxSize {
			return nil, nil, fmt.Errorf("file exceeds limit %d", s.maxSize)
		}
		return res.data, info, nil
	case <-ctx.Done():
		return nil, nil, errors.Wrap(ctx.Err(), "read")
	}
}

// Decode extracts the capture point from file contents already in memory.
// modTime stands in for the capture time when the photo does not record one.
//
// EXIF capture times carry no zone in most cameras. Those are kept as the
// wall clock reading in UTC, so the result does not depend on the zone of the
// machine decoding them.
func (s *ExifService) Decode(name string, data []byte, modTime time.Time) (models.GeoPoint, error) {
	modTime = modTime.UTC()
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		if _, _, cfgErr := image.DecodeConfig(bytes.NewReader(data)); cfgErr != nil {
			return models.TimeOnly(modTime), &models.ExtractError{
				Kind: models.UnreadableFile, Path: name, Err: errors.Wrap(cfgErr, "decode image"),
			}
		}
		return models.TimeOnly(modTime), &models.ExtractError{Kind: models.NoMetadata, Path: name, Err: err}
	}

	takenAt := modTime
	if tm, err := x.DateTime(); err == nil {
		takenAt = tm
		if tz, _ := x.TimeZone(); tz == nil {
			takenAt = wallClock(tm)
		}
	}

	lat, lon, err := x.LatLong()
	if err != nil {
		return models.TimeOnly(takenAt), &models.ExtractError{Kind: models.NoMetadata, Path: name, Err: err}
	}

	pt, err := models.NewGeoPoint(takenAt, lat, lon)
	if err != nil {
		return pt, &models.ExtractError{Kind: models.InvalidCoordinate, Path: name, Err: err}
	}
	return pt, nil
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
