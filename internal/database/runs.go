package database

import (
	"context"
	"encoding/json"

	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/pkg/errors"
)

// RunStore keeps the history of finished runs.
type RunStore struct {
	db Querier
}

func NewRunStore(db Querier) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Record(ctx context.Context, r *models.RunReport) error {
	report, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode run report")
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO runs (id, profile, output, started_at, finished_at, files, placemarks, paths, skipped, degraded, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.Profile, r.Output, r.StartedAt, r.FinishedAt,
		r.Files, r.Placemarks, r.Paths, len(r.Skipped), r.Degraded, report)
	return errors.Wrap(err, "record run")
}

// Recent returns up to limit reports of profile, newest first.
func (s *RunStore) Recent(ctx context.Context, profile string, limit int) ([]models.RunReport, error) {
	rows, err := s.db.Query(ctx,
		"SELECT report FROM runs WHERE profile = $1 ORDER BY started_at DESC LIMIT $2",
		profile, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.RunReport
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r models.RunReport
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, errors.Wrap(err, "decode run report")
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
