package database

import (
	"context"
	"encoding/json"

	"github.com/Alexander-D-Karpov/photokml/internal/profile"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore keeps named profiles as JSONB documents.
type ProfileStore struct {
	db Querier
}

func NewProfileStore(db Querier) *ProfileStore {
	return &ProfileStore{db: db}
}

// Save inserts p or replaces the stored profile of the same name.
func (s *ProfileStore) Save(ctx context.Context, p *profile.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encode profile")
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO profiles (name, data) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		p.Name, data)
	return errors.Wrapf(err, "save profile %s", p.Name)
}

func (s *ProfileStore) Get(ctx context.Context, name string) (*profile.Profile, error) {
	var data []byte
	err := s.db.QueryRow(ctx, "SELECT data FROM profiles WHERE name = $1", name).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load profile %s", name)
	}

	p := profile.Default()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Wrapf(err, "decode profile %s", name)
	}
	p.Name = name
	p.Normalize()
	return p, nil
}

func (s *ProfileStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, "SELECT name FROM profiles ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *ProfileStore) Delete(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM profiles WHERE name = $1", name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
