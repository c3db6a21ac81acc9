package database

import "context"

const schema = `
	CREATE TABLE IF NOT EXISTS profiles (
		name TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		profile TEXT NOT NULL,
		output TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		files INTEGER NOT NULL,
		placemarks INTEGER NOT NULL,
		paths INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		degraded BOOLEAN DEFAULT FALSE,
		report JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_profile ON runs(profile);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

func Migrate(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, schema)
	return err
}

func (db *DB) Migrate(ctx context.Context) error {
	return Migrate(ctx, db.pool)
}
