// Package migration creates the report job log schema.
package migration

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// Migration is one idempotent schema step.
type Migration struct {
	Name  string
	Query string
}

// Migrations lists the steps in the order they run.
var Migrations = []Migration{
	{
		Name: "create_report_jobs",
		Query: `CREATE TABLE IF NOT EXISTS report_jobs (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL,
			status TEXT NOT NULL,
			mode TEXT NOT NULL DEFAULT 'lenient',
			schema_versions TEXT[] NOT NULL DEFAULT '{}',
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			pdf_path TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	},
	{
		Name:  "index_report_jobs_email",
		Query: `CREATE INDEX IF NOT EXISTS report_jobs_email_created_idx ON report_jobs (email, created_at DESC)`,
	},
	{
		Name:  "index_report_jobs_status",
		Query: `CREATE INDEX IF NOT EXISTS report_jobs_status_idx ON report_jobs (status)`,
	},
}

// RunMigrations executes every migration on startup.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	log = log.Named("migration")
	log.Info("starting database migrations", zap.Int("count", len(Migrations)))

	for _, m := range Migrations {
		if _, err := pool.Exec(ctx, m.Query); err != nil {
			log.Error("migration failed", zap.String("name", m.Name), zap.Error(err))
			return err
		}
		log.Info("migration completed", zap.String("name", m.Name))
	}
	return nil
}
