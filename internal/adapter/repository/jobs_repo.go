// Package repository persists report job records in Postgres.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgconn"

	"life-alignment/internal/domain"
)

// Execer is the part of *pgxpool.Pool the repository needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// JobsRepo upserts report_jobs rows. A JobsRepo without a database is a no-op.
type JobsRepo struct {
	db Execer
}

// NewJobsRepo accepts a *pgxpool.Pool; a nil db disables persistence.
func NewJobsRepo(db Execer) *JobsRepo {
	return &JobsRepo{db: db}
}

const upsertJob = `INSERT INTO report_jobs (id, email, status, mode, schema_versions, metadata, pdf_path, error, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, schema_versions = EXCLUDED.schema_versions, metadata = EXCLUDED.metadata, pdf_path = EXCLUDED.pdf_path, error = EXCLUDED.error, updated_at = EXCLUDED.updated_at`

func (r *JobsRepo) Save(ctx context.Context, j *domain.ReportJob) error {
	if r == nil || r.db == nil {
		return nil
	}

	meta := j.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	metaB, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("jobs_repo: marshal metadata: %w", err)
	}
	versions := j.SchemaVersions
	if versions == nil {
		versions = []string{}
	}

	if _, err := r.db.Exec(ctx, upsertJob,
		j.ID, j.Email, j.Status, j.Mode, versions, metaB, j.PDFPath, j.Error, j.CreatedAt, j.UpdatedAt); err != nil {
		return fmt.Errorf("jobs_repo: upsert %s: %w", j.ID, err)
	}
	return nil
}
