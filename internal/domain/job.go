package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report job statuses.
const (
	StatusPending        = "pending"
	StatusRejected       = "rejected"
	StatusRenderFailed   = "render_failed"
	StatusRendered       = "rendered"
	StatusDelivered      = "delivered"
	StatusDeliveryFailed = "delivery_failed"
)

// ReportJob is the bookkeeping record of one report build. It never holds the
// submitted answers, only what is needed to trace and re-send a report.
type ReportJob struct {
	ID             uuid.UUID              `json:"id"`
	Email          string                 `json:"email"`
	Status         string                 `json:"status"`
	Mode           string                 `json:"mode"`
	SchemaVersions []string               `json:"schema_versions"`
	Metadata       map[string]interface{} `json:"metadata"`
	PDFPath        string                 `json:"pdf_path,omitempty"`
	Error          string                 `json:"error,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func NewReportJob(email, mode string, now time.Time) *ReportJob {
	return &ReportJob{
		ID:        uuid.New(),
		Email:     email,
		Status:    StatusPending,
		Mode:      mode,
		Metadata:  map[string]interface{}{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the job to status and stamps it. A non-nil err is kept
// as the job's last error.
func (j *ReportJob) Transition(status string, err error, now time.Time) {
	j.Status = status
	if err != nil {
		j.Error = err.Error()
	}
	j.UpdatedAt = now
}
