package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ingest request status constants
const (
	RequestStatusQueued    = "queued"
	RequestStatusRunning   = "running"
	RequestStatusSucceeded = "succeeded"
	RequestStatusFailed    = "failed"
)

// Pipeline stage labels reported while a request is running. Diagnostic only;
// the status column is the authoritative state.
const (
	StageMetadata   = "metadata"
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
	StageQC         = "qc"
	StagePersist    = "persist"
	StageCleanup    = "cleanup"
)

// IngestRequest represents one "process this URL into a summarized episode"
// unit of work, advanced through its lifecycle by the external pipeline.
type IngestRequest struct {
	gorm.Model
	UserID uint   `gorm:"not null;index" json:"user_id"`
	URL    string `gorm:"uniqueIndex:idx_ingest_requests_url_not_deleted,where:deleted_at IS NULL;not null" json:"url"`
	Source string `gorm:"not null" json:"source"` // "youtube" or "audio"
	Status string `gorm:"not null;default:'queued';index" json:"status"`

	// Stage is set only while Status == RequestStatusRunning.
	Stage string `gorm:"not null;default:''" json:"stage,omitempty"`

	// JobID is the reference returned by the job runner for the most recent
	// trigger; resend/retry overwrite it rather than appending.
	JobID string `gorm:"column:job_id;not null;default:''" json:"job_id,omitempty"`

	// EpisodeID links the produced artifact; set only on success.
	EpisodeID *uint `json:"episode_id,omitempty"`

	// Error payload, present only when Status == RequestStatusFailed.
	ErrorMessage string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	ErrorDetails datatypes.JSON `gorm:"type:jsonb" json:"error_details,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the request has reached a final state.
func (r *IngestRequest) Terminal() bool {
	return r.Status == RequestStatusSucceeded || r.Status == RequestStatusFailed
}
