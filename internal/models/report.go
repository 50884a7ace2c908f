package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report status constants
const (
	ReportStatusPending   = "pending"
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"
)

// Report is a periodic aggregation over a calendar window. The (kind,
// period_key) pair is unique: the canonical period key is the idempotency
// guard against generating the same report twice.
type Report struct {
	gorm.Model
	Kind         string         `gorm:"not null;uniqueIndex:idx_reports_kind_period" json:"kind"`
	PeriodKey    string         `gorm:"column:period_key;not null;uniqueIndex:idx_reports_kind_period" json:"period_key"`
	PeriodStart  time.Time      `gorm:"not null" json:"period_start"`
	PeriodEnd    time.Time      `gorm:"not null" json:"period_end"`
	Status       string         `gorm:"not null;default:'pending'" json:"status"`
	Content      datatypes.JSON `gorm:"type:jsonb" json:"content,omitempty"`
	ErrorMessage string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	GeneratedAt  *time.Time     `json:"generated_at,omitempty"`
}
