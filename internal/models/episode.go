package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Episode is the artifact produced when an ingest request succeeds: the
// summarized podcast episode with JSONB summary content.
type Episode struct {
	gorm.Model
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	Title           string         `gorm:"not null;default:''" json:"title"`
	SourceURL       string         `gorm:"not null" json:"source_url"`
	DurationSeconds int            `gorm:"not null;default:0" json:"duration_seconds"`
	Summary         datatypes.JSON `gorm:"type:jsonb" json:"summary"`
}
