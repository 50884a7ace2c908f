package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an application user owning ingest requests and episodes
type User struct {
	gorm.Model
	Email       string `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null"`
	Name        string `gorm:"not null;default:''"`
	Timezone    string `gorm:"not null;default:'UTC'"`
	Role        string `gorm:"not null;default:'user'"` // enum: 'user' or 'admin'
	LastLoginAt *time.Time

	// Associations
	IngestRequests []IngestRequest `gorm:"constraint:OnDelete:CASCADE;"`
	Episodes       []Episode       `gorm:"constraint:OnDelete:CASCADE;"`
}
