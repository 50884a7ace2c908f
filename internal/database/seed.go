package database

import (
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/podsift/podsift/internal/models"
)

// SeedDevData populates the database with development test data.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	// Check if seed data already exists
	var existingUser models.User
	result := db.Where("email = ?", "dev@podsift.local").First(&existingUser)
	if result.Error == nil {
		log.Println("Seed data already exists, skipping")
		return nil
	}

	// Create test operator
	user := models.User{
		Email:    "dev@podsift.local",
		Name:     "Dev Operator",
		Timezone: "America/Chicago",
		Role:     "admin",
	}

	if err := db.Create(&user).Error; err != nil {
		return err
	}

	// Create a completed request with its episode
	episode := models.Episode{
		UserID:          user.ID,
		Title:           "Sample Episode: Shipping Faster",
		SourceURL:       "https://youtu.be/dev-sample-1",
		DurationSeconds: 2700,
		Summary:         datatypes.JSON(`{"tldr":"A conversation about release trains and why smaller batches win."}`),
	}
	if err := db.Create(&episode).Error; err != nil {
		return err
	}

	now := time.Now().UTC()
	started := now.Add(-10 * time.Minute)
	succeeded := models.IngestRequest{
		UserID:      user.ID,
		URL:         "https://youtu.be/dev-sample-1",
		Source:      "youtube",
		Status:      models.RequestStatusSucceeded,
		JobID:       "dev-job-1",
		EpisodeID:   &episode.ID,
		StartedAt:   &started,
		CompletedAt: &now,
	}
	if err := db.Create(&succeeded).Error; err != nil {
		return err
	}

	// Create a failed request so retry is exercisable out of the box
	failedAt := now.Add(-5 * time.Minute)
	failed := models.IngestRequest{
		UserID:       user.ID,
		URL:          "https://cdn.example.com/dev-sample-2.mp3",
		Source:       "audio",
		Status:       models.RequestStatusFailed,
		JobID:        "dev-job-2",
		ErrorMessage: "transcription timed out",
		ErrorDetails: datatypes.JSON(`{"stage":"transcribe","timeout_seconds":600}`),
		StartedAt:    &started,
		CompletedAt:  &failedAt,
	}
	if err := db.Create(&failed).Error; err != nil {
		return err
	}

	log.Println("Seed data created: 1 user, 1 episode, 2 ingest requests")
	return nil
}
