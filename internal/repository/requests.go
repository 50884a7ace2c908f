// Package repository abstracts persistence for ingest requests, episodes and
// reports. The GORM implementation backs production; the in-memory
// implementation backs tests and local development without Postgres.
package repository

import (
	"context"
	"errors"

	"github.com/podsift/podsift/internal/models"
)

var (
	ErrNotFound = errors.New("resource not found")
	// ErrConflict signals a uniqueness violation (URL already tracked, report
	// period already generated).
	ErrConflict = errors.New("resource already exists")
)

// IngestRepository is the storage collaborator for the ingestion lifecycle.
type IngestRepository interface {
	CreateRequest(ctx context.Context, req *models.IngestRequest) error
	GetRequest(ctx context.Context, id uint) (*models.IngestRequest, error)
	// FindRequestByURL returns the live record tracking a URL, or ErrNotFound.
	FindRequestByURL(ctx context.Context, url string) (*models.IngestRequest, error)
	// ListRequests returns the current snapshot ordered by creation time
	// descending. This ordering is the contract the live-sync merge relies on.
	ListRequests(ctx context.Context) ([]models.IngestRequest, error)
	SaveRequest(ctx context.Context, req *models.IngestRequest) error
	DeleteRequest(ctx context.Context, id uint) error

	CreateEpisode(ctx context.Context, ep *models.Episode) error
}

// ReportRepository persists periodic reports keyed by canonical period key.
type ReportRepository interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReportByKey(ctx context.Context, kind, periodKey string) (*models.Report, error)
	SaveReport(ctx context.Context, report *models.Report) error
}
