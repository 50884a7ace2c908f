package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/podsift/podsift/internal/models"
)

// GormRepository is the Postgres-backed implementation used in production.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) CreateRequest(ctx context.Context, req *models.IngestRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create ingest request: %w", err)
	}
	return nil
}

func (r *GormRepository) GetRequest(ctx context.Context, id uint) (*models.IngestRequest, error) {
	var req models.IngestRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ingest request: %w", err)
	}
	return &req, nil
}

func (r *GormRepository) FindRequestByURL(ctx context.Context, url string) (*models.IngestRequest, error) {
	var req models.IngestRequest
	if err := r.db.WithContext(ctx).Where("url = ?", url).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find ingest request by url: %w", err)
	}
	return &req, nil
}

func (r *GormRepository) ListRequests(ctx context.Context) ([]models.IngestRequest, error) {
	var requests []models.IngestRequest
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("list ingest requests: %w", err)
	}
	return requests, nil
}

func (r *GormRepository) SaveRequest(ctx context.Context, req *models.IngestRequest) error {
	// Save writes all fields, including ones cleared back to zero values
	// (stage, error payload) - Updates with a struct would skip those.
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return fmt.Errorf("save ingest request: %w", err)
	}
	return nil
}

func (r *GormRepository) DeleteRequest(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.IngestRequest{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete ingest request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) CreateEpisode(ctx context.Context, ep *models.Episode) error {
	if err := r.db.WithContext(ctx).Create(ep).Error; err != nil {
		return fmt.Errorf("create episode: %w", err)
	}
	return nil
}

func (r *GormRepository) CreateReport(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (r *GormRepository) GetReportByKey(ctx context.Context, kind, periodKey string) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).Where("kind = ? AND period_key = ?", kind, periodKey).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report by key: %w", err)
	}
	return &report, nil
}

func (r *GormRepository) SaveReport(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Save(report).Error; err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// isUniqueViolation matches Postgres unique-constraint errors (SQLSTATE 23505)
// without depending on the driver's error types.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
