package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/podsift/podsift/internal/models"
)

// MemoryRepository stores records in memory for tests and local development.
type MemoryRepository struct {
	mu       sync.RWMutex
	nextID   uint
	requests map[uint]*models.IngestRequest
	episodes map[uint]*models.Episode
	reports  map[string]*models.Report // keyed by kind + "/" + period key
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:   1,
		requests: make(map[uint]*models.IngestRequest),
		episodes: make(map[uint]*models.Episode),
		reports:  make(map[string]*models.Report),
	}
}

func (r *MemoryRepository) CreateRequest(_ context.Context, req *models.IngestRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	req.ID = r.nextID
	r.nextID++
	req.CreatedAt = now
	req.UpdatedAt = now

	clone := cloneRequest(req)
	r.requests[req.ID] = clone
	return nil
}

func (r *MemoryRepository) GetRequest(_ context.Context, id uint) (*models.IngestRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRequest(req), nil
}

func (r *MemoryRepository) FindRequestByURL(_ context.Context, url string) (*models.IngestRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, req := range r.requests {
		if req.URL == url {
			return cloneRequest(req), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListRequests(_ context.Context) ([]models.IngestRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.IngestRequest, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, *cloneRequest(req))
	}
	// Creation time descending; newer IDs break ties deterministically.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) SaveRequest(_ context.Context, req *models.IngestRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[req.ID]; !ok {
		return ErrNotFound
	}
	req.UpdatedAt = time.Now().UTC()
	r.requests[req.ID] = cloneRequest(req)
	return nil
}

func (r *MemoryRepository) DeleteRequest(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[id]; !ok {
		return ErrNotFound
	}
	delete(r.requests, id)
	return nil
}

func (r *MemoryRepository) CreateEpisode(_ context.Context, ep *models.Episode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	ep.ID = r.nextID
	r.nextID++
	ep.CreatedAt = now
	ep.UpdatedAt = now

	clone := *ep
	r.episodes[ep.ID] = &clone
	return nil
}

func (r *MemoryRepository) CreateReport(_ context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := report.Kind + "/" + report.PeriodKey
	if _, ok := r.reports[key]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	report.ID = r.nextID
	r.nextID++
	report.CreatedAt = now
	report.UpdatedAt = now

	clone := *report
	r.reports[key] = &clone
	return nil
}

func (r *MemoryRepository) GetReportByKey(_ context.Context, kind, periodKey string) (*models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[kind+"/"+periodKey]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *report
	return &clone, nil
}

func (r *MemoryRepository) SaveReport(_ context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := report.Kind + "/" + report.PeriodKey
	if _, ok := r.reports[key]; !ok {
		return ErrNotFound
	}
	report.UpdatedAt = time.Now().UTC()
	clone := *report
	r.reports[key] = &clone
	return nil
}

func cloneRequest(req *models.IngestRequest) *models.IngestRequest {
	clone := *req
	if req.StartedAt != nil {
		t := *req.StartedAt
		clone.StartedAt = &t
	}
	if req.CompletedAt != nil {
		t := *req.CompletedAt
		clone.CompletedAt = &t
	}
	if req.EpisodeID != nil {
		id := *req.EpisodeID
		clone.EpisodeID = &id
	}
	if req.ErrorDetails != nil {
		clone.ErrorDetails = append([]byte(nil), req.ErrorDetails...)
	}
	return &clone
}
