package livesync

import (
	"sync"

	"github.com/podsift/podsift/internal/models"
)

// ViewState is the session-local state of one admin view instance: the
// ordered rows and the set of expanded detail panels, keyed by record id so
// expansion survives in-place row updates.
type ViewState struct {
	mu       sync.RWMutex
	rows     []models.IngestRequest
	expanded map[uint]bool
}

func NewViewState() *ViewState {
	return &ViewState{expanded: make(map[uint]bool)}
}

// ApplySnapshot merges a polled snapshot into the rows in place.
func (s *ViewState) ApplySnapshot(snapshot []models.IngestRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = Merge(s.rows, snapshot)
}

// Rows returns a copy of the current ordered rows.
func (s *ViewState) Rows() []models.IngestRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.IngestRequest, len(s.rows))
	copy(out, s.rows)
	return out
}

// Remove drops a row after a confirmed delete. The merge never removes rows
// on its own, so this is the only local removal path.
func (s *ViewState) Remove(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.rows {
		if rec.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			break
		}
	}
	delete(s.expanded, id)
}

// ToggleExpanded flips a row's detail panel.
func (s *ViewState) ToggleExpanded(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded[id] {
		delete(s.expanded, id)
	} else {
		s.expanded[id] = true
	}
}

// Expanded reports whether a row's detail panel is open.
func (s *ViewState) Expanded(id uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[id]
}
