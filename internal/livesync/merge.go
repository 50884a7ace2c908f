// Package livesync keeps an operator-held ordered view of ingest requests in
// step with the server by polling snapshots and merging them in place, without
// reordering existing rows or disturbing per-row UI state.
package livesync

import "github.com/podsift/podsift/internal/models"

// Merge reconciles a freshly fetched snapshot into the existing ordered rows.
// Existing rows keep their positions and are replaced by their updated
// versions; snapshot entries not already present are appended at the tail in
// server order. Rows missing from the snapshot (deleted server-side) are kept
// as stale copies; removal only happens through an explicit local delete.
func Merge(local, snapshot []models.IngestRequest) []models.IngestRequest {
	updated := make(map[uint]models.IngestRequest, len(snapshot))
	order := make([]uint, 0, len(snapshot))
	for _, rec := range snapshot {
		if _, ok := updated[rec.ID]; !ok {
			order = append(order, rec.ID)
		}
		updated[rec.ID] = rec
	}

	merged := make([]models.IngestRequest, 0, len(local)+len(snapshot))
	consumed := make(map[uint]bool, len(snapshot))
	for _, rec := range local {
		if fresh, ok := updated[rec.ID]; ok {
			merged = append(merged, fresh)
			consumed[rec.ID] = true
		} else {
			merged = append(merged, rec)
		}
	}

	for _, id := range order {
		if !consumed[id] {
			merged = append(merged, updated[id])
		}
	}
	return merged
}
