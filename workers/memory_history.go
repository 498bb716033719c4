// workers/memory_history.go
package workers

import (
	"context"
	"sync"

	"skport-checkin/models"
	"skport-checkin/services"
)

// MemoryHistory keeps the most recent runs in process memory. It backs the
// status API when no database is configured.
type MemoryHistory struct {
	mu   sync.RWMutex
	max  int
	runs []models.CheckInRun // newest first
}

func NewMemoryHistory(size int) *MemoryHistory {
	if size <= 0 {
		size = 20
	}
	return &MemoryHistory{max: size}
}

func (h *MemoryHistory) SaveRun(_ context.Context, run *models.CheckInRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs = append([]models.CheckInRun{*run}, h.runs...)
	if len(h.runs) > h.max {
		h.runs = h.runs[:h.max]
	}
	return nil
}

func (h *MemoryHistory) ListRuns(_ context.Context, limit int) ([]models.CheckInRun, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.runs) {
		limit = len(h.runs)
	}
	out := make([]models.CheckInRun, limit)
	copy(out, h.runs[:limit])
	return out, nil
}

func (h *MemoryHistory) LatestRun(_ context.Context) (*models.CheckInRun, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.runs) == 0 {
		return nil, services.ErrRunNotFound
	}
	run := h.runs[0]
	return &run, nil
}
