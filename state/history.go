package state

import (
	"sync"
	"time"

	"tradebull/game"
)

// ==============================================================================
// BACKEND HISTORY CACHE (refreshed by the scheduler, read by the API)
// ==============================================================================

type History struct {
	mu        sync.RWMutex
	items     []game.HistoryItem
	updatedAt time.Time
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Set(items []game.HistoryItem) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append([]game.HistoryItem(nil), items...)
	h.updatedAt = time.Now()
}

// Items returns a copy of the cached items and when they were fetched.
// A zero time means the cache was never filled.
func (h *History) Items() ([]game.HistoryItem, time.Time) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]game.HistoryItem, len(h.items))
	copy(out, h.items)
	return out, h.updatedAt
}
