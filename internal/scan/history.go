package scan

import (
	"sync"
	"time"

	"github.com/hsqsh/maisHack25/internal/detect"
)

// HistoryEntry records one positive detection cycle for debug display.
type HistoryEntry struct {
	At         time.Time
	Target     string
	Detections []detect.Detection
	HasPreview bool
}

// History is a bounded most-recent-first log. Appending beyond the cap
// evicts the oldest entry.
type History struct {
	mu      sync.Mutex
	limit   int
	entries []HistoryEntry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 20
	}
	return &History{limit: limit}
}

func (h *History) Add(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]HistoryEntry{entry}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}

// Entries returns a snapshot, newest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
