package cover

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type HistoryEntry struct {
	ID              string    `json:"id"`
	DataURI         string    `json:"data_uri"`
	Title           string    `json:"title"`
	ClothingStyle   string    `json:"clothing_style,omitempty"`
	BackgroundScene string    `json:"background_scene,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// History is an append-only, newest-first ledger of generated covers.
// Unbounded on purpose: eviction or persistence would be a separate
// concern layered on top, not part of the generation core.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func NewHistory() *History {
	return &History{}
}

// Add records entry at the head of the ledger, filling in ID and
// CreatedAt when absent, and returns the stored entry.
func (h *History) Add(entry HistoryEntry) HistoryEntry {
	if entry.ID == "" {
		entry.ID = NewEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]HistoryEntry{entry}, h.entries...)
	return entry
}

// Entries returns a newest-first snapshot.
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

// NewEntryID is time-derived with a random suffix so same-millisecond
// appends still get distinct ids.
func NewEntryID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
