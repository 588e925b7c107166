package session

import (
	"sync"
	"time"
)

// Draft is the in-progress cover request for one chat while the user
// fills it in through bot messages and commands.
type Draft struct {
	ChatID int64

	PhotoFileID string

	Title           string
	ClothingStyle   string
	BackgroundScene string
	Modification    string
	AspectRatio     string

	AwaitingTitle bool

	UpdatedAt time.Time
}

func (d Draft) Ready() bool {
	return d.PhotoFileID != "" && d.Title != ""
}

type Store struct {
	mu     sync.Mutex
	drafts map[int64]*Draft
	busy   map[int64]bool
}

func NewStore() *Store {
	return &Store{
		drafts: make(map[int64]*Draft),
		busy:   make(map[int64]bool),
	}
}

// Get returns a copy of the chat's draft.
func (s *Store) Get(chatID int64) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID)
}

// Update applies fn to the chat's draft under the lock and returns the
// resulting copy.
func (s *Store) Update(chatID int64, fn func(*Draft)) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.getOrCreateLocked(chatID)
	fn(d)
	d.UpdatedAt = time.Now()
	return *d
}

// Reset drops the draft but keeps the busy flag, so an in-flight
// generation still blocks re-entry.
func (s *Store) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, chatID)
}

// TryAcquire marks the chat busy. Returns false when a generation is
// already in flight; a started generation cannot be aborted mid-flight,
// the caller just has to wait it out.
func (s *Store) TryAcquire(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy[chatID] {
		return false
	}
	s.busy[chatID] = true
	return true
}

func (s *Store) Release(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, chatID)
}

func (s *Store) getOrCreateLocked(chatID int64) *Draft {
	if d, ok := s.drafts[chatID]; ok {
		return d
	}

	d := &Draft{ChatID: chatID, UpdatedAt: time.Now()}
	s.drafts[chatID] = d
	return d
}
