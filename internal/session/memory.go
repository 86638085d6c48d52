// Package session keeps the per-chat search session between a listing being
// sent and the user acting on it.
package session

import (
	"context"
	"sync"
	"time"

	"lunemusic/internal/domain"
)

const DefaultTTL = 30 * time.Minute

type memoryEntry struct {
	session   domain.SearchSession
	expiresAt time.Time
}

// MemoryStore is a process-local session store. Entries expire after the TTL;
// a janitor started with Run evicts them in the background.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (domain.SearchSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[chatID]
	if !ok {
		return domain.SearchSession{}, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, chatID)
		return domain.SearchSession{}, false, nil
	}
	return cloneSession(entry.session), true, nil
}

// Set replaces whatever session the chat had.
func (s *MemoryStore) Set(_ context.Context, session domain.SearchSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[session.ChatID] = memoryEntry{
		session:   cloneSession(session),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chatID)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run evicts expired sessions every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryStore) evictExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for chatID, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, chatID)
			evicted++
		}
	}
	return evicted
}

func cloneSession(session domain.SearchSession) domain.SearchSession {
	cloned := session
	if session.Results != nil {
		cloned.Results = append([]domain.SearchResultItem(nil), session.Results...)
	}
	return cloned
}
