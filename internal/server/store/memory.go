package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// normalize is the canonical key form for moderation state. Moderation
// must stick to the person, not the casing they typed.
func normalize(username string) string {
	return strings.ToLower(username)
}

type banRecord struct {
	display string // casing recorded at ban time
	reason  string
}

// MemoryStore keeps moderation state in process memory. The default
// when no redis backend is configured; state is lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	bans      map[string]banRecord // normalized username -> record
	cooldowns map[string]time.Time // normalized username -> expiry
	mutes     map[string]time.Time // normalized username -> expiry
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bans:      make(map[string]banRecord),
		cooldowns: make(map[string]time.Time),
		mutes:     make(map[string]time.Time),
		now:       time.Now,
	}
}

func (s *MemoryStore) Ban(_ context.Context, username, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[normalize(username)] = banRecord{display: username, reason: reason}
	return nil
}

func (s *MemoryStore) Unban(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalize(username)
	_, ok := s.bans[key]
	delete(s.bans, key)
	return ok, nil
}

func (s *MemoryStore) BanReason(_ context.Context, username string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bans[normalize(username)]
	return rec.reason, ok, nil
}

func (s *MemoryStore) Banned(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.bans))
	for _, rec := range s.bans {
		names = append(names, rec.display)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) SetCooldown(_ context.Context, username string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[normalize(username)] = s.now().Add(d)
	return nil
}

func (s *MemoryStore) CooldownRemaining(_ context.Context, username string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(s.cooldowns, normalize(username)), nil
}

func (s *MemoryStore) Mute(_ context.Context, username string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutes[normalize(username)] = s.now().Add(d)
	return nil
}

func (s *MemoryStore) MuteRemaining(_ context.Context, username string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(s.mutes, normalize(username)), nil
}

func (s *MemoryStore) Close() error { return nil }

// remainingLocked prunes an expired entry as a side effect. The key is
// already normalized.
func (s *MemoryStore) remainingLocked(m map[string]time.Time, key string) time.Duration {
	expiry, ok := m[key]
	if !ok {
		return 0
	}
	left := expiry.Sub(s.now())
	if left <= 0 {
		delete(m, key)
		return 0
	}
	return left
}
