// Package dedup suppresses repeat alerts for the same signal identity
// within a cooldown window. The durable timestamp store is injected so
// the suppression logic itself stays stateless and testable.
package dedup

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/patterns"
)

// Identity keys cooldown records. Bias is part of the key: a bullish
// and a bearish signal on the same pattern are distinct alerts.
type Identity struct {
	Instrument string
	Timeframe  string
	Kind       patterns.Kind
	Bias       patterns.Bias
}

// Key renders the identity as a stable store key
func (id Identity) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s", id.Instrument, id.Timeframe, id.Kind, id.Bias)
}

// Store persists last-emission timestamps per identity
type Store interface {
	// GetLastEmitted returns the last emission time and whether a
	// record exists.
	GetLastEmitted(ctx context.Context, id Identity) (time.Time, bool, error)
	SetLastEmitted(ctx context.Context, id Identity, t time.Time) error
}

// numStripes bounds lock contention; identities hash onto stripes so
// different identities rarely serialize while the same identity always
// does.
const numStripes = 64

// Manager applies the cooldown window over a Store. When the store
// fails it either lets alerts through (fail-open, the default) or
// suppresses everything (fail-closed), per configuration.
type Manager struct {
	store      Store
	window     time.Duration
	failClosed bool
	logger     zerolog.Logger
	stripes    [numStripes]sync.Mutex
}

// NewManager creates a cooldown manager with the given window
func NewManager(store Store, window time.Duration, failClosed bool, logger zerolog.Logger) *Manager {
	return &Manager{
		store:      store,
		window:     window,
		failClosed: failClosed,
		logger:     logger.With().Str("component", "dedup").Logger(),
	}
}

// Window returns the configured cooldown duration
func (m *Manager) Window() time.Duration { return m.window }

func (m *Manager) stripe(id Identity) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id.Key()))
	return &m.stripes[h.Sum32()%numStripes]
}

// ShouldEmit reports whether the identity is outside its cooldown
// window at the given time.
func (m *Manager) ShouldEmit(ctx context.Context, id Identity, now time.Time) bool {
	last, found, err := m.store.GetLastEmitted(ctx, id)
	if err != nil {
		m.logger.Warn().Err(err).Str("identity", id.Key()).
			Bool("fail_closed", m.failClosed).
			Msg("cooldown store read failed")
		return !m.failClosed
	}
	if !found {
		return true
	}
	return now.Sub(last) >= m.window
}

// RecordEmitted stores the emission time for the identity
func (m *Manager) RecordEmitted(ctx context.Context, id Identity, now time.Time) {
	if err := m.store.SetLastEmitted(ctx, id, now); err != nil {
		m.logger.Warn().Err(err).Str("identity", id.Key()).
			Msg("cooldown store write failed")
	}
}

// Claim atomically checks eligibility and records the emission. The
// per-identity stripe lock makes the read-then-write safe against a
// concurrent pipeline run seeing the same candidate.
func (m *Manager) Claim(ctx context.Context, id Identity, now time.Time) bool {
	mu := m.stripe(id)
	mu.Lock()
	defer mu.Unlock()

	if !m.ShouldEmit(ctx, id, now) {
		return false
	}
	m.RecordEmitted(ctx, id, now)
	return true
}

// MemoryStore is an in-process Store used in tests and when no durable
// backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryStore creates an empty in-memory cooldown store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time)}
}

func (s *MemoryStore) GetLastEmitted(ctx context.Context, id Identity) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.entries[id.Key()]
	return t, ok, nil
}

func (s *MemoryStore) SetLastEmitted(ctx context.Context, id Identity, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id.Key()] = t
	return nil
}
