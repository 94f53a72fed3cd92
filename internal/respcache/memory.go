package respcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process TTL cache. Safe for concurrent readers and writers
// across independent callers; each entry is independently keyed so no
// cross-operation locking is needed beyond the map mutex.
type Memory struct {
	ttl             time.Duration
	cleanupInterval time.Duration

	mu          sync.RWMutex
	entries     map[string]memoryEntry
	lastCleanup time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryConfig holds configuration for the in-memory cache.
type MemoryConfig struct {
	// TTL is how long entries stay valid (default: DefaultTTL).
	TTL time.Duration

	// CleanupInterval is how often expired entries are swept (default: 10 minutes).
	CleanupInterval time.Duration
}

// NewMemory creates a new in-memory response cache.
func NewMemory(cfg MemoryConfig) *Memory {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	cleanup := cfg.CleanupInterval
	if cleanup == 0 {
		cleanup = 10 * time.Minute
	}
	return &Memory{
		ttl:             ttl,
		cleanupInterval: cleanup,
		entries:         make(map[string]memoryEntry),
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, namespace string, keyData any, out any) (bool, error) {
	key, err := Key(namespace, keyData)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}

	if err := json.Unmarshal(entry.data, out); err != nil {
		return false, fmt.Errorf("decode cached value: %w", err)
	}
	return true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, namespace string, keyData any, value any) error {
	key, err := Key(namespace, keyData)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		data:      data,
		expiresAt: time.Now().Add(m.ttl),
	}
	m.cleanupLocked()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// cleanupLocked sweeps expired entries when the cleanup interval has passed.
// Caller must hold the write lock.
func (m *Memory) cleanupLocked() {
	now := time.Now()
	if now.Sub(m.lastCleanup) < m.cleanupInterval {
		return
	}
	m.lastCleanup = now

	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
}
