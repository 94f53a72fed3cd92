// Package respcache provides the TTL-based response cache consumed by the
// provider adapters. Entries are keyed by a stable hash of the request
// parameters; callers never learn whether a value was fresh or cached.
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTTL is how long cached provider responses stay valid.
const DefaultTTL = 24 * time.Hour

// Cache is a namespaced, TTL-based key-value store. Get reports a miss with
// (false, nil); cache failures are surfaced as errors so callers can decide
// to treat them as silent misses.
type Cache interface {
	// Get looks up the entry for (namespace, keyData) and, on a hit,
	// unmarshals the stored value into out.
	Get(ctx context.Context, namespace string, keyData any, out any) (bool, error)

	// Set stores value under (namespace, keyData). Entries are independently
	// keyed and idempotently overwritten with equivalent data.
	Set(ctx context.Context, namespace string, keyData any, value any) error
}

// Key derives the stable cache key for (namespace, keyData): a SHA-256 over
// the namespace and the canonical JSON encoding of the key data.
func Key(namespace string, keyData any) (string, error) {
	encoded, err := json.Marshal(keyData)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write(encoded)
	return namespace + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// Nop is a cache that never hits and never stores. Used when caching is
// disabled.
type Nop struct{}

func (Nop) Get(context.Context, string, any, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any, any) error         { return nil }
