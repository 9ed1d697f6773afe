// Package openrouter implements the AI transport against the OpenRouter
// chat-completions API, including credential rotation, retry with
// backoff, and truncation detection.
package openrouter

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/prepforge/prepai/internal/domain"
	"github.com/prepforge/prepai/internal/observability"
)

// KeyRotator balances requests across a fixed pool of API credentials.
// Selection picks uniformly among the least-used keys, avoiding the
// previously selected one; when the pool is size 1 or the only
// least-used key is the last-used one, it falls back to a uniform pick
// over the whole pool so progress is always possible.
type KeyRotator struct {
	mu    sync.Mutex
	keys  []string
	usage []int
	last  int // index of last selection, -1 before the first

	// intn is swappable in tests for deterministic selection.
	intn func(n int) int
}

// NewKeyRotator constructs a rotator over the given credential pool.
// Entries are trimmed and empties dropped; an empty resulting pool is an
// error.
func NewKeyRotator(keys []string) (*KeyRotator, error) {
	pool := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			pool = append(pool, k)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: credential pool is empty", domain.ErrInvalidArgument)
	}
	return &KeyRotator{
		keys:  pool,
		usage: make([]int, len(pool)),
		last:  -1,
		intn:  rand.Intn,
	}, nil
}

// Size returns the pool size.
func (r *KeyRotator) Size() int { return len(r.keys) }

// Next selects a credential, increments its usage counter, and records
// it as last-used. It never fails.
func (r *KeyRotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	min := r.usage[0]
	for _, c := range r.usage[1:] {
		if c < min {
			min = c
		}
	}
	candidates := make([]int, 0, len(r.keys))
	for i, c := range r.usage {
		if c == min && i != r.last {
			candidates = append(candidates, i)
		}
	}

	var idx int
	if len(candidates) == 0 {
		// escape valve: size-1 pool, or the sole minimum is the key we
		// just used; pick uniformly over everything
		idx = r.intn(len(r.keys))
	} else {
		idx = candidates[r.intn(len(candidates))]
	}
	r.usage[idx]++
	r.last = idx
	observability.AIKeySelections.WithLabelValues(strconv.Itoa(idx)).Inc()
	return r.keys[idx]
}

// Usage returns a snapshot of the per-credential usage counters.
func (r *KeyRotator) Usage() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.usage))
	copy(out, r.usage)
	return out
}
