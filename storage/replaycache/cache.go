// Package replaycache is a LevelDB-backed idempotency cache for
// verify_and_distribute_rewards, using the same check-and-mark-observed
// pattern as gateway/auth/nonce_leveldb.go: a
// composite key is looked up before the expensive operation runs, and a
// value written atomically once it succeeds. This backstops the in-memory
// Participation.State guard in gridservice with a persisted, restart-safe
// idempotency record — GridService alone enforces the state machine;
// this cache exists so a host replaying a request after a crash does not
// re-issue a mint that already landed.
package replaycache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrAlreadySeen is returned by MarkIfAbsent when the key has already been
// recorded.
var ErrAlreadySeen = errors.New("replaycache: key already recorded")

// Cache is a LevelDB-backed set of previously-seen idempotency keys, each
// tagged with the wall-clock time it was first observed.
type Cache struct {
	mu sync.Mutex // serializes MarkIfAbsent's check-then-write
	db *leveldb.DB
}

// Open opens (or creates) a LevelDB database at path.
func Open(path string) (*Cache, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("replaycache: path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("replaycache: resolve path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("replaycache: open: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying LevelDB resources.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RewardKey builds the idempotency key for one (eventID, account) reward
// distribution.
func RewardKey(eventID uint64, account string) string {
	return fmt.Sprintf("reward:%d:%s", eventID, account)
}

// MarkIfAbsent records key with observedAt if it has not been seen before,
// returning ErrAlreadySeen (with the original observedAt) when it has.
// This mirrors gateway/auth/nonce_leveldb.go's EnsureNonce: a single
// check-then-write pass, held under the cache's mutex so two concurrent
// calls for the same key cannot both record it.
func (c *Cache) MarkIfAbsent(key string, observedAt time.Time) (time.Time, error) {
	if c == nil || c.db == nil {
		return time.Time{}, fmt.Errorf("replaycache: not configured")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := c.db.Get([]byte(key), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		if err := c.db.Put([]byte(key), encodeUnixNano(observedAt.UnixNano()), nil); err != nil {
			return time.Time{}, fmt.Errorf("replaycache: record: %w", err)
		}
		return observedAt, nil
	case err != nil:
		return time.Time{}, fmt.Errorf("replaycache: load: %w", err)
	default:
		nanos := int64(binary.BigEndian.Uint64(raw))
		return time.Unix(0, nanos).UTC(), ErrAlreadySeen
	}
}

// Seen reports whether key has already been recorded.
func (c *Cache) Seen(key string) (bool, error) {
	_, err := c.db.Get([]byte(key), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

func encodeUnixNano(nanos int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(nanos))
	return buf
}
