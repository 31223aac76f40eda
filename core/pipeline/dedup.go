package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"GiftFM/logger"

	"github.com/allegro/bigcache/v3"
)

// Dedup suppresses duplicate terminal gift events. The upstream feed is
// known to redeliver identical combo-final events under reconnect/retry;
// two events with the same (user, gift, repeatCount) inside the window are
// collapsed to one. A legitimate identical re-gift inside the window is
// suppressed too — accepted limitation, not a correctness bug.
type Dedup struct {
	window time.Duration
	cache  *bigcache.BigCache
	now    func() time.Time
}

// NewDedup creates a deduplicator with the given suppression window.
// The backing cache evicts entries older than window plus one second of
// slack, sweeping once a minute to bound memory.
func NewDedup(ctx context.Context, window time.Duration) (*Dedup, error) {
	cache, err := bigcache.New(ctx, bigcache.Config{
		Shards:             64,
		LifeWindow:         window + time.Second,
		CleanWindow:        time.Minute,
		MaxEntriesInWindow: 1000,
		MaxEntrySize:       64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init dedup cache: %w", err)
	}
	return &Dedup{window: window, cache: cache, now: time.Now}, nil
}

// ShouldForward reports whether a terminal gift event should enter the
// pipeline. The first sighting of a key records its timestamp and passes;
// repeats within the window are dropped.
func (d *Dedup) ShouldForward(userID, giftID string, repeatCount int) bool {
	key := fmt.Sprintf("%s|%s|%d", userID, giftID, repeatCount)
	now := d.now()

	if raw, err := d.cache.Get(key); err == nil && len(raw) == 8 {
		prior := time.Unix(0, int64(binary.BigEndian.Uint64(raw)))
		if now.Sub(prior) < d.window {
			logger.Debug("duplicate gift event dropped", logger.String("key", key))
			return false
		}
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(now.UnixNano()))
	if err := d.cache.Set(key, buf); err != nil {
		logger.Warn("failed to record dedup entry", logger.ErrorField(err))
	}
	return true
}

// Close releases the backing cache.
func (d *Dedup) Close() error {
	return d.cache.Close()
}
