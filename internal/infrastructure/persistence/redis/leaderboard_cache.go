package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
//
// Architecture:
//   - String "leaderboard:snapshot:{key}" stores the full ranked snapshot JSON
//   - Hash   "leaderboard:ranks:{key}"    stores userID -> rank from that snapshot
//   - ZSet   "leaderboard:live:{key}"     tracks live metric values between rebuilds
//
// The ranks hash is what feeds rank deltas on the next rebuild; the live sorted
// set gives O(log N) position estimates without waiting for the scheduler.
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUserNotInLeaderboard is returned when the user has no live entry.
	ErrUserNotInLeaderboard = errors.New("leaderboard_cache: user not in leaderboard")
)

// Key patterns for leaderboard cache.
const (
	keySnapshot = "leaderboard:snapshot:"
	keyRanks    = "leaderboard:ranks:"
	keyLive     = "leaderboard:live:"
)

// TTLSnapshot bounds snapshot staleness if the rebuild scheduler dies.
const TTLSnapshot = 30 * time.Minute

// LeaderboardCache implements leaderboard.SnapshotRepository backed by Redis.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a new LeaderboardCache instance.
// TTL <= 0 falls back to TTLSnapshot.
func NewLeaderboardCache(cache *Cache, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = TTLSnapshot
	}
	return &LeaderboardCache{cache: cache, ttl: ttl}
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SaveSnapshot stores the full snapshot and refreshes the ranks hash in one
// pipeline, so delta reads never observe a half-written rebuild.
func (l *LeaderboardCache) SaveSnapshot(ctx context.Context, snapshot *leaderboard.Snapshot) error {
	if snapshot == nil {
		return errors.New("leaderboard_cache: snapshot cannot be nil")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	key := string(snapshot.SortKey)
	ranks := make(map[string]interface{}, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		ranks[e.UserID] = e.Rank
	}

	pipe := l.cache.Client().TxPipeline()
	pipe.Set(ctx, keySnapshot+key, data, l.ttl)
	pipe.Del(ctx, keyRanks+key)
	if len(ranks) > 0 {
		pipe.HSet(ctx, keyRanks+key, ranks)
		pipe.Expire(ctx, keyRanks+key, l.ttl)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// GetSnapshot returns the last stored snapshot for a sort key.
func (l *LeaderboardCache) GetSnapshot(ctx context.Context, key leaderboard.SortKey) (*leaderboard.Snapshot, error) {
	var snapshot leaderboard.Snapshot
	err := l.cache.Get(ctx, keySnapshot+string(key), &snapshot)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrSnapshotNotFound
		}
		return nil, err
	}

	return &snapshot, nil
}

// PreviousRanks returns userID -> rank from the last snapshot.
// A missing snapshot yields an empty map: deltas simply aren't computed.
func (l *LeaderboardCache) PreviousRanks(ctx context.Context, key leaderboard.SortKey) (map[string]int, error) {
	raw, err := l.cache.Client().HGetAll(ctx, keyRanks+string(key)).Result()
	if err != nil {
		return nil, err
	}

	ranks := make(map[string]int, len(raw))
	for userID, rankStr := range raw {
		rank, err := strconv.Atoi(rankStr)
		if err != nil {
			continue
		}
		ranks[userID] = rank
	}

	return ranks, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIVE METRIC UPDATES
// ══════════════════════════════════════════════════════════════════════════════

// UpdateMetrics refreshes the live sorted sets after a progression change.
// This keeps position estimates fresh between scheduled rebuilds.
func (l *LeaderboardCache) UpdateMetrics(ctx context.Context, m leaderboard.Metrics) error {
	if m.UserID == "" {
		return ErrCacheKeyEmpty
	}

	pipe := l.cache.Client().Pipeline()
	pipe.ZAdd(ctx, keyLive+string(leaderboard.SortByXP), goredis.Z{
		Score:  float64(m.XP),
		Member: m.UserID,
	})
	pipe.ZAdd(ctx, keyLive+string(leaderboard.SortByStreak), goredis.Z{
		Score:  float64(m.Streak),
		Member: m.UserID,
	})
	pipe.ZAdd(ctx, keyLive+string(leaderboard.SortByLevel), goredis.Z{
		Score:  float64(m.Level),
		Member: m.UserID,
	})

	_, err := pipe.Exec(ctx)
	return err
}

// LiveRank returns the user's 1-based position in the live sorted set.
// Ties are ordered by Redis member comparison, so this is an estimate; the
// authoritative ordering comes from the ranker.
func (l *LeaderboardCache) LiveRank(ctx context.Context, userID string, key leaderboard.SortKey) (int64, error) {
	if userID == "" {
		return 0, ErrCacheKeyEmpty
	}

	rank, err := l.cache.Client().ZRevRank(ctx, keyLive+string(key), userID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, ErrUserNotInLeaderboard
		}
		return 0, err
	}

	return rank + 1, nil
}

// LiveCount returns the number of users in the live sorted set.
func (l *LeaderboardCache) LiveCount(ctx context.Context, key leaderboard.SortKey) (int64, error) {
	return l.cache.Client().ZCard(ctx, keyLive+string(key)).Result()
}

// Invalidate removes all cached data for a sort key.
func (l *LeaderboardCache) Invalidate(ctx context.Context, key leaderboard.SortKey) error {
	return l.cache.Delete(ctx,
		keySnapshot+string(key),
		keyRanks+string(key),
		keyLive+string(key),
	)
}
