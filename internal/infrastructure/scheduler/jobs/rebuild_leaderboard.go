// Package jobs contains implementations of scheduled background jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
	"github.com/netquest-hub/netquest-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// Периодическая пересборка снапшотов рейтинга по всем метрикам.
// Снапшот фиксирует previousRank для дельт следующей пересборки.
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardJob пересобирает снапшоты рейтинга.
type RebuildLeaderboardJob struct {
	metrics   leaderboard.MetricsSource
	snapshots leaderboard.SnapshotRepository
	ranker    *leaderboard.Ranker
	publisher shared.EventPublisher
	log       *logger.Logger
	timeout   time.Duration
}

// NewRebuildLeaderboardJob создаёт job пересборки рейтинга.
func NewRebuildLeaderboardJob(
	metrics leaderboard.MetricsSource,
	snapshots leaderboard.SnapshotRepository,
	publisher shared.EventPublisher,
	log *logger.Logger,
	timeout time.Duration,
) *RebuildLeaderboardJob {
	if log == nil {
		log = logger.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &RebuildLeaderboardJob{
		metrics:   metrics,
		snapshots: snapshots,
		ranker:    leaderboard.NewRanker(),
		publisher: publisher,
		log:       log.With(logger.Component("rebuild_leaderboard")),
		timeout:   timeout,
	}
}

// Name реализует scheduler.Job.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description реализует scheduler.Job.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds leaderboard snapshots for all sort keys"
}

// Run пересобирает снапшоты по всем ключам сортировки.
// Ошибка одной метрики не прерывает остальные.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	metrics, err := j.metrics.AllMetrics(ctx)
	if err != nil {
		return fmt.Errorf("rebuild_leaderboard: load metrics: %w", err)
	}

	var firstErr error
	for _, key := range leaderboard.AllSortKeys() {
		if err := j.rebuildOne(ctx, key, metrics); err != nil {
			j.log.Error("snapshot rebuild failed",
				logger.SortKey(string(key)),
				logger.Err(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// rebuildOne пересобирает снапшот для одного ключа сортировки.
func (j *RebuildLeaderboardJob) rebuildOne(ctx context.Context, key leaderboard.SortKey, metrics []leaderboard.Metrics) error {
	previousRanks, err := j.snapshots.PreviousRanks(ctx, key)
	if err != nil {
		// Потеря предыдущих позиций не блокирует пересборку
		j.log.Warn("previous ranks unavailable",
			logger.SortKey(string(key)),
			logger.Err(err))
		previousRanks = nil
	}

	entries, err := j.ranker.Rank(metrics, key, previousRanks)
	if err != nil {
		return err
	}

	snapshot := leaderboard.NewSnapshot(key, entries)
	if err := j.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		return err
	}

	j.publishEvents(key, entries)

	j.log.Info("snapshot rebuilt",
		logger.SortKey(string(key)),
		logger.Int("entries", len(entries)))

	return nil
}

// publishEvents публикует события пересборки и изменения позиций.
func (j *RebuildLeaderboardJob) publishEvents(key leaderboard.SortKey, entries []leaderboard.Entry) {
	if j.publisher == nil {
		return
	}

	if err := j.publisher.Publish(shared.NewLeaderboardRebuiltEvent(string(key), len(entries))); err != nil {
		j.log.Warn("failed to publish rebuilt event", logger.Err(err))
	}

	for _, e := range entries {
		if e.IsNew || e.RankDelta == 0 {
			continue
		}
		event := shared.NewRankChangedEvent(e.UserID, string(key), e.PreviousRank, e.Rank)
		if err := j.publisher.Publish(event); err != nil {
			j.log.Warn("failed to publish rank changed event",
				logger.UserID(e.UserID),
				logger.Err(err))
		}
	}
}
