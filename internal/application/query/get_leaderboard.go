// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
	"github.com/netquest-hub/netquest-hub/pkg/circuitbreaker"
	"github.com/netquest-hub/netquest-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Ранжирует актуальные метрики и отдаёт страницу рейтинга с дельтами позиций
// относительно последнего снапшота. Снапшот-кеш за circuit breaker'ом:
// при его деградации рейтинг отдаётся без дельт, а не падает.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса рейтинга.
type GetLeaderboardQuery struct {
	// SortKey - метрика рейтинга ("xp", "streak", "level"; пустая = xp).
	SortKey string

	// Page - номер страницы (1-based; 0 = первая).
	Page int

	// Limit - размер страницы (0 = значение по умолчанию).
	Limit int
}

// GetLeaderboardResult содержит страницу рейтинга.
type GetLeaderboardResult struct {
	Page        leaderboard.Page `json:"page"`
	Meta        leaderboard.Meta `json:"meta"`
	GeneratedAt time.Time        `json:"generated_at"`

	// DeltasAvailable - false, если прошлый снапшот был недоступен
	// и дельты позиций не вычислялись.
	DeltasAvailable bool `json:"deltas_available"`
}

// GetLeaderboardHandler обрабатывает запросы рейтинга.
type GetLeaderboardHandler struct {
	metrics   leaderboard.MetricsSource
	snapshots leaderboard.SnapshotRepository
	ranker    *leaderboard.Ranker
	breaker   *circuitbreaker.CircuitBreaker
	log       *logger.Logger

	defaultPageSize int
	maxPageSize     int
}

// NewGetLeaderboardHandler создаёт обработчик запроса рейтинга.
func NewGetLeaderboardHandler(
	metrics leaderboard.MetricsSource,
	snapshots leaderboard.SnapshotRepository,
	log *logger.Logger,
	defaultPageSize, maxPageSize int,
) *GetLeaderboardHandler {
	if log == nil {
		log = logger.Default()
	}
	if defaultPageSize < 1 {
		defaultPageSize = 20
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = 100
	}
	log = log.With(logger.Component("get_leaderboard"))

	breaker := circuitbreaker.SnapshotCacheBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()))
	})

	return &GetLeaderboardHandler{
		metrics:         metrics,
		snapshots:       snapshots,
		ranker:          leaderboard.NewRanker(),
		breaker:         breaker,
		log:             log,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// Handle выполняет запрос рейтинга.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	key, err := leaderboard.ParseSortKey(query.SortKey)
	if err != nil {
		return nil, err
	}

	page := query.Page
	if page == 0 {
		page = 1
	}
	limit := query.Limit
	if limit == 0 {
		limit = h.defaultPageSize
	}
	if limit > h.maxPageSize {
		limit = h.maxPageSize
	}
	if page < 1 || limit < 1 {
		return nil, shared.ErrInvalidPagination
	}

	metrics, err := h.metrics.AllMetrics(ctx)
	if err != nil {
		return nil, shared.WrapError("leaderboard", "Rank", shared.ErrServiceUnavailable,
			"failed to load metrics", err)
	}

	previousRanks, deltasAvailable := h.loadPreviousRanks(ctx, key)

	entries, err := h.ranker.Rank(metrics, key, previousRanks)
	if err != nil {
		return nil, err
	}

	pageEntries, err := leaderboard.Paginate(entries, page, limit)
	if err != nil {
		return nil, err
	}

	totalPages := (len(entries) + limit - 1) / limit

	snapshot := leaderboard.NewSnapshot(key, entries)

	return &GetLeaderboardResult{
		Page: leaderboard.Page{
			Entries:    pageEntries,
			SortKey:    key,
			Page:       page,
			Limit:      limit,
			TotalUsers: len(entries),
			TotalPages: totalPages,
		},
		Meta:            snapshot.BuildMeta(),
		GeneratedAt:     time.Now().UTC(),
		DeltasAvailable: deltasAvailable,
	}, nil
}

// loadPreviousRanks читает базу дельт из снапшот-кеша через circuit breaker.
// Любая деградация кеша превращается в "дельт нет", а не в отказ запроса.
func (h *GetLeaderboardHandler) loadPreviousRanks(ctx context.Context, key leaderboard.SortKey) (map[string]int, bool) {
	if h.snapshots == nil {
		return nil, false
	}

	var ranks map[string]int
	err := h.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		ranks, err = h.snapshots.PreviousRanks(ctx, key)
		return err
	})
	if err != nil {
		h.log.Warn("previous ranks unavailable, serving without deltas",
			logger.SortKey(key.String()),
			logger.Err(err))
		return nil, false
	}
	return ranks, true
}
