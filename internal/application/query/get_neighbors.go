package query

import (
	"context"
	"time"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET NEIGHBORS QUERY
// Окно рейтинга вокруг пользователя: его позиция плюс соседи сверху и снизу.
// Витрина показывает это рядом с экраном результатов игры.
// ══════════════════════════════════════════════════════════════════════════════

// GetNeighborsQuery содержит параметры запроса соседей.
type GetNeighborsQuery struct {
	// UserID - пользователь в центре окна.
	UserID string

	// SortKey - метрика рейтинга (пустая = xp).
	SortKey string

	// Radius - сколько соседей с каждой стороны (0 = значение по умолчанию).
	Radius int
}

// GetNeighborsResult содержит окно рейтинга.
type GetNeighborsResult struct {
	UserID      string              `json:"user_id"`
	Rank        int                 `json:"rank"`
	Entries     []leaderboard.Entry `json:"entries"`
	TotalUsers  int                 `json:"total_users"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// GetNeighborsHandler обрабатывает запросы окна рейтинга.
type GetNeighborsHandler struct {
	metrics       leaderboard.MetricsSource
	snapshots     leaderboard.SnapshotRepository
	ranker        *leaderboard.Ranker
	defaultRadius int
}

// NewGetNeighborsHandler создаёт обработчик запроса соседей.
func NewGetNeighborsHandler(metrics leaderboard.MetricsSource, snapshots leaderboard.SnapshotRepository, defaultRadius int) *GetNeighborsHandler {
	if defaultRadius < 1 {
		defaultRadius = 2
	}
	return &GetNeighborsHandler{
		metrics:       metrics,
		snapshots:     snapshots,
		ranker:        leaderboard.NewRanker(),
		defaultRadius: defaultRadius,
	}
}

// Handle выполняет запрос окна рейтинга.
func (h *GetNeighborsHandler) Handle(ctx context.Context, query GetNeighborsQuery) (*GetNeighborsResult, error) {
	if query.UserID == "" {
		return nil, shared.ErrInvalidUserID
	}

	key, err := leaderboard.ParseSortKey(query.SortKey)
	if err != nil {
		return nil, err
	}

	radius := query.Radius
	if radius == 0 {
		radius = h.defaultRadius
	}

	metrics, err := h.metrics.AllMetrics(ctx)
	if err != nil {
		return nil, shared.WrapError("leaderboard", "Neighbors", shared.ErrServiceUnavailable,
			"failed to load metrics", err)
	}

	var previousRanks map[string]int
	if h.snapshots != nil {
		// Деградация кеша здесь не критична: окно отдаётся без дельт.
		previousRanks, _ = h.snapshots.PreviousRanks(ctx, key)
	}

	entries, err := h.ranker.Rank(metrics, key, previousRanks)
	if err != nil {
		return nil, err
	}

	window := leaderboard.Neighbors(entries, query.UserID, radius)
	if window == nil {
		return nil, shared.NewDomainError("leaderboard", "Neighbors", shared.ErrNotFound,
			"user not present in leaderboard")
	}

	return &GetNeighborsResult{
		UserID:      query.UserID,
		Rank:        leaderboard.FindRank(entries, query.UserID),
		Entries:     window,
		TotalUsers:  len(entries),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
