package leaderboard

import "context"

// MetricsSource поставляет метрики всех пользователей для ранжирования.
// Ранжировщик читает снапшот и никогда не блокирует писателей.
type MetricsSource interface {
	// AllMetrics возвращает метрики всех известных пользователей.
	AllMetrics(ctx context.Context) ([]Metrics, error)
}

// SnapshotRepository хранит снапшоты рейтинга по метрикам.
type SnapshotRepository interface {
	// SaveSnapshot сохраняет снапшот, замещая предыдущий по той же метрике.
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error

	// GetSnapshot возвращает последний снапшот по метрике.
	// Отсутствие снапшота - shared.ErrSnapshotNotFound.
	GetSnapshot(ctx context.Context, key SortKey) (*Snapshot, error)

	// PreviousRanks возвращает позиции последнего снапшота (userID -> rank).
	// Отсутствие снапшота - пустое отображение, не ошибка.
	PreviousRanks(ctx context.Context, key SortKey) (map[string]int, error)
}
