package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
	"github.com/netquest-hub/netquest-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION REPOSITORY
// Реализация progression.Store поверх одной строки на пользователя.
// Оптимистичная конкуренция: каждая запись сверяет тег версии; несовпадение
// означает, что параллельный писатель успел раньше.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionRepository реализует progression.Store и leaderboard.MetricsSource.
type ProgressionRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewProgressionRepository создаёт репозиторий прогрессии.
func NewProgressionRepository(conn *Connection, log *logger.Logger) *ProgressionRepository {
	if log == nil {
		log = logger.Default()
	}
	return &ProgressionRepository{
		conn: conn,
		log:  log.With(logger.Component("progression_repo")),
	}
}

// Get возвращает состояние пользователя и его версию.
// Неизвестный пользователь получает состояние по умолчанию с версией 0;
// строка появится при первом Put.
func (r *ProgressionRepository) Get(ctx context.Context, userID string) (*progression.ProgressionState, progression.Version, error) {
	const query = `
		SELECT total_xp, current_streak, best_streak, last_activity_date,
		       counters, achievements, history, version, created_at, updated_at
		FROM progression_states
		WHERE user_id = $1
	`

	var (
		totalXP          int
		currentStreak    int
		bestStreak       int
		lastActivityDate *time.Time
		countersJSON     []byte
		achievementsJSON []byte
		historyJSON      []byte
		version          int64
		createdAt        time.Time
		updatedAt        time.Time
	)

	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&totalXP, &currentStreak, &bestStreak, &lastActivityDate,
		&countersJSON, &achievementsJSON, &historyJSON, &version, &createdAt, &updatedAt,
	)
	if IsNoRows(err) {
		state, err := progression.NewProgressionState(userID)
		if err != nil {
			return nil, 0, err
		}
		return state, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("progression_repo: get %s: %w", userID, err)
	}

	state := &progression.ProgressionState{
		UserID:    userID,
		TotalXP:   totalXP,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Streak: progression.Streak{
			Current: currentStreak,
			Best:    bestStreak,
		},
	}
	if lastActivityDate != nil {
		state.Streak.LastActivityDate = progression.DateOnly(*lastActivityDate)
	}

	if err := json.Unmarshal(countersJSON, &state.Counters); err != nil {
		return nil, 0, fmt.Errorf("progression_repo: decode counters for %s: %w", userID, err)
	}
	if err := json.Unmarshal(achievementsJSON, &state.Achievements); err != nil {
		return nil, 0, fmt.Errorf("progression_repo: decode achievements for %s: %w", userID, err)
	}
	if err := json.Unmarshal(historyJSON, &state.History); err != nil {
		return nil, 0, fmt.Errorf("progression_repo: decode history for %s: %w", userID, err)
	}
	if state.Counters == nil {
		state.Counters = make(map[string]int)
	}

	return state, progression.Version(version), nil
}

// Put сохраняет состояние под защитой тега версии.
// expectedVersion 0 означает вставку новой строки; гонка двух вставок
// разрешается через ON CONFLICT DO NOTHING, проигравший получает конфликт.
func (r *ProgressionRepository) Put(ctx context.Context, state *progression.ProgressionState, expectedVersion progression.Version) (progression.Version, error) {
	countersJSON, err := json.Marshal(state.Counters)
	if err != nil {
		return 0, fmt.Errorf("progression_repo: encode counters: %w", err)
	}
	achievementsJSON, err := json.Marshal(state.Achievements)
	if err != nil {
		return 0, fmt.Errorf("progression_repo: encode achievements: %w", err)
	}
	historyJSON, err := json.Marshal(state.History)
	if err != nil {
		return 0, fmt.Errorf("progression_repo: encode history: %w", err)
	}

	var lastActivityDate *time.Time
	if !state.Streak.LastActivityDate.IsZero() {
		d := state.Streak.LastActivityDate
		lastActivityDate = &d
	}

	if expectedVersion == 0 {
		const insert = `
			INSERT INTO progression_states
				(user_id, total_xp, current_streak, best_streak, last_activity_date,
				 counters, achievements, history, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)
			ON CONFLICT (user_id) DO NOTHING
		`
		tag, err := r.conn.Exec(ctx, insert,
			state.UserID, state.TotalXP, state.Streak.Current, state.Streak.Best,
			lastActivityDate, countersJSON, achievementsJSON, historyJSON,
			state.CreatedAt, state.UpdatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("progression_repo: insert %s: %w", state.UserID, err)
		}
		if tag.RowsAffected() == 0 {
			// Параллельная вставка успела раньше
			return 0, shared.ErrVersionConflict
		}
		return 1, nil
	}

	const update = `
		UPDATE progression_states
		SET total_xp = $2, current_streak = $3, best_streak = $4,
		    last_activity_date = $5, counters = $6, achievements = $7,
		    history = $8, version = version + 1, updated_at = $9
		WHERE user_id = $1 AND version = $10
	`
	tag, err := r.conn.Exec(ctx, update,
		state.UserID, state.TotalXP, state.Streak.Current, state.Streak.Best,
		lastActivityDate, countersJSON, achievementsJSON, historyJSON,
		state.UpdatedAt, int64(expectedVersion),
	)
	if err != nil {
		return 0, fmt.Errorf("progression_repo: update %s: %w", state.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, shared.ErrVersionConflict
	}

	return expectedVersion + 1, nil
}

// AllMetrics возвращает метрики всех пользователей для ранжировщика.
// Уровень читается из производного счётчика, поддерживаемого координатором.
func (r *ProgressionRepository) AllMetrics(ctx context.Context) ([]leaderboard.Metrics, error) {
	const query = `
		SELECT user_id, total_xp, current_streak,
		       COALESCE((counters->>'level')::int, 1)
		FROM progression_states
		ORDER BY user_id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("progression_repo: all metrics: %w", err)
	}
	defer rows.Close()

	var metrics []leaderboard.Metrics
	for rows.Next() {
		var m leaderboard.Metrics
		if err := rows.Scan(&m.UserID, &m.XP, &m.Streak, &m.Level); err != nil {
			return nil, fmt.Errorf("progression_repo: scan metrics: %w", err)
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}
