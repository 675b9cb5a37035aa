package query

import (
	"context"
	"time"

	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Отдаёт прогресс одного пользователя: XP, производный уровень, серию,
// достижения и последние игры. Уровень вычисляется кривой на лету.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery содержит параметры запроса прогресса.
type GetProgressQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// HistoryLimit - сколько последних игр вернуть (0 = все сохранённые).
	HistoryLimit int
}

// AchievementDTO - разблокированное достижение с данными каталога.
type AchievementDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	XPBonus     int       `json:"xp_bonus"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// GetProgressResult содержит прогресс пользователя.
type GetProgressResult struct {
	UserID  string `json:"user_id"`
	TotalXP int    `json:"total_xp"`

	// Производный уровень и прогресс внутри него.
	Level          int     `json:"level"`
	XPIntoLevel    int     `json:"xp_into_level"`
	XPForNextLevel int     `json:"xp_for_next_level"`
	LevelProgress  float64 `json:"level_progress"`

	CurrentStreak    int        `json:"current_streak"`
	BestStreak       int        `json:"best_streak"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`

	Counters     map[string]int             `json:"counters"`
	Achievements []AchievementDTO           `json:"achievements"`
	History      []progression.HistoryEntry `json:"history"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetProgressHandler обрабатывает запросы прогресса.
type GetProgressHandler struct {
	store     progression.Store
	curve     progression.Curve
	evaluator *progression.Evaluator
}

// NewGetProgressHandler создаёт обработчик запроса прогресса.
func NewGetProgressHandler(store progression.Store, curve progression.Curve, evaluator *progression.Evaluator) *GetProgressHandler {
	return &GetProgressHandler{store: store, curve: curve, evaluator: evaluator}
}

// Handle выполняет запрос прогресса.
// Для неизвестного пользователя возвращается нулевое состояние по умолчанию:
// гость, ещё не сыгравший ни одной игры, тоже имеет прогресс.
func (h *GetProgressHandler) Handle(ctx context.Context, query GetProgressQuery) (*GetProgressResult, error) {
	if err := progression.ValidateUserID(query.UserID); err != nil {
		return nil, err
	}

	state, _, err := h.store.Get(ctx, query.UserID)
	if err != nil {
		return nil, shared.WrapError("progression", "GetProgress", shared.ErrServiceUnavailable,
			"failed to load state", err)
	}
	if state == nil {
		state, err = progression.NewProgressionState(query.UserID)
		if err != nil {
			return nil, err
		}
	}

	info := h.curve.LevelOf(state.TotalXP)

	result := &GetProgressResult{
		UserID:         state.UserID,
		TotalXP:        state.TotalXP,
		Level:          info.Level,
		XPIntoLevel:    info.XPIntoLevel,
		XPForNextLevel: info.XPForNextLevel,
		LevelProgress:  info.Progress(),
		CurrentStreak:  state.Streak.Current,
		BestStreak:     state.Streak.Best,
		Counters:       state.Counters,
		GeneratedAt:    time.Now().UTC(),
	}

	if !state.Streak.LastActivityDate.IsZero() {
		last := state.Streak.LastActivityDate
		result.LastActivityDate = &last
	}

	result.Achievements = make([]AchievementDTO, 0, len(state.Achievements))
	for _, a := range state.Achievements {
		dto := AchievementDTO{
			ID:         string(a.ID),
			UnlockedAt: a.UnlockedAt,
		}
		if def, ok := h.evaluator.Definition(a.ID); ok {
			dto.Title = def.Title
			dto.Description = def.Description
			dto.XPBonus = def.XPBonus
		}
		result.Achievements = append(result.Achievements, dto)
	}

	history := state.History
	if query.HistoryLimit > 0 && len(history) > query.HistoryLimit {
		history = history[len(history)-query.HistoryLimit:]
	}
	result.History = history

	return result, nil
}
