// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"time"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
	"github.com/netquest-hub/netquest-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESSION APPLIED HANDLER
// Обрабатывает события движка прогрессии и поддерживает горячий рейтинг.
//
// Ключевые функции:
// 1. Обновление live-метрик в кеше рейтинга после каждого изменения
// 2. Деградация без кеша: ошибка обновления логируется, но не ломает поток
//
// Авторитетный порядок определяет ранжировщик при пересборке снапшота;
// этот обработчик лишь сокращает окно устаревания между пересборками.
// ═══════════════════════════════════════════════════════════════════════════

// MetricsUpdater обновляет live-метрики пользователя в кеше рейтинга.
type MetricsUpdater interface {
	UpdateMetrics(ctx context.Context, m leaderboard.Metrics) error
}

// OnProgressionAppliedHandler обрабатывает события изменения прогрессии.
type OnProgressionAppliedHandler struct {
	store   progression.Store
	curve   progression.Curve
	updater MetricsUpdater
	log     *logger.Logger
	timeout time.Duration
}

// NewOnProgressionAppliedHandler создаёт обработчик событий прогрессии.
func NewOnProgressionAppliedHandler(
	store progression.Store,
	curve progression.Curve,
	updater MetricsUpdater,
	log *logger.Logger,
) *OnProgressionAppliedHandler {
	if log == nil {
		log = logger.Default()
	}

	return &OnProgressionAppliedHandler{
		store:   store,
		curve:   curve,
		updater: updater,
		log:     log.With(logger.Component("on_progression_applied")),
		timeout: 5 * time.Second,
	}
}

// EventTypes возвращает типы событий, которые обрабатывает этот handler.
func (h *OnProgressionAppliedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventGameResultApplied,
		shared.EventStreakUpdated,
		shared.EventAchievementUnlocked,
	}
}

// Handle обновляет live-метрики после изменения прогрессии.
// Реализует shared.EventHandler.
func (h *OnProgressionAppliedHandler) Handle(event shared.Event) error {
	if h.updater == nil {
		return nil
	}

	userID := event.AggregateID()
	if userID == "" {
		h.log.Warn("event without aggregate ID",
			logger.String("event_type", string(event.EventType())))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	state, _, err := h.store.Get(ctx, userID)
	if err != nil {
		h.log.Error("failed to load state for metrics update",
			logger.UserID(userID),
			logger.Err(err))
		return err
	}

	metrics := leaderboard.Metrics{
		UserID: userID,
		XP:     state.TotalXP,
		Streak: state.Streak.Current,
		Level:  h.curve.LevelOf(state.TotalXP).Level,
	}

	if err := h.updater.UpdateMetrics(ctx, metrics); err != nil {
		// Кеш не является источником истины: рейтинг догонит на пересборке.
		h.log.Warn("live metrics update failed",
			logger.UserID(userID),
			logger.Err(err))
		return nil
	}

	h.log.Debug("live metrics updated",
		logger.UserID(userID),
		logger.XPAmount(metrics.XP),
		logger.StreakDays(metrics.Streak))

	return nil
}

// Register подписывает обработчик на все его типы событий.
func (h *OnProgressionAppliedHandler) Register(bus shared.EventSubscriber) error {
	for _, eventType := range h.EventTypes() {
		if err := bus.Subscribe(eventType, h.Handle); err != nil {
			return err
		}
	}
	return nil
}
