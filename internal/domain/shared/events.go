// Package shared содержит общие доменные типы, ошибки и события,
// используемые всеми доменными пакетами.
package shared

import (
	"encoding/json"
	"time"
)

// EventType представляет тип доменного события.
type EventType string

// Типы доменных событий. Каждое событие отражает значимое изменение
// в движке прогрессии; слой уведомлений подписывается на них для анимаций.
const (
	// Progression events
	EventXPGained            EventType = "progression.xp_gained"
	EventLevelUp             EventType = "progression.level_up"
	EventGameResultApplied   EventType = "progression.game_result_applied"
	EventStreakUpdated       EventType = "progression.streak_updated"
	EventStreakBroken        EventType = "progression.streak_broken"
	EventAchievementUnlocked EventType = "progression.achievement_unlocked"

	// Leaderboard events
	EventRankChanged        EventType = "leaderboard.rank_changed"
	EventLeaderboardRebuilt EventType = "leaderboard.rebuilt"
)

// Event - базовый интерфейс всех доменных событий.
type Event interface {
	// EventType возвращает тип события.
	EventType() EventType

	// OccurredAt возвращает время возникновения события.
	OccurredAt() time.Time

	// AggregateID возвращает ID агрегата, породившего событие.
	AggregateID() string

	// Payload возвращает данные события для сериализации.
	Payload() map[string]interface{}
}

// BaseEvent предоставляет общую функциональность событий.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType реализует интерфейс Event.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt реализует интерфейс Event.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID реализует интерфейс Event.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent создаёт новое базовое событие.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// WithCorrelationID устанавливает correlation ID для трассировки.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent возникает при получении пользователем XP.
type XPGainedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // например, "game_result", "achievement_bonus"
	GameType string `json:"game_type,omitempty"`
}

// Payload реализует интерфейс Event.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
		"game_type": e.GameType,
	}
}

// NewXPGainedEvent создаёт новое событие XPGainedEvent.
func NewXPGainedEvent(userID string, amount, newTotal int, source, gameType string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
		GameType:  gameType,
	}
}

// LevelUpEvent возникает при повышении уровня пользователя.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int    `json:"total_xp"`
}

// Payload реализует интерфейс Event.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent создаёт новое событие LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// StreakUpdatedEvent возникает при продолжении серии активных дней.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

// Payload реализует интерфейс Event.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"current_streak": e.CurrentStreak,
		"best_streak":    e.BestStreak,
	}
}

// NewStreakUpdatedEvent создаёт новое событие StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, current, best int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventStreakUpdated, userID),
		UserID:        userID,
		CurrentStreak: current,
		BestStreak:    best,
	}
}

// StreakBrokenEvent возникает при сбросе серии из-за пропущенных дней.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload реализует интерфейс Event.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent создаёт новое событие StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// AchievementUnlockedEvent возникает при разблокировке достижения.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	XPBonus       int    `json:"xp_bonus"`
}

// Payload реализует интерфейс Event.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"xp_bonus":       e.XPBonus,
	}
}

// NewAchievementUnlockedEvent создаёт новое событие AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID string, xpBonus int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:        userID,
		AchievementID: achievementID,
		XPBonus:       xpBonus,
	}
}

// GameResultAppliedEvent возникает после успешного применения результата игры.
type GameResultAppliedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	GameType  string `json:"game_type"`
	Score     int    `json:"score"`
	XPGained  int    `json:"xp_gained"`
	NewTotal  int    `json:"new_total"`
	LeveledUp bool   `json:"leveled_up"`
}

// Payload реализует интерфейс Event.
func (e GameResultAppliedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"game_type":  e.GameType,
		"score":      e.Score,
		"xp_gained":  e.XPGained,
		"new_total":  e.NewTotal,
		"leveled_up": e.LeveledUp,
	}
}

// NewGameResultAppliedEvent создаёт новое событие GameResultAppliedEvent.
func NewGameResultAppliedEvent(userID, gameType string, score, xpGained, newTotal int, leveledUp bool) GameResultAppliedEvent {
	return GameResultAppliedEvent{
		BaseEvent: NewBaseEvent(EventGameResultApplied, userID),
		UserID:    userID,
		GameType:  gameType,
		Score:     score,
		XPGained:  xpGained,
		NewTotal:  newTotal,
		LeveledUp: leveledUp,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard Events
// ═══════════════════════════════════════════════════════════════════════════

// RankChangedEvent возникает при изменении позиции пользователя в рейтинге.
type RankChangedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	SortKey    string `json:"sort_key"`
	OldRank    int    `json:"old_rank"`
	NewRank    int    `json:"new_rank"`
	RankChange int    `json:"rank_change"` // положительное = поднялся
}

// Payload реализует интерфейс Event.
func (e RankChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"sort_key":    e.SortKey,
		"old_rank":    e.OldRank,
		"new_rank":    e.NewRank,
		"rank_change": e.RankChange,
	}
}

// NewRankChangedEvent создаёт новое событие RankChangedEvent.
func NewRankChangedEvent(userID, sortKey string, oldRank, newRank int) RankChangedEvent {
	return RankChangedEvent{
		BaseEvent:  NewBaseEvent(EventRankChanged, userID),
		UserID:     userID,
		SortKey:    sortKey,
		OldRank:    oldRank,
		NewRank:    newRank,
		RankChange: oldRank - newRank,
	}
}

// LeaderboardRebuiltEvent возникает после пересборки снапшота лидерборда.
type LeaderboardRebuiltEvent struct {
	BaseEvent
	SortKey    string `json:"sort_key"`
	EntryCount int    `json:"entry_count"`
}

// Payload реализует интерфейс Event.
func (e LeaderboardRebuiltEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"sort_key":    e.SortKey,
		"entry_count": e.EntryCount,
	}
}

// NewLeaderboardRebuiltEvent создаёт новое событие LeaderboardRebuiltEvent.
func NewLeaderboardRebuiltEvent(sortKey string, entryCount int) LeaderboardRebuiltEvent {
	return LeaderboardRebuiltEvent{
		BaseEvent:  NewBaseEvent(EventLeaderboardRebuilt, "leaderboard:"+sortKey),
		SortKey:    sortKey,
		EntryCount: entryCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (для сериализации и транспорта)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope оборачивает событие для транспорта/хранения.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler - функция-обработчик события.
type EventHandler func(event Event) error

// EventPublisher определяет интерфейс публикации событий.
type EventPublisher interface {
	// Publish отправляет событие подписчикам.
	Publish(event Event) error
}

// EventSubscriber определяет интерфейс подписки на события.
type EventSubscriber interface {
	// Subscribe регистрирует обработчик для типа события.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll регистрирует обработчик для всех событий.
	SubscribeAll(handler EventHandler) error
}

// EventBus объединяет публикацию и подписку.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
