package command

import (
	"context"
	"fmt"
	"time"

	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
	"github.com/netquest-hub/netquest-hub/pkg/logger"
	"github.com/netquest-hub/netquest-hub/pkg/retry"
	"github.com/netquest-hub/netquest-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD LOGIN COMMAND
// The pure login event: advances the daily streak without awarding game XP.
// Streak milestones can still unlock achievements (and their XP bonuses).
// ══════════════════════════════════════════════════════════════════════════════

// RecordLoginCommand contains the data to record a login.
type RecordLoginCommand struct {
	// UserID identifies the user.
	UserID string

	// Timestamp is when the login occurred (defaults to now if zero).
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordLoginCommand) Validate() error {
	return progression.ValidateUserID(c.UserID)
}

// RecordLoginResult is the diff returned to the caller.
type RecordLoginResult struct {
	UserID string

	// Streak after the login.
	StreakChanged bool
	StreakBroken  bool
	CurrentStreak int
	BestStreak    int

	// XPGained from streak-milestone achievement bonuses (0 on most days).
	XPGained int
	TotalXP  int

	// NewAchievements unlocked by this login, in catalog order.
	NewAchievements []UnlockedAchievement

	// Events contains domain events generated.
	Events []shared.Event

	// RecordedAt is when the login was recorded.
	RecordedAt time.Time
}

// RecordLoginHandler handles the RecordLoginCommand.
type RecordLoginHandler struct {
	store     progression.Store
	curve     progression.Curve
	evaluator *progression.Evaluator
	clock     timeutil.Clock
	publisher shared.EventPublisher
	log       *logger.Logger

	maxAttempts int
}

// NewRecordLoginHandler creates a new RecordLoginHandler.
func NewRecordLoginHandler(
	store progression.Store,
	curve progression.Curve,
	evaluator *progression.Evaluator,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
	maxAttempts int,
) *RecordLoginHandler {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if log == nil {
		log = logger.Default()
	}
	return &RecordLoginHandler{
		store:       store,
		curve:       curve,
		evaluator:   evaluator,
		clock:       clock,
		publisher:   publisher,
		log:         log.With(logger.Component("record_login")),
		maxAttempts: maxAttempts,
	}
}

// Handle executes the record login command.
func (h *RecordLoginHandler) Handle(ctx context.Context, cmd RecordLoginCommand) (*RecordLoginResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	result, err := retry.DoWithData(ctx, func(ctx context.Context) (*RecordLoginResult, error) {
		res, err := h.loginOnce(ctx, cmd, timestamp)
		if err != nil {
			if shared.IsConflict(err) {
				return nil, retry.Retryable(err)
			}
			return nil, retry.Permanent(err)
		}
		return res, nil
	}, retry.WithMaxAttempts(h.maxAttempts),
		retry.WithInitialDelay(10*time.Millisecond),
		retry.WithMaxDelay(200*time.Millisecond),
		retry.WithJitter(0.2))
	if err != nil {
		if shared.IsConflict(err) {
			return nil, shared.WrapError("progression", "RecordLogin", shared.ErrConcurrentModification,
				"retry budget exhausted", err)
		}
		return nil, err
	}

	if h.publisher != nil {
		for _, event := range result.Events {
			if err := h.publisher.Publish(event); err != nil {
				h.log.Warn("event publish failed",
					logger.UserID(cmd.UserID),
					logger.String("event_type", string(event.EventType())),
					logger.Err(err))
			}
		}
	}

	h.log.Info("login recorded",
		logger.UserID(cmd.UserID),
		logger.StreakDays(result.CurrentStreak),
		logger.Bool("streak_changed", result.StreakChanged))

	return result, nil
}

// loginOnce performs one read-modify-write attempt.
func (h *RecordLoginHandler) loginOnce(ctx context.Context, cmd RecordLoginCommand, timestamp time.Time) (*RecordLoginResult, error) {
	state, version, err := h.store.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("record_login: load state: %w", err)
	}
	if state == nil {
		state, err = progression.NewProgressionState(cmd.UserID)
		if err != nil {
			return nil, err
		}
	}

	result := &RecordLoginResult{
		UserID:     cmd.UserID,
		RecordedAt: timestamp,
		Events:     make([]shared.Event, 0, 2),
	}

	streakTr := state.RecordActivity(h.clock.In(timestamp))

	// Streak milestones may unlock achievements with XP bonuses.
	bonusXP := 0
	newly := h.evaluator.Evaluate(state.Counters, state.UnlockedSet())
	for _, def := range newly {
		if !state.UnlockAchievement(def.ID, timestamp) {
			continue
		}
		if def.XPBonus > 0 {
			if err := state.AddXP(def.XPBonus); err != nil {
				return nil, err
			}
			bonusXP += def.XPBonus
		}
		result.NewAchievements = append(result.NewAchievements, UnlockedAchievement{
			ID:      def.ID,
			Title:   def.Title,
			XPBonus: def.XPBonus,
		})

		event := shared.NewAchievementUnlockedEvent(state.UserID, string(def.ID), def.XPBonus)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)
	}

	state.SetCounter(progression.CounterLevel, h.curve.LevelOf(state.TotalXP).Level)

	if _, err := h.store.Put(ctx, state, version); err != nil {
		return nil, err
	}

	result.StreakChanged = streakTr.Changed
	result.StreakBroken = streakTr.Broken
	result.CurrentStreak = state.Streak.Current
	result.BestStreak = state.Streak.Best
	result.XPGained = bonusXP
	result.TotalXP = state.TotalXP

	if streakTr.Broken {
		broken := shared.NewStreakBrokenEvent(cmd.UserID, streakTr.Previous, streakTr.DaysMissed)
		if cmd.CorrelationID != "" {
			broken.BaseEvent = broken.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, broken)
	}
	if streakTr.Changed {
		updated := shared.NewStreakUpdatedEvent(cmd.UserID, state.Streak.Current, state.Streak.Best)
		if cmd.CorrelationID != "" {
			updated.BaseEvent = updated.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, updated)
	}
	if bonusXP > 0 {
		gained := shared.NewXPGainedEvent(cmd.UserID, bonusXP, state.TotalXP, "achievement_bonus", "")
		if cmd.CorrelationID != "" {
			gained.BaseEvent = gained.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, gained)
	}

	return result, nil
}
