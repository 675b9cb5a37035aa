// Package command contains write operations (CQRS - Commands).
// The handlers here are the ONLY mutators of durable progression state.
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
// APPLY GAME RESULT COMMAND
// Applies one completed mini-game session to a user's progression state:
// XP, per-topic counters, streak, achievements. Persists under optimistic
// concurrency and returns a diff the presentation layer animates from.
// ══════════════════════════════════════════════════════════════════════════════

// ApplyGameResultCommand contains the data to apply a game result.
type ApplyGameResultCommand struct {
	// UserID identifies the user (durable account or guest identity).
	UserID string

	// Result is the completed game session produced by a mini-game.
	Result progression.GameResult

	// Timestamp is when the result arrived (defaults to now if zero).
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ApplyGameResultCommand) Validate() error {
	if err := progression.ValidateUserID(c.UserID); err != nil {
		return err
	}
	return c.Result.Validate()
}

// UnlockedAchievement describes one achievement unlocked by this apply.
type UnlockedAchievement struct {
	ID      progression.AchievementID
	Title   string
	XPBonus int
}

// ApplyGameResultResult is the diff returned to the caller.
type ApplyGameResultResult struct {
	UserID string

	// XPGained is the total XP awarded (score plus achievement bonuses).
	XPGained int

	// TotalXP is the user's XP after the apply.
	TotalXP int

	// Level transition.
	LeveledUp bool
	OldLevel  int
	NewLevel  int

	// Progress within the new level.
	XPIntoLevel    int
	XPForNextLevel int

	// NewAchievements unlocked by this apply, in catalog order.
	NewAchievements []UnlockedAchievement

	// Streak changes (game play counts as streak-qualifying activity).
	StreakChanged bool
	StreakBroken  bool
	CurrentStreak int
	BestStreak    int

	// Events contains domain events generated.
	Events []shared.Event

	// AppliedAt is when the result was applied.
	AppliedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ApplyGameResultHandler handles the ApplyGameResultCommand.
type ApplyGameResultHandler struct {
	store     progression.Store
	curve     progression.Curve
	evaluator *progression.Evaluator
	clock     timeutil.Clock
	publisher shared.EventPublisher
	log       *logger.Logger

	// maxAttempts is the optimistic retry budget (attempts including the first).
	maxAttempts int
}

// NewApplyGameResultHandler creates a new ApplyGameResultHandler.
func NewApplyGameResultHandler(
	store progression.Store,
	curve progression.Curve,
	evaluator *progression.Evaluator,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
	maxAttempts int,
) *ApplyGameResultHandler {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if log == nil {
		log = logger.Default()
	}
	return &ApplyGameResultHandler{
		store:       store,
		curve:       curve,
		evaluator:   evaluator,
		clock:       clock,
		publisher:   publisher,
		log:         log.With(logger.Component("apply_game_result")),
		maxAttempts: maxAttempts,
	}
}

// Handle executes the apply game result command.
// The read-modify-write runs under optimistic concurrency: on a version
// conflict the whole mutation is recomputed from a fresh read. Nothing is
// persisted on validation failure or mid-flight cancellation.
func (h *ApplyGameResultHandler) Handle(ctx context.Context, cmd ApplyGameResultCommand) (*ApplyGameResultResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	result, err := retry.DoWithData(ctx, func(ctx context.Context) (*ApplyGameResultResult, error) {
		res, err := h.applyOnce(ctx, cmd, timestamp)
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
		retry.WithJitter(0.2),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			h.log.Warn("optimistic conflict, retrying",
				logger.UserID(cmd.UserID),
				logger.Int("attempt", attempt),
				logger.Err(err))
		}))
	if err != nil {
		if shared.IsConflict(err) {
			return nil, shared.WrapError("progression", "Apply", shared.ErrConcurrentModification,
				"retry budget exhausted", err)
		}
		return nil, err
	}

	// Publish events only after the write succeeded.
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

	h.log.Info("game result applied",
		logger.UserID(cmd.UserID),
		logger.GameType(cmd.Result.GameType.String()),
		logger.XPAmount(result.XPGained),
		logger.Bool("leveled_up", result.LeveledUp),
		logger.StreakDays(result.CurrentStreak))

	return result, nil
}

// applyOnce performs one read-modify-write attempt.
func (h *ApplyGameResultHandler) applyOnce(ctx context.Context, cmd ApplyGameResultCommand, timestamp time.Time) (*ApplyGameResultResult, error) {
	state, version, err := h.store.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("apply_game_result: load state: %w", err)
	}
	if state == nil {
		state, err = progression.NewProgressionState(cmd.UserID)
		if err != nil {
			return nil, err
		}
	}

	oldLevel := h.curve.LevelOf(state.TotalXP).Level

	result := &ApplyGameResultResult{
		UserID:    cmd.UserID,
		OldLevel:  oldLevel,
		AppliedAt: timestamp,
		Events:    make([]shared.Event, 0, 4),
	}

	// Score becomes XP one-to-one; combo and difficulty multipliers were
	// already folded into the score by the session's ComboScorer.
	xpGained := cmd.Result.Score
	if err := state.AddXP(xpGained); err != nil {
		return nil, err
	}

	// Counters: per-topic plus the running total.
	state.IncrementCounter(string(cmd.Result.GameType))
	state.IncrementCounter(progression.CounterGamesTotal)

	// Game play is streak-qualifying activity.
	streakTr := state.RecordActivity(h.clock.In(timestamp))

	// History is an audit log, never the source of counters.
	state.AppendHistory(cmd.Result, xpGained)

	// Achievements may award bonus XP, which may in turn cross a level
	// milestone, so evaluate to a fixpoint. The catalog is finite and
	// unlocks only grow, so this terminates.
	newUnlocks, bonusXP, err := h.unlockAchievements(state, timestamp, cmd.CorrelationID, result)
	if err != nil {
		return nil, err
	}
	xpGained += bonusXP
	result.NewAchievements = newUnlocks

	newInfo := h.curve.LevelOf(state.TotalXP)
	state.SetCounter(progression.CounterLevel, newInfo.Level)

	// Level milestones reachable only via bonus XP get one more pass.
	if lateUnlocks, lateBonus, err := h.unlockAchievements(state, timestamp, cmd.CorrelationID, result); err == nil && lateBonus > 0 {
		xpGained += lateBonus
		result.NewAchievements = append(result.NewAchievements, lateUnlocks...)
		newInfo = h.curve.LevelOf(state.TotalXP)
		state.SetCounter(progression.CounterLevel, newInfo.Level)
	}

	if _, err := h.store.Put(ctx, state, version); err != nil {
		return nil, err
	}

	result.XPGained = xpGained
	result.TotalXP = state.TotalXP
	result.NewLevel = newInfo.Level
	result.XPIntoLevel = newInfo.XPIntoLevel
	result.XPForNextLevel = newInfo.XPForNextLevel
	result.LeveledUp = newInfo.Level > oldLevel
	result.StreakChanged = streakTr.Changed
	result.StreakBroken = streakTr.Broken
	result.CurrentStreak = state.Streak.Current
	result.BestStreak = state.Streak.Best

	h.appendEvents(cmd, state, result, streakTr, xpGained)

	return result, nil
}

// unlockAchievements evaluates the catalog against current counters and
// applies unlocks plus their XP bonuses. Returns the unlocked definitions
// and the total bonus XP granted.
func (h *ApplyGameResultHandler) unlockAchievements(
	state *progression.ProgressionState,
	timestamp time.Time,
	correlationID string,
	result *ApplyGameResultResult,
) ([]UnlockedAchievement, int, error) {
	var unlocked []UnlockedAchievement
	totalBonus := 0

	newly := h.evaluator.Evaluate(state.Counters, state.UnlockedSet())
	for _, def := range newly {
		if !state.UnlockAchievement(def.ID, timestamp) {
			continue
		}
		if def.XPBonus > 0 {
			if err := state.AddXP(def.XPBonus); err != nil {
				return nil, 0, err
			}
			totalBonus += def.XPBonus
		}
		unlocked = append(unlocked, UnlockedAchievement{
			ID:      def.ID,
			Title:   def.Title,
			XPBonus: def.XPBonus,
		})

		event := shared.NewAchievementUnlockedEvent(state.UserID, string(def.ID), def.XPBonus)
		if correlationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(correlationID)
		}
		result.Events = append(result.Events, event)
	}

	return unlocked, totalBonus, nil
}

// appendEvents collects the domain events for a successful apply.
func (h *ApplyGameResultHandler) appendEvents(
	cmd ApplyGameResultCommand,
	state *progression.ProgressionState,
	result *ApplyGameResultResult,
	streakTr progression.StreakTransition,
	xpGained int,
) {
	withCorrelation := func(e shared.BaseEvent) shared.BaseEvent {
		if cmd.CorrelationID != "" {
			return e.WithCorrelationID(cmd.CorrelationID)
		}
		return e
	}

	applied := shared.NewGameResultAppliedEvent(
		cmd.UserID, cmd.Result.GameType.String(),
		cmd.Result.Score, xpGained, state.TotalXP, result.LeveledUp)
	applied.BaseEvent = withCorrelation(applied.BaseEvent)
	result.Events = append(result.Events, applied)

	if xpGained > 0 {
		gained := shared.NewXPGainedEvent(cmd.UserID, xpGained, state.TotalXP,
			"game_result", cmd.Result.GameType.String())
		gained.BaseEvent = withCorrelation(gained.BaseEvent)
		result.Events = append(result.Events, gained)
	}

	if result.LeveledUp {
		levelUp := shared.NewLevelUpEvent(cmd.UserID, result.OldLevel, result.NewLevel, state.TotalXP)
		levelUp.BaseEvent = withCorrelation(levelUp.BaseEvent)
		result.Events = append(result.Events, levelUp)
	}

	if streakTr.Broken {
		broken := shared.NewStreakBrokenEvent(cmd.UserID, streakTr.Previous, streakTr.DaysMissed)
		broken.BaseEvent = withCorrelation(broken.BaseEvent)
		result.Events = append(result.Events, broken)
	}
	if streakTr.Changed {
		updated := shared.NewStreakUpdatedEvent(cmd.UserID, state.Streak.Current, state.Streak.Best)
		updated.BaseEvent = withCorrelation(updated.BaseEvent)
		result.Events = append(result.Events, updated)
	}
}
