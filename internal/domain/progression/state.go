package progression

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION STATE
// Агрегат прогрессии одного пользователя. Мутируется ТОЛЬКО координатором;
// все инварианты (монотонный XP, растущие счётчики, растущий набор
// достижений) обеспечиваются методами агрегата.
// ══════════════════════════════════════════════════════════════════════════════

// GameType представляет тип мини-игры (закрытое перечисление).
type GameType string

// Типы мини-игр.
const (
	GamePortMatch  GameType = "port_match"
	GameSubnetting GameType = "subnetting"
	GameAcronyms   GameType = "acronyms"
	GameCLIDrill   GameType = "cli_drill"
	GameTopology   GameType = "topology"
	GameFirewall   GameType = "firewall"
	GameEncryption GameType = "encryption"
)

// AllGameTypes возвращает все известные типы игр.
func AllGameTypes() []GameType {
	return []GameType{
		GamePortMatch,
		GameSubnetting,
		GameAcronyms,
		GameCLIDrill,
		GameTopology,
		GameFirewall,
		GameEncryption,
	}
}

// IsValid проверяет, известен ли тип игры.
func (gt GameType) IsValid() bool {
	switch gt {
	case GamePortMatch, GameSubnetting, GameAcronyms, GameCLIDrill,
		GameTopology, GameFirewall, GameEncryption:
		return true
	}
	return false
}

// String реализует fmt.Stringer.
func (gt GameType) String() string {
	return string(gt)
}

// GameResult - результат одной завершённой игровой сессии.
// Эфемерный: порождается мини-игрой, потребляется координатором один раз.
type GameResult struct {
	GameType  GameType      `json:"game_type"`
	Score     int           `json:"score"`
	TimeSpent time.Duration `json:"time_spent"`

	// Accuracy - доля правильных ответов [0, 1]. Отрицательное значение
	// означает "не сообщена" (не все игры её считают).
	Accuracy float64 `json:"accuracy"`

	CompletedAt time.Time `json:"completed_at"`
}

// Validate проверяет результат игры перед применением.
func (r GameResult) Validate() error {
	if !r.GameType.IsValid() {
		return shared.ErrUnknownGameType
	}
	if r.Score < 0 {
		return shared.ErrInvalidScore
	}
	if r.Accuracy > 1 {
		return shared.ErrInvalidAccuracy
	}
	if r.TimeSpent < 0 {
		return shared.NewDomainError("progression", "Validate", shared.ErrNegativeValue, "time spent must be non-negative")
	}
	return nil
}

// HistoryEntry - запись в журнале игр пользователя.
type HistoryEntry struct {
	ID          string        `json:"id"`
	GameType    GameType      `json:"game_type"`
	Score       int           `json:"score"`
	XPGained    int           `json:"xp_gained"`
	TimeSpent   time.Duration `json:"time_spent"`
	Accuracy    float64       `json:"accuracy"`
	CompletedAt time.Time     `json:"completed_at"`
}

// HistoryRetention - сколько последних записей журнала хранится на пользователя.
const HistoryRetention = 100

// ProgressionState - агрегат прогрессии пользователя.
// Уровень НЕ хранится: он всегда вычисляется кривой из TotalXP.
type ProgressionState struct {
	UserID  string `json:"user_id"`
	TotalXP int    `json:"total_xp"`

	Streak Streak `json:"streak"`

	// Counters - монотонные счётчики для оценки достижений.
	// Ключи: типы игр плюс зарезервированные имена (streak_days, level, ...).
	Counters map[string]int `json:"counters"`

	// Achievements - разблокированные достижения (только растёт).
	Achievements []Unlocked `json:"achievements"`

	// History - журнал последних игр (ограничен HistoryRetention).
	History []HistoryEntry `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProgressionState создаёт состояние с нулевыми значениями по умолчанию.
// Вызывается при первом появлении пользователя (включая гостевые идентичности).
func NewProgressionState(userID string) (*ProgressionState, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &ProgressionState{
		UserID:    userID,
		Counters:  make(map[string]int),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateUserID проверяет идентификатор пользователя.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// AddXP увеличивает суммарный XP. Отрицательная дельта отклоняется:
// XP в нормальной работе никогда не списывается.
func (s *ProgressionState) AddXP(delta int) error {
	if delta < 0 {
		return shared.ErrInvalidXPDelta
	}
	s.TotalXP += delta
	s.touch()
	return nil
}

// IncrementCounter увеличивает счётчик на единицу.
func (s *ProgressionState) IncrementCounter(name string) {
	if s.Counters == nil {
		s.Counters = make(map[string]int)
	}
	s.Counters[name]++
	s.touch()
}

// SetCounter поднимает счётчик до указанного значения.
// Счётчики монотонны: понижение игнорируется. Используется для
// производных счётчиков (серия, уровень), которые оценщик достижений
// читает наравне с игровыми.
func (s *ProgressionState) SetCounter(name string, value int) {
	if s.Counters == nil {
		s.Counters = make(map[string]int)
	}
	if value > s.Counters[name] {
		s.Counters[name] = value
		s.touch()
	}
}

// HasAchievement проверяет, разблокировано ли достижение.
func (s *ProgressionState) HasAchievement(id AchievementID) bool {
	for _, a := range s.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// UnlockedSet возвращает набор разблокированных достижений для оценщика.
func (s *ProgressionState) UnlockedSet() map[AchievementID]bool {
	set := make(map[AchievementID]bool, len(s.Achievements))
	for _, a := range s.Achievements {
		set[a.ID] = true
	}
	return set
}

// UnlockAchievement добавляет достижение в набор разблокированных.
// Повторная разблокировка игнорируется (набор только растёт).
func (s *ProgressionState) UnlockAchievement(id AchievementID, at time.Time) bool {
	if s.HasAchievement(id) {
		return false
	}
	s.Achievements = append(s.Achievements, Unlocked{ID: id, UnlockedAt: at.UTC()})
	s.touch()
	return true
}

// RecordActivity применяет активность через машину состояний серии
// и синхронизирует производный счётчик streak_days.
func (s *ProgressionState) RecordActivity(today time.Time) StreakTransition {
	tr := s.Streak.RecordActivity(today)
	s.SetCounter(CounterStreakDays, s.Streak.Current)
	if tr.Changed {
		s.touch()
	}
	return tr
}

// AppendHistory добавляет запись в журнал игр, усекая его до HistoryRetention.
// Журнал не является источником истины для счётчиков.
func (s *ProgressionState) AppendHistory(result GameResult, xpGained int) HistoryEntry {
	entry := HistoryEntry{
		ID:          uuid.New().String(),
		GameType:    result.GameType,
		Score:       result.Score,
		XPGained:    xpGained,
		TimeSpent:   result.TimeSpent,
		Accuracy:    result.Accuracy,
		CompletedAt: result.CompletedAt.UTC(),
	}
	s.History = append(s.History, entry)
	if len(s.History) > HistoryRetention {
		s.History = s.History[len(s.History)-HistoryRetention:]
	}
	s.touch()
	return entry
}

// Clone возвращает глубокую копию состояния.
// Используется для отдачи наружу без риска внешней мутации агрегата.
func (s *ProgressionState) Clone() *ProgressionState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Counters = make(map[string]int, len(s.Counters))
	for k, v := range s.Counters {
		clone.Counters[k] = v
	}
	clone.Achievements = make([]Unlocked, len(s.Achievements))
	copy(clone.Achievements, s.Achievements)
	clone.History = make([]HistoryEntry, len(s.History))
	copy(clone.History, s.History)
	return &clone
}

func (s *ProgressionState) touch() {
	s.UpdatedAt = time.Now().UTC()
}
