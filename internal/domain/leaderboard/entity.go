// Package leaderboard реализует ранжирование пользователей по метрикам
// прогрессии с вычислением дельты позиции относительно прошлого снапшота.
package leaderboard

import (
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
)

// SortKey - метрика, по которой строится рейтинг.
type SortKey string

// Поддерживаемые метрики рейтинга.
const (
	SortByXP     SortKey = "xp"
	SortByStreak SortKey = "streak"
	SortByLevel  SortKey = "level"
)

// AllSortKeys возвращает все поддерживаемые метрики рейтинга.
func AllSortKeys() []SortKey {
	return []SortKey{SortByXP, SortByStreak, SortByLevel}
}

// IsValid проверяет, известна ли метрика.
func (k SortKey) IsValid() bool {
	switch k {
	case SortByXP, SortByStreak, SortByLevel:
		return true
	}
	return false
}

// String реализует fmt.Stringer.
func (k SortKey) String() string {
	return string(k)
}

// ParseSortKey разбирает метрику из строки запроса.
// Пустая строка означает метрику по умолчанию (XP).
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortByXP, nil
	}
	k := SortKey(s)
	if !k.IsValid() {
		return "", shared.ErrInvalidSortKey
	}
	return k, nil
}

// Metrics - метрики одного пользователя, вход ранжировщика.
type Metrics struct {
	UserID string `json:"user_id"`
	XP     int    `json:"xp"`
	Streak int    `json:"streak"`
	Level  int    `json:"level"`
}

// MetricFor возвращает значение выбранной метрики.
func (m Metrics) MetricFor(key SortKey) int {
	switch key {
	case SortByStreak:
		return m.Streak
	case SortByLevel:
		return m.Level
	default:
		return m.XP
	}
}

// Entry - позиция пользователя в рейтинге.
type Entry struct {
	UserID string `json:"user_id"`
	XP     int    `json:"xp"`
	Streak int    `json:"streak"`
	Level  int    `json:"level"`

	// Rank - позиция 1..N после сортировки по полному набору.
	Rank int `json:"rank"`

	// PreviousRank - позиция в прошлом снапшоте (0 = не было).
	PreviousRank int `json:"previous_rank,omitempty"`

	// RankDelta = PreviousRank - Rank. Положительное = поднялся.
	RankDelta int `json:"rank_delta"`

	// IsNew - пользователь отсутствовал в прошлом снапшоте.
	IsNew bool `json:"is_new"`
}

// Page - страница рейтинга с метаданными.
type Page struct {
	Entries    []Entry `json:"entries"`
	SortKey    SortKey `json:"sort_key"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalUsers int     `json:"total_users"`
	TotalPages int     `json:"total_pages"`
}
