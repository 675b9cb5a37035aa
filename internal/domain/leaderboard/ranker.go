package leaderboard

import (
	"sort"

	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD RANKER
// Чистая функция над снапшотом метрик. Никогда не блокирует писателей
// и спокойно переживает слегка устаревшие данные.
// ══════════════════════════════════════════════════════════════════════════════

// Ranker ранжирует пользователей по выбранной метрике.
type Ranker struct{}

// NewRanker создаёт ранжировщик.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank сортирует метрики и присваивает позиции.
// Порядок полностью детерминирован: метрика по убыванию, при равенстве -
// XP по убыванию, затем userID по возрастанию. Ранг - непрерывная
// последовательность 1..N по полному набору.
// previousRanks - позиции из прошлого снапшота (nil допустим).
func (r *Ranker) Rank(metrics []Metrics, key SortKey, previousRanks map[string]int) ([]Entry, error) {
	if !key.IsValid() {
		return nil, shared.ErrInvalidSortKey
	}

	sorted := make([]Metrics, len(metrics))
	copy(sorted, metrics)

	sort.SliceStable(sorted, func(i, j int) bool {
		mi, mj := sorted[i].MetricFor(key), sorted[j].MetricFor(key)
		if mi != mj {
			return mi > mj
		}
		if sorted[i].XP != sorted[j].XP {
			return sorted[i].XP > sorted[j].XP
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	entries := make([]Entry, len(sorted))
	for i, m := range sorted {
		rank := i + 1
		entry := Entry{
			UserID: m.UserID,
			XP:     m.XP,
			Streak: m.Streak,
			Level:  m.Level,
			Rank:   rank,
		}
		if prev, ok := previousRanks[m.UserID]; ok && prev > 0 {
			entry.PreviousRank = prev
			entry.RankDelta = prev - rank
		} else {
			entry.IsNew = true
		}
		entries[i] = entry
	}

	return entries, nil
}

// Paginate нарезает уже отранжированный набор на страницу.
// Нарезка выполняется ПОСЛЕ ранжирования: позиции не зависят от страницы.
// page нумеруется с 1.
func Paginate(entries []Entry, page, limit int) ([]Entry, error) {
	if page < 1 || limit < 1 {
		return nil, shared.ErrInvalidPagination
	}

	offset := (page - 1) * limit
	if offset >= len(entries) {
		return []Entry{}, nil
	}

	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}

// Neighbors возвращает окно записей вокруг пользователя (по radius в каждую
// сторону). Если пользователь не найден, возвращает nil.
func Neighbors(entries []Entry, userID string, radius int) []Entry {
	if radius < 0 {
		radius = 0
	}
	idx := -1
	for i, e := range entries {
		if e.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	start := idx - radius
	if start < 0 {
		start = 0
	}
	end := idx + radius + 1
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}

// FindRank возвращает позицию пользователя в отранжированном наборе (0 = нет).
func FindRank(entries []Entry, userID string) int {
	for _, e := range entries {
		if e.UserID == userID {
			return e.Rank
		}
	}
	return 0
}
