package leaderboard

import "time"

// Snapshot - зафиксированный результат ранжирования по одной метрике.
// Служит базой для previousRank при следующей пересборке.
type Snapshot struct {
	SortKey   SortKey   `json:"sort_key"`
	Entries   []Entry   `json:"entries"`
	BuiltAt   time.Time `json:"built_at"`
	UserCount int       `json:"user_count"`
}

// NewSnapshot фиксирует результат ранжирования.
func NewSnapshot(key SortKey, entries []Entry) *Snapshot {
	return &Snapshot{
		SortKey:   key,
		Entries:   entries,
		BuiltAt:   time.Now().UTC(),
		UserCount: len(entries),
	}
}

// Ranks возвращает отображение userID -> rank для использования
// как previousRanks при следующем ранжировании.
func (s *Snapshot) Ranks() map[string]int {
	ranks := make(map[string]int, len(s.Entries))
	for _, e := range s.Entries {
		ranks[e.UserID] = e.Rank
	}
	return ranks
}

// Meta - сводные показатели рейтинга для витрины.
type Meta struct {
	SortKey    SortKey   `json:"sort_key"`
	TotalUsers int       `json:"total_users"`
	TopXP      int       `json:"top_xp"`
	AverageXP  float64   `json:"average_xp"`
	BuiltAt    time.Time `json:"built_at"`
}

// BuildMeta вычисляет сводные показатели снапшота.
func (s *Snapshot) BuildMeta() Meta {
	meta := Meta{
		SortKey:    s.SortKey,
		TotalUsers: s.UserCount,
		BuiltAt:    s.BuiltAt,
	}
	if len(s.Entries) == 0 {
		return meta
	}

	meta.TopXP = s.Entries[0].XP
	total := 0
	for _, e := range s.Entries {
		total += e.XP
		if e.XP > meta.TopXP {
			meta.TopXP = e.XP
		}
	}
	meta.AverageXP = float64(total) / float64(len(s.Entries))
	return meta
}
