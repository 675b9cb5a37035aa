package progression

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT EVALUATOR
// Достижения описываются данными (каталог), а не кодом. Добавление нового
// достижения = добавление записи в каталог, без изменения логики оценки.
// ══════════════════════════════════════════════════════════════════════════════

// Зарезервированные имена счётчиков. Обычные счётчики считают завершения игр
// по типу (ключ = GameType); эти два обновляются координатором из
// производных значений состояния.
const (
	// CounterStreakDays - текущая серия активных дней.
	CounterStreakDays = "streak_days"

	// CounterLevel - текущий уровень, вычисленный кривой.
	CounterLevel = "level"

	// CounterGamesTotal - суммарное число завершённых игр всех типов.
	CounterGamesTotal = "games_total"
)

// AchievementID - уникальный идентификатор достижения в каталоге.
type AchievementID string

// Definition описывает одно достижение: какой счётчик и какой порог.
type Definition struct {
	ID          AchievementID
	Title       string
	Description string

	// Counter - имя счётчика, по которому оценивается достижение.
	Counter string

	// Threshold - минимальное значение счётчика для разблокировки.
	Threshold int

	// XPBonus - разовый бонус XP при разблокировке.
	XPBonus int
}

// Unlocked - факт разблокировки достижения пользователем.
type Unlocked struct {
	ID         AchievementID `json:"id"`
	UnlockedAt time.Time     `json:"unlocked_at"`
}

// DefaultCatalog возвращает каталог достижений в каноническом порядке.
// Порядок фиксирован: при одновременном выполнении нескольких условий
// достижения разблокируются в порядке следования в каталоге.
func DefaultCatalog() []Definition {
	return []Definition{
		// Первые шаги в каждой мини-игре
		{ID: "first_port_match", Title: "Порт открыт", Description: "Завершить первую игру на сопоставление портов", Counter: string(GamePortMatch), Threshold: 1, XPBonus: 10},
		{ID: "first_subnetting", Title: "Делитель сетей", Description: "Завершить первую игру по подсетям", Counter: string(GameSubnetting), Threshold: 1, XPBonus: 10},
		{ID: "first_acronyms", Title: "Расшифровщик", Description: "Завершить первую игру по аббревиатурам", Counter: string(GameAcronyms), Threshold: 1, XPBonus: 10},
		{ID: "first_cli_drill", Title: "Первая команда", Description: "Завершить первую тренировку CLI", Counter: string(GameCLIDrill), Threshold: 1, XPBonus: 10},
		{ID: "first_topology", Title: "Картограф", Description: "Завершить первую игру по топологиям", Counter: string(GameTopology), Threshold: 1, XPBonus: 10},
		{ID: "first_firewall", Title: "Страж периметра", Description: "Завершить первую игру по файрволам", Counter: string(GameFirewall), Threshold: 1, XPBonus: 10},
		{ID: "first_encryption", Title: "Шифровальщик", Description: "Завершить первую игру по шифрованию", Counter: string(GameEncryption), Threshold: 1, XPBonus: 10},

		// Мастерство в отдельных играх
		{ID: "port_master", Title: "Мастер портов", Description: "Завершить 25 игр на сопоставление портов", Counter: string(GamePortMatch), Threshold: 25, XPBonus: 50},
		{ID: "subnet_master", Title: "Архитектор подсетей", Description: "Завершить 25 игр по подсетям", Counter: string(GameSubnetting), Threshold: 25, XPBonus: 50},
		{ID: "cli_master", Title: "Повелитель консоли", Description: "Завершить 25 тренировок CLI", Counter: string(GameCLIDrill), Threshold: 25, XPBonus: 50},

		// Общая активность
		{ID: "games_10", Title: "Разминка", Description: "Завершить 10 игр", Counter: CounterGamesTotal, Threshold: 10, XPBonus: 25},
		{ID: "games_50", Title: "Марафонец", Description: "Завершить 50 игр", Counter: CounterGamesTotal, Threshold: 50, XPBonus: 75},
		{ID: "games_200", Title: "Ветеран", Description: "Завершить 200 игр", Counter: CounterGamesTotal, Threshold: 200, XPBonus: 200},

		// Серии активных дней
		{ID: "streak_3", Title: "Набираем ход", Description: "Серия из 3 дней", Counter: CounterStreakDays, Threshold: 3, XPBonus: 15},
		{ID: "streak_7", Title: "Неделя без пропусков", Description: "Серия из 7 дней", Counter: CounterStreakDays, Threshold: 7, XPBonus: 40},
		{ID: "streak_30", Title: "Железная дисциплина", Description: "Серия из 30 дней", Counter: CounterStreakDays, Threshold: 30, XPBonus: 150},

		// Уровневые вехи
		{ID: "level_5", Title: "Пятый уровень", Description: "Достигнуть 5-го уровня", Counter: CounterLevel, Threshold: 5, XPBonus: 30},
		{ID: "level_10", Title: "Десятый уровень", Description: "Достигнуть 10-го уровня", Counter: CounterLevel, Threshold: 10, XPBonus: 80},
		{ID: "level_20", Title: "Двадцатый уровень", Description: "Достигнуть 20-го уровня", Counter: CounterLevel, Threshold: 20, XPBonus: 200},
	}
}

// Evaluator оценивает счётчики пользователя против каталога достижений.
type Evaluator struct {
	catalog []Definition
	byID    map[AchievementID]Definition
}

// NewEvaluator создаёт оценщик для указанного каталога.
func NewEvaluator(catalog []Definition) *Evaluator {
	byID := make(map[AchievementID]Definition, len(catalog))
	for _, def := range catalog {
		byID[def.ID] = def
	}
	return &Evaluator{catalog: catalog, byID: byID}
}

// Catalog возвращает каталог в каноническом порядке.
func (ev *Evaluator) Catalog() []Definition {
	return ev.catalog
}

// Definition возвращает описание достижения по ID.
func (ev *Evaluator) Definition(id AchievementID) (Definition, bool) {
	def, ok := ev.byID[id]
	return def, ok
}

// Evaluate возвращает достижения, которые следует разблокировать:
// условие выполнено И достижение ещё не разблокировано. Результат
// в порядке каталога. Идемпотентна: повторный вызов с теми же
// счётчиками и обновлённым набором разблокированных вернёт пустой срез.
func (ev *Evaluator) Evaluate(counters map[string]int, unlocked map[AchievementID]bool) []Definition {
	var newly []Definition
	for _, def := range ev.catalog {
		if unlocked[def.ID] {
			continue
		}
		if counters[def.Counter] >= def.Threshold {
			newly = append(newly, def)
		}
	}
	return newly
}
