package progression

// ══════════════════════════════════════════════════════════════════════════════
// XP/LEVEL CURVE
// Единственное место в системе, где XP превращается в уровень.
// Никакой другой компонент не хранит уровень и не пересчитывает его сам.
// ══════════════════════════════════════════════════════════════════════════════

// Канонические параметры кривой уровней.
const (
	// BaseLevelCost - стоимость перехода с 1-го на 2-й уровень.
	BaseLevelCost = 50

	// LevelGrowthFactor - во сколько раз дорожает каждый следующий уровень.
	LevelGrowthFactor = 1.25
)

// LevelInfo - результат вычисления уровня из суммарного XP.
type LevelInfo struct {
	// Level - текущий уровень (минимум 1).
	Level int

	// XPIntoLevel - сколько XP набрано внутри текущего уровня.
	XPIntoLevel int

	// XPForNextLevel - сколько XP нужно для перехода на следующий уровень.
	XPForNextLevel int
}

// Progress возвращает долю прохождения текущего уровня (0.0 - 1.0).
func (li LevelInfo) Progress() float64 {
	if li.XPForNextLevel <= 0 {
		return 0
	}
	return float64(li.XPIntoLevel) / float64(li.XPForNextLevel)
}

// Curve - прогрессивная кривая уровней: каждый уровень дороже предыдущего
// в GrowthFactor раз, стоимость округляется вниз до целого.
type Curve struct {
	baseCost     int
	growthFactor float64
}

// NewCurve создаёт кривую с заданными параметрами.
// Невалидные параметры заменяются каноническими.
func NewCurve(baseCost int, growthFactor float64) Curve {
	if baseCost <= 0 {
		baseCost = BaseLevelCost
	}
	if growthFactor <= 1.0 {
		growthFactor = LevelGrowthFactor
	}
	return Curve{baseCost: baseCost, growthFactor: growthFactor}
}

// DefaultCurve возвращает кривую с каноническими параметрами (50 / 1.25).
func DefaultCurve() Curve {
	return NewCurve(BaseLevelCost, LevelGrowthFactor)
}

// LevelOf вычисляет уровень и прогресс внутри уровня из суммарного XP.
// Чистая функция: одинаковый вход всегда даёт одинаковый результат.
// Отрицательный XP до кривой не доходит (отсекается валидацией вызывающего),
// но на всякий случай трактуется как ноль.
func (c Curve) LevelOf(totalXP int) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	level := 1
	remaining := totalXP
	cost := c.baseCost

	for remaining >= cost {
		remaining -= cost
		level++
		cost = int(float64(cost) * c.growthFactor)
	}

	return LevelInfo{
		Level:          level,
		XPIntoLevel:    remaining,
		XPForNextLevel: cost,
	}
}

// XPForLevel возвращает суммарный XP, необходимый для достижения уровня.
// Уровень 1 доступен с нуля.
func (c Curve) XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}

	total := 0
	cost := c.baseCost
	for l := 1; l < level; l++ {
		total += cost
		cost = int(float64(cost) * c.growthFactor)
	}
	return total
}
