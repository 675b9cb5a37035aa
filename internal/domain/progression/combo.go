package progression

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// COMBO SCORER
// Счёт внутри одной игровой сессии. Не персистится: живёт от старта мини-игры
// до её завершения, наружу уходит только итоговый score в GameResult.
// ══════════════════════════════════════════════════════════════════════════════

// Пороговые значения комбо-множителя.
// Неубывающая ступенчатая функция от числа подряд правильных ответов.
const (
	comboTier1 = 3 // с 3 подряд правильных: x1.5
	comboTier2 = 6 // с 6: x2.0
	comboTier3 = 9 // с 9: x2.5
)

// ComboMultiplier возвращает множитель для указанного числа подряд
// правильных ответов. Чистая функция.
func ComboMultiplier(combo int) float64 {
	switch {
	case combo >= comboTier3:
		return 2.5
	case combo >= comboTier2:
		return 2.0
	case combo >= comboTier1:
		return 1.5
	default:
		return 1.0
	}
}

// SpeedBonusConfig задаёт границы бонуса за скорость ответа.
type SpeedBonusConfig struct {
	// MaxBonus - максимальный бонус в очках (за мгновенный ответ).
	MaxBonus int

	// FullBonusWithin - ответ быстрее этого времени получает полный бонус.
	FullBonusWithin time.Duration

	// NoBonusAfter - ответ медленнее этого времени бонуса не получает.
	NoBonusAfter time.Duration
}

// DefaultSpeedBonusConfig возвращает параметры бонуса по умолчанию.
func DefaultSpeedBonusConfig() SpeedBonusConfig {
	return SpeedBonusConfig{
		MaxBonus:        10,
		FullBonusWithin: 2 * time.Second,
		NoBonusAfter:    10 * time.Second,
	}
}

// SpeedBonus вычисляет бонус за скорость: линейно убывает от MaxBonus до нуля
// в окне [FullBonusWithin, NoBonusAfter]. Никогда не отрицательный.
func (c SpeedBonusConfig) SpeedBonus(latency time.Duration) int {
	if c.MaxBonus <= 0 || latency >= c.NoBonusAfter {
		return 0
	}
	if latency <= c.FullBonusWithin {
		return c.MaxBonus
	}

	window := c.NoBonusAfter - c.FullBonusWithin
	if window <= 0 {
		return 0
	}
	remaining := c.NoBonusAfter - latency
	bonus := int(float64(c.MaxBonus) * float64(remaining) / float64(window))
	if bonus < 0 {
		return 0
	}
	return bonus
}

// ComboScorer накапливает счёт сессии с учётом комбо и бонуса за скорость.
type ComboScorer struct {
	combo      int
	totalScore int
	speedBonus SpeedBonusConfig
}

// NewComboScorer создаёт счётчик для новой игровой сессии.
func NewComboScorer(speedBonus SpeedBonusConfig) *ComboScorer {
	return &ComboScorer{speedBonus: speedBonus}
}

// Combo возвращает текущее число подряд правильных ответов.
func (cs *ComboScorer) Combo() int {
	return cs.combo
}

// Multiplier возвращает текущий комбо-множитель.
func (cs *ComboScorer) Multiplier() float64 {
	return ComboMultiplier(cs.combo)
}

// TotalScore возвращает накопленный счёт сессии.
func (cs *ComboScorer) TotalScore() int {
	return cs.totalScore
}

// OnCorrect засчитывает правильный ответ и возвращает начисленные очки:
// basePoints x difficultyMultiplier x comboMultiplier + бонус за скорость.
func (cs *ComboScorer) OnCorrect(basePoints int, difficultyMultiplier float64, latency time.Duration) int {
	if basePoints < 0 {
		basePoints = 0
	}
	if difficultyMultiplier <= 0 {
		difficultyMultiplier = 1.0
	}

	cs.combo++

	points := int(float64(basePoints) * difficultyMultiplier * ComboMultiplier(cs.combo))
	points += cs.speedBonus.SpeedBonus(latency)

	cs.totalScore += points
	return points
}

// OnIncorrect засчитывает неправильный ответ: комбо сбрасывается в ноль,
// уже начисленные очки сохраняются.
func (cs *ComboScorer) OnIncorrect() {
	cs.combo = 0
}
