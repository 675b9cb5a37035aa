package progression

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER
// Машина состояний над {LastActivityDate, Current}. Серия изменяется ТОЛЬКО
// здесь; никакой вызывающий код не переопределяет эти правила.
// Дата "сегодня" передаётся вызывающим - граница дня вычисляется лениво,
// при следующей активности, а не фоновой задачей.
// ══════════════════════════════════════════════════════════════════════════════

// Streak представляет серию активных календарных дней пользователя.
type Streak struct {
	// Current - текущая серия дней.
	Current int

	// Best - лучшая серия за всё время.
	Best int

	// LastActivityDate - дата последней засчитанной активности
	// (только дата, без времени; нулевое значение = активности не было).
	LastActivityDate time.Time
}

// StreakTransition описывает, что произошло с серией после активности.
type StreakTransition struct {
	// Changed - изменилось ли значение серии.
	Changed bool

	// Extended - серия продолжена (+1 день).
	Extended bool

	// Broken - серия была сброшена из-за пропущенных дней.
	Broken bool

	// Previous - значение серии до перехода.
	Previous int

	// DaysMissed - сколько дней пропущено (для события streak_broken).
	DaysMissed int
}

// RecordActivity применяет активность за указанную дату и возвращает переход.
// Правила:
//   - первая активность: серия = 1;
//   - тот же день: без изменений (идемпотентный повторный вход);
//   - следующий день: серия +1;
//   - пропуск >= 2 дней либо дата раньше последней (сдвиг часов): серия = 1.
func (s *Streak) RecordActivity(today time.Time) StreakTransition {
	day := DateOnly(today)
	tr := StreakTransition{Previous: s.Current}

	// Первая активность
	if s.LastActivityDate.IsZero() {
		s.Current = 1
		s.Best = 1
		s.LastActivityDate = day
		tr.Changed = true
		return tr
	}

	last := DateOnly(s.LastActivityDate)
	daysDiff := int(day.Sub(last).Hours() / 24)

	switch daysDiff {
	case 0:
		// Тот же день - ничего не меняем
		return tr
	case 1:
		// Следующий день - продолжаем серию
		s.Current++
		tr.Changed = true
		tr.Extended = true
	default:
		// Пропущены дни либо дата в прошлом - сбрасываем
		s.Current = 1
		tr.Changed = tr.Previous != 1
		tr.Broken = tr.Previous > 1
		if daysDiff > 1 {
			tr.DaysMissed = daysDiff - 1
		}
	}

	if s.Current > s.Best {
		s.Best = s.Current
	}
	s.LastActivityDate = day

	return tr
}

// IsBroken проверяет, сломается ли серия, если сегодня не быть активным.
func (s *Streak) IsBroken(today time.Time) bool {
	if s.LastActivityDate.IsZero() {
		return false
	}
	daysDiff := int(DateOnly(today).Sub(DateOnly(s.LastActivityDate)).Hours() / 24)
	return daysDiff > 1
}

// DateOnly отбрасывает время, оставляя календарную дату в UTC.
// Хранение дат в едином виде исключает расхождения при сравнении границ дня.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
