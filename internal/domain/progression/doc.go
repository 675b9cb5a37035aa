// Package progression содержит ядро движка прогрессии: кривую уровней,
// машину состояний серии активных дней, комбо-счёт игровой сессии,
// оценщик достижений и агрегат состояния пользователя.
//
// Все вычисления пакета - чистые функции над состоянием; персистентность
// и оркестрация живут слоем выше (application/command).
package progression
