package progression

import "context"

// Version - тег версии состояния для оптимистичной конкуренции.
// Ноль означает "состояние ещё не сохранялось".
type Version int64

// Store определяет контракт хранилища состояний прогрессии.
// Один и тот же контракт обслуживает и долговременные аккаунты (postgres),
// и гостевые идентичности (in-memory): координатор параметризуется
// хранилищем и не различает их.
type Store interface {
	// Get возвращает состояние пользователя и его версию.
	// Для неизвестного пользователя возвращает состояние по умолчанию
	// с версией 0 (create-if-absent выполняется при первом Put).
	Get(ctx context.Context, userID string) (*ProgressionState, Version, error)

	// Put сохраняет состояние, если его текущая версия в хранилище равна
	// expectedVersion (0 = вставка нового). При несовпадении возвращает
	// ошибку с shared.ErrConcurrentModification.
	Put(ctx context.Context, state *ProgressionState, expectedVersion Version) (Version, error)
}
