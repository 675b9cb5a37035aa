// Package memory contains in-process implementations of the persistence
// interfaces. They back the guest mode and the test suites; semantics match
// the durable implementations, including the optimistic version check.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION STORE
// ══════════════════════════════════════════════════════════════════════════════

type storedState struct {
	state   *progression.ProgressionState
	version progression.Version
}

// ProgressionStore реализует progression.Store поверх карты в памяти.
// Все состояния клонируются на границе, чтобы вызывающий код не мог
// мутировать хранимую копию в обход Put.
type ProgressionStore struct {
	mu     sync.RWMutex
	states map[string]storedState
}

// NewProgressionStore создаёт пустое хранилище.
func NewProgressionStore() *ProgressionStore {
	return &ProgressionStore{
		states: make(map[string]storedState),
	}
}

// Get возвращает клон состояния пользователя и его версию.
// Неизвестный пользователь получает состояние по умолчанию с версией 0.
func (s *ProgressionStore) Get(_ context.Context, userID string) (*progression.ProgressionState, progression.Version, error) {
	s.mu.RLock()
	stored, ok := s.states[userID]
	s.mu.RUnlock()

	if !ok {
		state, err := progression.NewProgressionState(userID)
		if err != nil {
			return nil, 0, err
		}
		return state, 0, nil
	}

	return stored.state.Clone(), stored.version, nil
}

// Put сохраняет клон состояния, если версия совпадает с ожидаемой.
func (s *ProgressionStore) Put(_ context.Context, state *progression.ProgressionState, expectedVersion progression.Version) (progression.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.states[state.UserID]

	var current progression.Version
	if exists {
		current = stored.version
	}
	if current != expectedVersion {
		return 0, shared.ErrVersionConflict
	}

	next := expectedVersion + 1
	s.states[state.UserID] = storedState{
		state:   state.Clone(),
		version: next,
	}

	return next, nil
}

// AllMetrics возвращает метрики всех пользователей в детерминированном порядке.
func (s *ProgressionStore) AllMetrics(_ context.Context) ([]leaderboard.Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := make([]leaderboard.Metrics, 0, len(s.states))
	for _, stored := range s.states {
		level := stored.state.Counters[progression.CounterLevel]
		if level < 1 {
			level = 1
		}
		metrics = append(metrics, leaderboard.Metrics{
			UserID: stored.state.UserID,
			XP:     stored.state.TotalXP,
			Streak: stored.state.Streak.Current,
			Level:  level,
		})
	}

	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].UserID < metrics[j].UserID
	})

	return metrics, nil
}

// Len возвращает число сохранённых пользователей.
func (s *ProgressionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository реализует leaderboard.SnapshotRepository в памяти.
type SnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[leaderboard.SortKey]*leaderboard.Snapshot
	ttl       time.Duration
}

// NewSnapshotRepository создаёт пустой репозиторий снимков.
// TTL 0 отключает устаревание.
func NewSnapshotRepository(ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{
		snapshots: make(map[leaderboard.SortKey]*leaderboard.Snapshot),
		ttl:       ttl,
	}
}

// SaveSnapshot сохраняет снимок, замещая предыдущий для того же ключа.
func (r *SnapshotRepository) SaveSnapshot(_ context.Context, snapshot *leaderboard.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshot.SortKey] = snapshot
	return nil
}

// GetSnapshot возвращает последний снимок для ключа сортировки.
func (r *SnapshotRepository) GetSnapshot(_ context.Context, key leaderboard.SortKey) (*leaderboard.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.snapshots[key]
	if !ok {
		return nil, shared.ErrSnapshotNotFound
	}
	if r.ttl > 0 && time.Since(snapshot.BuiltAt) > r.ttl {
		return nil, shared.ErrSnapshotNotFound
	}

	return snapshot, nil
}

// PreviousRanks возвращает позиции из последнего снимка.
// Отсутствие снимка не является ошибкой: дельты просто не считаются.
func (r *SnapshotRepository) PreviousRanks(_ context.Context, key leaderboard.SortKey) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.snapshots[key]
	if !ok {
		return map[string]int{}, nil
	}

	return snapshot.Ranks(), nil
}
