// Package shared содержит общие доменные типы, ошибки и события,
// используемые всеми доменными пакетами. Пакет не имеет внешних зависимостей.
package shared

import (
	"errors"
	"fmt"
)

// Базовые доменные ошибки для проверки через errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError представляет доменную ошибку с контекстом.
type DomainError struct {
	Domain  string // например, "progression", "leaderboard"
	Op      string // операция, например "Apply", "Rank"
	Kind    error  // базовая ошибка для errors.Is()
	Message string // человекочитаемое сообщение
	Err     error  // вложенная ошибка (опционально)
}

// Error реализует интерфейс error.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap возвращает вложенную ошибку для errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is реализует сравнение для errors.Is().
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError создаёт новую доменную ошибку.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError оборачивает существующую ошибку доменным контекстом.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Ошибки домена прогрессии.
var (
	ErrStateNotFound    = NewDomainError("progression", "Load", ErrNotFound, "progression state not found")
	ErrInvalidUserID    = NewDomainError("progression", "Validate", ErrInvalidID, "invalid user id")
	ErrInvalidXPDelta   = NewDomainError("progression", "AddXP", ErrNegativeValue, "xp delta must be non-negative")
	ErrUnknownGameType  = NewDomainError("progression", "Validate", ErrValidation, "unknown game type")
	ErrInvalidScore     = NewDomainError("progression", "Validate", ErrNegativeValue, "score must be non-negative")
	ErrInvalidAccuracy  = NewDomainError("progression", "Validate", ErrValueOutOfRange, "accuracy must be between 0 and 1")
	ErrVersionConflict  = NewDomainError("progression", "Save", ErrConcurrentModification, "state was modified concurrently")
	ErrRetriesExhausted = NewDomainError("progression", "Apply", ErrConcurrentModification, "optimistic retry budget exhausted")
)

// Ошибки домена лидерборда.
var (
	ErrInvalidSortKey    = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "invalid sort key")
	ErrInvalidPagination = NewDomainError("leaderboard", "Validate", ErrValueOutOfRange, "invalid pagination parameters")
	ErrSnapshotNotFound  = NewDomainError("leaderboard", "FindSnapshot", ErrNotFound, "leaderboard snapshot not found")
	ErrEmptyLeaderboard  = NewDomainError("leaderboard", "Rank", ErrNotFound, "leaderboard is empty")
)

// IsNotFound проверяет, является ли ошибка ошибкой "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict проверяет, является ли ошибка конфликтом конкурентной записи.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsRetryable проверяет, можно ли повторить операцию.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
