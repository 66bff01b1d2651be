package models

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrStaleData — бар с неубывающим timestamp (дубль или out-of-order).
	// Бар отбрасывается, состояние не меняется, сигналы не оцениваются.
	ErrStaleData = errors.New("stale or duplicate bar")

	// ErrDegenerateRange — N обнулился: весь window истинные диапазоны были
	// нулевыми. Это data-quality, а не валидное торговое состояние.
	ErrDegenerateRange = errors.New("degenerate true range: N is zero")
)

// IntegrityError — нарушение инвариантов Position/Unit. Фатально только для
// одного инструмента: движок принудительно закрывает его позицию и
// останавливает торговлю по нему до внешнего сброса.
type IntegrityError struct {
	InstID string
	Msg    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s: %s", e.InstID, e.Msg)
}

// SkippedTrade — информационный исход, не ошибка: сигнал был, но юнит не
// создан (нулевой размер, кап по юнитам/группе, degraded-режим).
type SkippedTrade struct {
	InstID string
	Kind   SignalKind
	Reason string
}
