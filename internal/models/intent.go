package models

import "time"

type IntentKind string

const (
	IntentMarket IntentKind = "market"
	IntentStop   IntentKind = "stop"
)

// Причины интентов — исполнителю хватает строки, формат наружу не фиксируем.
const (
	ReasonEnterSystem1   = "enter_s1"
	ReasonEnterSystem2   = "enter_s2"
	ReasonPyramid        = "pyramid"
	ReasonProtectiveStop = "protective_stop"
	ReasonExitStop       = "exit_stop"
	ReasonExitBreakout   = "exit_breakout"
	ReasonIntegrityExit  = "integrity_exit"
)

// OrderIntent — намерение для внешнего исполнителя.
// Продюсится движком один раз и дальше не мутируется.
// Direction — сторона ПОЗИЦИИ; открытие это или закрытие, исполнитель
// понимает по Reason.
type OrderIntent struct {
	ID        string
	InstID    string
	Direction Direction
	Qty       int
	Kind      IntentKind
	RefPrice  float64
	Reason    string
	At        time.Time
}

// IsExit — интент закрывает позицию (стоп, пробойный выход или
// принудительное закрытие после IntegrityError).
func (oi OrderIntent) IsExit() bool {
	switch oi.Reason {
	case ReasonExitStop, ReasonExitBreakout, ReasonIntegrityExit:
		return true
	}
	return false
}
