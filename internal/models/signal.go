package models

import "time"

// Direction — сторона позиции, как posSide у биржи: long/short.
type Direction string

const (
	DirNone  Direction = ""
	DirLong  Direction = "long"
	DirShort Direction = "short"
)

func (d Direction) Opposite() Direction {
	switch d {
	case DirLong:
		return DirShort
	case DirShort:
		return DirLong
	default:
		return DirNone
	}
}

// System — номер пробойной системы:
// System1 — быстрая (вход 20 / выход 10), System2 — медленная (55 / 20).
type System int

const (
	System1 System = 1
	System2 System = 2
)

type SignalKind string

const (
	SignalEnter        SignalKind = "ENTER"
	SignalPyramid      SignalKind = "PYRAMID"
	SignalExitBreakout SignalKind = "EXIT_BREAKOUT"
	SignalExitStop     SignalKind = "EXIT_STOP"
)

// Signal — закрытый набор вариантов решения движка.
// Price — референсная цена: close для пробоев, уровень стопа для SignalExitStop.
type Signal struct {
	InstID    string
	Kind      SignalKind
	Direction Direction
	System    System
	Price     float64
	Reason    string
	At        time.Time
}
