package models

import (
	"math"
	"time"
)

// Bar — закрытая свеча по инструменту. После получения не мутируется.
// Time — время закрытия бара; движок требует строго возрастающие Time
// по каждому инструменту.
type Bar struct {
	InstID string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid — защита от мусора из фида.
func (b Bar) Valid() bool {
	return b.InstID != "" &&
		!b.Time.IsZero() &&
		b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 &&
		b.High >= b.Low
}

// TrueRange — истинный диапазон бара: max(h-l, |h-prevClose|, |l-prevClose|).
// Для самого первого бара prevClose нет (hasPrev=false) — тогда TR = high-low.
func (b Bar) TrueRange(prevClose float64, hasPrev bool) float64 {
	tr := b.High - b.Low
	if !hasPrev {
		return tr
	}
	tr = math.Max(tr, math.Abs(b.High-prevClose))
	tr = math.Max(tr, math.Abs(b.Low-prevClose))
	return tr
}
