package models

import "time"

// Unit — стандартная «единица» позиции. Принадлежит ровно одной Position.
// Размер подбирается так, чтобы ход цены на 2N против позиции стоил
// фиксированную долю депозита.
type Unit struct {
	Entry     float64
	Size      int
	Stop      float64
	Direction Direction
	AddedAt   time.Time
}

// Position — открытая позиция по инструменту. Юниты упорядочены от старых
// к новым; все юниты в одном направлении; count ∈ [1,4]. Позиция с нулём
// юнитов не существует — она удаляется из леджера целиком.
type Position struct {
	InstID    string
	Direction Direction
	System    System
	Units     []*Unit
	OpenedAt  time.Time
}

func (p *Position) TotalSize() int {
	total := 0
	for _, u := range p.Units {
		total += u.Size
	}
	return total
}

func (p *Position) LastUnit() *Unit {
	if len(p.Units) == 0 {
		return nil
	}
	return p.Units[len(p.Units)-1]
}

// TightestStop — самый защитный стоп среди юнитов: максимальный для лонга,
// минимальный для шорта. После ретайтена все стопы равны, но триггерим
// именно по самому защитному.
func (p *Position) TightestStop() float64 {
	if len(p.Units) == 0 {
		return 0
	}
	stop := p.Units[0].Stop
	for _, u := range p.Units[1:] {
		if p.Direction == DirLong && u.Stop > stop {
			stop = u.Stop
		}
		if p.Direction == DirShort && u.Stop < stop {
			stop = u.Stop
		}
	}
	return stop
}

// PnLPoints — результат закрытия по цене exit в пунктах×размер.
// Стоимость пункта не учитываем: для флага «последний трейд прибыльный»
// важен только знак.
func (p *Position) PnLPoints(exit float64) float64 {
	pnl := 0.0
	for _, u := range p.Units {
		d := exit - u.Entry
		if p.Direction == DirShort {
			d = -d
		}
		pnl += d * float64(u.Size)
	}
	return pnl
}

// UnitView — срез юнита для снапшота.
type UnitView struct {
	Entry float64 `json:"entry"`
	Stop  float64 `json:"stop"`
	Size  int     `json:"size"`
}

// PositionSnapshot — запись для аудита/восстановления, по одной на каждый
// переход состояния инструмента.
type PositionSnapshot struct {
	InstID     string     `json:"instId"`
	State      string     `json:"state"` // "flat" | "open"
	Direction  Direction  `json:"direction,omitempty"`
	System     System     `json:"system,omitempty"`
	Units      []UnitView `json:"units,omitempty"`
	Equity     float64    `json:"equity"`
	Transition SignalKind `json:"transition"`
	At         time.Time  `json:"at"`
}
