package service

import "turtle_bot/internal/models"

// chanState — канал Дончиана по ПРЕДЫДУЩИМ period барам. Текущий бар в окно
// не входит (иначе пробой сравнивается сам с собой): сперва Levels, потом Push.
type chanState struct {
	period int
	highs  []float64
	lows   []float64
}

func newChanState(period int) *chanState {
	return &chanState{
		period: period,
		highs:  make([]float64, 0, period),
		lows:   make([]float64, 0, period),
	}
}

// Levels — (highest high, lowest low) накопленного окна. ok=false пока окно
// не заполнено.
func (c *chanState) Levels() (hh, ll float64, ok bool) {
	if len(c.highs) < c.period {
		return 0, 0, false
	}
	return maxSlice(c.highs), minSlice(c.lows), true
}

func (c *chanState) Push(high, low float64) {
	c.highs = append(c.highs, high)
	c.lows = append(c.lows, low)
	if len(c.highs) > c.period {
		c.highs = c.highs[1:]
		c.lows = c.lows[1:]
	}
}

func (c *chanState) Ready() bool { return len(c.highs) >= c.period }

// systemState — пара каналов (вход/выход) одной системы плюс skip-фильтр:
// по одному флагу «последний трейд был прибыльным» на направление.
type systemState struct {
	sys     models.System
	entry   *chanState
	exit    *chanState
	lastWin map[models.Direction]bool
}

func newSystemState(sys models.System, entryP, exitP int) *systemState {
	return &systemState{
		sys:     sys,
		entry:   newChanState(entryP),
		exit:    newChanState(exitP),
		lastWin: make(map[models.Direction]bool),
	}
}

func (s *systemState) Ready() bool {
	return s.entry.Ready() && s.exit.Ready()
}

func (s *systemState) Push(high, low float64) {
	s.entry.Push(high, low)
	s.exit.Push(high, low)
}

// EntrySignal — пробой входного канала закрытием. Сравнение строгое:
// close == hh НЕ срабатывает.
func (s *systemState) EntrySignal(close float64) (models.Direction, bool) {
	hh, ll, ok := s.entry.Levels()
	if !ok {
		return models.DirNone, false
	}
	if close > hh {
		return models.DirLong, true
	}
	if close < ll {
		return models.DirShort, true
	}
	return models.DirNone, false
}

// ExitSignal — пробой выходного канала против позиции: для лонга close ниже
// lowest low, для шорта выше highest high.
func (s *systemState) ExitSignal(close float64, dir models.Direction) bool {
	hh, ll, ok := s.exit.Levels()
	if !ok {
		return false
	}
	switch dir {
	case models.DirLong:
		return close < ll
	case models.DirShort:
		return close > hh
	}
	return false
}

// Suppressed — skip-фильтр: вход по быстрой системе подавляется, если
// последний закрытый трейд этой системы в этом направлении был прибыльным.
// Медленную систему фильтр не трогает.
func (s *systemState) Suppressed(dir models.Direction) bool {
	if s.sys != models.System1 {
		return false
	}
	return s.lastWin[dir]
}

func (s *systemState) RecordResult(dir models.Direction, win bool) {
	s.lastWin[dir] = win
}

func maxSlice(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minSlice(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
