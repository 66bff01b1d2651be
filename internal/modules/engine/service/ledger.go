package service

import (
	"fmt"
	"sync"
	"time"

	"turtle_bot/internal/models"
)

// Ledger — авторитетное состояние открытых позиций. Не больше одной позиции
// на инструмент; мутации идут только из движка, мьютекс защищает карту от
// параллельной обработки разных инструментов и внешних читателей (health).
type Ledger struct {
	mu  sync.RWMutex
	pos map[string]*models.Position
}

func NewLedger() *Ledger {
	return &Ledger{pos: make(map[string]*models.Position)}
}

func (l *Ledger) Get(instID string) (*models.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.pos[instID]
	return p, ok
}

func (l *Ledger) Open(p *models.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pos[p.InstID] = p
}

// Close атомарно удаляет позицию целиком (позиция с нулём юнитов не
// существует). Возвращает удалённое, nil если инструмент уже flat.
func (l *Ledger) Close(instID string) *models.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.pos[instID]
	delete(l.pos, instID)
	return p
}

func (l *Ledger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pos)
}

func (l *Ledger) All() []*models.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Position, 0, len(l.pos))
	for _, p := range l.pos {
		out = append(out, p)
	}
	return out
}

// Validate — проверка инвариантов Position/Unit: количество юнитов в [1, max],
// единое направление, валидные стопы и размеры. Нарушение — IntegrityError.
func (l *Ledger) Validate(instID string, maxUnits int) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.pos[instID]
	if !ok {
		return nil
	}
	if len(p.Units) < 1 || len(p.Units) > maxUnits {
		return &models.IntegrityError{
			InstID: instID,
			Msg:    fmt.Sprintf("units count %d outside [1,%d]", len(p.Units), maxUnits),
		}
	}
	if p.Direction != models.DirLong && p.Direction != models.DirShort {
		return &models.IntegrityError{InstID: instID, Msg: "position has no direction"}
	}
	for i, u := range p.Units {
		if u.Direction != p.Direction {
			return &models.IntegrityError{
				InstID: instID,
				Msg:    fmt.Sprintf("unit %d direction %q != position %q", i, u.Direction, p.Direction),
			}
		}
		if u.Size <= 0 {
			return &models.IntegrityError{InstID: instID, Msg: fmt.Sprintf("unit %d has size %d", i, u.Size)}
		}
		if u.Stop <= 0 {
			return &models.IntegrityError{InstID: instID, Msg: fmt.Sprintf("unit %d has no valid stop", i)}
		}
	}
	return nil
}

// Snapshot — запись для аудита по текущему состоянию инструмента.
func (l *Ledger) Snapshot(instID string, equity float64, transition models.SignalKind, at time.Time) models.PositionSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := models.PositionSnapshot{
		InstID:     instID,
		State:      "flat",
		Equity:     equity,
		Transition: transition,
		At:         at,
	}
	p, ok := l.pos[instID]
	if !ok {
		return snap
	}
	snap.State = "open"
	snap.Direction = p.Direction
	snap.System = p.System
	snap.Units = make([]models.UnitView, 0, len(p.Units))
	for _, u := range p.Units {
		snap.Units = append(snap.Units, models.UnitView{Entry: u.Entry, Stop: u.Stop, Size: u.Size})
	}
	return snap
}
