package service

import (
	"sync"
	"time"
)

// Budget — общий для всех инструментов счёт: снапшот equity и счётчики
// юнитов по коррелированным группам. Любой read-then-write идёт через
// Allocate: одна критическая секция на «выделить риск под инструмент X»,
// без I/O внутри (та же дисциплина, что у pkg/db.TxManager, только in-memory).
type Budget struct {
	mu sync.Mutex

	equity   float64
	equityAt time.Time
	staleTol time.Duration

	riskFraction float64

	groupCaps  map[string]int
	groupUnits map[string]int
}

func NewBudget(riskFraction float64, staleTol time.Duration, groupCaps map[string]int) *Budget {
	caps := make(map[string]int, len(groupCaps))
	for g, n := range groupCaps {
		caps[g] = n
	}
	return &Budget{
		staleTol:     staleTol,
		riskFraction: riskFraction,
		groupCaps:    caps,
		groupUnits:   make(map[string]int),
	}
}

// SetEquity — свежий снапшот от аккаунт-коллаборатора.
func (b *Budget) SetEquity(v float64, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.equity = v
	b.equityAt = at
}

// BudgetTx — операции, доступные внутри Allocate.
type BudgetTx struct{ b *Budget }

func (t *BudgetTx) Equity() float64       { return t.b.equity }
func (t *BudgetTx) RiskFraction() float64 { return t.b.riskFraction }

// Stale — снапшот equity старше допуска: новый риск не берём.
func (t *BudgetTx) Stale(now time.Time) bool {
	if t.b.staleTol <= 0 {
		return false
	}
	if t.b.equityAt.IsZero() {
		return true
	}
	return now.Sub(t.b.equityAt) > t.b.staleTol
}

// GroupHasCapacity — в группе есть место под ещё один юнит.
// Группа без капа не ограничена.
func (t *BudgetTx) GroupHasCapacity(group string) bool {
	if group == "" {
		return true
	}
	limit, ok := t.b.groupCaps[group]
	if !ok {
		return true
	}
	return t.b.groupUnits[group] < limit
}

func (t *BudgetTx) TakeGroupUnit(group string) {
	if group == "" {
		return
	}
	t.b.groupUnits[group]++
}

func (t *BudgetTx) ReleaseGroupUnits(group string, n int) {
	if group == "" || n <= 0 {
		return
	}
	t.b.groupUnits[group] -= n
	if t.b.groupUnits[group] < 0 {
		t.b.groupUnits[group] = 0
	}
}

func (t *BudgetTx) GroupUnits(group string) int { return t.b.groupUnits[group] }

// Allocate выполняет fn под единой блокировкой бюджета. Два инструмента,
// пирамидящихся одновременно, не увидят друг у друга устаревший equity и
// не задвоят кап группы.
func (b *Budget) Allocate(fn func(tx *BudgetTx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(&BudgetTx{b: b})
}
