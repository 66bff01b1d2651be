package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/config"
)

// Engine — решающий движок: бары на входе, интенты и снапшоты на выходе.
type Engine interface {
	// OnBar обрабатывает один закрытый бар одного инструмента до конца,
	// синхронно. Не больше одного перехода состояния за бар.
	OnBar(ctx context.Context, bar models.Bar) Result

	IsReady(instID string) bool
	// N — текущая волатильность инструмента; ok=false пока NotReady.
	N(instID string) (float64, bool)
	// ResetHalt — внешний сброс инструмента после IntegrityError.
	ResetHalt(instID string)
	Dump(instID string) string
	Name() string
}

// Result — всё, что породил один бар. Snapshot не nil только если был
// переход состояния.
type Result struct {
	Signals     []models.Signal
	Intents     []models.OrderIntent
	Snapshot    *models.PositionSnapshot
	Skips       []models.SkippedTrade
	BecameReady bool
	Err         error
}

type instState struct {
	mu      sync.Mutex
	lastBar int64 // unix nanos закрытия последнего принятого бара
	vol     *nState
	sys     map[models.System]*systemState
	ready   bool
	halted  bool
}

// Turtle — трендследящий движок по правилам черепах.
type Turtle struct {
	cfg    config.EngineConfig
	budget *Budget
	ledger *Ledger
	insts  map[string]models.Instrument

	mu  sync.Mutex
	st  map[string]*instState
	seq atomic.Int64
}

func NewTurtle(cfg *config.Config, budget *Budget, ledger *Ledger) *Turtle {
	return &Turtle{
		cfg:    cfg.Engine,
		budget: budget,
		ledger: ledger,
		insts:  cfg.InstrumentIndex(),
		st:     make(map[string]*instState),
	}
}

func (e *Turtle) Name() string { return "turtle_v1" }

func (e *Turtle) state(instID string) *instState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.st[instID]; ok {
		return s
	}
	s := &instState{
		vol: newNState(e.cfg.ATRPeriod, e.cfg.ATRSimple),
		sys: map[models.System]*systemState{
			models.System1: newSystemState(models.System1, e.cfg.System1.Entry, e.cfg.System1.Exit),
			models.System2: newSystemState(models.System2, e.cfg.System2.Entry, e.cfg.System2.Exit),
		},
	}
	e.st[instID] = s
	return s
}

func (e *Turtle) OnBar(ctx context.Context, bar models.Bar) Result {
	var res Result
	if !bar.Valid() {
		res.Err = errors.Errorf("malformed bar %s %+v", bar.InstID, bar)
		return res
	}

	st := e.state(bar.InstID)
	st.mu.Lock()
	defer st.mu.Unlock()

	// at-most-once, in-order: дубль или out-of-order = бар отбрасывается,
	// состояние не трогаем, сигналы не оцениваем.
	if st.lastBar != 0 && bar.Time.UnixNano() <= st.lastBar {
		res.Err = errors.Wrapf(models.ErrStaleData, "%s: bar %s не позже последнего принятого", bar.InstID, bar.Time)
		return res
	}

	// (1) волатильность; (2) уровни каналов считаются по ПРЕДЫДУЩИМ барам,
	// текущий бар попадёт в окна только в конце, после оценки сигналов.
	st.vol.Update(bar)

	e.evaluate(st, bar, &res)

	for _, s := range st.sys {
		s.Push(bar.High, bar.Low)
	}
	st.lastBar = bar.Time.UnixNano()

	// прогрев: инструмент «готов», когда N посчитан и быстрая система
	// накопила окна; медленная догоняется своими сигналами сама.
	if !st.ready && st.vol.Ready() && st.sys[models.System1].Ready() {
		st.ready = true
		res.BecameReady = true
	}
	return res
}

// evaluate — фиксированный порядок на бар: стоп → пробойный выход →
// пирамида → вход. Защита открытого риска всегда впереди; выход и вход в
// одном баре не совмещаются.
func (e *Turtle) evaluate(st *instState, bar models.Bar, res *Result) {
	if st.halted {
		return
	}

	pos, open := e.ledger.Get(bar.InstID)

	if open {
		if err := e.ledger.Validate(bar.InstID, e.cfg.MaxUnits); err != nil {
			e.forceExit(st, bar, pos, res, err)
			return
		}

		// (3) стоп всей позицией: триггер по самому защитному стопу
		if stopPx, hit := breached(pos, bar); hit {
			e.closePosition(st, bar, pos, stopPx, models.SignalExitStop, models.ReasonExitStop, res)
			return
		}

		// (4) пробойный выход по exit-каналу системы позиции
		if st.sys[pos.System].ExitSignal(bar.Close, pos.Direction) {
			e.closePosition(st, bar, pos, bar.Close, models.SignalExitBreakout, models.ReasonExitBreakout, res)
			return
		}

		// (5) пирамида
		if st.vol.Ready() && wantsAdd(pos, bar.Close, st.vol.Value(), e.cfg.PyramidSpacingN, e.cfg.MaxUnits) {
			e.tryPyramid(st, bar, pos, res)
		}
		return
	}

	// (6) flat: вход. Быстрая система первая; если её вход подавлен
	// skip-фильтром, свой шанс остаётся у медленной.
	if !st.vol.Ready() {
		return
	}
	for _, sysID := range []models.System{models.System1, models.System2} {
		s := st.sys[sysID]
		dir, ok := s.EntrySignal(bar.Close)
		if !ok {
			continue
		}
		if s.Suppressed(dir) {
			res.Skips = append(res.Skips, models.SkippedTrade{
				InstID: bar.InstID,
				Kind:   models.SignalEnter,
				Reason: fmt.Sprintf("skip-filter: последний трейд S%d/%s был прибыльным", sysID, dir),
			})
			continue
		}
		if e.tryEnter(st, bar, sysID, dir, res) {
			return // один переход на бар
		}
	}
}

func (e *Turtle) tryEnter(st *instState, bar models.Bar, sysID models.System, dir models.Direction, res *Result) bool {
	inst, ok := e.insts[bar.InstID]
	if !ok {
		res.Skips = append(res.Skips, models.SkippedTrade{
			InstID: bar.InstID, Kind: models.SignalEnter,
			Reason: "нет метаданных инструмента",
		})
		return false
	}

	n := st.vol.Value()
	size, equity, skip, err := e.allocateUnit(bar, inst, n, models.SignalEnter, res)
	if err != nil {
		res.Err = err
		return true // дальше этот бар не оцениваем
	}
	if skip {
		return false
	}

	stop := baseStop(bar.Close, n, e.cfg.StopMultN, dir)
	unit := &models.Unit{Entry: bar.Close, Size: size, Stop: stop, Direction: dir, AddedAt: bar.Time}
	pos := &models.Position{
		InstID:    bar.InstID,
		Direction: dir,
		System:    sysID,
		Units:     []*models.Unit{unit},
		OpenedAt:  bar.Time,
	}
	e.ledger.Open(pos)

	reason := models.ReasonEnterSystem1
	if sysID == models.System2 {
		reason = models.ReasonEnterSystem2
	}
	res.Signals = append(res.Signals, models.Signal{
		InstID: bar.InstID, Kind: models.SignalEnter, Direction: dir,
		System: sysID, Price: bar.Close, Reason: reason, At: bar.Time,
	})
	res.Intents = append(res.Intents,
		e.intent(bar, dir, size, models.IntentMarket, bar.Close, reason),
		e.intent(bar, dir, size, models.IntentStop, stop, models.ReasonProtectiveStop),
	)
	snap := e.ledger.Snapshot(bar.InstID, equity, models.SignalEnter, bar.Time)
	res.Snapshot = &snap
	return true
}

func (e *Turtle) tryPyramid(st *instState, bar models.Bar, pos *models.Position, res *Result) {
	inst, ok := e.insts[bar.InstID]
	if !ok {
		res.Skips = append(res.Skips, models.SkippedTrade{
			InstID: bar.InstID, Kind: models.SignalPyramid,
			Reason: "нет метаданных инструмента",
		})
		return
	}

	n := st.vol.Value()
	size, equity, skip, err := e.allocateUnit(bar, inst, n, models.SignalPyramid, res)
	if err != nil {
		res.Err = err
		return
	}
	if skip {
		return
	}

	unit := &models.Unit{
		Entry:     bar.Close,
		Size:      size,
		Stop:      baseStop(bar.Close, n, e.cfg.StopMultN, pos.Direction),
		Direction: pos.Direction,
		AddedAt:   bar.Time,
	}
	pos.Units = append(pos.Units, unit)

	// новый юнит поджимает стопы всей позиции
	if err := retighten(pos, n, e.cfg.StopMultN); err != nil {
		e.forceExit(st, bar, pos, res, err)
		return
	}

	res.Signals = append(res.Signals, models.Signal{
		InstID: bar.InstID, Kind: models.SignalPyramid, Direction: pos.Direction,
		System: pos.System, Price: bar.Close, Reason: models.ReasonPyramid, At: bar.Time,
	})
	res.Intents = append(res.Intents,
		e.intent(bar, pos.Direction, size, models.IntentMarket, bar.Close, models.ReasonPyramid),
		e.intent(bar, pos.Direction, pos.TotalSize(), models.IntentStop, pos.TightestStop(), models.ReasonProtectiveStop),
	)
	snap := e.ledger.Snapshot(bar.InstID, equity, models.SignalPyramid, bar.Time)
	res.Snapshot = &snap
}

// allocateUnit — атомарная бюджетная транзакция: staleness equity, сайзинг,
// кап группы. skip=true — SkippedTrade уже записан в res.
func (e *Turtle) allocateUnit(bar models.Bar, inst models.Instrument, n float64, kind models.SignalKind, res *Result) (size int, equity float64, skip bool, err error) {
	var skipReason string

	allocErr := e.budget.Allocate(func(tx *BudgetTx) error {
		if tx.Stale(bar.Time) {
			skipReason = "degraded: снапшот equity устарел, новый риск не берём"
			return nil
		}
		equity = tx.Equity()

		sz, sizeErr := UnitSize(equity, tx.RiskFraction(), n, inst.ValuePerPoint)
		if sizeErr != nil {
			return sizeErr
		}
		if sz == 0 {
			skipReason = fmt.Sprintf("размер юнита 0: equity=%.2f N=%.6f", equity, n)
			return nil
		}
		if !tx.GroupHasCapacity(inst.Group) {
			skipReason = fmt.Sprintf("кап группы %q исчерпан (%d юнитов)", inst.Group, tx.GroupUnits(inst.Group))
			return nil
		}
		tx.TakeGroupUnit(inst.Group)
		size = sz
		return nil
	})
	if allocErr != nil {
		return 0, 0, false, errors.Wrapf(allocErr, "allocate risk for %s", bar.InstID)
	}
	if skipReason != "" {
		res.Skips = append(res.Skips, models.SkippedTrade{InstID: bar.InstID, Kind: kind, Reason: skipReason})
		return 0, 0, true, nil
	}
	return size, equity, false, nil
}

// closePosition — единый путь выхода: все юниты закрываются вместе одним
// блоком, групповые счётчики освобождаются, skip-фильтр запоминает исход.
func (e *Turtle) closePosition(st *instState, bar models.Bar, pos *models.Position, price float64, kind models.SignalKind, reason string, res *Result) {
	units := len(pos.Units)
	group := ""
	if inst, ok := e.insts[bar.InstID]; ok {
		group = inst.Group
	}

	win := pos.PnLPoints(price) > 0
	st.sys[pos.System].RecordResult(pos.Direction, win)

	total := pos.TotalSize()
	e.ledger.Close(bar.InstID)

	var equity float64
	_ = e.budget.Allocate(func(tx *BudgetTx) error {
		tx.ReleaseGroupUnits(group, units)
		equity = tx.Equity()
		return nil
	})

	res.Signals = append(res.Signals, models.Signal{
		InstID: bar.InstID, Kind: kind, Direction: pos.Direction,
		System: pos.System, Price: price, Reason: reason, At: bar.Time,
	})
	res.Intents = append(res.Intents,
		e.intent(bar, pos.Direction, total, models.IntentMarket, price, reason),
	)
	snap := e.ledger.Snapshot(bar.InstID, equity, kind, bar.Time)
	res.Snapshot = &snap
}

// forceExit — реакция на IntegrityError: синтетический выход всей позицией
// и остановка торговли по инструменту до внешнего сброса. Остальные
// инструменты не затронуты.
func (e *Turtle) forceExit(st *instState, bar models.Bar, pos *models.Position, res *Result, cause error) {
	e.closePosition(st, bar, pos, bar.Close, models.SignalExitStop, models.ReasonIntegrityExit, res)
	st.halted = true
	res.Err = cause
}

func (e *Turtle) intent(bar models.Bar, dir models.Direction, qty int, kind models.IntentKind, px float64, reason string) models.OrderIntent {
	return models.OrderIntent{
		ID:        fmt.Sprintf("%s-%d", bar.InstID, e.seq.Add(1)),
		InstID:    bar.InstID,
		Direction: dir,
		Qty:       qty,
		Kind:      kind,
		RefPrice:  px,
		Reason:    reason,
		At:        bar.Time,
	}
}

func (e *Turtle) IsReady(instID string) bool {
	st := e.state(instID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.ready
}

func (e *Turtle) N(instID string) (float64, bool) {
	st := e.state(instID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.vol.Ready() {
		return 0, false
	}
	return st.vol.Value(), true
}

func (e *Turtle) ResetHalt(instID string) {
	st := e.state(instID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.halted = false
}

func (e *Turtle) Dump(instID string) string {
	st := e.state(instID)
	st.mu.Lock()
	defer st.mu.Unlock()

	s1 := st.sys[models.System1]
	s2 := st.sys[models.System2]
	hh1, ll1, _ := s1.entry.Levels()
	hh2, ll2, _ := s2.entry.Levels()
	pos, open := e.ledger.Get(instID)
	units := 0
	if open {
		units = len(pos.Units)
	}
	return fmt.Sprintf(
		"%s ready=%v halted=%v N=%.6f(%v) S1[%d/%d] hh=%.6f ll=%.6f S2[%d/%d] hh=%.6f ll=%.6f units=%d",
		instID, st.ready, st.halted, st.vol.Value(), st.vol.Ready(),
		e.cfg.System1.Entry, e.cfg.System1.Exit, hh1, ll1,
		e.cfg.System2.Entry, e.cfg.System2.Exit, hh2, ll2,
		units,
	)
}
