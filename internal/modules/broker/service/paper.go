package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/config"
	"turtle_bot/pkg/logger"
)

type paperLot struct {
	qty   int
	price float64
	dir   models.Direction
}

// Paper — бумажный брокер для реплея и прогонов без живого счёта.
// Маркет-интенты исполняются мгновенно по RefPrice, стопы просто
// регистрируются: срабатывание стопов отслеживает сам движок по барам.
type Paper struct {
	mu    sync.Mutex
	cash  float64
	lots  map[string][]paperLot
	stops map[string]models.OrderIntent // ordId -> зарегистрированный стоп
	insts map[string]models.Instrument
	seq   atomic.Int64
}

func NewPaper(cfg *config.Config) *Paper {
	return &Paper{
		cash:  cfg.Broker.PaperCash,
		lots:  make(map[string][]paperLot),
		stops: make(map[string]models.OrderIntent),
		insts: cfg.InstrumentIndex(),
	}
}

func (p *Paper) SubmitOrder(_ context.Context, oi models.OrderIntent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ordID := fmt.Sprintf("paper-%d", p.seq.Add(1))

	if oi.Kind == models.IntentStop {
		p.stops[ordID] = oi
		return ordID, nil
	}

	if oi.IsExit() {
		if err := p.close(oi); err != nil {
			return "", err
		}
	} else {
		p.lots[oi.InstID] = append(p.lots[oi.InstID], paperLot{
			qty:   oi.Qty,
			price: oi.RefPrice,
			dir:   oi.Direction,
		})
	}
	return ordID, nil
}

func (p *Paper) close(oi models.OrderIntent) error {
	lots := p.lots[oi.InstID]
	if len(lots) == 0 {
		return errors.Errorf("paper: close без позиции по %s", oi.InstID)
	}
	vpp := 1.0
	if inst, ok := p.insts[oi.InstID]; ok {
		vpp = inst.ValuePerPoint
	}
	var pnl float64
	for _, l := range lots {
		pts := oi.RefPrice - l.price
		if l.dir == models.DirShort {
			pts = -pts
		}
		pnl += pts * float64(l.qty) * vpp
	}
	p.cash += pnl
	delete(p.lots, oi.InstID)
	logger.Info("paper: закрыт %s по %.4f, PnL %.2f, cash %.2f", oi.InstID, oi.RefPrice, pnl, p.cash)
	return nil
}

func (p *Paper) CancelOrder(_ context.Context, instID, ordID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stops, ordID)
	return nil
}

// Equity — кэш плюс реализованный PnL; открытые лоты по рынку не
// переоцениваем, для расчёта размера юнита этого достаточно.
func (p *Paper) Equity(_ context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash, nil
}
