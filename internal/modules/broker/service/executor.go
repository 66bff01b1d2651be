package service

import (
	"context"

	"turtle_bot/internal/models"
	"turtle_bot/pkg/logger"
)

// Executor — потребитель интентов движка. Держит по инструменту
// неподтверждённые ордера добора и актуальный защитный стоп: перед выходом
// сперва снимает доборы (выход важнее добора), новый стоп заменяет старый.
type Executor struct {
	broker Broker
	n      ServiceNotifier

	pendingAdds map[string][]string // instID -> ordId ещё не заполненных доборов
	stopOrds    map[string]string   // instID -> ordId защитного стопа
}

type ServiceNotifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

func NewExecutor(broker Broker, n ServiceNotifier) *Executor {
	return &Executor{
		broker:      broker,
		n:           n,
		pendingAdds: make(map[string][]string),
		stopOrds:    make(map[string]string),
	}
}

// Run крутится до отмены контекста. Интенты обрабатываются строго по
// одному в порядке поступления — порядок, выданный движком, и есть
// контракт (выходной интент идёт раньше любых новых входов).
func (e *Executor) Run(ctx context.Context, intents <-chan models.OrderIntent) {
	for {
		select {
		case <-ctx.Done():
			return
		case oi, ok := <-intents:
			if !ok {
				return
			}
			e.handle(ctx, oi)
		}
	}
}

func (e *Executor) handle(ctx context.Context, oi models.OrderIntent) {
	if oi.IsExit() {
		e.cancelPending(ctx, oi.InstID)
	}

	ordID, err := e.broker.SubmitOrder(ctx, oi)
	if err != nil {
		logger.Error("executor: %s %s qty=%d: %v", oi.Reason, oi.InstID, oi.Qty, err)
		e.n.SendService(ctx, "⚠️ ордер не прошёл: %s %s qty=%d: %v", oi.Reason, oi.InstID, oi.Qty, err)
		return
	}

	switch {
	case oi.Kind == models.IntentStop:
		// новый стоп заменяет предыдущий
		if old, ok := e.stopOrds[oi.InstID]; ok {
			if err := e.broker.CancelOrder(ctx, oi.InstID, old); err != nil {
				logger.Error("executor: cancel старого стопа %s %s: %v", oi.InstID, old, err)
			}
		}
		e.stopOrds[oi.InstID] = ordID
	case oi.Reason == models.ReasonPyramid:
		e.pendingAdds[oi.InstID] = append(e.pendingAdds[oi.InstID], ordID)
	case oi.IsExit():
		delete(e.pendingAdds, oi.InstID)
	}

	logger.Info("executor: %s %s %s qty=%d px=%.4f ordId=%s",
		oi.Reason, oi.InstID, oi.Direction, oi.Qty, oi.RefPrice, ordID)
}

// cancelPending снимает неподтверждённые доборы и защитный стоп перед
// закрытием позиции, чтобы выход не оставил висящих ордеров.
func (e *Executor) cancelPending(ctx context.Context, instID string) {
	for _, ordID := range e.pendingAdds[instID] {
		if err := e.broker.CancelOrder(ctx, instID, ordID); err != nil {
			logger.Error("executor: cancel добора %s %s: %v", instID, ordID, err)
		}
	}
	delete(e.pendingAdds, instID)

	if ordID, ok := e.stopOrds[instID]; ok {
		if err := e.broker.CancelOrder(ctx, instID, ordID); err != nil {
			logger.Error("executor: cancel стопа %s %s: %v", instID, ordID, err)
		}
		delete(e.stopOrds, instID)
	}
}
