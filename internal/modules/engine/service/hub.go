package service

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/config"
	"turtle_bot/pkg/logger"
)

type ServiceNotifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

// ReadyState — кому сообщать о завершении прогрева (health-эндпоинты).
type ReadyState interface {
	SetReady(v bool)
}

// Hub связывает поток баров с движком: прогрев, телеметрия, неблокирующая
// выдача интентов и снапшотов наружу. Порядок интентов в Result сохраняется:
// исполнитель, увидев выходной интент, сперва снимает свои неподтверждённые
// pyramid-ордера (выход всегда важнее добора).
type Hub struct {
	cfg     *config.Config
	n       ServiceNotifier
	engine  Engine
	health  ReadyState
	intents chan<- models.OrderIntent
	snaps   chan<- models.PositionSnapshot

	mu            sync.Mutex
	ready         map[string]bool
	readyCnt      int
	warmupDone    bool
	warmupMsgSent bool
	lastProgress  time.Time

	startedAt time.Time
}

func NewHub(
	cfg *config.Config,
	n ServiceNotifier,
	engine Engine,
	health ReadyState,
	intents chan<- models.OrderIntent,
	snaps chan<- models.PositionSnapshot,
) *Hub {
	return &Hub{
		cfg:       cfg,
		n:         n,
		engine:    engine,
		health:    health,
		intents:   intents,
		snaps:     snaps,
		ready:     make(map[string]bool),
		startedAt: time.Now(),
	}
}

func (h *Hub) OnBar(ctx context.Context, bar models.Bar) {
	span := opentracing.StartSpan("engine.on_bar")
	span.SetTag("inst_id", bar.InstID)
	defer span.Finish()

	res := h.engine.OnBar(ctx, bar)

	if res.BecameReady {
		h.onBecameReady(ctx, bar.InstID)
	} else {
		h.maybeWarmupProgress(ctx)
	}

	if res.Err != nil {
		h.reportError(ctx, bar.InstID, res.Err)
	}

	for _, skip := range res.Skips {
		logger.Info("[SKIP] %s %s: %s", skip.InstID, skip.Kind, skip.Reason)
	}

	for _, it := range res.Intents {
		select {
		case h.intents <- it:
		default:
			logger.Error("[HUB] intents channel full, drop %s %s qty=%d (%s)",
				it.InstID, it.Kind, it.Qty, it.Reason)
			if h.n != nil {
				h.n.SendService(ctx, "⚠️ канал интентов переполнен, потерян %s %s (%s)",
					it.InstID, it.Kind, it.Reason)
			}
		}
	}

	if res.Snapshot != nil {
		select {
		case h.snaps <- *res.Snapshot:
		default:
			logger.Error("[HUB] snapshots channel full, drop %s", res.Snapshot.InstID)
		}
	}
}

func (h *Hub) reportError(ctx context.Context, instID string, err error) {
	var integrity *models.IntegrityError
	switch {
	case errors.Is(err, models.ErrStaleData):
		logger.Info("[ENGINE] %v", err)
	case errors.As(err, &integrity):
		logger.Error("[ENGINE] %v", err)
		if h.n != nil {
			h.n.SendService(ctx, "🛑 %s остановлен: %s — позиция закрыта принудительно, нужен ручной сброс",
				integrity.InstID, integrity.Msg)
		}
	default:
		logger.Error("[ENGINE] %s: %v", instID, err)
	}
}

func (h *Hub) onBecameReady(ctx context.Context, sym string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready[sym] {
		return
	}
	h.ready[sym] = true
	h.readyCnt++

	total := len(h.cfg.Instruments)

	if !h.warmupMsgSent {
		h.warmupMsgSent = true
		h.lastProgress = time.Now()
		if h.n != nil {
			h.n.SendService(ctx, "🔥 Warmup started | engine=%s | ожидаем=%d инструментов",
				h.engine.Name(), total)
		}
	}

	if !h.warmupDone && h.readyCnt >= total {
		h.warmupDone = true
		if h.health != nil {
			h.health.SetReady(true)
		}
		if h.n != nil {
			h.n.SendService(ctx, "✅ Warmup finished: %d/%d ready. Теперь ждём сигналы.",
				h.readyCnt, total)
		}
	}
}

func (h *Hub) maybeWarmupProgress(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.warmupMsgSent || h.warmupDone || h.n == nil {
		return
	}
	if time.Since(h.lastProgress) < time.Minute {
		return
	}
	h.n.SendService(ctx, "⏳ Warmup progress: %d/%d ready", h.readyCnt, len(h.cfg.Instruments))
	h.lastProgress = time.Now()
}
