package service

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/config"
	"turtle_bot/pkg/logger"
)

type ServiceNotifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

type HealthState interface {
	SetFeedConnected(v bool)
	TouchBar(t time.Time)
}

// Client — фид закрытых свечей: один WebSocket на таймфрейм, все инструменты
// из каталога пачкой в подписке. Наружу уходят ТОЛЬКО подтверждённые
// (закрытые) бары — движок работает по закрытиям.
type Client struct {
	cfg      *config.Config
	n        ServiceNotifier
	health   HealthState
	wsDialer *websocket.Dialer

	mu sync.Mutex
	// защита от повторной выдачи одного бара при реконнекте
	lastSent map[string]time.Time
}

func NewClient(cfg *config.Config, n ServiceNotifier, health HealthState) *Client {
	return &Client{
		cfg:      cfg,
		n:        n,
		health:   health,
		wsDialer: &websocket.Dialer{},
		lastSent: make(map[string]time.Time),
	}
}

// Start — реплей из файла, если он задан, иначе живой стрим.
// Оба пути кормят один и тот же канал: движку всё равно, откуда бары.
func (c *Client) Start(ctx context.Context, out chan<- models.Bar) {
	if c.cfg.Feed.ReplayFile != "" {
		c.replayFile(ctx, c.cfg.Feed.ReplayFile, out)
		return
	}
	c.streamBars(ctx, out)
}

// emit отдаёт бар наружу, отбрасывая дубликаты по времени закрытия.
func (c *Client) emit(ctx context.Context, out chan<- models.Bar, bar models.Bar) {
	c.mu.Lock()
	if last, ok := c.lastSent[bar.InstID]; ok && !bar.Time.After(last) {
		c.mu.Unlock()
		return
	}
	c.lastSent[bar.InstID] = bar.Time
	c.mu.Unlock()

	if c.health != nil {
		c.health.TouchBar(bar.Time)
	}

	select {
	case <-ctx.Done():
	case out <- bar:
	}
}

func (c *Client) instIDs() []string {
	ids := make([]string, 0, len(c.cfg.Instruments))
	for _, in := range c.cfg.Instruments {
		ids = append(ids, in.InstID)
	}
	return ids
}

func (c *Client) notify(ctx context.Context, format string, args ...any) {
	logger.Info(format, args...)
	if c.n != nil {
		c.n.SendService(ctx, format, args...)
	}
}
