package service

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"turtle_bot/internal/helper"
	"turtle_bot/internal/models"
	"turtle_bot/pkg/logger"
)

// streamBars — батч-подписка на свечи по всем инструментам каталога.
// Реконнект с паузой; keepalive ping каждые 20s, иначе шлюз рвёт соединение.
func (c *Client) streamBars(ctx context.Context, out chan<- models.Bar) {
	instIDs := c.instIDs()
	if len(instIDs) == 0 {
		return
	}

	// таймфрейм из конфига приводим к каноничному виду ("60m" -> "1h")
	channel := "candle" + helper.NormTF(c.cfg.Feed.Timeframe)

	args := make([]map[string]string, 0, len(instIDs))
	for _, id := range instIDs {
		args = append(args, map[string]string{
			"channel": channel,
			"instId":  id,
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		logger.Info("[FEED] batch connect %s %d symbols", channel, len(instIDs))
		conn, _, err := c.wsDialer.Dial(c.cfg.Feed.URL, nil)
		if err != nil {
			logger.Error("[FEED] dial %s: %v", c.cfg.Feed.URL, err)
			time.Sleep(time.Second)
			continue
		}

		sub := map[string]any{
			"op":   "subscribe",
			"args": args,
		}
		if err := conn.WriteJSON(sub); err != nil {
			logger.Error("[FEED] subscribe %s: %v", channel, err)
			_ = conn.Close()
			continue
		}
		if c.health != nil {
			c.health.SetFeedConnected(true)
		}

		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Error("[FEED] read %s: %v", channel, err)
				_ = conn.Close()
				if c.health != nil {
					c.health.SetFeedConnected(false)
				}
				break
			}

			var frame struct {
				Arg struct {
					Channel string `json:"channel"`
					InstID  string `json:"instId"`
				} `json:"arg"`
				Data [][]string `json:"data"`
			}
			if err := sonic.Unmarshal(msg, &frame); err != nil {
				continue
			}
			if frame.Arg.Channel != channel || len(frame.Data) == 0 {
				continue
			}

			for _, row := range frame.Data {
				bar, ok := parseCandleRow(frame.Arg.InstID, row)
				if !ok {
					continue
				}
				c.emit(ctx, out, bar)
			}
		}
		close(stopPing)

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}

// parseCandleRow — строка свечи шлюза:
// [ts, o, h, l, c, vol, ..., confirm]. confirm всегда последним элементом,
// незакрытые свечи пропускаем.
func parseCandleRow(instID string, row []string) (models.Bar, bool) {
	if len(row) < 6 {
		return models.Bar{}, false
	}
	if row[len(row)-1] != "1" {
		return models.Bar{}, false
	}

	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Bar{}, false
	}

	open, err1 := strconv.ParseFloat(row[1], 64)
	high, err2 := strconv.ParseFloat(row[2], 64)
	low, err3 := strconv.ParseFloat(row[3], 64)
	closep, err4 := strconv.ParseFloat(row[4], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return models.Bar{}, false
	}

	var vol float64
	if len(row) >= 7 {
		vol, _ = strconv.ParseFloat(row[5], 64)
	}

	bar := models.Bar{
		InstID: instID,
		Time:   time.UnixMilli(tsMs),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closep,
		Volume: vol,
	}
	if !bar.Valid() {
		return models.Bar{}, false
	}
	return bar, true
}
