package service

import (
	"bufio"
	"context"
	"os"
	"sort"
	"time"

	"github.com/bytedance/sonic"

	"turtle_bot/internal/models"
	"turtle_bot/pkg/logger"
)

// replayBar — строка реплей-файла (JSONL, одна свеча на строку).
type replayBar struct {
	InstID string  `json:"instId"`
	TimeMs int64   `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// replayFile гоняет записанные бары через тот же канал, что и живой фид:
// путь движка идентичен, чем и гарантируется воспроизводимость live/replay.
func (c *Client) replayFile(ctx context.Context, path string, out chan<- models.Bar) {
	f, err := os.Open(path)
	if err != nil {
		logger.Fatal("[REPLAY] open %s: %v", path, err)
		return
	}
	defer func() { _ = f.Close() }()

	var bars []models.Bar
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rb replayBar
		if err := sonic.Unmarshal(line, &rb); err != nil {
			logger.Error("[REPLAY] %s:%d skip: %v", path, lineNo, err)
			continue
		}
		bar := models.Bar{
			InstID: rb.InstID,
			Time:   time.UnixMilli(rb.TimeMs),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
		if !bar.Valid() {
			logger.Error("[REPLAY] %s:%d malformed bar", path, lineNo)
			continue
		}
		bars = append(bars, bar)
	}
	if err := sc.Err(); err != nil {
		logger.Error("[REPLAY] scan %s: %v", path, err)
	}

	// стабильный порядок: по времени, при равенстве — по инструменту
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Time.Equal(bars[j].Time) {
			return bars[i].InstID < bars[j].InstID
		}
		return bars[i].Time.Before(bars[j].Time)
	})

	logger.Info("[REPLAY] %s: %d bars", path, len(bars))
	for _, bar := range bars {
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.emit(ctx, out, bar)
	}
	logger.Info("[REPLAY] %s: done", path)
}
