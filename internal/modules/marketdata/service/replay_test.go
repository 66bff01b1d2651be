package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/config"
)

func writeReplayFile(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func runReplay(t *testing.T, path string) []models.Bar {
	t.Helper()
	cfg := &config.Config{}
	cfg.Feed.ReplayFile = path
	c := NewClient(cfg, nil, nil)

	out := make(chan models.Bar, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Start(context.Background(), out)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("replay не завершился")
	}
	close(out)

	var bars []models.Bar
	for b := range out {
		bars = append(bars, b)
	}
	return bars
}

func TestReplay_SortsByTimeThenInstrument(t *testing.T) {
	path := writeReplayFile(t, `
{"instId":"GC","ts":2000,"open":50,"high":51,"low":49,"close":50.5,"volume":10}
{"instId":"CL","ts":2000,"open":50,"high":51,"low":49,"close":50.5,"volume":10}
{"instId":"CL","ts":1000,"open":50,"high":51,"low":49,"close":50,"volume":10}
`)
	bars := runReplay(t, path)
	require.Len(t, bars, 3)

	assert.Equal(t, "CL", bars[0].InstID)
	assert.Equal(t, time.UnixMilli(1000), bars[0].Time)
	// при равном времени порядок детерминирован по инструменту
	assert.Equal(t, "CL", bars[1].InstID)
	assert.Equal(t, "GC", bars[2].InstID)
}

func TestReplay_SkipsMalformedLines(t *testing.T) {
	path := writeReplayFile(t, `
{"instId":"CL","ts":1000,"open":50,"high":51,"low":49,"close":50,"volume":10}
не json вообще
{"instId":"CL","ts":2000,"open":50,"high":48,"low":49,"close":50,"volume":10}
{"instId":"CL","ts":3000,"open":50,"high":51,"low":49,"close":50.5,"volume":10}
`)
	bars := runReplay(t, path)
	// битый json и бар с high < low отброшены
	require.Len(t, bars, 2)
	assert.Equal(t, time.UnixMilli(1000), bars[0].Time)
	assert.Equal(t, time.UnixMilli(3000), bars[1].Time)
}

func TestReplay_DeduplicatesBars(t *testing.T) {
	path := writeReplayFile(t, `
{"instId":"CL","ts":1000,"open":50,"high":51,"low":49,"close":50,"volume":10}
{"instId":"CL","ts":1000,"open":50,"high":51,"low":49,"close":50,"volume":10}
{"instId":"CL","ts":2000,"open":50,"high":51,"low":49,"close":50.5,"volume":10}
`)
	bars := runReplay(t, path)
	require.Len(t, bars, 2)
	assert.Equal(t, time.UnixMilli(1000), bars[0].Time)
	assert.Equal(t, time.UnixMilli(2000), bars[1].Time)
}
