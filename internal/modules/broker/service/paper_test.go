package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/config"
)

func paperCfg() *config.Config {
	return &config.Config{
		Broker: config.BrokerConfig{Paper: true, PaperCash: 1_000_000},
		Instruments: []models.Instrument{
			{InstID: "CL", ValuePerPoint: 1000, TickSz: 0.01, Group: "energy"},
		},
	}
}

func intent(reason string, kind models.IntentKind, dir models.Direction, qty int, px float64) models.OrderIntent {
	return models.OrderIntent{
		ID: "t-1", InstID: "CL", Direction: dir, Qty: qty,
		Kind: kind, RefPrice: px, Reason: reason, At: time.Now(),
	}
}

func TestPaper_RoundTripPnL(t *testing.T) {
	p := NewPaper(paperCfg())
	ctx := context.Background()

	_, err := p.SubmitOrder(ctx, intent(models.ReasonEnterSystem1, models.IntentMarket, models.DirLong, 18, 53))
	require.NoError(t, err)
	_, err = p.SubmitOrder(ctx, intent(models.ReasonPyramid, models.IntentMarket, models.DirLong, 18, 53.8))
	require.NoError(t, err)

	_, err = p.SubmitOrder(ctx, intent(models.ReasonExitBreakout, models.IntentMarket, models.DirLong, 36, 55.9))
	require.NoError(t, err)

	eq, err := p.Equity(ctx)
	require.NoError(t, err)
	// (55.9-53)*18*1000 + (55.9-53.8)*18*1000 = 52200 + 37800
	assert.InDelta(t, 1_090_000, eq, 1e-6)
}

func TestPaper_ShortPnL(t *testing.T) {
	p := NewPaper(paperCfg())
	ctx := context.Background()

	_, err := p.SubmitOrder(ctx, intent(models.ReasonEnterSystem1, models.IntentMarket, models.DirShort, 10, 49))
	require.NoError(t, err)
	_, err = p.SubmitOrder(ctx, intent(models.ReasonExitStop, models.IntentMarket, models.DirShort, 10, 51.07))
	require.NoError(t, err)

	eq, err := p.Equity(ctx)
	require.NoError(t, err)
	// шорт в минус: (49 - 51.07) * 10 * 1000
	assert.InDelta(t, 1_000_000-20_700, eq, 1e-6)
}

func TestPaper_StopOrdersAreRegisteredNotFilled(t *testing.T) {
	p := NewPaper(paperCfg())
	ctx := context.Background()

	ordID, err := p.SubmitOrder(ctx, intent(models.ReasonProtectiveStop, models.IntentStop, models.DirLong, 18, 50.83))
	require.NoError(t, err)
	require.NotEmpty(t, ordID)

	// стоп не трогает кэш
	eq, err := p.Equity(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1_000_000, eq, 1e-6)

	assert.NoError(t, p.CancelOrder(ctx, "CL", ordID))
}

func TestPaper_CloseWithoutPositionFails(t *testing.T) {
	p := NewPaper(paperCfg())
	_, err := p.SubmitOrder(context.Background(), intent(models.ReasonExitStop, models.IntentMarket, models.DirLong, 18, 50))
	assert.Error(t, err)
}
