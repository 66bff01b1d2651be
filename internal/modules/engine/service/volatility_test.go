package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turtle_bot/internal/models"
)

func mkBar(i int, o, h, l, c float64) models.Bar {
	return models.Bar{
		InstID: "CL",
		Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 24 * time.Hour),
		Open:   o, High: h, Low: l, Close: c,
	}
}

func TestNState_FirstBarTrueRangeIsHighLow(t *testing.T) {
	n := newNState(1, false)
	n.Update(mkBar(0, 50, 52, 49, 51))
	require.True(t, n.Ready())
	assert.InDelta(t, 3.0, n.Value(), 1e-12)
}

func TestNState_SeedIsSimpleAverage(t *testing.T) {
	n := newNState(3, false)
	// TR: 3 (первый бар, h-l), дальше через gap от prevClose
	n.Update(mkBar(0, 50, 52, 49, 51)) // TR = 3
	n.Update(mkBar(1, 51, 53, 50, 52)) // TR = max(3, |53-51|, |50-51|) = 3
	assert.False(t, n.Ready())
	n.Update(mkBar(2, 52, 55, 52, 54)) // TR = max(3, |55-52|, |52-52|) = 3
	require.True(t, n.Ready())
	assert.InDelta(t, 3.0, n.Value(), 1e-12)
}

func TestNState_WilderRecursion(t *testing.T) {
	n := newNState(2, false)
	n.Update(mkBar(0, 50, 51, 50, 50.5)) // TR = 1
	n.Update(mkBar(1, 50.5, 51, 50, 50.5)) // TR = max(1, .5, .5) = 1
	require.True(t, n.Ready())
	require.InDelta(t, 1.0, n.Value(), 1e-12)

	// N = ((w-1)*N + TR) / w = (1*1 + 3)/2 = 2
	n.Update(mkBar(2, 50.5, 53, 50, 52.5)) // TR = max(3, 2.5, .5) = 3
	assert.InDelta(t, 2.0, n.Value(), 1e-12)
}

func TestNState_GapOutsideRangeUsesPrevClose(t *testing.T) {
	n := newNState(1, false)
	n.Update(mkBar(0, 100, 101, 99, 100))
	require.True(t, n.Ready())
	// гэп вниз: диапазон бара 1, но |low-prevClose| = 11
	n.Update(mkBar(1, 90, 90, 89, 89.5))
	assert.InDelta(t, 11.0, n.Value(), 1e-12)
}

func TestNState_SimpleModeIsRollingMean(t *testing.T) {
	n := newNState(2, true)
	n.Update(mkBar(0, 50, 51, 50, 50.5)) // TR = 1
	n.Update(mkBar(1, 50.5, 52.5, 50.5, 52)) // TR = max(2, 2, 0) = 2
	require.True(t, n.Ready())
	assert.InDelta(t, 1.5, n.Value(), 1e-12)

	n.Update(mkBar(2, 52, 56, 52, 55)) // TR = max(4, 4, 0) = 4
	// окно скользит: (2+4)/2, первый TR выпал
	assert.InDelta(t, 3.0, n.Value(), 1e-12)
}

func TestNState_ZeroRangeGivesZeroN(t *testing.T) {
	n := newNState(2, false)
	n.Update(mkBar(0, 50, 50, 50, 50))
	n.Update(mkBar(1, 50, 50, 50, 50))
	require.True(t, n.Ready())
	assert.Zero(t, n.Value())
}
