package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pos(dir Direction, units ...*Unit) *Position {
	return &Position{InstID: "CL", Direction: dir, System: System1, Units: units}
}

func TestPosition_TightestStop(t *testing.T) {
	long := pos(DirLong,
		&Unit{Entry: 50, Size: 1, Stop: 48, Direction: DirLong},
		&Unit{Entry: 51, Size: 1, Stop: 49, Direction: DirLong},
	)
	assert.Equal(t, 49.0, long.TightestStop(), "для лонга защитнее максимальный")

	short := pos(DirShort,
		&Unit{Entry: 50, Size: 1, Stop: 52, Direction: DirShort},
		&Unit{Entry: 49, Size: 1, Stop: 51, Direction: DirShort},
	)
	assert.Equal(t, 51.0, short.TightestStop(), "для шорта — минимальный")
}

func TestPosition_PnLPoints(t *testing.T) {
	long := pos(DirLong,
		&Unit{Entry: 53, Size: 18, Direction: DirLong},
		&Unit{Entry: 53.8, Size: 18, Direction: DirLong},
	)
	assert.InDelta(t, (55.9-53)*18+(55.9-53.8)*18, long.PnLPoints(55.9), 1e-9)

	short := pos(DirShort, &Unit{Entry: 49, Size: 10, Direction: DirShort})
	assert.InDelta(t, (49-51.07)*10, short.PnLPoints(51.07), 1e-9)
}

func TestBar_Valid(t *testing.T) {
	b := Bar{InstID: "CL", Open: 50, High: 51, Low: 50, Close: 50.5}
	assert.False(t, b.Valid(), "нулевое время")

	b.Time = b.Time.AddDate(2024, 0, 0)
	assert.True(t, b.Valid())

	bad := b
	bad.High, bad.Low = bad.Low-1, bad.High
	assert.False(t, bad.Valid())
}

func TestBar_TrueRange(t *testing.T) {
	b := Bar{High: 51, Low: 50}
	assert.Equal(t, 1.0, b.TrueRange(0, false), "первый бар: просто диапазон")
	assert.Equal(t, 3.0, b.TrueRange(48, true), "гэп вверх считается от prevClose")
	assert.Equal(t, 3.0, b.TrueRange(53, true), "гэп вниз тоже")
}

func TestOrderIntent_IsExit(t *testing.T) {
	for reason, want := range map[string]bool{
		ReasonEnterSystem1:   false,
		ReasonEnterSystem2:   false,
		ReasonPyramid:        false,
		ReasonProtectiveStop: false,
		ReasonExitStop:       true,
		ReasonExitBreakout:   true,
		ReasonIntegrityExit:  true,
	} {
		assert.Equal(t, want, OrderIntent{Reason: reason}.IsExit(), reason)
	}
}
