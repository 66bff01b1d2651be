package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turtle_bot/internal/models"
)

func validPos() *models.Position {
	return &models.Position{
		InstID:    "CL",
		Direction: models.DirLong,
		System:    models.System1,
		Units: []*models.Unit{
			{Entry: 53, Size: 18, Stop: 50.83, Direction: models.DirLong},
		},
	}
}

func TestLedger_OpenGetClose(t *testing.T) {
	l := NewLedger()

	_, ok := l.Get("CL")
	assert.False(t, ok)

	l.Open(validPos())
	p, ok := l.Get("CL")
	require.True(t, ok)
	assert.Equal(t, 18, p.TotalSize())
	assert.Equal(t, 1, l.OpenCount())

	closed := l.Close("CL")
	require.NotNil(t, closed)
	assert.Zero(t, l.OpenCount())

	assert.Nil(t, l.Close("CL"), "повторное закрытие — no-op")
}

func TestLedger_ValidateFlatIsOK(t *testing.T) {
	l := NewLedger()
	assert.NoError(t, l.Validate("CL", 4))
}

func TestLedger_ValidateViolations(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(p *models.Position)
	}{
		{"too many units", func(p *models.Position) {
			for i := 0; i < 4; i++ {
				p.Units = append(p.Units, &models.Unit{Entry: 53, Size: 1, Stop: 50, Direction: models.DirLong})
			}
		}},
		{"no direction", func(p *models.Position) { p.Direction = models.DirNone }},
		{"mixed directions", func(p *models.Position) {
			p.Units = append(p.Units, &models.Unit{Entry: 53, Size: 1, Stop: 55, Direction: models.DirShort})
		}},
		{"zero size", func(p *models.Position) { p.Units[0].Size = 0 }},
		{"no stop", func(p *models.Position) { p.Units[0].Stop = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLedger()
			p := validPos()
			tc.mutate(p)
			l.Open(p)

			err := l.Validate("CL", 4)
			var ie *models.IntegrityError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, "CL", ie.InstID)
		})
	}
}

func TestLedger_Snapshot(t *testing.T) {
	l := NewLedger()
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	snap := l.Snapshot("CL", 1_000_000, models.SignalExitStop, at)
	assert.Equal(t, "flat", snap.State)
	assert.Empty(t, snap.Units)

	l.Open(validPos())
	snap = l.Snapshot("CL", 1_000_000, models.SignalEnter, at)
	assert.Equal(t, "open", snap.State)
	assert.Equal(t, models.DirLong, snap.Direction)
	assert.Equal(t, models.System1, snap.System)
	require.Len(t, snap.Units, 1)
	assert.Equal(t, 18, snap.Units[0].Size)
	assert.Equal(t, models.SignalEnter, snap.Transition)
}
