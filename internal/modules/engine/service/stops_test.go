package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turtle_bot/internal/models"
)

func longPos(entries ...float64) *models.Position {
	p := &models.Position{InstID: "CL", Direction: models.DirLong, System: models.System1}
	for _, e := range entries {
		p.Units = append(p.Units, &models.Unit{
			Entry: e, Size: 1, Stop: baseStop(e, 1.0, 2.0, models.DirLong),
			Direction: models.DirLong, AddedAt: time.Now(),
		})
	}
	return p
}

func TestBaseStop(t *testing.T) {
	assert.InDelta(t, 48.0, baseStop(50, 1, 2, models.DirLong), 1e-12)
	assert.InDelta(t, 52.0, baseStop(50, 1, 2, models.DirShort), 1e-12)
}

func TestImproves(t *testing.T) {
	assert.True(t, improves(49, 48, models.DirLong))
	assert.False(t, improves(47, 48, models.DirLong))
	assert.True(t, improves(51, 52, models.DirShort))
	assert.False(t, improves(53, 52, models.DirShort))
}

func TestRetighten_ConvergesToNewestUnit(t *testing.T) {
	p := longPos(50, 50.5, 51)
	require.NoError(t, retighten(p, 1.0, 2.0))

	// все стопы на уровне последнего юнита: 51 - 2*1
	for _, u := range p.Units {
		assert.InDelta(t, 49.0, u.Stop, stopEqualEps)
	}
	assert.InDelta(t, 49.0, p.TightestStop(), stopEqualEps)
}

func TestRetighten_NeverLoosens(t *testing.T) {
	p := longPos(50, 51)
	require.NoError(t, retighten(p, 1.0, 2.0)) // стопы -> 49

	// N вырос: кандидат 51 - 2*3 = 45 хуже существующих 49 — стопы не трогаем
	require.NoError(t, retighten(p, 3.0, 2.0))
	for _, u := range p.Units {
		assert.InDelta(t, 49.0, u.Stop, stopEqualEps)
	}
}

func TestRetighten_NewUnitInheritsCommonStopWhenNGrows(t *testing.T) {
	p := longPos(50, 50.5, 51)
	require.NoError(t, retighten(p, 1.0, 2.0)) // общий стоп 49

	// N подскочил к моменту добора: базовый стоп нового юнита 52 - 2*2 = 48
	// слабее общего 49 — после поджатия юнит обязан встать на 49
	p.Units = append(p.Units, &models.Unit{
		Entry: 52, Size: 1, Stop: baseStop(52, 2.0, 2.0, models.DirLong),
		Direction: models.DirLong, AddedAt: time.Now(),
	})
	require.NoError(t, retighten(p, 2.0, 2.0))
	for _, u := range p.Units {
		assert.InDelta(t, 49.0, u.Stop, stopEqualEps)
	}
	assert.InDelta(t, 49.0, p.TightestStop(), stopEqualEps)
}

func TestRetighten_EmptyPositionIsIntegrityError(t *testing.T) {
	p := &models.Position{InstID: "CL", Direction: models.DirLong}
	err := retighten(p, 1.0, 2.0)
	var ie *models.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "CL", ie.InstID)
}

func TestBreached_Long(t *testing.T) {
	p := longPos(50)
	require.NoError(t, retighten(p, 1.0, 2.0)) // стоп 48

	px, hit := breached(p, models.Bar{High: 50, Low: 48.0})
	require.True(t, hit, "касание уровня считается пробоем")
	assert.InDelta(t, 48.0, px, 1e-12)

	_, hit = breached(p, models.Bar{High: 50, Low: 48.01})
	assert.False(t, hit)
}

func TestBreached_Short(t *testing.T) {
	p := &models.Position{
		InstID: "CL", Direction: models.DirShort,
		Units: []*models.Unit{{Entry: 50, Size: 1, Stop: 52, Direction: models.DirShort}},
	}
	px, hit := breached(p, models.Bar{High: 52.5, Low: 51})
	require.True(t, hit)
	assert.InDelta(t, 52.0, px, 1e-12)

	_, hit = breached(p, models.Bar{High: 51.9, Low: 51})
	assert.False(t, hit)
}
