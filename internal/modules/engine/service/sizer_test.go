package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turtle_bot/internal/models"
)

func TestUnitSize_Floor(t *testing.T) {
	// 1_000_000 * 0.02 / (1.085 * 1000) = 18.43 -> 18
	sz, err := UnitSize(1_000_000, 0.02, 1.085, 1000)
	require.NoError(t, err)
	assert.Equal(t, 18, sz)
}

func TestUnitSize_ExactIntegerNotCutByFloor(t *testing.T) {
	// 100_000 * 0.02 / (0.5 * 1000) = 4.0 ровно
	sz, err := UnitSize(100_000, 0.02, 0.5, 1000)
	require.NoError(t, err)
	assert.Equal(t, 4, sz)
}

func TestUnitSize_ZeroIsValidOutcome(t *testing.T) {
	// маленький депозит, дорогой пункт
	sz, err := UnitSize(1000, 0.02, 1.0, 1000)
	require.NoError(t, err)
	assert.Zero(t, sz)
}

func TestUnitSize_RiskNeverExceedsBudget(t *testing.T) {
	equity, risk, n, vpp := 250_000.0, 0.02, 0.73, 420.0
	sz, err := UnitSize(equity, risk, n, vpp)
	require.NoError(t, err)
	// стоп в 2N против позиции стоит не больше 2x бюджета юнита
	assert.LessOrEqual(t, float64(sz)*n*vpp, equity*risk)
}

func TestUnitSize_Validation(t *testing.T) {
	_, err := UnitSize(0, 0.02, 1, 1000)
	assert.Error(t, err)

	_, err = UnitSize(1000, 0, 1, 1000)
	assert.Error(t, err)

	_, err = UnitSize(1000, 0.02, 0, 1000)
	assert.ErrorIs(t, err, models.ErrDegenerateRange)

	_, err = UnitSize(1000, 0.02, 1, 0)
	assert.Error(t, err)
}
