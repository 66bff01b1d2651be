package service

import (
	"math"

	"github.com/pkg/errors"

	"turtle_bot/internal/models"
)

// UnitSize — размер юнита в контрактах:
//
//	floor( equity * riskFraction / (N * valuePerPoint) )
//
// Считается заново для КАЖДОГО юнита по equity и N на момент его открытия.
// Ноль — не ошибка, а SkippedTrade на стороне вызывающего.
func UnitSize(equity, riskFraction, n, valuePerPoint float64) (int, error) {
	if equity <= 0 {
		return 0, errors.New("equity <= 0")
	}
	if riskFraction <= 0 {
		return 0, errors.New("riskFraction <= 0")
	}
	if n <= 0 {
		return 0, models.ErrDegenerateRange
	}
	if valuePerPoint <= 0 {
		return 0, errors.New("valuePerPoint <= 0")
	}

	raw := equity * riskFraction / (n * valuePerPoint)
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, errors.Errorf("size invalid: %.10f", raw)
	}
	return int(math.Floor(raw + 1e-9)), nil
}
