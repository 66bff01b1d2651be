package helper

import (
	"math"
	"strconv"
	"strings"
)

func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "4h":
		return "4h"
	case "1d", "1day":
		return "1d"
	default:
		return s
	}
}

func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Ceil(px/tick - 1e-12)
	return steps * tick
}

// FormatPx — цена без экспоненты и хвостовых нулей, как любят REST-шлюзы.
func FormatPx(px float64) string {
	return strconv.FormatFloat(px, 'f', -1, 64)
}
