package service

import (
	"fmt"
	"math"

	"turtle_bot/internal/models"
)

const stopEqualEps = 1e-9

// baseStop — базовый защитный стоп юнита: entry ∓ mult*N
// (N фиксируется на момент установки стопа).
func baseStop(entry, n, mult float64, dir models.Direction) float64 {
	if dir == models.DirShort {
		return entry + mult*n
	}
	return entry - mult*n
}

// improves — кандидат защитнее текущего стопа: выше для лонга, ниже для
// шорта. Та же дисциплина, что у трейлинга: стоп двигается только в сторону
// цены, никогда назад.
func improves(candidate, current float64, dir models.Direction) bool {
	if dir == models.DirShort {
		return candidate < current
	}
	return candidate > current
}

// retighten пересчитывает стопы ВСЕХ юнитов позиции от входа последнего
// юнита: общий стоп = самый защитный из существующих стопов и кандидата
// newestEntry - mult*N (для лонга максимум, для шорта зеркально). Если N
// вырос и кандидат слабее уже поджатого стопа, НОВЫЙ юнит наследует старый
// общий уровень — стопы никогда не ослабевают и после пересчёта все юниты
// обязаны нести одинаковый стоп.
func retighten(p *models.Position, n, mult float64) error {
	last := p.LastUnit()
	if last == nil {
		return &models.IntegrityError{InstID: p.InstID, Msg: "retighten on empty position"}
	}
	common := baseStop(last.Entry, n, mult, p.Direction)
	for _, u := range p.Units {
		if improves(u.Stop, common, p.Direction) {
			common = u.Stop
		}
	}

	for i, u := range p.Units {
		old := u.Stop
		if improves(common, u.Stop, p.Direction) {
			u.Stop = common
		}
		if improves(old, u.Stop, p.Direction) {
			// стоп ослаб — такого не бывает по построению
			return &models.IntegrityError{
				InstID: p.InstID,
				Msg:    fmt.Sprintf("stop loosened on unit %d: %.10f -> %.10f", i, old, u.Stop),
			}
		}
	}

	// после поджатия все стопы сходятся к общему уровню
	for i, u := range p.Units {
		if math.Abs(u.Stop-p.Units[0].Stop) > stopEqualEps {
			return &models.IntegrityError{
				InstID: p.InstID,
				Msg:    fmt.Sprintf("stops diverged after retighten: unit %d has %.10f vs %.10f", i, u.Stop, p.Units[0].Stop),
			}
		}
	}
	return nil
}

// breached — пробит ли общий (самый защитный) стоп позиции этим баром:
// low для лонга, high для шорта. Возвращает уровень срабатывания.
func breached(p *models.Position, bar models.Bar) (float64, bool) {
	stop := p.TightestStop()
	if p.Direction == models.DirLong {
		if bar.Low <= stop {
			return stop, true
		}
		return 0, false
	}
	if bar.High >= stop {
		return stop, true
	}
	return 0, false
}
