package service

import "turtle_bot/internal/models"

// wantsAdd — пирамида: цена ушла в плюс от входа ПОСЛЕДНЕГО юнита на
// spacing*N и лимит юнитов не исчерпан. Капы по группе проверяются дальше,
// внутри бюджетной транзакции.
func wantsAdd(p *models.Position, close, n, spacing float64, maxUnits int) bool {
	if len(p.Units) >= maxUnits {
		return false
	}
	last := p.LastUnit()
	if last == nil {
		return false
	}
	if p.Direction == models.DirLong {
		return close >= last.Entry+spacing*n
	}
	return close <= last.Entry-spacing*n
}
