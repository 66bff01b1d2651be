package models

// Instrument — метаданные контракта: сколько стоит один пункт цены
// (1000 для CL, 5000 для ZS и т.д.), шаг цены и коррелированная группа,
// по которой ограничивается суммарное число юнитов.
type Instrument struct {
	InstID        string  `mapstructure:"id" yaml:"id"`
	ValuePerPoint float64 `mapstructure:"value_per_point" yaml:"value_per_point"`
	TickSz        float64 `mapstructure:"tick_size" yaml:"tick_size"`
	Group         string  `mapstructure:"group" yaml:"group"`
}
