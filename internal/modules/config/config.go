package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"turtle_bot/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	envPrefix         = "TURTLE"
)

// SystemConfig — пара лукбеков одной пробойной системы.
type SystemConfig struct {
	Entry int `mapstructure:"entry" yaml:"entry"`
	Exit  int `mapstructure:"exit" yaml:"exit"`
}

type EngineConfig struct {
	// Сколько от депозита мы готовы потерять по СТОПУ на один юнит.
	RiskPct float64 `mapstructure:"risk_pct" yaml:"risk_pct"` // 2.0 => 2% equity

	ATRPeriod int `mapstructure:"atr_period" yaml:"atr_period"`
	// true => простое скользящее среднее TR (как в pandas rolling.mean),
	// false => рекурсия Уайлдера. Нужно только для паритета со старыми
	// прогонами.
	ATRSimple bool `mapstructure:"atr_simple" yaml:"atr_simple"`

	StopMultN float64 `mapstructure:"stop_mult_n" yaml:"stop_mult_n"` // 2.0 => стоп на 2N от входа

	// Шаг пирамиды в N. Классика — 0.5; у некоторых описаний встречается 1.0,
	// поэтому значение конфигурируемое, а не зашитое.
	PyramidSpacingN float64 `mapstructure:"pyramid_spacing_n" yaml:"pyramid_spacing_n"`
	MaxUnits        int     `mapstructure:"max_units" yaml:"max_units"`

	System1 SystemConfig `mapstructure:"system1" yaml:"system1"`
	System2 SystemConfig `mapstructure:"system2" yaml:"system2"`

	// Насколько старым может быть снапшот equity, прежде чем движок перейдёт
	// в degraded-режим (новый риск не берём, выходы работают всегда).
	EquityStaleTolerance time.Duration `mapstructure:"equity_stale_tolerance" yaml:"equity_stale_tolerance"`

	// Капы юнитов по коррелированным группам. Пустая мапа = капов нет.
	GroupCaps map[string]int `mapstructure:"group_caps" yaml:"group_caps"`
}

type FeedConfig struct {
	URL       string `mapstructure:"url" yaml:"url"`
	Timeframe string `mapstructure:"timeframe" yaml:"timeframe"`
	// Файл с записанными барами (JSONL). Если задан — вместо WS гоняем реплей
	// через тот же путь движка.
	ReplayFile string `mapstructure:"replay_file" yaml:"replay_file"`
}

type BrokerConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	APISecret  string        `mapstructure:"api_secret" yaml:"api_secret"`
	Paper      bool          `mapstructure:"paper" yaml:"paper"`
	PaperCash  float64       `mapstructure:"paper_cash" yaml:"paper_cash"`
	EquityPoll time.Duration `mapstructure:"equity_poll" yaml:"equity_poll"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token" yaml:"token"`
	ChatID int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

type TracingConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type Config struct {
	Engine      EngineConfig        `mapstructure:"engine" yaml:"engine"`
	Feed        FeedConfig          `mapstructure:"feed" yaml:"feed"`
	Broker      BrokerConfig        `mapstructure:"broker" yaml:"broker"`
	Telegram    TelegramConfig      `mapstructure:"telegram" yaml:"telegram"`
	Tracing     TracingConfig       `mapstructure:"tracing" yaml:"tracing"`
	DB          string              `mapstructure:"db_dsn" yaml:"db_dsn"`
	HealthAddr  string              `mapstructure:"health_addr" yaml:"health_addr"`
	Instruments []models.Instrument `mapstructure:"instruments" yaml:"instruments"`
}

func NewConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("engine.risk_pct", 2.0)
	v.SetDefault("engine.atr_period", 20)
	v.SetDefault("engine.atr_simple", false)
	v.SetDefault("engine.stop_mult_n", 2.0)
	v.SetDefault("engine.pyramid_spacing_n", 0.5)
	v.SetDefault("engine.max_units", 4)
	v.SetDefault("engine.system1.entry", 20)
	v.SetDefault("engine.system1.exit", 10)
	v.SetDefault("engine.system2.entry", 55)
	v.SetDefault("engine.system2.exit", 20)
	v.SetDefault("engine.equity_stale_tolerance", "90s")

	v.SetDefault("feed.timeframe", "1d")
	v.SetDefault("broker.paper", true)
	v.SetDefault("broker.paper_cash", 1_000_000.0)
	v.SetDefault("broker.equity_poll", "30s")
	v.SetDefault("health_addr", ":8080")
	v.SetDefault("tracing.port", 6831)

	// env-переопределения: TURTLE_ENGINE_RISK_PCT и т.п.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	name := v.GetString("config_file")
	if name == "" {
		name = getenvDefault(configFilePathENV, "values_local.yaml")
	}
	v.SetConfigFile("configs/" + name)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	e := c.Engine
	if e.RiskPct <= 0 {
		return errors.New("engine.risk_pct must be > 0")
	}
	if e.ATRPeriod < 2 {
		return errors.New("engine.atr_period must be >= 2")
	}
	if e.StopMultN <= 0 {
		return errors.New("engine.stop_mult_n must be > 0")
	}
	if e.PyramidSpacingN < 0 {
		return errors.New("engine.pyramid_spacing_n must be >= 0")
	}
	if e.MaxUnits < 1 {
		return errors.New("engine.max_units must be >= 1")
	}
	for _, s := range []SystemConfig{e.System1, e.System2} {
		if s.Entry < 1 || s.Exit < 1 {
			return errors.New("system lookbacks must be >= 1")
		}
	}
	if len(c.Instruments) == 0 {
		return errors.New("instruments list is empty")
	}
	for _, in := range c.Instruments {
		if in.InstID == "" || in.ValuePerPoint <= 0 {
			return errors.Errorf("bad instrument entry: %+v", in)
		}
	}
	return nil
}

// InstrumentIndex — каталог инструментов по ID.
func (c *Config) InstrumentIndex() map[string]models.Instrument {
	idx := make(map[string]models.Instrument, len(c.Instruments))
	for _, in := range c.Instruments {
		idx[in.InstID] = in
	}
	return idx
}

// Dump — эффективный конфиг для стартового лога (секреты маскируем).
func (c *Config) Dump() string {
	cp := *c
	if cp.Broker.APISecret != "" {
		cp.Broker.APISecret = "***"
	}
	if cp.Telegram.Token != "" {
		cp.Telegram.Token = "***"
	}
	bs, err := yaml.Marshal(&cp)
	if err != nil {
		return ""
	}
	return string(bs)
}
