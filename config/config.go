// Package config loads the engine configuration. A Config is validated once
// and then passed by value; nothing mutates it during a run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/stratengine/risk"
	"github.com/rustyeddy/stratengine/strategies"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "STRATENGINE_"

// Config represents the complete engine configuration
type Config struct {
	Trading  TradingConfig  `json:"trading" yaml:"trading"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// TradingConfig holds the risk limits.
type TradingConfig struct {
	EnableTrading   bool    `json:"enable_trading" yaml:"enable_trading"`
	MaxPositionSize float64 `json:"max_position_size" yaml:"max_position_size"`
	MaxDailyLoss    float64 `json:"max_daily_loss" yaml:"max_daily_loss"`
	RiskPerTrade    float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
}

// StrategyConfig selects the signal rule. Zero numeric fields take the
// rule's defaults.
type StrategyConfig struct {
	Kind     string  `json:"kind" yaml:"kind"` // "mean-reversion", "momentum", "rsi"
	Quantity float64 `json:"quantity" yaml:"quantity"`
	Capacity int     `json:"capacity,omitempty" yaml:"capacity,omitempty"`

	MinHistory      int     `json:"min_history,omitempty" yaml:"min_history,omitempty"`
	ZScoreThreshold float64 `json:"z_score_threshold,omitempty" yaml:"z_score_threshold,omitempty"`

	ShortPeriod       int     `json:"short_period,omitempty" yaml:"short_period,omitempty"`
	LongPeriod        int     `json:"long_period,omitempty" yaml:"long_period,omitempty"`
	MomentumThreshold float64 `json:"momentum_threshold,omitempty" yaml:"momentum_threshold,omitempty"`

	RSIPeriod  int     `json:"rsi_period,omitempty" yaml:"rsi_period,omitempty"`
	Oversold   float64 `json:"oversold,omitempty" yaml:"oversold,omitempty"`
	Overbought float64 `json:"overbought,omitempty" yaml:"overbought,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // console or json
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"` // empty disables the listener
}

// LoadFromFile loads configuration from a file. Fields missing from the
// file keep their Default values.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, &cfg); jerr != nil {
			return Config{}, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("trading: %w", err)
	}
	if _, err := c.Params(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite', got %q", c.Journal.Type)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json', got %q", c.Logging.Format)
	}
	return nil
}

// Policy builds the risk policy.
func (c Config) Policy() risk.Policy {
	return risk.Policy{
		EnableTrading:   c.Trading.EnableTrading,
		MaxPositionSize: c.Trading.MaxPositionSize,
		MaxDailyLoss:    c.Trading.MaxDailyLoss,
		RiskPerTrade:    c.Trading.RiskPerTrade,
		StopLossPct:     c.Trading.StopLossPct,
		TakeProfitPct:   c.Trading.TakeProfitPct,
	}
}

// Params builds generator parameters and validates them with the rule's
// defaults applied.
func (c Config) Params() (strategies.Params, error) {
	kind, err := strategies.KindByName(c.Strategy.Kind)
	if err != nil {
		return strategies.Params{}, err
	}
	p := strategies.Params{
		Kind:              kind,
		Capacity:          c.Strategy.Capacity,
		Quantity:          c.Strategy.Quantity,
		MinHistory:        c.Strategy.MinHistory,
		ZScoreThreshold:   c.Strategy.ZScoreThreshold,
		ShortPeriod:       c.Strategy.ShortPeriod,
		LongPeriod:        c.Strategy.LongPeriod,
		MomentumThreshold: c.Strategy.MomentumThreshold,
		RSIPeriod:         c.Strategy.RSIPeriod,
		Oversold:          c.Strategy.Oversold,
		Overbought:        c.Strategy.Overbought,
	}
	if _, err := strategies.NewGenerator(p); err != nil {
		return strategies.Params{}, err
	}
	return p, nil
}

// Default returns a configuration with sensible defaults. Trading stays
// disabled until a file or the environment turns it on.
func Default() Config {
	pol := risk.DefaultPolicy()
	return Config{
		Trading: TradingConfig{
			EnableTrading:   pol.EnableTrading,
			MaxPositionSize: pol.MaxPositionSize,
			MaxDailyLoss:    pol.MaxDailyLoss,
			RiskPerTrade:    pol.RiskPerTrade,
			StopLossPct:     pol.StopLossPct,
			TakeProfitPct:   pol.TakeProfitPct,
		},
		Strategy: StrategyConfig{
			Kind:     strategies.MeanReversion.String(),
			Quantity: 0.1,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables already set. With no paths it loads ./.env if present.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// ReadEnvFile parses a .env file without touching the process environment.
func ReadEnvFile(path string) (map[string]string, error) {
	m, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	return m, nil
}

// MapLookup adapts a map to the lookup signature WithEnv takes.
func MapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// WithEnv returns a copy of c with STRATENGINE_* overrides applied. lookup
// is normally os.LookupEnv.
func (c Config) WithEnv(lookup func(string) (string, bool)) (Config, error) {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}

	if v, ok := lookup(EnvPrefix + "ENABLE_TRADING"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sENABLE_TRADING: %w", EnvPrefix, err))
		} else {
			c.Trading.EnableTrading = b
		}
	}
	num("MAX_POSITION_SIZE", &c.Trading.MaxPositionSize)
	num("MAX_DAILY_LOSS", &c.Trading.MaxDailyLoss)
	num("RISK_PER_TRADE", &c.Trading.RiskPerTrade)
	num("STOP_LOSS_PCT", &c.Trading.StopLossPct)
	num("TAKE_PROFIT_PCT", &c.Trading.TakeProfitPct)
	str("STRATEGY", &c.Strategy.Kind)
	num("QUANTITY", &c.Strategy.Quantity)
	str("JOURNAL_TYPE", &c.Journal.Type)
	str("JOURNAL_DB", &c.Journal.DBPath)
	str("JOURNAL_TRADES", &c.Journal.TradesFile)
	str("JOURNAL_EQUITY", &c.Journal.EquityFile)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("METRICS_ADDR", &c.Metrics.Addr)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return c, nil
}
