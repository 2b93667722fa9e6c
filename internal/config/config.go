package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置文件并补默认值、做校验。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Source.Provider == "" {
		c.Source.Provider = "polygon"
	}
	if c.Trading.Capital == 0 {
		c.Trading.Capital = 100000
	}
	if c.Trading.RiskPct == 0 {
		c.Trading.RiskPct = 0.02
	}
	if c.Backtest.MaxConcurrent == 0 {
		c.Backtest.MaxConcurrent = 4
	}
}

func validate(c *Config) error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Source.Provider) {
	case "polygon", "binance":
	default:
		return fmt.Errorf("source.provider must be polygon or binance, got %q", c.Source.Provider)
	}
	if c.Trading.RiskPct <= 0 || c.Trading.RiskPct >= 1 {
		return fmt.Errorf("trading.risk_pct must be in (0,1), got %v", c.Trading.RiskPct)
	}
	if c.Trading.Capital <= 0 {
		return fmt.Errorf("trading.capital must be positive, got %v", c.Trading.Capital)
	}
	if c.Backtest.MaxConcurrent < 1 {
		return fmt.Errorf("backtest.max_concurrent must be >= 1, got %d", c.Backtest.MaxConcurrent)
	}
	return nil
}
