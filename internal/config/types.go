package config

// Config 顶层配置。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Data      DataConfig      `yaml:"data"`
	Source    SourceConfig    `yaml:"source"`
	Trading   TradingConfig   `yaml:"trading"`
	Backtest  BacktestConfig  `yaml:"backtest"`
	Indicator IndicatorConfig `yaml:"indicator"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DataConfig 本地存储目录，K 线缓存、回测结果和交易决策都放在这里。
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// SourceConfig 行情来源。Provider 取 polygon 或 binance。
type SourceConfig struct {
	Provider      string `yaml:"provider"`
	PolygonAPIKey string `yaml:"polygon_api_key"`
	PolygonBase   string `yaml:"polygon_base"`
	BinanceKey    string `yaml:"binance_key"`
	BinanceSecret string `yaml:"binance_secret"`
}

type TradingConfig struct {
	Capital float64 `yaml:"capital"`
	RiskPct float64 `yaml:"risk_pct"`
}

type BacktestConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// IndicatorConfig 指标周期，零值使用引擎内置默认。
type IndicatorConfig struct {
	RSIPeriod       int     `yaml:"rsi_period"`
	MACDFast        int     `yaml:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	ATRPeriod       int     `yaml:"atr_period"`
	VolumePeriod    int     `yaml:"volume_period"`
	HighVolumeRatio float64 `yaml:"high_volume_ratio"`
}
