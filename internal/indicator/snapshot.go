package indicator

import "time"

// 指标快照模型：每个指标组要么完整存在，要么因数据不足整体缺失（nil）。
// 缺失的组会让入场门直接判 false，调用方不需要逐字段判空。

// MACDReading MACD 三线与派生标志。
type MACDReading struct {
	Line      float64 `json:"macd_line"`
	Signal    float64 `json:"signal_line"`
	Histogram float64 `json:"histogram"`

	BullishCrossover    bool `json:"bullish_crossover"`
	BearishCrossover    bool `json:"bearish_crossover"`
	AboveZero           bool `json:"above_zero"`
	HistogramIncreasing bool `json:"histogram_increasing"`
}

// RSIReading RSI 值与派生标志。标志基于最近两个值：
// Oversold 在最近两根 K 线任一 RSI 低于 30 时为 true，
// 这样入场门在上穿 30 的那根 K 线上可以成立。
type RSIReading struct {
	Value float64 `json:"value"`

	Oversold       bool `json:"oversold"`
	CrossedAbove30 bool `json:"crossed_above_30"`
	BullishSwing   bool `json:"bullish_swing"`
}

// BollingerReading 布林带三轨，满足 Upper >= Middle >= Lower。
type BollingerReading struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// ATRReading 平均真实波幅（真实波幅的滚动均值，非负）。
type ATRReading struct {
	Value float64 `json:"value"`
}

// VolumeReading 当前量、20 日均量与派生标志。
type VolumeReading struct {
	Current float64 `json:"current"`
	Average float64 `json:"average"`
	Ratio   float64 `json:"ratio"`

	High  bool   `json:"is_high"`
	Trend string `json:"trend"` // increasing / decreasing
}

// FiftyTwoWeekReading 52 周高低点与反转信号。
type FiftyTwoWeekReading struct {
	Low             float64 `json:"low"`
	High            float64 `json:"high"`
	DistanceFromLow float64 `json:"distance_from_low"` // (close-low)/low
	ReversalSignal  bool    `json:"reversal_signal"`
}

// Greeks 期权敏感度，仅当标的为期权时由调用方提供。
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// Snapshot 某一根 K 线收盘时刻的全部指标读数。
// nil 组表示样本不足（InsufficientData），视为"无法判断"。
type Snapshot struct {
	TS     int64   `json:"ts"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`

	RSI          *RSIReading          `json:"rsi,omitempty"`
	MACD         *MACDReading         `json:"macd,omitempty"`
	Bollinger    *BollingerReading    `json:"bollinger,omitempty"`
	ATR          *ATRReading          `json:"atr,omitempty"`
	Vol          *VolumeReading       `json:"volume_reading,omitempty"`
	FiftyTwoWeek *FiftyTwoWeekReading `json:"fifty_two_week,omitempty"`
	Greeks       *Greeks              `json:"greeks,omitempty"`
}

// Time 返回快照对应 K 线的收盘时间。
func (s *Snapshot) Time() time.Time {
	return time.UnixMilli(s.TS)
}
