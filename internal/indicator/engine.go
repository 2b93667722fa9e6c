package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"tradewind/internal/market"
)

// Settings 描述指标计算所需的全部窗口参数。零值字段取默认值。
type Settings struct {
	RSIPeriod       int     // 14
	MACDFast        int     // 12
	MACDSlow        int     // 26
	MACDSignal      int     // 9
	BollingerPeriod int     // 20
	ATRPeriod       int     // 14
	VolumePeriod    int     // 20
	FiftyTwoWeek    int     // 252 个交易日
	HighVolumeRatio float64 // 2.0
	OversoldLevel   float64 // 30
	NearLowPct      float64 // 0.10，距 52 周低点 10% 以内视为"接近低点"
}

func (s Settings) withDefaults() Settings {
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.MACDFast <= 0 {
		s.MACDFast = 12
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = 26
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = 9
	}
	if s.BollingerPeriod <= 0 {
		s.BollingerPeriod = 20
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = 14
	}
	if s.VolumePeriod <= 0 {
		s.VolumePeriod = 20
	}
	if s.FiftyTwoWeek <= 0 {
		s.FiftyTwoWeek = 252
	}
	if s.HighVolumeRatio <= 0 {
		s.HighVolumeRatio = 2.0
	}
	if s.OversoldLevel <= 0 {
		s.OversoldLevel = 30
	}
	if s.NearLowPct <= 0 {
		s.NearLowPct = 0.10
	}
	return s
}

// Engine 将 K 线序列转换为指标序列与快照。计算是纯函数，可安全并发使用。
type Engine struct {
	cfg Settings
}

func NewEngine(cfg Settings) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// maskWarmup 把 TALib 输出里窗口未满的前导零替换为 NaN，
// 让"样本不足"从偶然的 0 值变成显式的未定义。
func maskWarmup(src []float64, warmup int) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	for i := 0; i < warmup && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// RSISeries 返回与输入等长的 RSI 序列，前 period 个值为 NaN。
func (e *Engine) RSISeries(closes []float64) []float64 {
	period := e.cfg.RSIPeriod
	if len(closes) <= period {
		return nanSlice(len(closes))
	}
	return maskWarmup(talib.Rsi(closes, period), period)
}

// MACDSeries 返回 macd/signal/histogram 三条序列。
// macd 线自 slow-1 起有效，signal 与 histogram 自 slow+signal-2 起有效。
func (e *Engine) MACDSeries(closes []float64) (line, signal, hist []float64) {
	lineWarm := e.cfg.MACDSlow - 1
	signalWarm := e.cfg.MACDSlow + e.cfg.MACDSignal - 2
	if len(closes) <= signalWarm {
		n := len(closes)
		return nanSlice(n), nanSlice(n), nanSlice(n)
	}
	l, s, h := talib.Macd(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	return maskWarmup(l, lineWarm), maskWarmup(s, signalWarm), maskWarmup(h, signalWarm)
}

// BollingerSeries 返回上/中/下轨，前 period-1 个值为 NaN。
func (e *Engine) BollingerSeries(closes []float64) (upper, middle, lower []float64) {
	period := e.cfg.BollingerPeriod
	if len(closes) < period {
		n := len(closes)
		return nanSlice(n), nanSlice(n), nanSlice(n)
	}
	u, m, l := talib.BBands(closes, period, 2, 2, talib.SMA)
	return maskWarmup(u, period-1), maskWarmup(m, period-1), maskWarmup(l, period-1)
}

// ATRSeries 返回真实波幅的 period 日滚动均值。第一根 K 线没有前收盘价，
// 不参与真实波幅计算，因此前 period 个值为 NaN。
func (e *Engine) ATRSeries(highs, lows, closes []float64) []float64 {
	period := e.cfg.ATRPeriod
	n := len(closes)
	out := nanSlice(n)
	if n < period+1 {
		return out
	}
	tr := make([]float64, n-1)
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i-1] = math.Max(hl, math.Max(hc, lc))
	}
	sma := talib.Sma(tr, period)
	for i := period; i < n; i++ {
		out[i] = sma[i-1]
	}
	return out
}

// VolumeSMASeries 返回成交量的 period 日均值，前 period-1 个值为 NaN。
func (e *Engine) VolumeSMASeries(volumes []float64) []float64 {
	period := e.cfg.VolumePeriod
	if len(volumes) < period {
		return nanSlice(len(volumes))
	}
	return maskWarmup(talib.Sma(volumes, period), period-1)
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SnapshotAt 基于 bars[0..len-1] 计算最后一根 K 线的指标快照。
// 每个指标组只有在其全部输入（含标志所需的前一个值）有效时才会出现。
func (e *Engine) SnapshotAt(bars []market.Bar, greeks *Greeks) Snapshot {
	n := len(bars)
	snap := Snapshot{Greeks: greeks}
	if n == 0 {
		return snap
	}
	last := bars[n-1]
	snap.TS = last.TS
	snap.Close = last.Close
	snap.Volume = last.Volume

	closes := market.Closes(bars)
	highs := market.Highs(bars)
	lows := market.Lows(bars)
	volumes := market.Volumes(bars)

	if rsi := e.RSISeries(closes); n >= 2 && valid(rsi[n-1]) && valid(rsi[n-2]) {
		cur, prev := rsi[n-1], rsi[n-2]
		snap.RSI = &RSIReading{
			Value:          cur,
			Oversold:       cur < e.cfg.OversoldLevel || prev < e.cfg.OversoldLevel,
			CrossedAbove30: prev < e.cfg.OversoldLevel && cur >= e.cfg.OversoldLevel,
			BullishSwing:   cur > prev,
		}
	}

	if line, signal, hist := e.MACDSeries(closes); n >= 2 &&
		valid(line[n-1]) && valid(signal[n-1]) && valid(line[n-2]) && valid(signal[n-2]) {
		snap.MACD = &MACDReading{
			Line:                line[n-1],
			Signal:              signal[n-1],
			Histogram:           hist[n-1],
			BullishCrossover:    line[n-2] <= signal[n-2] && line[n-1] > signal[n-1],
			BearishCrossover:    line[n-2] > signal[n-2] && line[n-1] < signal[n-1],
			AboveZero:           line[n-1] > 0,
			HistogramIncreasing: hist[n-1] > hist[n-2],
		}
	}

	if upper, middle, lower := e.BollingerSeries(closes); valid(upper[n-1]) {
		snap.Bollinger = &BollingerReading{
			Upper:  upper[n-1],
			Middle: middle[n-1],
			Lower:  lower[n-1],
		}
	}

	if atr := e.ATRSeries(highs, lows, closes); valid(atr[n-1]) {
		snap.ATR = &ATRReading{Value: atr[n-1]}
	}

	if avg := e.VolumeSMASeries(volumes); valid(avg[n-1]) && avg[n-1] > 0 {
		cur := last.Volume
		trend := "decreasing"
		if n >= 2 && cur > bars[n-2].Volume {
			trend = "increasing"
		}
		ratio := cur / avg[n-1]
		snap.Vol = &VolumeReading{
			Current: cur,
			Average: avg[n-1],
			Ratio:   ratio,
			High:    ratio >= e.cfg.HighVolumeRatio,
			Trend:   trend,
		}
	}

	if n >= 2 {
		window := bars
		if n > e.cfg.FiftyTwoWeek {
			window = bars[n-e.cfg.FiftyTwoWeek:]
		}
		low, high := window[0].Low, window[0].High
		for _, b := range window[1:] {
			low = math.Min(low, b.Low)
			high = math.Max(high, b.High)
		}
		if low > 0 {
			dist := (last.Close - low) / low
			snap.FiftyTwoWeek = &FiftyTwoWeekReading{
				Low:             low,
				High:            high,
				DistanceFromLow: dist,
				ReversalSignal:  dist <= e.cfg.NearLowPct && last.Close > bars[n-2].Close,
			}
		}
	}

	return snap
}
