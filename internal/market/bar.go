package market

import (
	"fmt"
	"time"
)

// Bar 表示一根日线 OHLCV K 线（时间戳为 Unix 毫秒）。
type Bar struct {
	TS     int64   `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Time 返回 Bar 对应的时间。
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.TS)
}

// Closes 提取收盘价序列。
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs 提取最高价序列。
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows 提取最低价序列。
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Volumes 提取成交量序列。
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// ValidateSeries 校验 K 线序列：非空、时间严格递增、价格为正。
// 回测入口在进入循环前调用一次；循环内部不再做任何校验。
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("empty bar series")
	}
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("bar %d: non-positive price", i)
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d: high %.4f < low %.4f", i, b.High, b.Low)
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar %d: negative volume", i)
		}
		if i > 0 && b.TS <= bars[i-1].TS {
			return fmt.Errorf("bar %d: timestamp %d not after %d", i, b.TS, bars[i-1].TS)
		}
	}
	return nil
}
