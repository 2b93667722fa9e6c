package strategy

import "tradewind/internal/indicator"

// Greeks 入场阈值。
const (
	minDelta     = 0.7
	minGamma     = 0.05
	maxAbsTheta  = 0.02
	minVega      = 0.1
	rsiExitLevel = 70
)

// EntrySignals 逐条列出入场条件的判定结果，便于落库与排查。
type EntrySignals map[string]bool

// All 仅当所有条件为 true 时返回 true。
func (s EntrySignals) All() bool {
	for _, ok := range s {
		if !ok {
			return false
		}
	}
	return len(s) > 0
}

// EvaluateEntry 对快照应用合取式入场规则：任一条件不成立或所需指标缺失，
// 整体即为 false。Greeks 仅在快照带有期权数据时参与判定。
func EvaluateEntry(snap indicator.Snapshot) (bool, EntrySignals) {
	signals := EntrySignals{}

	if m := snap.MACD; m != nil {
		signals["macd_bullish_cross"] = m.BullishCrossover
		signals["macd_above_zero"] = m.AboveZero
		signals["macd_increasing"] = m.HistogramIncreasing
	} else {
		signals["macd_bullish_cross"] = false
		signals["macd_above_zero"] = false
		signals["macd_increasing"] = false
	}

	if r := snap.RSI; r != nil {
		signals["rsi_oversold"] = r.Oversold
		signals["rsi_cross_above_30"] = r.CrossedAbove30
		signals["rsi_bullish_swing"] = r.BullishSwing
	} else {
		signals["rsi_oversold"] = false
		signals["rsi_cross_above_30"] = false
		signals["rsi_bullish_swing"] = false
	}

	if v := snap.Vol; v != nil {
		signals["high_volume"] = v.High
	} else {
		signals["high_volume"] = false
	}

	if w := snap.FiftyTwoWeek; w != nil {
		signals["near_52_week_low"] = w.ReversalSignal
	} else {
		signals["near_52_week_low"] = false
	}

	if g := snap.Greeks; g != nil {
		signals["favorable_greeks"] = g.Delta > minDelta &&
			g.Gamma > minGamma &&
			abs(g.Theta) < maxAbsTheta &&
			g.Vega > minVega
	}

	return signals.All(), signals
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
