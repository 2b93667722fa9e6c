package strategy

import "tradewind/internal/indicator"

// 退出原因常量，同时作为 TradeRecord.Reason 落库。
const (
	ReasonStopLoss      = "Stop loss triggered"
	ReasonPriceTarget   = "Price target reached"
	ReasonRSIOverbought = "RSI overbought"
	ReasonMACDBearish   = "MACD bearish crossover"
	ReasonVolumeDecline = "Volume declining significantly"
	ReasonAboveUpperBB  = "Price above upper Bollinger Band"
)

const trailingATRMultiple = 2.0

// ExitDecision 是一次退出评估的结果。Exit=false 且 RaisedStop>0 表示
// 不退出但应将止损上移到 RaisedStop（只上移，从不下调）。
type ExitDecision struct {
	Exit       bool
	Reason     string
	RaisedStop float64
}

// EvaluateExit 按固定优先级检查退出条件，第一个命中的提供原因。
// 所有检查都未命中时尝试 ATR 追踪止损。缺失的指标组直接跳过对应检查。
func EvaluateExit(snap indicator.Snapshot, stopLoss float64, targets PriceTargets) ExitDecision {
	price := snap.Close

	if price <= stopLoss {
		return ExitDecision{Exit: true, Reason: ReasonStopLoss}
	}

	target := targets.WeightedTarget
	if target <= 0 {
		target = targets.Target1
	}
	if target > 0 && price >= target {
		return ExitDecision{Exit: true, Reason: ReasonPriceTarget}
	}

	if r := snap.RSI; r != nil && r.Value > rsiExitLevel {
		return ExitDecision{Exit: true, Reason: ReasonRSIOverbought}
	}

	if m := snap.MACD; m != nil && m.BearishCrossover {
		return ExitDecision{Exit: true, Reason: ReasonMACDBearish}
	}

	if v := snap.Vol; v != nil && v.Current < 0.5*v.Average {
		return ExitDecision{Exit: true, Reason: ReasonVolumeDecline}
	}

	if bb := snap.Bollinger; bb != nil && price > bb.Upper {
		return ExitDecision{Exit: true, Reason: ReasonAboveUpperBB}
	}

	if atr := snap.ATR; atr != nil {
		if trailing := price - trailingATRMultiple*atr.Value; trailing > stopLoss {
			return ExitDecision{RaisedStop: trailing}
		}
	}

	return ExitDecision{}
}

// InitialStop 返回进场时的 ATR 止损（entry − 2·ATR）。指标缺失时返回 0。
func InitialStop(entryPrice float64, snap indicator.Snapshot) float64 {
	if snap.ATR == nil {
		return 0
	}
	stop := entryPrice - trailingATRMultiple*snap.ATR.Value
	if stop <= 0 {
		return 0
	}
	return stop
}
