package strategy

import (
	"errors"
	"math"
)

// DefaultRiskPct 每笔交易的资金风险比例。
const DefaultRiskPct = 0.02

// 日均量占用上限：单笔仓位不超过 20 日均量的 1%。
const volumeConstraintPct = 0.01

// ErrNonPositiveRisk 表示止损价不低于入场价，无法计算每股风险。
var ErrNonPositiveRisk = errors.New("non-positive per-share risk")

// SizingInputs 是一次仓位计算的全部输入。
type SizingInputs struct {
	Capital    float64
	RiskPct    float64 // 0 取 DefaultRiskPct
	EntryPrice float64
	StopLoss   float64
	ATR        float64
	AvgVolume  float64 // 20 日均量
}

// PositionSize 返回整数股数。风险无效时返回 0 与 ErrNonPositiveRisk，
// 调用方将 0 视为"不建仓"，不中断流程。
func PositionSize(in SizingInputs) (int, error) {
	riskPct := in.RiskPct
	if riskPct <= 0 {
		riskPct = DefaultRiskPct
	}
	perShare := in.EntryPrice - in.StopLoss
	if perShare <= 0 {
		return 0, ErrNonPositiveRisk
	}
	if in.Capital <= 0 || in.EntryPrice <= 0 {
		return 0, nil
	}

	riskAmount := in.Capital * riskPct
	size := riskAmount / perShare
	if in.ATR > 0 {
		size *= in.ATR / in.EntryPrice
	}

	if in.AvgVolume > 0 {
		if limit := in.AvgVolume * volumeConstraintPct; size > limit {
			size = limit
		}
	}

	shares := int(math.Floor(size))
	if shares < 0 {
		shares = 0
	}
	return shares, nil
}
