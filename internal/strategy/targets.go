package strategy

import (
	"github.com/shopspring/decimal"

	"tradewind/internal/indicator"
)

// 目标价权重（0.3/0.3/0.2/0.2），用 decimal 保证加权和精确。
var (
	weightATR = decimal.NewFromFloat(0.3)
	weightBB  = decimal.NewFromFloat(0.3)
	weightFib = decimal.NewFromFloat(0.2)
	weightRR  = decimal.NewFromFloat(0.2)
)

const (
	atrTargetMultiple = 3.0
	fibExtension      = 1.618
	riskRewardMult    = 2.0
)

// PriceTargets 描述一笔多头交易的目标价位。字段间的大小关系不做强制校验
//（见 Sane），保持与历史行为一致的宽松语义。
type PriceTargets struct {
	Entry           float64 `json:"entry"`
	StopLoss        float64 `json:"stop_loss"`
	Target1         float64 `json:"target_1"` // ATR 目标
	Target2         float64 `json:"target_2"` // Fibonacci 扩展
	Target3         float64 `json:"target_3"` // 2R 目标
	BBTarget        float64 `json:"bb_target"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
	WeightedTarget  float64 `json:"weighted_target"`
}

// Sane 报告目标价位是否满足 stop < entry < t1 <= t2 <= t3。
// 只用于日志提示，不影响任何计算路径。
func (t PriceTargets) Sane() bool {
	return t.StopLoss < t.Entry &&
		t.Entry < t.Target1 &&
		t.Target1 <= t.Target2 &&
		t.Target2 <= t.Target3
}

// CalculateTargets 由入场价与指标快照推导目标价位：
// ATR 目标（entry+3·ATR，权重 0.3）、布林上轨（0.3）、
// Fibonacci 扩展（0.2）与 2R 目标（0.2）的加权合成。
// 所需指标缺失时对应分量取 0 权重之外的退化值，加权和仍然确定。
func CalculateTargets(entryPrice, stopLoss float64, snap indicator.Snapshot) PriceTargets {
	t := PriceTargets{Entry: entryPrice, StopLoss: stopLoss}

	atrTarget := entryPrice
	if snap.ATR != nil {
		atrTarget = entryPrice + atrTargetMultiple*snap.ATR.Value
	}
	bbTarget := entryPrice
	if snap.Bollinger != nil {
		bbTarget = snap.Bollinger.Upper
	}
	fibTarget := entryPrice
	rrTarget := entryPrice
	if snap.FiftyTwoWeek != nil {
		base := entryPrice - snap.FiftyTwoWeek.Low
		fibTarget = entryPrice + base*fibExtension
		rrTarget = entryPrice + base*riskRewardMult
	}

	t.Target1 = atrTarget
	t.Target2 = fibTarget
	t.Target3 = rrTarget
	t.BBTarget = bbTarget
	t.WeightedTarget = WeightedTarget(atrTarget, bbTarget, fibTarget, rrTarget)

	if risk := entryPrice - stopLoss; risk > 0 {
		t.RiskRewardRatio = (t.WeightedTarget - entryPrice) / risk
	}
	return t
}

// WeightedTarget 计算四个目标价的精确加权和。
func WeightedTarget(atrTarget, bbTarget, fibTarget, rrTarget float64) float64 {
	sum := decimal.NewFromFloat(atrTarget).Mul(weightATR).
		Add(decimal.NewFromFloat(bbTarget).Mul(weightBB)).
		Add(decimal.NewFromFloat(fibTarget).Mul(weightFib)).
		Add(decimal.NewFromFloat(rrTarget).Mul(weightRR))
	f, _ := sum.Float64()
	return f
}
