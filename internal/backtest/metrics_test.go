package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxDrawdown(t *testing.T) {
	// 峰值 110000，谷值 105000：回撤 5000/110000
	dd := MaxDrawdown([]float64{100000, 110000, 105000, 120000})
	assert.InDelta(t, 5000.0/110000.0, dd, 1e-9)
}

func TestMaxDrawdown_Monotonic(t *testing.T) {
	assert.Zero(t, MaxDrawdown([]float64{100, 110, 120}))
	assert.InDelta(t, 0.5, MaxDrawdown([]float64{100, 50}), 1e-9)
	assert.Zero(t, MaxDrawdown(nil))
	assert.Zero(t, MaxDrawdown([]float64{100000}))
}

func TestSharpeRatio(t *testing.T) {
	equity := []float64{100000, 110000, 105000, 120000}
	sharpe := SharpeRatio(equity)
	// 收益 0.1、-1/22、1/7；均值/样本标准差 ×√252
	assert.InDelta(t, 10.58, sharpe, 0.01)
}

func TestSharpeRatio_DegenerateInputs(t *testing.T) {
	assert.Zero(t, SharpeRatio(nil))
	assert.Zero(t, SharpeRatio([]float64{100000}))
	assert.Zero(t, SharpeRatio([]float64{100000, 110000})) // 单个收益样本
	// 方差为零
	assert.Zero(t, SharpeRatio([]float64{100, 110, 121}))
	assert.Zero(t, SharpeRatio([]float64{100, 100, 100}))
}
