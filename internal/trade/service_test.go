package trade

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewind/internal/indicator"
	"tradewind/internal/strategy"
)

func testService() *Service {
	return &Service{
		capital: 100000,
		riskPct: strategy.DefaultRiskPct,
		engine:  indicator.NewEngine(indicator.Settings{}),
	}
}

func bullishSnapshot() indicator.Snapshot {
	return indicator.Snapshot{
		TS:     time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC).UnixMilli(),
		Close:  100,
		Volume: 5_000_000,
		MACD: &indicator.MACDReading{
			Line: 0.5, Signal: 0.3, Histogram: 0.2,
			BullishCrossover: true, AboveZero: true, HistogramIncreasing: true,
		},
		RSI: &indicator.RSIReading{Value: 32, Oversold: true, CrossedAbove30: true, BullishSwing: true},
		Vol: &indicator.VolumeReading{Current: 5_000_000, Average: 2_000_000, Ratio: 2.5, High: true},
		FiftyTwoWeek: &indicator.FiftyTwoWeekReading{
			Low: 95, High: 180, DistanceFromLow: 0.05, ReversalSignal: true,
		},
		ATR:       &indicator.ATRReading{Value: 2.5},
		Bollinger: &indicator.BollingerReading{Upper: 108, Middle: 100, Lower: 92},
	}
}

func TestEvaluateEntry_ProducesBuyDecision(t *testing.T) {
	svc := testService()
	d := svc.evaluateEntry(bullishSnapshot(), EvaluateRequest{Ticker: "ACME"})

	assert.Equal(t, ActionBuy, d.Action)
	assert.Equal(t, 100.0, d.EntryPrice)
	assert.InDelta(t, 95.0, d.StopLoss, 1e-9) // entry - 2*ATR
	assert.Positive(t, d.PositionSize)

	var targets strategy.PriceTargets
	require.NoError(t, json.Unmarshal(d.Targets, &targets))
	assert.InDelta(t, 107.5, targets.Target1, 1e-9) // 100 + 3*2.5

	var signals map[string]bool
	require.NoError(t, json.Unmarshal(d.Signals, &signals))
	assert.True(t, signals["macd_bullish_cross"])
}

func TestEvaluateEntry_HoldWhenGateFails(t *testing.T) {
	snap := bullishSnapshot()
	snap.Vol.High = false
	d := testService().evaluateEntry(snap, EvaluateRequest{Ticker: "ACME"})

	assert.Equal(t, ActionHold, d.Action)
	assert.Zero(t, d.PositionSize)
	assert.Zero(t, d.EntryPrice)
}

func TestEvaluateEntry_HoldWhenATRMissing(t *testing.T) {
	snap := bullishSnapshot()
	snap.ATR = nil
	d := testService().evaluateEntry(snap, EvaluateRequest{Ticker: "ACME"})

	assert.Equal(t, ActionHold, d.Action)
	assert.Equal(t, "no valid stop loss", d.Reason)
}

func TestEvaluateExit_SellOnStopLoss(t *testing.T) {
	snap := bullishSnapshot()
	snap.Close = 89
	d := testService().evaluateExit(snap, EvaluateRequest{
		Ticker:       "ACME",
		OpenPosition: &OpenPositionInput{EntryPrice: 100, StopLoss: 90, Quantity: 10},
	})

	assert.Equal(t, ActionSell, d.Action)
	assert.Equal(t, strategy.ReasonStopLoss, d.Reason)
	assert.Equal(t, 10, d.PositionSize)
}

func TestEvaluateExit_HoldRaisesTrailingStop(t *testing.T) {
	snap := bullishSnapshot()
	snap.Close = 100
	snap.RSI.Value = 50
	snap.MACD.BearishCrossover = false
	snap.Vol = &indicator.VolumeReading{Current: 2_000_000, Average: 2_000_000}
	snap.Bollinger.Upper = 120
	snap.FiftyTwoWeek = nil // 让目标价退化为入场价之上的 ATR 分量

	d := testService().evaluateExit(snap, EvaluateRequest{
		Ticker:       "ACME",
		OpenPosition: &OpenPositionInput{EntryPrice: 99, StopLoss: 94, Quantity: 5},
	})

	assert.Equal(t, ActionHold, d.Action)
	assert.Equal(t, "trailing stop raised", d.Reason)
	assert.InDelta(t, 95.0, d.StopLoss, 1e-9) // close - 2*ATR
}

func TestContentHash(t *testing.T) {
	base := Decision{Ticker: "ACME", Action: ActionBuy, TS: time.UnixMilli(1700000000000), EntryPrice: 100, StopLoss: 95, PositionSize: 10}
	assert.Equal(t, base.ContentHash(), base.ContentHash())

	other := base
	other.EntryPrice = 100.01
	assert.NotEqual(t, base.ContentHash(), other.ContentHash())

	other = base
	other.Action = ActionSell
	assert.NotEqual(t, base.ContentHash(), other.ContentHash())
}
