package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewind/internal/market"
)

const dayMillis = int64(24 * 60 * 60 * 1000)

func barsFromCloses(closes []float64) []market.Bar {
	out := make([]market.Bar, len(closes))
	for i, c := range closes {
		out[i] = market.Bar{
			TS:     int64(i+1) * dayMillis,
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func wavyCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/3) + 0.1*float64(i)
	}
	return out
}

func TestRSISeries_WarmupAndRange(t *testing.T) {
	e := NewEngine(Settings{})
	closes := wavyCloses(60)
	rsi := e.RSISeries(closes)
	require.Len(t, rsi, 60)

	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(rsi[i]), "index %d should be warmup", i)
	}
	for i := 14; i < 60; i++ {
		require.False(t, math.IsNaN(rsi[i]), "index %d", i)
		assert.GreaterOrEqual(t, rsi[i], 0.0)
		assert.LessOrEqual(t, rsi[i], 100.0)
	}
}

func TestRSISeries_TooShort(t *testing.T) {
	e := NewEngine(Settings{})
	rsi := e.RSISeries(wavyCloses(14))
	require.Len(t, rsi, 14)
	for _, v := range rsi {
		assert.True(t, math.IsNaN(v))
	}
}

func TestMACDSeries_Warmup(t *testing.T) {
	e := NewEngine(Settings{})
	line, signal, hist := e.MACDSeries(wavyCloses(60))
	require.Len(t, line, 60)
	require.Len(t, signal, 60)
	require.Len(t, hist, 60)

	assert.True(t, math.IsNaN(line[24]))
	assert.False(t, math.IsNaN(line[25])) // slow-1
	assert.True(t, math.IsNaN(signal[32]))
	assert.False(t, math.IsNaN(signal[33])) // slow+signal-2
	for i := 33; i < 60; i++ {
		require.False(t, math.IsNaN(hist[i]))
		assert.InDelta(t, line[i]-signal[i], hist[i], 1e-9)
	}
}

func TestBollingerSeries_OrderingAndConstantInput(t *testing.T) {
	e := NewEngine(Settings{})
	upper, middle, lower := e.BollingerSeries(wavyCloses(60))
	for i := 19; i < 60; i++ {
		require.False(t, math.IsNaN(middle[i]))
		assert.GreaterOrEqual(t, upper[i], middle[i])
		assert.GreaterOrEqual(t, middle[i], lower[i])
	}

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 50
	}
	u, m, l := e.BollingerSeries(flat)
	assert.InDelta(t, 50, u[29], 1e-9)
	assert.InDelta(t, 50, m[29], 1e-9)
	assert.InDelta(t, 50, l[29], 1e-9)
}

func TestATRSeries_NonNegativeAndFlat(t *testing.T) {
	e := NewEngine(Settings{})
	bars := barsFromCloses(wavyCloses(60))
	atr := e.ATRSeries(market.Highs(bars), market.Lows(bars), market.Closes(bars))
	require.Len(t, atr, 60)
	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(atr[i]))
	}
	for i := 14; i < 60; i++ {
		require.False(t, math.IsNaN(atr[i]))
		assert.GreaterOrEqual(t, atr[i], 0.0)
	}

	// 高低收全部相同时真实波幅为零
	flat := make([]market.Bar, 30)
	for i := range flat {
		flat[i] = market.Bar{TS: int64(i+1) * dayMillis, Open: 50, High: 50, Low: 50, Close: 50, Volume: 1}
	}
	atr = e.ATRSeries(market.Highs(flat), market.Lows(flat), market.Closes(flat))
	assert.InDelta(t, 0, atr[29], 1e-12)
}

func TestVolumeSMASeries(t *testing.T) {
	e := NewEngine(Settings{})
	volumes := make([]float64, 40)
	for i := range volumes {
		volumes[i] = 2000
	}
	avg := e.VolumeSMASeries(volumes)
	for i := 0; i < 19; i++ {
		assert.True(t, math.IsNaN(avg[i]))
	}
	assert.InDelta(t, 2000, avg[39], 1e-9)
}

func TestSnapshotAt_InsufficientData(t *testing.T) {
	e := NewEngine(Settings{})
	snap := e.SnapshotAt(barsFromCloses(wavyCloses(10)), nil)

	assert.Nil(t, snap.RSI)
	assert.Nil(t, snap.MACD)
	assert.Nil(t, snap.Bollinger)
	assert.Nil(t, snap.ATR)
	assert.Nil(t, snap.Vol)
	assert.NotNil(t, snap.FiftyTwoWeek) // 两根即可比较
}

func TestSnapshotAt_FullSeries(t *testing.T) {
	e := NewEngine(Settings{})
	bars := barsFromCloses(wavyCloses(120))
	snap := e.SnapshotAt(bars, nil)

	require.NotNil(t, snap.RSI)
	require.NotNil(t, snap.MACD)
	require.NotNil(t, snap.Bollinger)
	require.NotNil(t, snap.ATR)
	require.NotNil(t, snap.Vol)
	require.NotNil(t, snap.FiftyTwoWeek)

	last := bars[len(bars)-1]
	assert.Equal(t, last.TS, snap.TS)
	assert.Equal(t, last.Close, snap.Close)
	assert.GreaterOrEqual(t, snap.RSI.Value, 0.0)
	assert.LessOrEqual(t, snap.RSI.Value, 100.0)
	assert.GreaterOrEqual(t, snap.ATR.Value, 0.0)
	assert.GreaterOrEqual(t, snap.Bollinger.Upper, snap.Bollinger.Middle)
	assert.GreaterOrEqual(t, snap.Bollinger.Middle, snap.Bollinger.Lower)
	assert.InDelta(t, 1.0, snap.Vol.Ratio, 1e-9) // 成交量恒定
	assert.False(t, snap.Vol.High)
	assert.LessOrEqual(t, snap.FiftyTwoWeek.Low, last.Close)
	assert.GreaterOrEqual(t, snap.FiftyTwoWeek.High, last.Close)
}

func TestSnapshotAt_52WeekWindowSlides(t *testing.T) {
	e := NewEngine(Settings{})
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + float64(i) // 单调上行，最早的低点应滑出窗口
	}
	bars := barsFromCloses(closes)
	snap := e.SnapshotAt(bars, nil)
	require.NotNil(t, snap.FiftyTwoWeek)
	// 窗口只覆盖最近 252 根：低点不是第一根的 Low
	assert.Greater(t, snap.FiftyTwoWeek.Low, bars[0].Low)
	assert.InDelta(t, bars[300-252].Low, snap.FiftyTwoWeek.Low, 1e-9)
}

func TestSnapshotAt_GreeksPassthrough(t *testing.T) {
	e := NewEngine(Settings{})
	g := &Greeks{Delta: 0.8, Gamma: 0.06, Theta: -0.01, Vega: 0.12}
	snap := e.SnapshotAt(barsFromCloses(wavyCloses(60)), g)
	require.NotNil(t, snap.Greeks)
	assert.Equal(t, 0.8, snap.Greeks.Delta)
}
