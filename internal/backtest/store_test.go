package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewind/internal/market"
)

func TestBarStore_RoundTrip(t *testing.T) {
	store, err := NewBarStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	bars := []market.Bar{
		{TS: 1000, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{TS: 2000, Open: 10.5, High: 12, Low: 10, Close: 11, Volume: 200},
		{TS: 3000, Open: 11, High: 11.5, Low: 10.5, Close: 11.2, Volume: 150},
	}
	n, err := store.InsertBars(ctx, "acme", bars)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// ticker 查询大小写不敏感（内部统一大写）
	got, err := store.RangeBars(ctx, "ACME", 1000, 3000)
	require.NoError(t, err)
	assert.Equal(t, bars, got)

	count, err := store.CountBars(ctx, "acme", 1000, 2000)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestBarStore_UpsertOverwrites(t *testing.T) {
	store, err := NewBarStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.InsertBars(ctx, "ACME", []market.Bar{{TS: 1000, Open: 10, High: 11, Low: 9, Close: 10, Volume: 100}})
	require.NoError(t, err)
	_, err = store.InsertBars(ctx, "ACME", []market.Bar{{TS: 1000, Open: 10, High: 12, Low: 9, Close: 11, Volume: 300}})
	require.NoError(t, err)

	got, err := store.RangeBars(ctx, "ACME", 0, 5000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 11.0, got[0].Close)
	assert.Equal(t, 300.0, got[0].Volume)
}

func TestBarStore_EmptyInsertAndRange(t *testing.T) {
	store, err := NewBarStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	n, err := store.InsertBars(context.Background(), "ACME", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := store.RangeBars(context.Background(), "NONE", 0, 1000)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResultStore_RunLifecycle(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run := Run{
		ID:             "run-1",
		Ticker:         "ACME",
		Status:         RunStatusPending,
		StartTS:        1000,
		EndTS:          9000,
		InitialCapital: 100000,
		FinalCapital:   100000,
		Config:         ReplayConfig{Ticker: "ACME", InitialCapital: 100000, RiskPct: 0.02},
	}
	require.NoError(t, store.InsertRun(ctx, run))
	require.NoError(t, store.UpdateRunStatus(ctx, "run-1", RunStatusRunning, "working"))

	res := Result{
		Ticker: "ACME",
		Trades: []TradeRecord{
			{Type: "entry", Price: 100, Size: 10, TS: 2000},
			{Type: "exit", Price: 110, Size: 10, TS: 5000, Reason: "Price target reached", ProfitLoss: 100},
		},
		EquityCurve:    []float64{100000, 100100},
		InitialCapital: 100000,
		FinalCapital:   100100,
		TotalReturn:    0.001,
		Stats:          RunStats{TotalTrades: 1, Wins: 1, WinRate: 1},
	}
	require.NoError(t, store.FinishRun(ctx, "run-1", res, RunStatusDone, "完成"))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, got.Status)
	assert.Equal(t, 100100.0, got.FinalCapital)
	assert.Equal(t, "ACME", got.Config.Ticker)
	assert.Equal(t, 1, got.Stats.TotalTrades)
	assert.False(t, got.CompletedAt.IsZero())

	trades, err := store.ListTrades(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, res.Trades, trades)

	equity, err := store.ListEquity(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, res.EquityCurve, equity)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestResultStore_FinishRunRecordsCancelledStatus(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run := Run{ID: "run-c", Ticker: "ACME", Status: RunStatusRunning,
		StartTS: 1000, EndTS: 9000, InitialCapital: 100000}
	require.NoError(t, store.InsertRun(ctx, run))

	res := Result{
		Ticker:         "ACME",
		Trades:         []TradeRecord{{Type: "entry", Price: 100, Size: 10, TS: 2000}},
		EquityCurve:    []float64{100000},
		InitialCapital: 100000,
		FinalCapital:   100000,
	}
	require.NoError(t, store.FinishRun(ctx, "run-c", res, RunStatusCancelled, "已取消，保留部分结果"))

	got, err := store.GetRun(ctx, "run-c")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCancelled, got.Status)
	assert.Equal(t, "已取消，保留部分结果", got.Message)

	trades, err := store.ListTrades(ctx, "run-c")
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestResultStore_GetMissingRun(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GetRun(context.Background(), "nope")
	assert.Error(t, err)
}
