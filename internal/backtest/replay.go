package backtest

import (
	"context"
	"errors"
	"fmt"

	"tradewind/internal/indicator"
	"tradewind/internal/logger"
	"tradewind/internal/market"
	"tradewind/internal/strategy"
)

// Rules 抽象入场/退出判定，默认实现委托给 strategy 包的规则。
// 回测与实盘信号共用同一套实现，测试可以注入桩规则。
type Rules interface {
	Entry(snap indicator.Snapshot) bool
	Exit(snap indicator.Snapshot, stopLoss float64, targets strategy.PriceTargets) strategy.ExitDecision
}

type defaultRules struct{}

func (defaultRules) Entry(snap indicator.Snapshot) bool {
	ok, _ := strategy.EvaluateEntry(snap)
	return ok
}

func (defaultRules) Exit(snap indicator.Snapshot, stopLoss float64, targets strategy.PriceTargets) strategy.ExitDecision {
	return strategy.EvaluateExit(snap, stopLoss, targets)
}

// DefaultRules 返回生产用的规则实现。
func DefaultRules() Rules { return defaultRules{} }

// simulationState 单次推演独占的唯一可变聚合：资金、持仓、流水、资金曲线。
// 每次 Replay 创建新实例，并发回测之间没有任何共享。
type simulationState struct {
	capital     float64
	position    *Position
	trades      []TradeRecord
	equityCurve []float64
	wins        int
	losses      int
	totalPnL    float64
}

// Replay 将 K 线序列逐根推演为交易流水与资金曲线。纯计算，不做任何 I/O；
// ctx 取消时返回已完成的部分结果与 ctx.Err()，已实现的交易不会被丢弃。
func Replay(ctx context.Context, bars []market.Bar, cfg ReplayConfig, rules Rules) (Result, error) {
	cfg = cfg.withDefaults()
	if rules == nil {
		rules = DefaultRules()
	}
	if err := market.ValidateSeries(bars); err != nil {
		return Result{}, fmt.Errorf("invalid bar series: %w", err)
	}

	engine := indicator.NewEngine(cfg.Indicator)
	state := &simulationState{
		capital:     cfg.InitialCapital,
		equityCurve: []float64{cfg.InitialCapital},
	}

	for i, bar := range bars {
		select {
		case <-ctx.Done():
			return buildResult(cfg, state), ctx.Err()
		default:
		}

		// 快照只依赖 bars[0..i]，严格禁止前视。
		snap := engine.SnapshotAt(bars[:i+1], nil)

		if state.position == nil {
			tryEnter(cfg, state, rules, snap, bar)
			continue
		}

		decision := rules.Exit(snap, state.position.StopLoss, state.position.Targets)
		if decision.Exit {
			closePosition(state, bar, decision.Reason)
			continue
		}
		if decision.RaisedStop > state.position.StopLoss {
			state.position.StopLoss = decision.RaisedStop
		}
	}

	return buildResult(cfg, state), nil
}

func tryEnter(cfg ReplayConfig, state *simulationState, rules Rules, snap indicator.Snapshot, bar market.Bar) {
	if !rules.Entry(snap) {
		return
	}
	entryPrice := bar.Close
	stop := strategy.InitialStop(entryPrice, snap)
	if stop <= 0 {
		return
	}
	avgVolume := 0.0
	atr := 0.0
	if snap.Vol != nil {
		avgVolume = snap.Vol.Average
	}
	if snap.ATR != nil {
		atr = snap.ATR.Value
	}
	size, err := strategy.PositionSize(strategy.SizingInputs{
		Capital:    state.capital,
		RiskPct:    cfg.RiskPct,
		EntryPrice: entryPrice,
		StopLoss:   stop,
		ATR:        atr,
		AvgVolume:  avgVolume,
	})
	if err != nil {
		if errors.Is(err, strategy.ErrNonPositiveRisk) {
			logger.Debugf("[backtest] %s 入场信号因无效风险被跳过 (entry=%.2f stop=%.2f)", cfg.Ticker, entryPrice, stop)
			return
		}
		return
	}
	if size <= 0 {
		return
	}

	targets := strategy.CalculateTargets(entryPrice, stop, snap)
	state.position = &Position{
		EntryPrice: entryPrice,
		EntryTS:    bar.TS,
		Quantity:   size,
		StopLoss:   stop,
		Targets:    targets,
	}
	state.trades = append(state.trades, TradeRecord{
		Type:  "entry",
		Price: entryPrice,
		Size:  size,
		TS:    bar.TS,
	})
}

func closePosition(state *simulationState, bar market.Bar, reason string) {
	pos := state.position
	pnl := (bar.Close - pos.EntryPrice) * float64(pos.Quantity)
	state.capital += pnl
	state.totalPnL += pnl
	state.equityCurve = append(state.equityCurve, state.capital)
	state.trades = append(state.trades, TradeRecord{
		Type:       "exit",
		Price:      bar.Close,
		Size:       pos.Quantity,
		TS:         bar.TS,
		Reason:     reason,
		ProfitLoss: pnl,
	})
	if pnl >= 0 {
		state.wins++
	} else {
		state.losses++
	}
	state.position = nil
}

func buildResult(cfg ReplayConfig, state *simulationState) Result {
	closed := state.wins + state.losses
	stats := RunStats{
		TotalTrades: closed,
		Wins:        state.wins,
		Losses:      state.losses,
		TotalProfit: state.totalPnL,
	}
	if closed > 0 {
		stats.WinRate = float64(state.wins) / float64(closed)
		stats.AvgProfit = state.totalPnL / float64(closed)
	}
	peak, valley := state.equityCurve[0], state.equityCurve[0]
	for _, v := range state.equityCurve {
		if v > peak {
			peak = v
		}
		if v < valley {
			valley = v
		}
	}
	stats.EquityPeak = peak
	stats.EquityValley = valley

	return Result{
		Ticker:         cfg.Ticker,
		Trades:         state.trades,
		EquityCurve:    state.equityCurve,
		InitialCapital: cfg.InitialCapital,
		FinalCapital:   state.capital,
		TotalReturn:    (state.capital - cfg.InitialCapital) / cfg.InitialCapital,
		SharpeRatio:    SharpeRatio(state.equityCurve),
		MaxDrawdown:    MaxDrawdown(state.equityCurve),
		Stats:          stats,
		OpenPosition:   state.position,
	}
}
