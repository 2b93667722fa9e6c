package trade

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"tradewind/internal/indicator"
	"tradewind/internal/logger"
	"tradewind/internal/market"
	"tradewind/internal/strategy"
)

// lookbackDays 实盘评估默认取一年日线，覆盖 52 周窗口。
const lookbackDays = 365

// ServiceConfig Service 的装配参数。
type ServiceConfig struct {
	Source  market.BarSource
	Store   *Store
	Capital float64
	RiskPct float64
	Engine  *indicator.Engine
}

// Service 把行情拉取、指标计算、入场/退出判定串成一次实盘决策。
type Service struct {
	source  market.BarSource
	store   *Store
	capital float64
	riskPct float64
	engine  *indicator.Engine
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("trade service requires a bar source")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("trade service requires a store")
	}
	if cfg.Capital <= 0 {
		cfg.Capital = 100000
	}
	if cfg.RiskPct <= 0 {
		cfg.RiskPct = strategy.DefaultRiskPct
	}
	if cfg.Engine == nil {
		cfg.Engine = indicator.NewEngine(indicator.Settings{})
	}
	return &Service{
		source:  cfg.Source,
		store:   cfg.Store,
		capital: cfg.Capital,
		riskPct: cfg.RiskPct,
		engine:  cfg.Engine,
	}, nil
}

// Evaluate 对单个标的产出一条决策并落库。
// 重复决策（相同指纹）返回 ErrDuplicate。
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*Decision, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)
	bars, err := s.source.Fetch(ctx, market.FetchRequest{
		Ticker: req.Ticker,
		Start:  start.UnixMilli(),
		End:    end.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", req.Ticker, err)
	}
	if err := market.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("bars for %s: %w", req.Ticker, err)
	}

	var greeks *indicator.Greeks
	if req.Greeks != nil {
		greeks = &indicator.Greeks{
			Delta: req.Greeks.Delta,
			Gamma: req.Greeks.Gamma,
			Theta: req.Greeks.Theta,
			Vega:  req.Greeks.Vega,
		}
	}
	snap := s.engine.SnapshotAt(bars, greeks)

	var d *Decision
	if req.OpenPosition != nil {
		d = s.evaluateExit(snap, req)
	} else {
		d = s.evaluateEntry(snap, req)
	}
	d.Ticker = req.Ticker
	d.TS = snap.Time()
	d.Hash = d.ContentHash()

	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}
	logger.Infow("trade decision", "ticker", d.Ticker, "action", d.Action,
		"entry", d.EntryPrice, "size", d.PositionSize)
	return d, nil
}

func (s *Service) evaluateEntry(snap indicator.Snapshot, req EvaluateRequest) *Decision {
	enter, signals := strategy.EvaluateEntry(snap)
	d := &Decision{
		Action:   ActionHold,
		Signals:  mustJSON(signals),
		Snapshot: mustJSON(snap),
	}
	if !enter {
		return d
	}

	entry := snap.Close
	stop := strategy.InitialStop(entry, snap)
	if stop <= 0 {
		d.Reason = "no valid stop loss"
		return d
	}
	size, err := strategy.PositionSize(strategy.SizingInputs{
		Capital:    s.capital,
		RiskPct:    s.riskPct,
		EntryPrice: entry,
		StopLoss:   stop,
		ATR:        snap.ATR.Value,
		AvgVolume:  snap.Vol.Average,
	})
	if err != nil || size <= 0 {
		d.Reason = "position size rounded to zero"
		return d
	}
	targets := strategy.CalculateTargets(entry, stop, snap)
	if !targets.Sane() {
		logger.Warnw("price targets not monotonic", "ticker", req.Ticker, "targets", targets)
	}

	d.Action = ActionBuy
	d.EntryPrice = entry
	d.StopLoss = stop
	d.PositionSize = size
	d.Targets = mustJSON(targets)
	return d
}

func (s *Service) evaluateExit(snap indicator.Snapshot, req EvaluateRequest) *Decision {
	pos := req.OpenPosition
	targets := strategy.CalculateTargets(pos.EntryPrice, pos.StopLoss, snap)
	decision := strategy.EvaluateExit(snap, pos.StopLoss, targets)

	d := &Decision{
		EntryPrice:   pos.EntryPrice,
		StopLoss:     pos.StopLoss,
		PositionSize: pos.Quantity,
		Snapshot:     mustJSON(snap),
		Targets:      mustJSON(targets),
		Signals:      mustJSON(map[string]bool{}),
	}
	if decision.Exit {
		d.Action = ActionSell
		d.Reason = decision.Reason
	} else {
		d.Action = ActionHold
		if decision.RaisedStop > pos.StopLoss {
			d.StopLoss = decision.RaisedStop
			d.Reason = "trailing stop raised"
		}
	}
	return d
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}
