package backtest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tradewind/internal/indicator"
	"tradewind/internal/logger"
	"tradewind/internal/market"
)

const cancelledMessage = "已取消，保留部分结果"

// SimulatorConfig 组装模拟器所需的依赖。
type SimulatorConfig struct {
	BarStore      *BarStore
	ResultStore   *ResultStore
	Source        market.BarSource
	Indicator     indicator.Settings
	Rules         Rules
	MaxConcurrent int
}

// Simulator 负责将历史 K 线 + 信号规则推演为资金曲线。
// 每个 run 持有独立的 simulationState，跨 run 之间没有共享可变数据。
type Simulator struct {
	bars      *BarStore
	results   *ResultStore
	source    market.BarSource
	indicator indicator.Settings
	rules     Rules

	sem     chan struct{}
	baseCtx context.Context
}

func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.BarStore == nil {
		return nil, fmt.Errorf("bar store cannot be nil")
	}
	if cfg.ResultStore == nil {
		return nil, fmt.Errorf("result store cannot be nil")
	}
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Simulator{
		bars:      cfg.BarStore,
		results:   cfg.ResultStore,
		source:    cfg.Source,
		indicator: cfg.Indicator,
		rules:     rules,
		sem:       make(chan struct{}, maxConcurrent),
		baseCtx:   context.Background(),
	}, nil
}

func (s *Simulator) SetContext(ctx context.Context) {
	if ctx != nil {
		s.baseCtx = ctx
	}
}

func (s *Simulator) ctx() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// StartRun 创建回测任务并立即返回，推演在后台进行。
func (s *Simulator) StartRun(req RunRequest) (Run, error) {
	if req.Ticker == "" {
		return Run{}, fmt.Errorf("ticker cannot be empty")
	}
	if req.StartTS <= 0 || req.EndTS <= 0 || req.EndTS <= req.StartTS {
		return Run{}, fmt.Errorf("invalid start/end range")
	}
	initialCapital := req.InitialCapital
	if initialCapital <= 0 {
		initialCapital = 100000
	}

	cfg := ReplayConfig{
		Ticker:         strings.ToUpper(req.Ticker),
		InitialCapital: initialCapital,
		RiskPct:        req.RiskPct,
		Indicator:      s.indicator,
	}
	run := Run{
		ID:             uuid.NewString(),
		Ticker:         cfg.Ticker,
		Status:         RunStatusPending,
		StartTS:        req.StartTS,
		EndTS:          req.EndTS,
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
		Config:         cfg,
	}
	if err := s.results.InsertRun(s.ctx(), run); err != nil {
		return Run{}, err
	}
	go s.runLoop(run.ID, cfg, req.StartTS, req.EndTS)
	return run, nil
}

func (s *Simulator) runLoop(runID string, cfg ReplayConfig, startTS, endTS int64) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	ctx := s.ctx()
	_ = s.results.UpdateRunStatus(ctx, runID, RunStatusRunning, "准备数据…")
	if _, err := s.RunSync(ctx, runID, cfg, startTS, endTS); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = s.results.UpdateRunStatus(context.WithoutCancel(ctx), runID, RunStatusCancelled, cancelledMessage)
			return
		}
		logger.Warnw("回测失败", "run", runID, "ticker", cfg.Ticker, "err", err)
		_ = s.results.UpdateRunStatus(ctx, runID, RunStatusFailed, err.Error())
	}
}

// RunSync 同步执行一次回测：准备数据、推演、落库。
// 网络拉取只发生在这里，Replay 循环本身不做任何 I/O。
func (s *Simulator) RunSync(ctx context.Context, runID string, cfg ReplayConfig, startTS, endTS int64) (Result, error) {
	bars, err := s.prepareBars(ctx, cfg.Ticker, startTS, endTS)
	if err != nil {
		return Result{}, err
	}
	res, err := Replay(ctx, bars, cfg, s.rules)
	if err != nil && ctx.Err() == nil {
		return Result{}, err
	}
	// ctx 取消时 res 仍然携带已实现的部分结果，照常落库，但状态要可区分。
	status, message := RunStatusDone, "完成"
	if err != nil {
		status, message = RunStatusCancelled, cancelledMessage
	}
	if ferr := s.results.FinishRun(context.WithoutCancel(ctx), runID, res, status, message); ferr != nil {
		logger.Warnw("回测结果落库失败", "run", runID, "err", ferr)
	}
	return res, err
}

// coverageSlackMillis 允许缓存首尾各缺 5 个自然日再判定为不完整，
// 覆盖周末与连休导致的日线空洞。
const coverageSlackMillis = int64(5 * 24 * 60 * 60 * 1000)

// rangeCovered 用首尾时间戳判断缓存是否覆盖了请求区间。
func rangeCovered(bars []market.Bar, startTS, endTS int64) bool {
	if len(bars) == 0 {
		return false
	}
	return bars[0].TS-startTS <= coverageSlackMillis &&
		endTS-bars[len(bars)-1].TS <= coverageSlackMillis
}

// prepareBars 优先读本地缓存；缓存未覆盖请求区间时向数据源补拉，
// 落库后再读一次，返回缓存与新拉数据的并集。
func (s *Simulator) prepareBars(ctx context.Context, ticker string, startTS, endTS int64) ([]market.Bar, error) {
	cached, err := s.bars.RangeBars(ctx, ticker, startTS, endTS)
	if err != nil {
		return nil, err
	}
	if rangeCovered(cached, startTS, endTS) {
		return cached, nil
	}
	if s.source == nil {
		if len(cached) > 0 {
			logger.Warnw("缓存未覆盖请求区间且无数据源，按现有数据回测", "ticker", ticker, "cached", len(cached))
			return cached, nil
		}
		return nil, fmt.Errorf("no cached bars for %s and no source configured", ticker)
	}
	fetched, err := s.source.Fetch(ctx, market.FetchRequest{
		Ticker: ticker,
		Start:  startTS,
		End:    endTS,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching bars from %s failed: %w", s.source.Name(), err)
	}
	if len(fetched) == 0 {
		if len(cached) > 0 {
			return cached, nil
		}
		return nil, fmt.Errorf("source %s returned no bars for %s", s.source.Name(), ticker)
	}
	if _, err := s.bars.InsertBars(ctx, ticker, fetched); err != nil {
		logger.Warnw("缓存 K 线失败", "ticker", ticker, "err", err)
		return fetched, nil
	}
	merged, err := s.bars.RangeBars(ctx, ticker, startTS, endTS)
	if err != nil || len(merged) == 0 {
		return fetched, nil
	}
	return merged, nil
}
