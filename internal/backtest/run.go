package backtest

import (
	"encoding/json"
	"time"

	"tradewind/internal/indicator"
	"tradewind/internal/strategy"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusDone      = "done"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// TradeRecord 是模拟器产出的只追加事件，一经生成不再修改。
type TradeRecord struct {
	Type       string  `json:"type"` // entry / exit
	Price      float64 `json:"price"`
	Size       int     `json:"size"`
	TS         int64   `json:"date"`
	Reason     string  `json:"reason,omitempty"`
	ProfitLoss float64 `json:"profit_loss,omitempty"`
}

// Position 一次建仓的生命周期：入场创建，追踪止损上调，退出时关闭一次。
type Position struct {
	EntryPrice float64               `json:"entry_price"`
	EntryTS    int64                 `json:"entry_date"`
	Quantity   int                   `json:"quantity"`
	StopLoss   float64               `json:"stop_loss"`
	Targets    strategy.PriceTargets `json:"targets"`
}

// ReplayConfig 一次推演的参数快照。
type ReplayConfig struct {
	Ticker         string             `json:"ticker"`
	InitialCapital float64            `json:"initial_capital"`
	RiskPct        float64            `json:"risk_pct"`
	Indicator      indicator.Settings `json:"-"`
}

func (c ReplayConfig) withDefaults() ReplayConfig {
	if c.InitialCapital <= 0 {
		c.InitialCapital = 100000
	}
	if c.RiskPct <= 0 {
		c.RiskPct = strategy.DefaultRiskPct
	}
	return c
}

// Result 一次完整推演的产物：交易流水、资金曲线与绩效指标。
type Result struct {
	Ticker         string        `json:"ticker"`
	Trades         []TradeRecord `json:"trades"`
	EquityCurve    []float64     `json:"equity_curve"`
	InitialCapital float64       `json:"initial_capital"`
	FinalCapital   float64       `json:"final_capital"`
	TotalReturn    float64       `json:"total_return"`
	SharpeRatio    float64       `json:"sharpe_ratio"`
	MaxDrawdown    float64       `json:"max_drawdown"`
	Stats          RunStats      `json:"stats"`

	// OpenPosition 在序列结束时仍未平仓的仓位（未实现盈亏，不计入资金曲线）。
	OpenPosition *Position `json:"open_position,omitempty"`
}

// RunStats 汇总胜率等聚合指标，供前端展示。
type RunStats struct {
	TotalTrades   int     `json:"total_trades"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	AvgProfit     float64 `json:"avg_profit_per_trade"`
	TotalProfit   float64 `json:"total_profit"`
	EquityPeak    float64 `json:"equity_peak"`
	EquityValley  float64 `json:"equity_valley"`
}

// Run 表示一次落库的回测任务。
type Run struct {
	ID             string       `json:"id"`
	Ticker         string       `json:"ticker"`
	Status         string       `json:"status"`
	StartTS        int64        `json:"start_ts"`
	EndTS          int64        `json:"end_ts"`
	InitialCapital float64      `json:"initial_capital"`
	FinalCapital   float64      `json:"final_capital"`
	TotalReturn    float64      `json:"total_return"`
	SharpeRatio    float64      `json:"sharpe_ratio"`
	MaxDrawdown    float64      `json:"max_drawdown"`
	Message        string       `json:"message"`
	Config         ReplayConfig `json:"config"`
	Stats          RunStats     `json:"stats"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	CompletedAt    time.Time    `json:"completed_at"`
}

// MarshalConfig 返回 config JSON，落库用。
func (r Run) MarshalConfig() ([]byte, error) {
	return json.Marshal(r.Config)
}

// RunRequest 为 HTTP 提交使用。
type RunRequest struct {
	Ticker         string  `json:"ticker" binding:"required"`
	StartTS        int64   `json:"start_ts" binding:"required"`
	EndTS          int64   `json:"end_ts" binding:"required"`
	InitialCapital float64 `json:"initial_capital"`
	RiskPct        float64 `json:"risk_pct"`
}
