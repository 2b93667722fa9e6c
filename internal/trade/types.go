package trade

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// 决策动作。
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// Decision 一次实盘信号评估的产物，交给外部撮合方执行。
// Targets/Snapshot/Signals 以 JSON 列落库，结构见 strategy 与 indicator 包。
type Decision struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Ticker       string         `gorm:"index" json:"ticker"`
	Action       string         `json:"action"`
	TS           time.Time      `gorm:"index" json:"date_time"`
	EntryPrice   float64        `json:"entry_price"`
	StopLoss     float64        `json:"stop_loss"`
	PositionSize int            `json:"position_size"`
	Reason       string         `json:"reason,omitempty"`
	Targets      datatypes.JSON `json:"price_targets"`
	Snapshot     datatypes.JSON `json:"indicators_snapshot"`
	Signals      datatypes.JSON `json:"entry_signals"`
	Hash         string         `gorm:"uniqueIndex" json:"hash"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ContentHash 由决策的识别字段生成去重指纹。
func (d Decision) ContentHash() string {
	payload := fmt.Sprintf("%s|%s|%d|%.6f|%.6f|%d",
		d.Ticker, d.Action, d.TS.UnixMilli(), d.EntryPrice, d.StopLoss, d.PositionSize)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// EvaluateRequest 为 HTTP 提交使用。OpenPosition 存在时评估退出而非入场。
type EvaluateRequest struct {
	Ticker string `json:"ticker" binding:"required"`

	// 期权敏感度，仅期权标的需要。
	Greeks *GreeksInput `json:"greeks,omitempty"`

	// 持仓信息，评估是否应当退出。
	OpenPosition *OpenPositionInput `json:"open_position,omitempty"`
}

type GreeksInput struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

type OpenPositionInput struct {
	EntryPrice float64 `json:"entry_price" binding:"required"`
	StopLoss   float64 `json:"stop_loss" binding:"required"`
	Quantity   int     `json:"quantity"`
}
