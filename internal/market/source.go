package market

import "context"

// FetchRequest 描述一次历史 K 线请求。
type FetchRequest struct {
	Ticker string
	Start  int64 // Unix ms
	End    int64 // Unix ms（0 表示不限制）
	Limit  int
}

// BarSource 统一不同行情数据源的拉取行为。拉取只在回测/决策开始前发生一次，
// 模拟循环内部不做任何 I/O。
type BarSource interface {
	Fetch(ctx context.Context, req FetchRequest) ([]Bar, error)
	Name() string
}
