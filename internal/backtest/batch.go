package backtest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"tradewind/internal/market"
)

// BatchItem 一个 ticker 对应的输入序列。
type BatchItem struct {
	Config ReplayConfig
	Bars   []market.Bar
}

// ReplayBatch 并行推演多个互不相关的 ticker。每个 run 独占自己的
// simulationState，互相之间没有任何共享可变数据；结果按输入顺序返回。
// limit<=0 表示不限制并发。
func ReplayBatch(ctx context.Context, items []BatchItem, rules Rules, limit int) ([]Result, error) {
	results := make([]Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			res, err := Replay(gctx, item.Bars, item.Config, rules)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
