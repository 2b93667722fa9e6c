// Package binance 提供基于 Binance 现货日线的行情源，用于加密标的回测。
package binance

import (
	"context"
	"fmt"
	"strconv"

	libbinance "github.com/adshao/go-binance/v2"

	"tradewind/internal/market"
)

// Source 实现 market.BarSource，Ticker 写法为 Binance 交易对（如 BTCUSDT）。
type Source struct {
	client *libbinance.Client
}

func NewSource(apiKey, secret string) *Source {
	return &Source{client: libbinance.NewClient(apiKey, secret)}
}

func (s *Source) Name() string { return "binance" }

func (s *Source) Fetch(ctx context.Context, req market.FetchRequest) ([]market.Bar, error) {
	if req.Ticker == "" {
		return nil, fmt.Errorf("ticker 不能为空")
	}
	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	svc := s.client.NewKlinesService().
		Symbol(req.Ticker).
		Interval("1d").
		Limit(limit)
	if req.Start > 0 {
		svc = svc.StartTime(req.Start)
	}
	if req.End > 0 {
		svc = svc.EndTime(req.End)
	}
	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}
	out := make([]market.Bar, 0, len(klines))
	for _, k := range klines {
		out = append(out, market.Bar{
			TS:     k.OpenTime,
			Open:   parseF(k.Open),
			High:   parseF(k.High),
			Low:    parseF(k.Low),
			Close:  parseF(k.Close),
			Volume: parseF(k.Volume),
		})
	}
	return out, nil
}

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
