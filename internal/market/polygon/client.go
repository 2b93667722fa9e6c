// Package polygon 提供基于 Polygon.io 聚合接口的日线行情源。
package polygon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"tradewind/internal/market"
)

const defaultBaseURL = "https://api.polygon.io"

// Client 实现 market.BarSource，拉取股票日线聚合。
type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: c, apiKey: apiKey}
}

func (c *Client) Name() string { return "polygon" }

func (c *Client) Fetch(ctx context.Context, req market.FetchRequest) ([]market.Bar, error) {
	if req.Ticker == "" {
		return nil, fmt.Errorf("ticker 不能为空")
	}
	limit := req.Limit
	if limit <= 0 || limit > 50000 {
		limit = 5000
	}
	from := time.UnixMilli(req.Start).UTC().Format("2006-01-02")
	to := time.UnixMilli(req.End).UTC().Format("2006-01-02")

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"ticker": req.Ticker, "from": from, "to": to}).
		SetQueryParams(map[string]string{
			"adjusted": "true",
			"sort":     "asc",
			"limit":    fmt.Sprintf("%d", limit),
			"apiKey":   c.apiKey,
		}).
		Get("/v2/aggs/ticker/{ticker}/range/1/day/{from}/{to}")
	if err != nil {
		return nil, fmt.Errorf("polygon aggregates: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("polygon 返回状态码 %d: %s", resp.StatusCode(), resp.String())
	}

	body := resp.String()
	status := gjson.Get(body, "status").String()
	if status != "OK" && status != "DELAYED" {
		return nil, fmt.Errorf("polygon status %q: %s", status, gjson.Get(body, "error").String())
	}

	results := gjson.Get(body, "results").Array()
	out := make([]market.Bar, 0, len(results))
	for _, r := range results {
		out = append(out, market.Bar{
			TS:     r.Get("t").Int(),
			Open:   r.Get("o").Float(),
			High:   r.Get("h").Float(),
			Low:    r.Get("l").Float(),
			Close:  r.Get("c").Float(),
			Volume: r.Get("v").Float(),
		})
	}
	return out, nil
}
