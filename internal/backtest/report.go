package backtest

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderEquityReport 将资金曲线与回撤渲染为单页 HTML 图表。
func RenderEquityReport(w io.Writer, run Run, equity []float64) error {
	if len(equity) == 0 {
		return fmt.Errorf("empty equity curve")
	}

	xs := make([]string, len(equity))
	equityData := make([]opts.LineData, len(equity))
	drawdownData := make([]opts.LineData, len(equity))
	peak := equity[0]
	for i, v := range equity {
		if v > peak {
			peak = v
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - v) / peak
		}
		xs[i] = strconv.Itoa(i)
		equityData[i] = opts.LineData{Value: v}
		drawdownData[i] = opts.LineData{Value: dd}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s 回测资金曲线", run.Ticker),
			Subtitle: fmt.Sprintf("return %.2f%%  sharpe %.2f  maxDD %.2f%%", run.TotalReturn*100, run.SharpeRatio, run.MaxDrawdown*100),
		}),
	)
	line.SetXAxis(xs).
		AddSeries("equity", equityData).
		AddSeries("drawdown", drawdownData)
	return line.Render(w)
}
