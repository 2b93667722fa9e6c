package backtest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// HTTPHandler 提供回测相关的 Gin 接口。
type HTTPHandler struct {
	sim     *Simulator
	results *ResultStore
	bars    *BarStore
}

func NewHTTPHandler(sim *Simulator, results *ResultStore, bars *BarStore) *HTTPHandler {
	return &HTTPHandler{sim: sim, results: results, bars: bars}
}

// Register 挂载 /api/backtest 路由。
func (h *HTTPHandler) Register(r gin.IRouter) {
	api := r.Group("/api/backtest")
	api.POST("/runs", h.handleRunStart)
	api.GET("/runs", h.handleRunList)
	api.GET("/runs/:id", h.handleRunDetail)
	api.GET("/runs/:id/trades", h.handleRunTrades)
	api.GET("/runs/:id/equity", h.handleRunEquity)
	api.GET("/runs/:id/report", h.handleRunReport)
	api.GET("/bars", h.handleBars)
}

func (h *HTTPHandler) handleRunStart(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := h.sim.StartRun(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

func (h *HTTPHandler) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.results.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *HTTPHandler) handleRunDetail(c *gin.Context) {
	run, err := h.results.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (h *HTTPHandler) handleRunTrades(c *gin.Context) {
	trades, err := h.results.ListTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (h *HTTPHandler) handleRunEquity(c *gin.Context) {
	equity, err := h.results.ListEquity(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"equity_curve": equity})
}

func (h *HTTPHandler) handleRunReport(c *gin.Context) {
	ctx := c.Request.Context()
	run, err := h.results.GetRun(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	equity, err := h.results.ListEquity(ctx, run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := RenderEquityReport(c.Writer, run, equity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *HTTPHandler) handleBars(c *gin.Context) {
	ticker := c.Query("ticker")
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}
	start, _ := strconv.ParseInt(c.Query("start_ts"), 10, 64)
	end, _ := strconv.ParseInt(c.Query("end_ts"), 10, 64)
	bars, err := h.bars.RangeBars(c.Request.Context(), ticker, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bars": bars})
}
