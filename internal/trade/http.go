package trade

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tradewind/internal/logger"
)

// HTTPHandler 暴露实盘决策接口。
type HTTPHandler struct {
	svc   *Service
	store *Store
}

func NewHTTPHandler(svc *Service, store *Store) *HTTPHandler {
	return &HTTPHandler{svc: svc, store: store}
}

func (h *HTTPHandler) Register(r gin.IRouter) {
	g := r.Group("/api")
	g.POST("/trade", h.evaluate)
	g.GET("/trade/summary", h.summary)
	g.GET("/trades", h.list)
	g.GET("/trades/:id", h.get)
}

func (h *HTTPHandler) evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.Evaluate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "duplicate decision"})
			return
		}
		logger.Errorf("evaluate %s: %v", req.Ticker, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *HTTPHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	out, err := h.store.List(c.Request.Context(), c.Query("ticker"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": out, "count": len(out)})
}

func (h *HTTPHandler) get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	d, err := h.store.Get(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *HTTPHandler) summary(c *gin.Context) {
	counts, err := h.store.CountByAction(c.Request.Context(), c.Query("ticker"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": counts})
}
