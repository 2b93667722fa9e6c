// Package app 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务。
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"tradewind/internal/backtest"
	"tradewind/internal/config"
	"tradewind/internal/indicator"
	"tradewind/internal/logger"
	"tradewind/internal/market"
	binancesrc "tradewind/internal/market/binance"
	"tradewind/internal/market/polygon"
	"tradewind/internal/trade"
)

type App struct {
	cfg *config.Config

	barStore    *backtest.BarStore
	resultStore *backtest.ResultStore
	sim         *backtest.Simulator
	tradeStore  *trade.Store
	tradeSvc    *trade.Service

	router *gin.Engine
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.Log.Level)

	source, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	settings := indicatorSettings(cfg.Indicator)

	barStore, err := backtest.NewBarStore(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("open bar store: %w", err)
	}
	resultStore, err := backtest.NewResultStore(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	sim, err := backtest.NewSimulator(backtest.SimulatorConfig{
		BarStore:      barStore,
		ResultStore:   resultStore,
		Source:        source,
		Indicator:     settings,
		MaxConcurrent: cfg.Backtest.MaxConcurrent,
	})
	if err != nil {
		return nil, err
	}

	tradeStore, err := trade.NewStore(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("open trade store: %w", err)
	}
	tradeSvc, err := trade.NewService(trade.ServiceConfig{
		Source:  source,
		Store:   tradeStore,
		Capital: cfg.Trading.Capital,
		RiskPct: cfg.Trading.RiskPct,
		Engine:  indicator.NewEngine(settings),
	})
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), accessLog())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "source": source.Name()})
	})
	backtest.NewHTTPHandler(sim, resultStore, barStore).Register(router)
	trade.NewHTTPHandler(tradeSvc, tradeStore).Register(router)

	return &App{
		cfg:         cfg,
		barStore:    barStore,
		resultStore: resultStore,
		sim:         sim,
		tradeStore:  tradeStore,
		tradeSvc:    tradeSvc,
		router:      router,
	}, nil
}

// Run 启动 HTTP 服务并在 ctx 取消时优雅退出。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	a.sim.SetContext(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler: a.router,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("✓ HTTP 服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return group.Wait()
}

// Close 释放存储句柄。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.barStore != nil {
		_ = a.barStore.Close()
	}
	if a.resultStore != nil {
		_ = a.resultStore.Close()
	}
}

func buildSource(cfg *config.Config) (market.BarSource, error) {
	switch cfg.Source.Provider {
	case "polygon":
		return polygon.NewClient(cfg.Source.PolygonAPIKey, cfg.Source.PolygonBase), nil
	case "binance":
		return binancesrc.NewSource(cfg.Source.BinanceKey, cfg.Source.BinanceSecret), nil
	default:
		return nil, fmt.Errorf("unknown source provider %q", cfg.Source.Provider)
	}
}

func indicatorSettings(ic config.IndicatorConfig) indicator.Settings {
	return indicator.Settings{
		RSIPeriod:       ic.RSIPeriod,
		MACDFast:        ic.MACDFast,
		MACDSlow:        ic.MACDSlow,
		MACDSignal:      ic.MACDSignal,
		BollingerPeriod: ic.BollingerPeriod,
		ATRPeriod:       ic.ATRPeriod,
		VolumePeriod:    ic.VolumePeriod,
		HighVolumeRatio: ic.HighVolumeRatio,
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("http access", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "duration", time.Since(start))
	}
}
