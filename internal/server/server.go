// Package server exposes the run journal over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/report"
)

// Store is the read side of the journal.
type Store interface {
	GetRun(ctx context.Context, runID string) (journal.Run, error)
	ListRuns(ctx context.Context, limit int) ([]journal.Run, error)
	ListTrades(ctx context.Context, runID string) ([]backtest.Trade, error)
}

type Config struct {
	Addr   string
	Store  Store
	Logger *zap.Logger
}

type Server struct {
	addr   string
	store  Store
	log    *zap.Logger
	router *gin.Engine
}

func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: Store is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	s := &Server{addr: cfg.Addr, store: cfg.Store, log: cfg.Logger, router: router}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	api := s.router.Group("/api")
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/trades", s.handleRunTrades)
	api.GET("/runs/:id/trades.csv", s.handleRunTradesCSV)
	api.GET("/runs/:id/equity", s.handleRunEquity)
	api.GET("/runs/:id/report", s.handleRunReport)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, journal.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunTrades(c *gin.Context) {
	trades, err := s.store.ListTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleRunTradesCSV(c *gin.Context) {
	trades, err := s.store.ListTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)
	if err := journal.WriteTradesCSV(c.Writer, trades); err != nil {
		s.log.Error("write csv", zap.Error(err))
	}
}

func (s *Server) runWithTrades(c *gin.Context) (journal.Run, []backtest.Trade, bool) {
	ctx := c.Request.Context()
	run, err := s.store.GetRun(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return journal.Run{}, nil, false
	}
	trades, err := s.store.ListTrades(ctx, run.RunID)
	if err != nil {
		s.fail(c, err)
		return journal.Run{}, nil, false
	}
	return run, trades, true
}

func (s *Server) handleRunEquity(c *gin.Context) {
	run, trades, ok := s.runWithTrades(c)
	if !ok {
		return
	}
	capital := run.Analysis.StartingCapital
	c.JSON(http.StatusOK, gin.H{
		"equity":   analysis.EquityCurve(capital, trades),
		"drawdown": analysis.Drawdown(capital, trades),
	})
}

func (s *Server) handleRunReport(c *gin.Context) {
	run, trades, ok := s.runWithTrades(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := report.Write(c.Writer, report.Input{
		Title:           fmt.Sprintf("%s %s", run.Strategy, run.RunID),
		StartingCapital: run.Analysis.StartingCapital,
		Trades:          trades,
	})
	if err != nil {
		s.log.Error("write report", zap.Error(err))
	}
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}
