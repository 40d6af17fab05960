// Package transporthttp exposes read-only run state over HTTP: health, run
// listing, run detail and the live account snapshot.
package transporthttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"papertrader/internal/logger"
	"papertrader/internal/portfolio"
	"papertrader/internal/store"

	"github.com/gin-gonic/gin"
)

// AccountReader supplies the live account snapshot for the status endpoint.
type AccountReader interface {
	Snapshot() portfolio.Snapshot
}

type Server struct {
	addr    string
	store   store.Store
	account AccountReader
	srv     *http.Server
}

func NewServer(addr string, st store.Store, account AccountReader) *Server {
	return &Server{addr: addr, store: st, account: account}
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/runs/:id/trades", s.handleListTrades)
	api.GET("/runs/:id/orders", s.handleListOrders)
	api.GET("/runs/:id/cycles", s.handleListCycles)
	api.GET("/runs/:id/report", s.handleReport)
	api.GET("/account", s.handleAccount)
	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.addr == "" {
		<-ctx.Done()
		return nil
	}
	s.srv = &http.Server{Addr: s.addr, Handler: s.router()}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http: listening on %s", s.addr)
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store disabled"})
		return
	}
	run, ok, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleListTrades(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store disabled"})
		return
	}
	trades, err := s.store.ListTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleListOrders(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store disabled"})
		return
	}
	orders, err := s.store.ListOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handleListCycles(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))
	cycles, err := s.store.ListCycles(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cycles": cycles})
}

// handleReport returns the persisted end-of-run summary. Runs still in
// progress have no summary yet.
func (s *Server) handleReport(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store disabled"})
		return
	}
	run, ok, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if len(run.SummaryJSON) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has no report yet"})
		return
	}
	c.Data(http.StatusOK, "application/json", run.SummaryJSON)
}

func (s *Server) handleAccount(c *gin.Context) {
	if s.account == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no live account"})
		return
	}
	c.JSON(http.StatusOK, s.account.Snapshot())
}
