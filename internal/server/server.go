// Package server exposes the HTTP API: market listings, single-market
// lookup, category aggregates, alert rule management, and subscriptions.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tessora/marketscope/internal/aggregator"
	"github.com/tessora/marketscope/internal/alerts"
	"github.com/tessora/marketscope/internal/logger"
	"github.com/tessora/marketscope/internal/metrics"
	"github.com/tessora/marketscope/internal/models"
	"github.com/tessora/marketscope/internal/provider"
	"github.com/tessora/marketscope/internal/store"
)

// Server wires the HTTP routes to the aggregator and the alert engine.
type Server struct {
	aggregator   *aggregator.Aggregator
	alerts       *alerts.Engine
	metrics      *metrics.Metrics
	defaultLimit int

	httpServer *http.Server
}

// New builds the server and its route table.
func New(addr string, agg *aggregator.Aggregator, engine *alerts.Engine, m *metrics.Metrics, defaultLimit int) *Server {
	s := &Server{
		aggregator:   agg,
		alerts:       engine,
		metrics:      m,
		defaultLimit: defaultLimit,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), cors())

	router.GET("/api/health", s.handleHealth)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/markets", s.handleListMarkets)
		api.GET("/markets/meta/categories", s.handleListCategories)
		api.GET("/markets/:id", s.handleGetMarket)

		api.GET("/alerts", s.handleListAlerts)
		api.POST("/alerts", s.handleCreateAlert)
		api.DELETE("/alerts/:id", s.handleDeleteAlert)
		api.POST("/alerts/check", s.handleCheckAlerts)
		api.POST("/alerts/subscribe", s.handleSubscribe)
		api.GET("/alerts/subscriptions", s.handleListSubscriptions)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	logger.Info("HTTP API listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleListMarkets(c *gin.Context) {
	limit := s.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	filters := aggregator.Filters{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("source"); raw != "" {
		source := models.Source(raw)
		if !source.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source: " + raw})
			return
		}
		filters.Source = source
	}

	listing, err := s.aggregator.ListMarkets(c.Request.Context(), limit, filters)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (s *Server) handleGetMarket(c *gin.Context) {
	market, err := s.aggregator.GetMarket(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

func (s *Server) handleListCategories(c *gin.Context) {
	categories, err := s.aggregator.ListCategories(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	if categories == nil {
		categories = []store.CategoryCount{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *Server) handleListAlerts(c *gin.Context) {
	rules, err := s.alerts.ListRules(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	if rules == nil {
		rules = []models.AlertRule{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rules), "alerts": rules})
}

func (s *Server) handleCreateAlert(c *gin.Context) {
	var rule models.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.alerts.CreateRule(c.Request.Context(), &rule); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) handleDeleteAlert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alert id must be an integer"})
		return
	}
	if err := s.alerts.DeleteRule(c.Request.Context(), id); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) handleCheckAlerts(c *gin.Context) {
	triggered, err := s.alerts.EvaluatePending(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	if triggered == nil {
		triggered = []models.AlertRule{}
	}
	c.JSON(http.StatusOK, gin.H{"triggered": len(triggered), "alerts": triggered})
}

func (s *Server) handleSubscribe(c *gin.Context) {
	var sub models.Subscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.alerts.Subscribe(c.Request.Context(), &sub); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (s *Server) handleListSubscriptions(c *gin.Context) {
	subs, err := s.alerts.Subscriptions(c.Request.Context(), c.Query("email"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(subs), "subscriptions": subs})
}

// renderError maps domain errors onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, provider.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, provider.ErrAuth), errors.Is(err, provider.ErrUnavailable):
		logger.Warn("Upstream failure: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream provider unavailable"})
	default:
		logger.Error("Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
