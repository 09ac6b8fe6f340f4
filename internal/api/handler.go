// Package api exposes the trading service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danyeu/fx/internal/rates"
	"github.com/danyeu/fx/internal/trader"
)

// Handler handles HTTP requests for trading
type Handler struct {
	service *trader.Service
}

// NewHandler creates a new trading handler
func NewHandler(service *trader.Service) *Handler {
	return &Handler{service: service}
}

// QuoteRequest asks for a quote spending Amount of the spent currency.
type QuoteRequest struct {
	Side     string `json:"side" binding:"required,oneof=buy sell"`
	Currency string `json:"currency" binding:"required,len=3"`
	Amount   string `json:"amount" binding:"required"`
}

// RatesResponse lists the quoted rates of one side.
type RatesResponse struct {
	Side  string                `json:"side"`
	Base  string                `json:"base"`
	Rates []trader.CurrencyRate `json:"rates"`
}

// GetPortfolio returns the holdings and their value in the base currency
func (h *Handler) GetPortfolio(c *gin.Context) {
	v, err := h.service.Portfolio(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	successResponse(c, http.StatusOK, v)
}

// GetRates returns the buy or sell rates of every tradable currency
func (h *Handler) GetRates(c *gin.Context) {
	side, err := rates.ParseSide(c.DefaultQuery("side", "buy"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	quoted, err := h.service.Rates(c.Request.Context(), side)
	if err != nil {
		serviceError(c, err)
		return
	}
	successResponse(c, http.StatusOK, RatesResponse{
		Side:  side.String(),
		Base:  h.service.Base().Code(),
		Rates: quoted,
	})
}

// CreateQuote issues a pending quote
func (h *Handler) CreateQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	side, err := rates.ParseSide(req.Side)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	curr, err := h.service.ParseCurrency(req.Currency)
	if err != nil {
		serviceError(c, err)
		return
	}

	q, err := h.service.RequestQuote(c.Request.Context(), side, curr, req.Amount)
	if err != nil {
		serviceError(c, err)
		return
	}
	successResponse(c, http.StatusCreated, q)
}

func quoteID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid quote id")
		return uuid.Nil, false
	}
	return id, true
}

// ConfirmQuote executes a pending quote and returns the history entry
func (h *Handler) ConfirmQuote(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}
	entry, err := h.service.Confirm(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	successResponse(c, http.StatusOK, entry)
}

// CancelQuote drops a pending quote
func (h *Handler) CancelQuote(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}
	if err := h.service.Cancel(id); err != nil {
		serviceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetHistory returns the portfolio history, oldest first
func (h *Handler) GetHistory(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	successResponse(c, http.StatusOK, entries)
}

// ResetPortfolio wipes the portfolio back to the starting balance
func (h *Handler) ResetPortfolio(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		serviceError(c, err)
		return
	}
	successResponse(c, http.StatusOK, gin.H{"start": h.service.Start()})
}

// RegisterRoutes registers trading routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/portfolio", h.GetPortfolio)
	rg.GET("/rates", h.GetRates)
	rg.POST("/quotes", h.CreateQuote)
	rg.POST("/quotes/:id/confirm", h.ConfirmQuote)
	rg.DELETE("/quotes/:id", h.CancelQuote)
	rg.GET("/history", h.GetHistory)
	rg.POST("/reset", h.ResetPortfolio)
}

// HealthCheck is a named dependency probe.
type HealthCheck func(ctx context.Context) error

// HealthResponse represents health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = "unhealthy: " + err.Error()
				status = "unhealthy"
			} else {
				results[name] = "healthy"
			}
		}

		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, HealthResponse{Status: status, Checks: results})
	}
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	CORSOrigins []string
	Checks      map[string]HealthCheck
}

// NewRouter builds the gin engine with middleware, /healthz, /metrics and
// the trading routes under /api/v1.
func NewRouter(service *trader.Service, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(Metrics())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", healthHandler(cfg.Checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	NewHandler(service).RegisterRoutes(router.Group("/api/v1"))
	return router
}
