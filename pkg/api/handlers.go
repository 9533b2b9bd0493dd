package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"SignalForge/pkg/collector"
	"SignalForge/pkg/model"
	"SignalForge/pkg/monitor"
	"SignalForge/pkg/scanner"
	"SignalForge/pkg/service"
)

// SignalService operations exposed over HTTP
type SignalService interface {
	Scan(ctx context.Context, address string) (scanner.ScanResult, error)
	Analyze(ctx context.Context, address string, deliver bool) (model.Analysis, error)
	EvaluateObservation(ctx context.Context, address string, tokensHeld, transactionCount int) (model.Analysis, error)
	Train(ctx context.Context, rule model.PatternRule) error
	Patterns(ctx context.Context) ([]model.PatternRule, error)
	DeletePattern(ctx context.Context, name string) error
	History(ctx context.Context, address string, limit int) ([]model.SignalRecord, error)
	Price(ctx context.Context, tokenID string) (float64, error)
}

// HealthSource component health reported by /ready
type HealthSource interface {
	GetAllStatus() []monitor.HealthStatus
	Overall() string
}

// Handlers HTTP handlers
type Handlers struct {
	service SignalService
	health  HealthSource
}

// NewHandlers health may be nil
func NewHandlers(svc SignalService, health HealthSource) *Handlers {
	return &Handlers{
		service: svc,
		health:  health,
	}
}

// WalletRequest body of /scan and /signal
type WalletRequest struct {
	Wallet string `json:"wallet" binding:"required"`
}

// EvaluateRequest caller-supplied observation counts
type EvaluateRequest struct {
	Address          string `json:"address" binding:"required"`
	TokensHeld       int    `json:"tokensHeld"`
	TransactionCount int    `json:"transactionCount"`
}

// TrainRequest new custom pattern
type TrainRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Conditions  model.Conditions `json:"conditions"`
}

func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "SignalForge API is running."})
}

func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReadinessCheck 503 when any component is unhealthy
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	overall := h.health.Overall()
	code := http.StatusOK
	if overall == monitor.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     overall,
		"components": h.health.GetAllStatus(),
	})
}

// Scan wallet observation without a signal
func (h *Handlers) Scan(c *gin.Context) {
	var req WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.service.Scan(c.Request.Context(), req.Wallet)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Signal full evaluation delivered through the configured outputs
func (h *Handlers) Signal(c *gin.Context) {
	var req WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	analysis, err := h.service.Analyze(c.Request.Context(), req.Wallet, true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis.Signal)
}

// Evaluate signal for a caller-supplied observation
func (h *Handlers) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	analysis, err := h.service.EvaluateObservation(c.Request.Context(), req.Address, req.TokensHeld, req.TransactionCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis.Signal)
}

func (h *Handlers) Train(c *gin.Context) {
	var req TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rule := model.PatternRule{Name: req.Name, Description: req.Description, Conditions: req.Conditions}
	if err := h.service.Train(c.Request.Context(), rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pattern saved successfully."})
}

func (h *Handlers) ListPatterns(c *gin.Context) {
	patterns, err := h.service.Patterns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": patterns})
}

func (h *Handlers) DeletePattern(c *gin.Context) {
	if err := h.service.DeletePattern(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pattern deleted."})
}

// History stored signals, ?wallet= and ?limit= optional
func (h *Handlers) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := h.service.History(c.Request.Context(), c.Query("wallet"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (h *Handlers) Price(c *gin.Context) {
	token := c.Param("token")
	price, err := h.service.Price(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "usd": price})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInvalidCondition):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPatternExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrPatternNotFound), errors.Is(err, collector.ErrPriceNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
