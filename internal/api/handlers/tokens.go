package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0xChampi/hyper-threat-tokencast/internal/models"
	"github.com/0xChampi/hyper-threat-tokencast/internal/pumpfun"
	"github.com/0xChampi/hyper-threat-tokencast/internal/show"
	"github.com/0xChampi/hyper-threat-tokencast/internal/swarm"
)

// TokenHandler serves tracked-token data: fresh launches, per-token
// status with live curve metrics, trending lists and on-demand analysis.
type TokenHandler struct {
	store *show.Store
	pump  *pumpfun.Client
	intel *swarm.Client
}

func NewTokenHandler(store *show.Store, pump *pumpfun.Client, intel *swarm.Client) *TokenHandler {
	return &TokenHandler{store: store, pump: pump, intel: intel}
}

// GetLaunches proxies the launch detector over a configurable window.
func (h *TokenHandler) GetLaunches(c *gin.Context) {
	minutes, _ := strconv.Atoi(c.DefaultQuery("window_minutes", "5"))
	if minutes <= 0 || minutes > 120 {
		minutes = 5
	}

	events, err := h.pump.DetectLaunches(c.Request.Context(), time.Duration(minutes)*time.Minute)
	if err != nil {
		writeError(c, err)
		return
	}
	if events == nil {
		events = []pumpfun.LaunchEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"window_minutes": minutes,
		"launches":       events,
	})
}

// GetToken returns a tracked token, refreshing its curve metrics when
// the upstream is reachable. A refresh failure is not fatal; the stored
// row is still good data.
func (h *TokenHandler) GetToken(c *gin.Context) {
	addr := c.Param("address")

	token, err := h.store.TokenByAddress(addr)
	if err != nil {
		writeError(c, err)
		return
	}

	refreshed := false
	if metrics, err := h.pump.TokenMetrics(c.Request.Context(), addr); err == nil {
		token.CurrentPrice = metrics.Price
		token.MarketCap = metrics.MarketCap
		token.Volume24h = metrics.Volume24h
		token.HoldersCount = metrics.Holders
		token.CurveProgress = metrics.CurveProgress
		if metrics.CurveProgress >= 100 {
			token.TrackingStatus = models.TrackingGraduated
		}
		if err := h.store.SaveToken(token); err == nil {
			refreshed = true
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"refreshed": refreshed,
	})
}

// GetTrending lists the busiest active tokens discovered recently.
func (h *TokenHandler) GetTrending(c *gin.Context) {
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if hours <= 0 || hours > 168 {
		hours = 24
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	tokens, err := h.store.TrendingTokens(since, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if tokens == nil {
		tokens = []models.TrackedToken{}
	}

	c.JSON(http.StatusOK, gin.H{
		"hours":  hours,
		"tokens": tokens,
	})
}

type analyzeRequest struct {
	Ticker  string `json:"ticker"`
	Address string `json:"address"`
}

// Analyze runs a one-off market-intelligence pass outside the rotation.
func (h *TokenHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Ticker == "" && req.Address == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A ticker or address is required"})
		return
	}

	analysis, err := h.intel.AnalyzeToken(c.Request.Context(), req.Ticker, req.Address)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}
