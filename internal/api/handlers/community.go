package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/0xChampi/hyper-threat-tokencast/internal/community"
	"github.com/0xChampi/hyper-threat-tokencast/internal/show"
)

// CommunityHandler takes audience feedback for the live show. Everything
// is keyed by the live show's ID, so feedback with no show live is a 404.
type CommunityHandler struct {
	feed *community.Feed
	orc  *show.Orchestrator
}

func NewCommunityHandler(feed *community.Feed, orc *show.Orchestrator) *CommunityHandler {
	return &CommunityHandler{feed: feed, orc: orc}
}

func (h *CommunityHandler) liveShowID(c *gin.Context) (uint, bool) {
	snap, err := h.orc.CurrentState()
	if err != nil {
		writeError(c, err)
		return 0, false
	}
	return snap.ShowID, true
}

type mentionRequest struct {
	Ticker string `json:"ticker" binding:"required"`
}

// PostMention bumps the mention counter for a ticker.
func (h *CommunityHandler) PostMention(c *gin.Context) {
	var req mentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A ticker is required"})
		return
	}

	showID, ok := h.liveShowID(c)
	if !ok {
		return
	}

	ticker := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(req.Ticker), "$"))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A ticker is required"})
		return
	}

	if err := h.feed.RecordMention(c.Request.Context(), showID, ticker); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not record mention"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"recorded": true})
}

type questionRequest struct {
	Question string `json:"question" binding:"required"`
}

// PostQuestion appends an audience question to the feed.
func (h *CommunityHandler) PostQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A question is required"})
		return
	}

	showID, ok := h.liveShowID(c)
	if !ok {
		return
	}

	if err := h.feed.RecordQuestion(c.Request.Context(), showID, strings.TrimSpace(req.Question)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not record question"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"recorded": true})
}

type viewersRequest struct {
	Count int64 `json:"count" binding:"min=0"`
}

// PostViewers updates the live audience size. Host/admin only.
func (h *CommunityHandler) PostViewers(c *gin.Context) {
	var req viewersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A non-negative count is required"})
		return
	}

	showID, ok := h.liveShowID(c)
	if !ok {
		return
	}

	if err := h.feed.SetViewers(c.Request.Context(), showID, req.Count); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update viewer count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewers": req.Count})
}

// GetFeed returns the whole audience feed for the live show.
func (h *CommunityHandler) GetFeed(c *gin.Context) {
	showID, ok := h.liveShowID(c)
	if !ok {
		return
	}

	snap, err := h.feed.Snapshot(c.Request.Context(), showID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not read feed"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
