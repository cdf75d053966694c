package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/0xChampi/hyper-threat-tokencast/internal/pumpfun"
	"github.com/0xChampi/hyper-threat-tokencast/internal/show"
	"github.com/0xChampi/hyper-threat-tokencast/internal/swarm"
)

// ShowHandler exposes the show lifecycle over HTTP. All state decisions
// live in the orchestrator; the handler only translates requests and
// maps the error taxonomy onto status codes.
type ShowHandler struct {
	orc *show.Orchestrator
}

func NewShowHandler(orc *show.Orchestrator) *ShowHandler {
	return &ShowHandler{orc: orc}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, show.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, show.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, show.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, swarm.ErrUnavailable), errors.Is(err, pumpfun.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type startShowRequest struct {
	EstimatedDurationMinutes int `json:"estimated_duration_minutes"`
}

// StartShow begins a new broadcast. 409 when one is already live.
func (h *ShowHandler) StartShow(c *gin.Context) {
	req := startShowRequest{EstimatedDurationMinutes: 60}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	sh, seg, err := h.orc.Start(req.EstimatedDurationMinutes)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"show":            sh,
		"current_segment": seg,
	})
}

type transitionRequest struct {
	SegmentID uint `json:"segment_id"`
}

// Transition skips to the next rotation segment. When the caller names a
// segment_id that is no longer live the call is a no-op returning the
// current segment, so racing triggers cannot double-advance the show.
func (h *ShowHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	seg, ended, err := h.orc.Transition(req.SegmentID)
	if err != nil {
		writeError(c, err)
		return
	}
	if ended {
		c.JSON(http.StatusOK, gin.H{"show_ended": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"show_ended":      false,
		"current_segment": seg,
	})
}

// EndShow finalizes the live broadcast.
func (h *ShowHandler) EndShow(c *gin.Context) {
	sh, err := h.orc.End()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"show": sh})
}

// CurrentState returns a snapshot of the live show, 404 when none.
func (h *ShowHandler) CurrentState(c *gin.Context) {
	snap, err := h.orc.CurrentState()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetShow returns one show with all its segments, live or archived.
func (h *ShowHandler) GetShow(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid show id"})
		return
	}

	sh, err := h.orc.GetShow(uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sh)
}
