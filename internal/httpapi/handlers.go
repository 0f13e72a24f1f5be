// Package httpapi holds the operator-facing JSON API for handoff records.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"call-screening/internal/audit"
	"call-screening/internal/handoff"
	"call-screening/internal/reporting"
	"call-screening/pkg/logger"

	"github.com/gin-gonic/gin"
)

// defaultWindow is the range used when from/to are omitted.
const defaultWindow = 24 * time.Hour

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Handoffs  *handoff.Service
	Audit     *audit.Service
	Reporting *reporting.Service

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// parseRange reads from/to (RFC3339) query params, defaulting to the last 24h.
func (h Handlers) parseRange(c *gin.Context) (reporting.TimeRange, error) {
	to := h.now().UTC()
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return reporting.TimeRange{}, errors.New("to must be RFC3339")
		}
		to = t
	}
	from := to.Add(-defaultWindow)
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return reporting.TimeRange{}, errors.New("from must be RFC3339")
		}
		from = t
	}
	if !to.After(from) {
		return reporting.TimeRange{}, errors.New("from must be before to")
	}
	return reporting.TimeRange{From: from, To: to}, nil
}

// ListHandoffs returns records created in the requested range.
func (h Handlers) ListHandoffs(c *gin.Context) {
	if h.Handoffs == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "handoffs not configured"})
		return
	}
	r, err := h.parseRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, err := h.Handoffs.List(c.Request.Context(), r.From, r.To)
	if err != nil {
		logger.FromGin(c).Error("list handoffs failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "handoffs": rows})
}

func (h Handlers) HandoffSummary(c *gin.Context) {
	if h.Reporting == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	r, err := h.parseRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.Reporting.HandoffSummary(c.Request.Context(), r)
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("handoff summary failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GetHandoff returns one record with its audit trail.
func (h Handlers) GetHandoff(c *gin.Context) {
	if h.Handoffs == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "handoffs not configured"})
		return
	}
	callID := c.Param("call_id")

	rec, err := h.Handoffs.Get(c.Request.Context(), callID)
	switch {
	case errors.Is(err, handoff.ErrInvalidCallID):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid call_id"})
		return
	case errors.Is(err, handoff.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "handoff not found"})
		return
	case err != nil:
		logger.FromGin(c).Error("get handoff failed", "call_id", callID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	events := []audit.Event{}
	if h.Audit != nil {
		evs, err := h.Audit.ListByCall(c.Request.Context(), callID)
		if err != nil {
			// the record is still useful without its trail
			logger.FromGin(c).Warn("audit lookup failed", "call_id", callID, "err", err)
		} else {
			events = evs
		}
	}
	c.JSON(http.StatusOK, gin.H{"handoff": rec, "events": events})
}
