package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/quant-regime/internal/correlation"
	"github.com/irfndi/quant-regime/internal/middleware"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/session"
)

// CorrelationHandler serves the per-session correlation monitor.
type CorrelationHandler struct {
	sessions *session.Registry
}

func NewCorrelationHandler(sessions *session.Registry) *CorrelationHandler {
	return &CorrelationHandler{sessions: sessions}
}

// AlertsResponse is the alert panel payload.
type AlertsResponse struct {
	Window    int                   `json:"window"`
	Alerts    []models.RegimeAlert  `json:"alerts"`
	Counts    models.AlertCounts    `json:"counts"`
	Summary   []models.AlertSummary `json:"summary"`
	Headline  string                `json:"headline"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// ComparisonResponse is the key pair comparison table payload.
type ComparisonResponse struct {
	Window    int                    `json:"window"`
	Rows      []models.ComparisonRow `json:"rows"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// monitor resolves the caller's session and echoes its id.
func (h *CorrelationHandler) monitor(c *gin.Context) *correlation.Monitor {
	m, id := h.sessions.Acquire(c.GetHeader(middleware.SessionHeader))
	c.Header(middleware.SessionHeader, id)
	return m
}

// GetCorrelations returns the full view. A window parameter switches the
// session's rolling window first.
func (h *CorrelationHandler) GetCorrelations(c *gin.Context) {
	m := h.monitor(c)
	window, set, err := queryInt(c, "window", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	var view correlation.View
	if set {
		view, err = m.ChangeWindow(c.Request.Context(), window)
		if err != nil {
			respondError(c, err)
			return
		}
	} else {
		view = m.Init(c.Request.Context())
	}
	middleware.AddSpanAttribute(c, "correlation.window", view.Window)
	c.JSON(http.StatusOK, view)
}

// Refresh draws new simulated returns for the session.
func (h *CorrelationHandler) Refresh(c *gin.Context) {
	view := h.monitor(c).Refresh(c.Request.Context())
	c.JSON(http.StatusOK, view)
}

func (h *CorrelationHandler) GetAlerts(c *gin.Context) {
	view := h.monitor(c).Init(c.Request.Context())
	c.JSON(http.StatusOK, AlertsResponse{
		Window:    view.Window,
		Alerts:    view.Alerts,
		Counts:    view.Counts,
		Summary:   correlation.Summarize(view.Alerts),
		Headline:  correlation.Headline(view.Counts),
		UpdatedAt: view.UpdatedAt,
	})
}

func (h *CorrelationHandler) GetComparison(c *gin.Context) {
	view := h.monitor(c).Init(c.Request.Context())
	c.JSON(http.StatusOK, ComparisonResponse{
		Window:    view.Window,
		Rows:      view.Comparison,
		UpdatedAt: view.UpdatedAt,
	})
}
