package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/quant-regime/internal/positioning"
)

type PositioningHandler struct {
	svc      *positioning.Service
	lookback int
}

func NewPositioningHandler(svc *positioning.Service, defaultLookback int) *PositioningHandler {
	if defaultLookback <= 0 {
		defaultLookback = positioning.DefaultLookback
	}
	return &PositioningHandler{svc: svc, lookback: defaultLookback}
}

func (h *PositioningHandler) GetPositioning(c *gin.Context) {
	lookback, _, err := queryInt(c, "lookback", h.lookback)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.svc.Report(c.Request.Context(), lookback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Refresh resimulates every contract history.
func (h *PositioningHandler) Refresh(c *gin.Context) {
	h.svc.Refresh(c.Request.Context())
	h.GetPositioning(c)
}
