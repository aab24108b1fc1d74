package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/quant-regime/internal/middleware"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/regime"
	"github.com/irfndi/quant-regime/internal/utils"
)

const maxLogLimit = 50

// RegimeHandler serves the composite regime. Persistence failures are
// absorbed by the service, so these endpoints never fail on storage.
type RegimeHandler struct {
	svc      *regime.Service
	logLimit int
}

func NewRegimeHandler(svc *regime.Service, logLimit int) *RegimeHandler {
	if logLimit <= 0 {
		logLimit = 20
	}
	return &RegimeHandler{svc: svc, logLimit: logLimit}
}

type RegimeResponse struct {
	State   models.CompositeRegimeState `json:"state"`
	Changes []models.RegimeChange       `json:"changes"`
}

type RegimeLogResponse struct {
	Entries []models.RegimeChange `json:"entries"`
	Limit   int                   `json:"limit"`
}

// GetRegime recomputes and returns the composite state plus the changes
// this evaluation logged.
func (h *RegimeHandler) GetRegime(c *gin.Context) {
	res := h.svc.Recompute(c.Request.Context())
	changes := res.Changes
	if changes == nil {
		changes = []models.RegimeChange{}
	}
	middleware.AddSpanAttribute(c, "regime.label", string(res.State.Overall.Label))
	middleware.AddSpanAttribute(c, "regime.score", res.State.Overall.Score)
	c.JSON(http.StatusOK, RegimeResponse{State: res.State, Changes: changes})
}

// GetLog returns the newest change log entries.
func (h *RegimeHandler) GetLog(c *gin.Context) {
	limit, _, err := queryInt(c, "limit", h.logLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	if limit < 1 || limit > maxLogLimit {
		respondError(c, utils.NewFieldError("limit", "must be between 1 and %d, got %d", maxLogLimit, limit))
		return
	}

	entries := h.svc.Log(c.Request.Context(), limit)
	if entries == nil {
		entries = []models.RegimeChange{}
	}
	c.JSON(http.StatusOK, RegimeLogResponse{Entries: entries, Limit: limit})
}
