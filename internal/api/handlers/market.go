package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/quant-regime/internal/marketdata"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/regime"
	"github.com/irfndi/quant-regime/internal/utils"
)

// SnapshotStore persists the market snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, snap models.MarketSnapshot) error
	Load(ctx context.Context) (models.MarketSnapshot, bool, error)
}

// MarketHandler accepts the snapshot written by the market data collaborator
// and rescores the regime against it.
type MarketHandler struct {
	snapshots SnapshotStore
	regime    *regime.Service
	now       func() time.Time
}

func NewMarketHandler(snapshots SnapshotStore, svc *regime.Service) *MarketHandler {
	return &MarketHandler{snapshots: snapshots, regime: svc, now: time.Now}
}

// PutSnapshot stores the snapshot and returns the recomputed regime.
func (h *MarketHandler) PutSnapshot(c *gin.Context) {
	var snap models.MarketSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		respondError(c, utils.NewValidationError("invalid snapshot: "+err.Error()))
		return
	}
	if err := marketdata.Validate(snap); err != nil {
		respondError(c, err)
		return
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = h.now().UTC()
	}

	if err := h.snapshots.Save(c.Request.Context(), snap); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market snapshot could not be stored"})
		return
	}

	res := h.regime.Recompute(c.Request.Context())
	changes := res.Changes
	if changes == nil {
		changes = []models.RegimeChange{}
	}
	c.JSON(http.StatusOK, RegimeResponse{State: res.State, Changes: changes})
}

// GetSnapshot returns the stored snapshot, or 404 when none exists.
func (h *MarketHandler) GetSnapshot(c *gin.Context) {
	snap, found, err := h.snapshots.Load(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market snapshot unavailable"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no market snapshot stored"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
