// Package handlers implements the JSON endpoints consumed by the dashboard
// renderers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/quant-regime/internal/middleware"
	"github.com/irfndi/quant-regime/internal/utils"
)

// respondError maps validation errors to 400 and everything else to 500.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	if utils.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	middleware.RecordError(c, err, "request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(c *gin.Context, name string, def int) (int, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, utils.NewFieldError(name, "must be an integer, got %q", raw)
	}
	return v, true, nil
}
