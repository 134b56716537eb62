package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Diagnose handles the GET /api/reconcile/diagnose request. Read-only: it
// reports invariant violations without touching the store.
func (h *Handler) Diagnose(c *gin.Context) {
	report, err := h.reconciler.Diagnose(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// RepairAll handles the POST /api/reconcile/repair request.
func (h *Handler) RepairAll(c *gin.Context) {
	summary, err := h.reconciler.RepairAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
