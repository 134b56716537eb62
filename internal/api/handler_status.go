package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"equipment-status-backend/internal/model"
	"equipment-status-backend/internal/statussync"
)

type changeStatusRequest struct {
	Status          string  `json:"status" binding:"required"`
	Reason          string  `json:"reason" binding:"required"`
	RelatedEntityID *string `json:"related_entity_id"`
}

var validReasons = map[statussync.Reason]struct{}{
	statussync.ReasonBreakdown:      {},
	statussync.ReasonRepairComplete: {},
	statussync.ReasonMaintenance:    {},
	statussync.ReasonManual:         {},
}

// ChangeStatus handles the POST /api/equipment/{id}/status request. All
// business rules live in the synchronizer; this handler only translates its
// error taxonomy onto HTTP status codes.
func (h *Handler) ChangeStatus(c *gin.Context) {
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reason := statussync.Reason(req.Reason)
	if _, ok := validReasons[reason]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reason: " + req.Reason})
		return
	}

	result, err := h.sync.ChangeEquipmentStatus(
		c.Request.Context(),
		c.Param("id"),
		model.EquipmentState(req.Status),
		reason,
		req.RelatedEntityID,
	)
	if err != nil {
		switch {
		case errors.Is(err, statussync.ErrEquipmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, statussync.ErrIllegalTransition):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, statussync.ErrSyncInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
