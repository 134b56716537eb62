package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"equipment-status-backend/internal/model"
	"equipment-status-backend/internal/statussync"
)

type createFaultRequest struct {
	EquipmentID string `json:"equipment_id" binding:"required"`
	Description string `json:"description" binding:"required"`
	ReportedBy  string `json:"reported_by"`
}

// CreateFault handles the POST /api/faults request: it files a fault report
// and pushes the equipment into breakdown. The report is created first; if
// the equipment is already in breakdown the status call is skipped and the
// report just joins the open set.
func (h *Handler) CreateFault(c *gin.Context) {
	var req createFaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.GetEquipment(ctx, req.EquipmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	report := &model.FaultReport{
		ID:          uuid.NewString(),
		EquipmentID: req.EquipmentID,
		Status:      model.FaultReported,
		Description: req.Description,
		ReportedBy:  req.ReportedBy,
		ReportedAt:  time.Now().UTC(),
	}
	if err := h.store.CreateFaultReport(ctx, report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := statussync.SyncResult{Errors: []string{}}
	current, err := h.store.GetEquipmentStatus(ctx, req.EquipmentID)
	alreadyDown := err == nil && current.Status == model.StateBreakdown
	if !alreadyDown {
		result, err = h.sync.ChangeEquipmentStatus(ctx, req.EquipmentID, model.StateBreakdown, statussync.ReasonBreakdown, &report.ID)
		if err != nil {
			// The report exists either way; surface the sync failure next to
			// it rather than pretending the whole request failed.
			result.Errors = append(result.Errors, err.Error())
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"fault_report": report,
		"sync":         result,
	})
}

type advanceFaultRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdvanceFault handles the POST /api/faults/{id}/status request.
func (h *Handler) AdvanceFault(c *gin.Context) {
	var req advanceFaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.sync.AdvanceFaultReport(c.Request.Context(), c.Param("id"), model.FaultState(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, statussync.ErrIllegalTransition):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
