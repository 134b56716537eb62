package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"equipment-status-backend/internal/model"
	"equipment-status-backend/internal/statussync"
)

type createRepairRequest struct {
	FaultReportID string `json:"fault_report_id" binding:"required"`
	Notes         string `json:"notes"`
}

// CreateRepair handles the POST /api/repairs request: it opens a pending
// repair record against an existing fault report.
func (h *Handler) CreateRepair(c *gin.Context) {
	var req createRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	report, err := h.store.GetFaultReport(ctx, req.FaultReportID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "fault report not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if report.Status.Terminal() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "fault report is already closed"})
		return
	}

	record := &model.RepairRecord{
		ID:            uuid.NewString(),
		FaultReportID: report.ID,
		EquipmentID:   report.EquipmentID,
		Status:        model.RepairPending,
		Notes:         req.Notes,
	}
	if err := h.store.CreateRepairRecord(ctx, record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, record)
}

type advanceRepairRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// AdvanceRepair handles the POST /api/repairs/{id}/status request. Starting a
// repair moves broken-down equipment into maintenance; completing one
// recovers the equipment and closes its open fault reports.
func (h *Handler) AdvanceRepair(c *gin.Context) {
	var req advanceRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.sync.AdvanceRepairRecord(c.Request.Context(), c.Param("id"), model.RepairState(req.Status), req.Notes)
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
	c.JSON(http.StatusOK, result)
}
