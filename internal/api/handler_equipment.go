package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"equipment-status-backend/internal/model"
	"equipment-status-backend/internal/statussync"
)

// CategoryResponse represents the API response for one equipment category.
type CategoryResponse struct {
	Category       string `json:"category"`
	TotalEquipment int64  `json:"totalEquipment"`
	Breakdowns     int64  `json:"breakdowns"`
}

// GetEquipment handles the GET /api/equipment request.
func GetEquipment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Model(&model.Equipment{}).Order("number")
		if category := c.Query("category"); category != "" {
			query = query.Where("category = ?", category)
		}

		var equipment []model.Equipment
		if err := query.Find(&equipment).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve equipment"})
			return
		}
		c.JSON(http.StatusOK, equipment)
	}
}

// GetCategories handles the GET /api/categories request: per-category totals
// with the count of units currently in breakdown.
func GetCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		type aggRow struct {
			Category string
			Total    int64
		}
		var aggs []aggRow
		if err := db.
			Model(&model.Equipment{}).
			Select("category as category, COUNT(*) as total").
			Group("category").
			Scan(&aggs).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate equipment"})
			return
		}

		type downRow struct {
			Category string
			Down     int64
		}
		var downs []downRow
		if err := db.
			Model(&model.Equipment{}).
			Select("equipment.category as category, COUNT(*) as down").
			Joins("JOIN equipment_statuses es ON es.equipment_id = equipment.id").
			Where("es.status = ?", model.StateBreakdown).
			Group("equipment.category").
			Scan(&downs).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate breakdowns"})
			return
		}

		downMap := make(map[string]int64, len(downs))
		for _, d := range downs {
			downMap[d.Category] = d.Down
		}

		responses := make([]CategoryResponse, 0, len(aggs))
		for _, a := range aggs {
			responses = append(responses, CategoryResponse{
				Category:       a.Category,
				TotalEquipment: a.Total,
				Breakdowns:     downMap[a.Category],
			})
		}
		c.JSON(http.StatusOK, responses)
	}
}

// equipmentStatusResponse is the flattened structure for the status endpoint.
type equipmentStatusResponse struct {
	model.Equipment
	Status               model.EquipmentState `json:"status"`
	Reason               string               `json:"reason"`
	ChangedAt            time.Time            `json:"changedAt"`
	BreakdownStartTime   *time.Time           `json:"breakdownStartTime"`
	MaintenanceStartTime *time.Time           `json:"maintenanceStartTime"`
	LastRepairDate       *time.Time           `json:"lastRepairDate"`
	OpenFaultReports     []model.FaultReport  `json:"openFaultReports"`
}

// GetEquipmentStatus handles the GET /api/equipment/{id}/status request.
func (h *Handler) GetEquipmentStatus(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	equip, err := h.store.GetEquipment(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve equipment"})
		return
	}

	resp := equipmentStatusResponse{
		Equipment: *equip,
		Status:    statussync.InitialState,
		Reason:    statussync.InitialReason,
		ChangedAt: equip.CreatedAt,
	}
	if status, err := h.store.GetEquipmentStatus(ctx, id); err == nil {
		resp.Status = status.Status
		resp.Reason = status.Reason
		resp.ChangedAt = status.ChangedAt
		resp.BreakdownStartTime = status.BreakdownStartTime
		resp.MaintenanceStartTime = status.MaintenanceStartTime
		resp.LastRepairDate = status.LastRepairDate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve status"})
		return
	}

	reports, err := h.store.ListOpenFaultReportsForEquipment(ctx, id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve fault reports"})
		return
	}
	resp.OpenFaultReports = reports

	c.JSON(http.StatusOK, resp)
}
