package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"equipment-status-backend/internal/model"
	"equipment-status-backend/internal/reconcile"
	"equipment-status-backend/internal/statussync"
	"equipment-status-backend/internal/store"
)

func setupStatusRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(
		&model.Equipment{},
		&model.EquipmentStatus{},
		&model.StatusChange{},
		&model.FaultReport{},
		&model.RepairRecord{},
	))

	appStore := store.NewGormStore(db)
	sync := statussync.New(appStore, nil)
	rec := reconcile.New(appStore, sync, 0)
	handler := NewHandler(appStore, sync, rec, nil)

	r := gin.New()
	r.GET("/api/equipment/:id/status", handler.GetEquipmentStatus)
	r.POST("/api/equipment/:id/status", handler.ChangeStatus)
	r.GET("/api/reconcile/diagnose", handler.Diagnose)
	r.POST("/api/reconcile/repair", handler.RepairAll)
	return r, db
}

func postStatus(router *gin.Engine, id, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/equipment/"+id+"/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestChangeStatus(t *testing.T) {
	router, db := setupStatusRouter(t)
	require.NoError(t, db.Create(&model.Equipment{ID: "e1", Number: "PRESS-01", Name: "Press 1"}).Error)

	t.Run("returns 400 for malformed body", func(t *testing.T) {
		w := postStatus(router, "e1", `{"status": "breakdown"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 400 for unknown reason", func(t *testing.T) {
		w := postStatus(router, "e1", `{"status": "breakdown", "reason": "gremlins"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown reason")
	})

	t.Run("returns 404 for unknown equipment", func(t *testing.T) {
		w := postStatus(router, "nope", `{"status": "breakdown", "reason": "breakdown"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("applies a legal transition", func(t *testing.T) {
		w := postStatus(router, "e1", `{"status": "breakdown", "reason": "breakdown"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"updatedEntities":{"status":true,"relatedFaultReports":[]},"errors":[]}`, w.Body.String())

		var status model.EquipmentStatus
		require.NoError(t, db.First(&status, "equipment_id = ?", "e1").Error)
		assert.Equal(t, model.StateBreakdown, status.Status)
	})

	t.Run("returns 422 for an illegal transition", func(t *testing.T) {
		// Equipment is now in breakdown; standby is not reachable from there.
		w := postStatus(router, "e1", `{"status": "standby", "reason": "manual"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("escalates a related fault report", func(t *testing.T) {
		require.NoError(t, db.Create(&model.Equipment{ID: "e2", Number: "PRESS-02", Name: "Press 2"}).Error)
		require.NoError(t, db.Create(&model.FaultReport{
			ID: "f1", EquipmentID: "e2", Status: model.FaultReported, ReportedAt: time.Now().UTC(),
		}).Error)

		w := postStatus(router, "e2", `{"status": "breakdown", "reason": "breakdown", "related_entity_id": "f1"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"updatedEntities":{"status":true,"relatedFaultReports":["f1"]},"errors":[]}`, w.Body.String())

		var fault model.FaultReport
		require.NoError(t, db.First(&fault, "id = ?", "f1").Error)
		assert.Equal(t, model.FaultInProgress, fault.Status)
	})
}

func TestGetEquipmentStatus(t *testing.T) {
	router, db := setupStatusRouter(t)
	require.NoError(t, db.Create(&model.Equipment{ID: "e1", Number: "PRESS-01", Name: "Press 1"}).Error)

	t.Run("returns default status when no row exists", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/equipment/e1/status", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"running"`)
	})

	t.Run("returns 404 for unknown equipment", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/equipment/nope/status", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReconcileEndpoints(t *testing.T) {
	router, db := setupStatusRouter(t)
	// Equipment without a status row is the simplest drift to detect.
	require.NoError(t, db.Create(&model.Equipment{ID: "e1", Number: "PRESS-01", Name: "Press 1"}).Error)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/reconcile/diagnose", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"missing_status"`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/reconcile/repair", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"synchronizedCount":1`)

	var status model.EquipmentStatus
	require.NoError(t, db.First(&status, "equipment_id = ?", "e1").Error)
	assert.Equal(t, model.StateRunning, status.Status)
}
