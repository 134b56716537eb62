package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"equipment-status-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_UpsertEquipmentStatus(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "equipment_statuses" .* ON CONFLICT \("equipment_id"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id"}).AddRow("eq-1"))
	mock.ExpectCommit()

	err := s.UpsertEquipmentStatus(context.Background(), &model.EquipmentStatus{
		EquipmentID: "eq-1",
		Status:      model.StateBreakdown,
		Reason:      "breakdown",
		ChangedAt:   now,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpdateFaultReport(t *testing.T) {
	t.Run("updates existing report", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "fault_reports" SET .* WHERE id = \$[0-9]+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.UpdateFaultReport(context.Background(), "f-1", map[string]any{"status": model.FaultInProgress})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing report is surfaced as record-not-found", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "fault_reports" SET .* WHERE id = \$[0-9]+`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := s.UpdateFaultReport(context.Background(), "gone", map[string]any{"status": model.FaultInProgress})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStore_ListNonTerminalFaultReports(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT \* FROM "fault_reports" WHERE status IN \(\$1,\$2\)`).
		WithArgs(string(model.FaultReported), string(model.FaultInProgress)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "equipment_id", "status", "reported_at"}).
			AddRow("f-1", "eq-1", "reported", now).
			AddRow("f-2", "eq-2", "in_progress", now))

	reports, err := s.ListNonTerminalFaultReports(context.Background())
	assert.NoError(t, err)
	assert.Len(t, reports, 2)
	assert.Equal(t, model.FaultReported, reports[0].Status)
	assert.Equal(t, "eq-2", reports[1].EquipmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ListEquipmentOrdersByNumber(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "equipment" ORDER BY number`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "name"}).
			AddRow("eq-1", "PRESS-01", "Hydraulic press").
			AddRow("eq-2", "PRESS-02", "Hydraulic press"))

	equipment, err := s.ListEquipment(context.Background())
	assert.NoError(t, err)
	assert.Len(t, equipment, 2)
	assert.Equal(t, "PRESS-01", equipment[0].Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeleteEquipmentStatus(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "equipment_statuses" WHERE equipment_id = $1`)).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, s.DeleteEquipmentStatus(context.Background(), "ghost"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
