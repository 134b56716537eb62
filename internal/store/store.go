package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"equipment-status-backend/internal/model"
)

// Store defines the interface for all database operations the engine needs.
// There is no transactional guarantee across calls; the synchronizer and the
// reconciler are written against that limitation.
type Store interface {
	DB() *gorm.DB

	GetEquipment(ctx context.Context, id string) (*model.Equipment, error)
	ListEquipment(ctx context.Context) ([]model.Equipment, error)

	GetEquipmentStatus(ctx context.Context, equipmentID string) (*model.EquipmentStatus, error)
	ListEquipmentStatuses(ctx context.Context) ([]model.EquipmentStatus, error)
	UpsertEquipmentStatus(ctx context.Context, status *model.EquipmentStatus) error
	DeleteEquipmentStatus(ctx context.Context, equipmentID string) error

	GetFaultReport(ctx context.Context, id string) (*model.FaultReport, error)
	CreateFaultReport(ctx context.Context, report *model.FaultReport) error
	UpdateFaultReport(ctx context.Context, id string, fields map[string]any) error
	ListNonTerminalFaultReports(ctx context.Context) ([]model.FaultReport, error)
	ListOpenFaultReportsForEquipment(ctx context.Context, equipmentID string) ([]model.FaultReport, error)

	GetRepairRecord(ctx context.Context, id string) (*model.RepairRecord, error)
	CreateRepairRecord(ctx context.Context, record *model.RepairRecord) error
	UpdateRepairRecord(ctx context.Context, id string, fields map[string]any) error
	ListActiveRepairRecords(ctx context.Context) ([]model.RepairRecord, error)

	AppendStatusChange(ctx context.Context, change *model.StatusChange) error
}

// nonTerminalFaultStates are the fault states that keep equipment down.
var nonTerminalFaultStates = []model.FaultState{model.FaultReported, model.FaultInProgress}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	var equip model.Equipment
	if err := s.db.WithContext(ctx).First(&equip, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &equip, nil
}

func (s *gormStore) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	var equipment []model.Equipment
	if err := s.db.WithContext(ctx).Order("number").Find(&equipment).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return equipment, nil
}

func (s *gormStore) GetEquipmentStatus(ctx context.Context, equipmentID string) (*model.EquipmentStatus, error) {
	var status model.EquipmentStatus
	if err := s.db.WithContext(ctx).First(&status, "equipment_id = ?", equipmentID).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *gormStore) ListEquipmentStatuses(ctx context.Context) ([]model.EquipmentStatus, error) {
	var statuses []model.EquipmentStatus
	if err := s.db.WithContext(ctx).Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment statuses: %w", err)
	}
	return statuses, nil
}

// UpsertEquipmentStatus writes the full status row, creating it if this is the
// first status the equipment ever had.
func (s *gormStore) UpsertEquipmentStatus(ctx context.Context, status *model.EquipmentStatus) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "equipment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "reason", "changed_at",
			"breakdown_start_time", "maintenance_start_time", "last_repair_date",
		}),
	}).Create(status).Error
	if err != nil {
		return fmt.Errorf("failed to upsert status for equipment %s: %w", status.EquipmentID, err)
	}
	return nil
}

func (s *gormStore) DeleteEquipmentStatus(ctx context.Context, equipmentID string) error {
	if err := s.db.WithContext(ctx).Delete(&model.EquipmentStatus{}, "equipment_id = ?", equipmentID).Error; err != nil {
		return fmt.Errorf("failed to delete status for equipment %s: %w", equipmentID, err)
	}
	return nil
}

func (s *gormStore) GetFaultReport(ctx context.Context, id string) (*model.FaultReport, error) {
	var report model.FaultReport
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *gormStore) CreateFaultReport(ctx context.Context, report *model.FaultReport) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create fault report for equipment %s: %w", report.EquipmentID, err)
	}
	return nil
}

func (s *gormStore) UpdateFaultReport(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.FaultReport{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update fault report %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("fault report %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *gormStore) ListNonTerminalFaultReports(ctx context.Context) ([]model.FaultReport, error) {
	var reports []model.FaultReport
	if err := s.db.WithContext(ctx).Where("status IN ?", nonTerminalFaultStates).Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list open fault reports: %w", err)
	}
	return reports, nil
}

func (s *gormStore) ListOpenFaultReportsForEquipment(ctx context.Context, equipmentID string) ([]model.FaultReport, error) {
	var reports []model.FaultReport
	err := s.db.WithContext(ctx).
		Where("equipment_id = ? AND status IN ?", equipmentID, nonTerminalFaultStates).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open fault reports for equipment %s: %w", equipmentID, err)
	}
	return reports, nil
}

func (s *gormStore) GetRepairRecord(ctx context.Context, id string) (*model.RepairRecord, error) {
	var record model.RepairRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *gormStore) CreateRepairRecord(ctx context.Context, record *model.RepairRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create repair record for fault %s: %w", record.FaultReportID, err)
	}
	return nil
}

func (s *gormStore) UpdateRepairRecord(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.RepairRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update repair record %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("repair record %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ListActiveRepairRecords returns repairs currently in progress, used by the
// reconciler to tell a legitimate maintenance window from a missed breakdown.
func (s *gormStore) ListActiveRepairRecords(ctx context.Context) ([]model.RepairRecord, error) {
	var records []model.RepairRecord
	if err := s.db.WithContext(ctx).Where("status = ?", model.RepairInProgress).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list active repair records: %w", err)
	}
	return records, nil
}

// AppendStatusChange writes one audit row for an applied transition.
func (s *gormStore) AppendStatusChange(ctx context.Context, change *model.StatusChange) error {
	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(change).Error; err != nil {
		return fmt.Errorf("failed to append status change for equipment %s: %w", change.EquipmentID, err)
	}
	return nil
}
