package model

import "time"

// EquipmentState is the operational state of a piece of equipment.
type EquipmentState string

const (
	StateRunning     EquipmentState = "running"
	StateBreakdown   EquipmentState = "breakdown"
	StateStandby     EquipmentState = "standby"
	StateMaintenance EquipmentState = "maintenance"
	StateStopped     EquipmentState = "stopped"
)

// EquipmentStatus is the derived current state of one Equipment (hot table,
// one row per equipment). Rows are created lazily on first status change or
// by a reconciliation pass; only the synchronizer and the reconciler write here.
type EquipmentStatus struct {
	EquipmentID          string         `gorm:"primaryKey;size:64"`
	Status               EquipmentState `gorm:"size:32;not null"`
	Reason               string         `gorm:"size:128"`
	ChangedAt            time.Time      `gorm:"not null"`
	BreakdownStartTime   *time.Time
	MaintenanceStartTime *time.Time
	LastRepairDate       *time.Time
}

// StatusChange is the append-only log of equipment state transitions
// (cold table, one row per applied transition).
type StatusChange struct {
	ID          int64          `gorm:"autoIncrement"`
	EquipmentID string         `gorm:"size:64;not null;index;primaryKey"`
	FromStatus  EquipmentState `gorm:"size:32;not null"`
	ToStatus    EquipmentState `gorm:"size:32;not null"`
	Reason      string         `gorm:"size:128"`
	ChangedAt   time.Time      `gorm:"not null;index;primaryKey"`
}
