package model

import "time"

// RepairState is the lifecycle state of a repair record.
type RepairState string

const (
	RepairPending    RepairState = "pending"
	RepairInProgress RepairState = "in_progress"
	RepairCompleted  RepairState = "completed"
	RepairFailed     RepairState = "failed"
)

// RepairRecord is a unit of repair work against a fault report. Completing a
// repair is what recovers the equipment back to running.
type RepairRecord struct {
	ID            string      `gorm:"primaryKey;size:64"`
	FaultReportID string      `gorm:"size:64;not null;index"`
	EquipmentID   string      `gorm:"size:64;not null;index"`
	Status        RepairState `gorm:"size:32;not null;index"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Notes         string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Associations
	FaultReport FaultReport `gorm:"foreignKey:FaultReportID;constraint:OnDelete:CASCADE"`
}
