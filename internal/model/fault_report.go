package model

import "time"

// FaultState is the lifecycle state of a fault report.
type FaultState string

const (
	FaultReported   FaultState = "reported"
	FaultInProgress FaultState = "in_progress"
	FaultCompleted  FaultState = "completed"
	// Rejected and cancelled arrive from the operator-facing side of the
	// system; for status synchronization they count as terminal, same as
	// completed.
	FaultRejected  FaultState = "rejected"
	FaultCancelled FaultState = "cancelled"
)

// Terminal reports whether the fault no longer keeps its equipment down.
func (s FaultState) Terminal() bool {
	switch s {
	case FaultCompleted, FaultRejected, FaultCancelled:
		return true
	}
	return false
}

// FaultReport is a reported malfunction against a piece of equipment.
type FaultReport struct {
	ID          string     `gorm:"primaryKey;size:64"`
	EquipmentID string     `gorm:"size:64;not null;index"`
	Status      FaultState `gorm:"size:32;not null;index"`
	Description string     `gorm:"type:text"`
	ReportedBy  string     `gorm:"size:128"`
	ReportedAt  time.Time  `gorm:"not null"`
	ResolvedAt  *time.Time
	Resolution  string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Associations
	Equipment Equipment `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE"`
}
