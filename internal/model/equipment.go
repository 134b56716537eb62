package model

import "time"

// Equipment represents a tracked piece of industrial equipment.
// Descriptive fields may change; identity and number are fixed once created.
type Equipment struct {
	ID        string `gorm:"primaryKey;size:64"`
	Number    string `gorm:"uniqueIndex;size:64;not null"`
	Name      string `gorm:"size:256;not null"`
	Category  string `gorm:"size:64;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Associations, never serialized directly; the status endpoint flattens
	// them into its own response shape.
	Status       *EquipmentStatus `gorm:"foreignKey:EquipmentID" json:"-"`
	FaultReports []FaultReport    `gorm:"foreignKey:EquipmentID" json:"-"`
}
