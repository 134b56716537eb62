package statussync

// Reason keys the cascade behavior of a status change.
type Reason string

const (
	ReasonBreakdown      Reason = "breakdown"
	ReasonRepairComplete Reason = "repair_complete"
	ReasonMaintenance    Reason = "maintenance"
	ReasonManual         Reason = "manual"
)

// Notification kinds emitted through the Notifier.
const (
	NoteBreakdownDetected  = "breakdown_detected"
	NoteRepairCompleted    = "repair_completed"
	NoteMaintenanceStarted = "maintenance_started"
)

// UpdatedEntities records which entities a synchronization touched.
type UpdatedEntities struct {
	Status              bool     `json:"status"`
	RelatedFaultReports []string `json:"relatedFaultReports"`
}

// SyncResult reports the outcome of a synchronization. Success refers to the
// primary status write; callers must still inspect Errors, since a non-empty
// list on a successful result means a cascade sub-update failed and left
// drift for the reconciler to close.
type SyncResult struct {
	Success bool            `json:"success"`
	Updated UpdatedEntities `json:"updatedEntities"`
	Errors  []string        `json:"errors"`
}

// Notifier is the best-effort side channel for surfacing status changes.
// Implementations must never block the caller and never propagate failures.
type Notifier interface {
	Notify(equipmentID, kind, message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(equipmentID, kind, message string) {}
