package statussync

import "errors"

// Fatal errors abort the call before any write happens. Cascade sub-failures
// are never returned as errors; they are collected into SyncResult.Errors
// while the primary status write stands.
var (
	// ErrEquipmentNotFound means the target equipment does not exist.
	ErrEquipmentNotFound = errors.New("equipment not found")

	// ErrIllegalTransition means the requested state is not reachable from
	// the current state in the transition graph.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrSyncInProgress means another synchronization for the same equipment
	// is already in flight in this process. The caller may retry later;
	// requests are never queued.
	ErrSyncInProgress = errors.New("synchronization already in progress for this equipment")
)
