// Package statussync is the live propagation path of the engine: it validates
// a requested state transition, writes the equipment status row, and cascades
// the consequential fault-report and repair-record updates.
//
// There is no multi-table transaction behind these cascades. The status write
// happens first; each cascade sub-write is best-effort, and a sub-write
// failure is recorded in the result instead of rolling anything back. The
// reconciler is the retry mechanism that closes whatever gap is left.
package statussync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"equipment-status-backend/internal/model"
	"equipment-status-backend/internal/rules"
	"equipment-status-backend/internal/store"
)

// InitialState is the status assumed for equipment that has no status row yet.
// The row itself is created lazily, on the first status change or by a
// reconciliation pass.
const InitialState = model.StateRunning

// InitialReason is the reason recorded on lazily created status rows.
const InitialReason = "initial state"

// Synchronizer applies validated transitions and cascades them to related
// entities, serialized per equipment id.
type Synchronizer struct {
	store    store.Store
	notifier Notifier
	inflight *inflightSet
	now      func() time.Time
}

// New creates a Synchronizer. Pass NopNotifier{} when no side channel is wired.
func New(s store.Store, n Notifier) *Synchronizer {
	if n == nil {
		n = NopNotifier{}
	}
	return &Synchronizer{
		store:    s,
		notifier: n,
		inflight: newInflightSet(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ChangeEquipmentStatus moves one piece of equipment to newStatus and cascades
// per reason. relatedEntityID is only consulted for ReasonBreakdown, where it
// may name the fault report that triggered the breakdown.
//
// Fatal conditions (ErrEquipmentNotFound, ErrIllegalTransition,
// ErrSyncInProgress) return before any write. After the status write commits,
// the call always reports Success=true; cascade failures land in
// SyncResult.Errors.
func (s *Synchronizer) ChangeEquipmentStatus(ctx context.Context, equipmentID string, newStatus model.EquipmentState, reason Reason, relatedEntityID *string) (SyncResult, error) {
	if !s.inflight.acquire(equipmentID) {
		return SyncResult{}, fmt.Errorf("equipment %s: %w", equipmentID, ErrSyncInProgress)
	}
	defer s.inflight.release(equipmentID)

	equip, err := s.store.GetEquipment(ctx, equipmentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SyncResult{}, fmt.Errorf("equipment %s: %w", equipmentID, ErrEquipmentNotFound)
	}
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to load equipment %s: %w", equipmentID, err)
	}

	current, prev, err := s.currentStatus(ctx, equipmentID)
	if err != nil {
		return SyncResult{}, err
	}

	if !rules.CanTransitionEquipment(current, newStatus) {
		return SyncResult{}, fmt.Errorf("equipment %s: %s -> %s: %w", equipmentID, current, newStatus, ErrIllegalTransition)
	}

	now := s.now()
	status := s.buildStatus(equipmentID, prev, current, newStatus, reason, now)
	if err := s.store.UpsertEquipmentStatus(ctx, status); err != nil {
		return SyncResult{}, fmt.Errorf("status write failed: %w", err)
	}

	result := SyncResult{
		Success: true,
		Updated: UpdatedEntities{Status: true, RelatedFaultReports: []string{}},
		Errors:  []string{},
	}

	// Audit trail is best-effort; a failed append never fails the call.
	change := &model.StatusChange{
		EquipmentID: equipmentID,
		FromStatus:  current,
		ToStatus:    newStatus,
		Reason:      string(reason),
		ChangedAt:   now,
	}
	if err := s.store.AppendStatusChange(ctx, change); err != nil {
		log.Printf("Warning: could not record status change for equipment %s: %v", equipmentID, err)
	}

	s.cascade(ctx, equip, current, newStatus, reason, relatedEntityID, now, &result)
	return result, nil
}

// currentStatus returns the equipment's effective current state and its status
// row, or (InitialState, nil) when the row does not exist yet.
func (s *Synchronizer) currentStatus(ctx context.Context, equipmentID string) (model.EquipmentState, *model.EquipmentStatus, error) {
	prev, err := s.store.GetEquipmentStatus(ctx, equipmentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return InitialState, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load status for equipment %s: %w", equipmentID, err)
	}
	return prev.Status, prev, nil
}

// buildStatus assembles the new status row, carrying transition markers over
// from the previous row and applying the status-specific side fields.
func (s *Synchronizer) buildStatus(equipmentID string, prev *model.EquipmentStatus, from, to model.EquipmentState, reason Reason, now time.Time) *model.EquipmentStatus {
	status := &model.EquipmentStatus{
		EquipmentID: equipmentID,
		Status:      to,
		Reason:      string(reason),
		ChangedAt:   now,
	}
	if prev != nil {
		status.BreakdownStartTime = prev.BreakdownStartTime
		status.MaintenanceStartTime = prev.MaintenanceStartTime
		status.LastRepairDate = prev.LastRepairDate
	}

	switch {
	case to == model.StateBreakdown:
		status.BreakdownStartTime = &now
	case to == model.StateRunning && (from == model.StateBreakdown || reason == ReasonRepairComplete):
		status.LastRepairDate = &now
		status.BreakdownStartTime = nil
	case to == model.StateMaintenance:
		status.MaintenanceStartTime = &now
	}
	return status
}

// cascade issues the reason-keyed secondary updates. Sub-write failures are
// appended to result.Errors; already-applied sub-updates are never undone.
func (s *Synchronizer) cascade(ctx context.Context, equip *model.Equipment, from, to model.EquipmentState, reason Reason, relatedEntityID *string, now time.Time, result *SyncResult) {
	switch reason {
	case ReasonBreakdown:
		if relatedEntityID != nil && *relatedEntityID != "" {
			s.escalateFaultReport(ctx, *relatedEntityID, result)
		}
		s.notifier.Notify(equip.ID, NoteBreakdownDetected,
			fmt.Sprintf("Equipment %s reported a breakdown", equip.Number))

	case ReasonRepairComplete:
		s.closeOpenFaultReports(ctx, equip.ID, now, result)
		s.notifier.Notify(equip.ID, NoteRepairCompleted,
			fmt.Sprintf("Equipment %s is back in operation", equip.Number))

	case ReasonMaintenance:
		s.notifier.Notify(equip.ID, NoteMaintenanceStarted,
			fmt.Sprintf("Equipment %s entered maintenance", equip.Number))

	case ReasonManual:
		// A manual breakdown -> running override is a repair completion in
		// everything but name.
		if from == model.StateBreakdown && to == model.StateRunning {
			s.closeOpenFaultReports(ctx, equip.ID, now, result)
			s.notifier.Notify(equip.ID, NoteRepairCompleted,
				fmt.Sprintf("Equipment %s is back in operation", equip.Number))
		}
	}
}

// escalateFaultReport moves the fault report that triggered a breakdown into
// in_progress. A missing report is not an error: the caller owns creating the
// report through the reporting path.
func (s *Synchronizer) escalateFaultReport(ctx context.Context, faultID string, result *SyncResult) {
	report, err := s.store.GetFaultReport(ctx, faultID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fault report %s: %v", faultID, err))
		return
	}
	if !rules.CanTransitionFault(report.Status, model.FaultInProgress) {
		return
	}
	if err := s.store.UpdateFaultReport(ctx, faultID, map[string]any{"status": model.FaultInProgress}); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fault report %s: %v", faultID, err))
		return
	}
	result.Updated.RelatedFaultReports = append(result.Updated.RelatedFaultReports, faultID)
}

// closeOpenFaultReports marks every non-terminal fault report of the equipment
// completed with a resolution timestamp.
func (s *Synchronizer) closeOpenFaultReports(ctx context.Context, equipmentID string, now time.Time, result *SyncResult) {
	reports, err := s.store.ListOpenFaultReportsForEquipment(ctx, equipmentID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("listing open fault reports: %v", err))
		return
	}
	for _, report := range reports {
		fields := map[string]any{
			"status":      model.FaultCompleted,
			"resolved_at": now,
			"resolution":  "closed automatically on repair completion",
		}
		if err := s.store.UpdateFaultReport(ctx, report.ID, fields); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("fault report %s: %v", report.ID, err))
			continue
		}
		result.Updated.RelatedFaultReports = append(result.Updated.RelatedFaultReports, report.ID)
	}
}

// AdvanceFaultReport moves a fault report along its lifecycle graph. Fault
// transitions on their own do not move equipment; equipment recovery is driven
// by repair completion, and breakdown entry by the reporting path.
func (s *Synchronizer) AdvanceFaultReport(ctx context.Context, faultID string, newStatus model.FaultState) error {
	report, err := s.store.GetFaultReport(ctx, faultID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("fault report %s: %w", faultID, err)
	}
	if err != nil {
		return fmt.Errorf("failed to load fault report %s: %w", faultID, err)
	}
	if !rules.CanTransitionFault(report.Status, newStatus) {
		return fmt.Errorf("fault report %s: %s -> %s: %w", faultID, report.Status, newStatus, ErrIllegalTransition)
	}

	fields := map[string]any{"status": newStatus}
	if newStatus.Terminal() {
		fields["resolved_at"] = s.now()
	}
	return s.store.UpdateFaultReport(ctx, faultID, fields)
}

// AdvanceRepairRecord moves a repair record along its lifecycle graph and
// cascades into equipment status: starting a repair on broken-down equipment
// moves it to maintenance, completing a repair recovers it to running. The
// equipment-side cascade is best-effort and reported through the result.
func (s *Synchronizer) AdvanceRepairRecord(ctx context.Context, repairID string, newStatus model.RepairState, notes string) (SyncResult, error) {
	record, err := s.store.GetRepairRecord(ctx, repairID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SyncResult{}, fmt.Errorf("repair record %s: %w", repairID, err)
	}
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to load repair record %s: %w", repairID, err)
	}
	if !rules.CanTransitionRepair(record.Status, newStatus) {
		return SyncResult{}, fmt.Errorf("repair record %s: %s -> %s: %w", repairID, record.Status, newStatus, ErrIllegalTransition)
	}

	now := s.now()
	fields := map[string]any{"status": newStatus}
	if notes != "" {
		fields["notes"] = notes
	}
	switch newStatus {
	case model.RepairInProgress:
		fields["started_at"] = now
	case model.RepairCompleted:
		fields["completed_at"] = now
	}
	if err := s.store.UpdateRepairRecord(ctx, repairID, fields); err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{
		Success: true,
		Updated: UpdatedEntities{RelatedFaultReports: []string{}},
		Errors:  []string{},
	}
	switch newStatus {
	case model.RepairInProgress:
		current, _, err := s.currentStatus(ctx, record.EquipmentID)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			return result, nil
		}
		if current == model.StateBreakdown {
			s.cascadeEquipment(ctx, record.EquipmentID, model.StateMaintenance, ReasonMaintenance, &result)
		}
	case model.RepairCompleted:
		current, _, err := s.currentStatus(ctx, record.EquipmentID)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			return result, nil
		}
		if current != model.StateRunning {
			s.cascadeEquipment(ctx, record.EquipmentID, model.StateRunning, ReasonRepairComplete, &result)
		}
	}
	return result, nil
}

// cascadeEquipment folds a nested ChangeEquipmentStatus call into an outer
// result, best-effort.
func (s *Synchronizer) cascadeEquipment(ctx context.Context, equipmentID string, newStatus model.EquipmentState, reason Reason, result *SyncResult) {
	inner, err := s.ChangeEquipmentStatus(ctx, equipmentID, newStatus, reason, nil)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("equipment %s: %v", equipmentID, err))
		return
	}
	result.Updated.Status = true
	result.Updated.RelatedFaultReports = append(result.Updated.RelatedFaultReports, inner.Updated.RelatedFaultReports...)
	result.Errors = append(result.Errors, inner.Errors...)
}
