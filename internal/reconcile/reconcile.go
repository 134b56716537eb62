// Package reconcile is the drift-correction half of the engine. It takes a
// snapshot of the whole entity store, computes the set of records violating
// the cross-entity invariants, and either reports them (Diagnose) or fixes
// them (RepairAll). A repair pass is a fixed-point computation: once the
// invariants hold, further passes change nothing.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"equipment-status-backend/internal/model"
	"equipment-status-backend/internal/statussync"
	"equipment-status-backend/internal/store"
)

// StatusChanger is the slice of the synchronizer the reconciler corrects
// through, so every corrective write stays on the legal transition graph.
type StatusChanger interface {
	ChangeEquipmentStatus(ctx context.Context, equipmentID string, newStatus model.EquipmentState, reason statussync.Reason, relatedEntityID *string) (statussync.SyncResult, error)
}

// RepairSummary reports the outcome of a RepairAll pass.
type RepairSummary struct {
	SynchronizedCount int      `json:"synchronizedCount"`
	Errors            []string `json:"errors"`
}

// Reconciler runs diagnostic and repair passes over the entity store.
type Reconciler struct {
	store    store.Store
	changer  StatusChanger
	interval time.Duration
	now      func() time.Time
}

// New creates a Reconciler. interval only matters for Run; Diagnose and
// RepairAll are on-demand.
func New(s store.Store, changer StatusChanger, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:    s,
		changer:  changer,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// snapshot loads the whole entity store into memory, indexed by equipment id.
func (r *Reconciler) snapshot(ctx context.Context) (*Snapshot, error) {
	equipment, err := r.store.ListEquipment(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := r.store.ListEquipmentStatuses(ctx)
	if err != nil {
		return nil, err
	}
	openFaults, err := r.store.ListNonTerminalFaultReports(ctx)
	if err != nil {
		return nil, err
	}
	activeRepairs, err := r.store.ListActiveRepairRecords(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Equipment:     equipment,
		Statuses:      make(map[string]model.EquipmentStatus, len(statuses)),
		OpenFaults:    make(map[string][]model.FaultReport),
		ActiveRepairs: make(map[string]int),
	}
	for _, st := range statuses {
		snap.Statuses[st.EquipmentID] = st
	}
	for _, fr := range openFaults {
		snap.OpenFaults[fr.EquipmentID] = append(snap.OpenFaults[fr.EquipmentID], fr)
	}
	for _, rec := range activeRepairs {
		snap.ActiveRepairs[rec.EquipmentID]++
	}
	return snap, nil
}

// Diagnose reports every invariant violation without mutating anything.
func (r *Reconciler) Diagnose(ctx context.Context) (IssueReport, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return IssueReport{}, fmt.Errorf("failed to snapshot entity store: %w", err)
	}
	return buildReport(Evaluate(snap)), nil
}

// RepairAll corrects every detected violation, sequentially and in stable
// order. Each correction is independent; a failed one is recorded and the
// pass moves on, so a partial failure never blocks the rest of the fleet.
func (r *Reconciler) RepairAll(ctx context.Context) (RepairSummary, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return RepairSummary{}, fmt.Errorf("failed to snapshot entity store: %w", err)
	}

	summary := RepairSummary{Errors: []string{}}
	for _, issue := range Evaluate(snap) {
		if err := r.repair(ctx, snap, issue); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s %s: %v", issue.Kind, issue.EquipmentID, err))
			continue
		}
		summary.SynchronizedCount++
	}
	return summary, nil
}

func (r *Reconciler) repair(ctx context.Context, snap *Snapshot, issue Issue) error {
	switch issue.Kind {
	case IssueMissingStatus:
		return r.store.UpsertEquipmentStatus(ctx, &model.EquipmentStatus{
			EquipmentID: issue.EquipmentID,
			Status:      statussync.InitialState,
			Reason:      statussync.InitialReason,
			ChangedAt:   r.now(),
		})

	case IssueOrphanStatus:
		return r.store.DeleteEquipmentStatus(ctx, issue.EquipmentID)

	case IssueMissedBreakdown:
		return r.forceBreakdown(ctx, snap, issue.EquipmentID)

	case IssueStaleBreakdown:
		_, err := r.changer.ChangeEquipmentStatus(ctx, issue.EquipmentID, model.StateRunning, statussync.ReasonRepairComplete, nil)
		return err

	default:
		return fmt.Errorf("unknown issue kind %q", issue.Kind)
	}
}

// forceBreakdown moves equipment with open fault reports into breakdown. Only
// running has a direct edge to breakdown; from standby, maintenance, or
// stopped the correction routes through running first so no write ever leaves
// the legal graph.
func (r *Reconciler) forceBreakdown(ctx context.Context, snap *Snapshot, equipmentID string) error {
	state := model.StateRunning
	if st, ok := snap.Statuses[equipmentID]; ok {
		state = st.Status
	}
	if state != model.StateRunning {
		if _, err := r.changer.ChangeEquipmentStatus(ctx, equipmentID, model.StateRunning, statussync.ReasonManual, nil); err != nil {
			return err
		}
	}
	_, err := r.changer.ChangeEquipmentStatus(ctx, equipmentID, model.StateBreakdown, statussync.ReasonBreakdown, nil)
	return err
}

// Run executes RepairAll on a fixed interval until the context is cancelled.
// Deployments normally run a single instance of this loop.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		log.Println("Reconciler loop is disabled. Not starting.")
		return
	}
	log.Println("Starting reconciler loop...")

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reconciler loop shutting down.")
			return
		case <-timer.C:
			summary, err := r.RepairAll(ctx)
			if err != nil {
				log.Printf("Reconciliation pass failed: %v", err)
			} else if summary.SynchronizedCount > 0 || len(summary.Errors) > 0 {
				log.Printf("Reconciliation pass: %d corrected, %d errors", summary.SynchronizedCount, len(summary.Errors))
			}
			timer.Reset(r.interval)
		}
	}
}
