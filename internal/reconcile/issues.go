package reconcile

import (
	"fmt"
	"sort"

	"equipment-status-backend/internal/model"
	"equipment-status-backend/internal/parse"
)

// IssueKind classifies one invariant violation found in a snapshot.
type IssueKind string

const (
	// IssueMissingStatus: equipment with no status row at all.
	IssueMissingStatus IssueKind = "missing_status"
	// IssueOrphanStatus: status row referencing nonexistent equipment.
	IssueOrphanStatus IssueKind = "orphan_status"
	// IssueMissedBreakdown: open fault reports but status is not breakdown.
	IssueMissedBreakdown IssueKind = "missed_breakdown"
	// IssueStaleBreakdown: status is breakdown but no fault report is open.
	IssueStaleBreakdown IssueKind = "stale_breakdown"
)

// Issue is one detected violation, tied to an equipment id.
type Issue struct {
	Kind        IssueKind `json:"kind"`
	EquipmentID string    `json:"equipmentId"`
	Number      string    `json:"number,omitempty"`
	Description string    `json:"description"`
}

// IssueReport is the read-only diagnostic output.
type IssueReport struct {
	Total  int               `json:"total"`
	Counts map[IssueKind]int `json:"counts"`
	Issues []Issue           `json:"issues"`
}

// Snapshot is an in-memory view of the entity store, indexed by equipment id.
// Evaluate is a pure function over it, so convergence can be tested without a
// database.
type Snapshot struct {
	Equipment     []model.Equipment
	Statuses      map[string]model.EquipmentStatus
	OpenFaults    map[string][]model.FaultReport
	ActiveRepairs map[string]int
}

// Evaluate computes every invariant violation present in the snapshot.
// Equipment-scoped issues come out in equipment-number order, orphan issues
// afterwards in id order, so repeated runs over the same data produce
// identical output.
func Evaluate(snap *Snapshot) []Issue {
	equipment := make([]model.Equipment, len(snap.Equipment))
	copy(equipment, snap.Equipment)
	sort.Slice(equipment, func(i, j int) bool {
		return parse.NumberLess(equipment[i].Number, equipment[j].Number)
	})

	var issues []Issue
	known := make(map[string]struct{}, len(equipment))
	for _, equip := range equipment {
		known[equip.ID] = struct{}{}

		status, hasStatus := snap.Statuses[equip.ID]
		openFaults := len(snap.OpenFaults[equip.ID])

		if !hasStatus {
			issues = append(issues, Issue{
				Kind:        IssueMissingStatus,
				EquipmentID: equip.ID,
				Number:      equip.Number,
				Description: fmt.Sprintf("equipment %s has no status record", equip.Number),
			})
		}

		// Effective state for invariant checks: a missing row counts as the
		// lazily-assumed initial state.
		state := model.StateRunning
		if hasStatus {
			state = status.Status
		}

		switch {
		case openFaults > 0 && state != model.StateBreakdown:
			// Equipment under active repair legitimately sits in maintenance
			// while its fault reports stay open.
			if state == model.StateMaintenance && snap.ActiveRepairs[equip.ID] > 0 {
				break
			}
			issues = append(issues, Issue{
				Kind:        IssueMissedBreakdown,
				EquipmentID: equip.ID,
				Number:      equip.Number,
				Description: fmt.Sprintf("equipment %s has %d open fault report(s) but status %q", equip.Number, openFaults, state),
			})
		case openFaults == 0 && state == model.StateBreakdown:
			issues = append(issues, Issue{
				Kind:        IssueStaleBreakdown,
				EquipmentID: equip.ID,
				Number:      equip.Number,
				Description: fmt.Sprintf("equipment %s is marked breakdown with no open fault reports", equip.Number),
			})
		}
	}

	var orphanIDs []string
	for id := range snap.Statuses {
		if _, ok := known[id]; !ok {
			orphanIDs = append(orphanIDs, id)
		}
	}
	sort.Strings(orphanIDs)
	for _, id := range orphanIDs {
		issues = append(issues, Issue{
			Kind:        IssueOrphanStatus,
			EquipmentID: id,
			Description: fmt.Sprintf("status record references nonexistent equipment %s", id),
		})
	}

	return issues
}

func buildReport(issues []Issue) IssueReport {
	report := IssueReport{
		Total:  len(issues),
		Counts: make(map[IssueKind]int),
		Issues: issues,
	}
	for _, issue := range issues {
		report.Counts[issue.Kind]++
	}
	return report
}
