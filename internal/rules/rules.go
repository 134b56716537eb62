// Package rules defines the legal state graph for each entity type. It is
// pure lookup-table code with no side effects; every write path in the
// synchronizer and the reconciler validates against it before touching the
// store.
package rules

import "equipment-status-backend/internal/model"

// EntityType selects which transition graph applies.
type EntityType string

const (
	EntityEquipment    EntityType = "equipment"
	EntityFaultReport  EntityType = "fault_report"
	EntityRepairRecord EntityType = "repair_record"
)

var equipmentGraph = map[model.EquipmentState][]model.EquipmentState{
	model.StateRunning:     {model.StateBreakdown, model.StateStandby, model.StateMaintenance, model.StateStopped},
	model.StateBreakdown:   {model.StateRunning, model.StateMaintenance, model.StateStopped},
	model.StateStandby:     {model.StateRunning, model.StateMaintenance, model.StateStopped},
	model.StateMaintenance: {model.StateRunning, model.StateStandby, model.StateStopped},
	model.StateStopped:     {model.StateRunning, model.StateStandby, model.StateMaintenance},
}

var faultGraph = map[model.FaultState][]model.FaultState{
	model.FaultReported:   {model.FaultInProgress, model.FaultRejected, model.FaultCancelled},
	model.FaultInProgress: {model.FaultCompleted, model.FaultCancelled},
	// completed, rejected and cancelled are terminal.
}

var repairGraph = map[model.RepairState][]model.RepairState{
	model.RepairPending:    {model.RepairInProgress},
	model.RepairInProgress: {model.RepairCompleted, model.RepairFailed},
	model.RepairFailed:     {model.RepairPending}, // retry
	// completed is terminal.
}

// ValidNextStates returns the set of states reachable from current for the
// given entity type. The result is a copy; callers may modify it freely. An
// unknown entity type or state yields an empty set.
func ValidNextStates(entity EntityType, current string) []string {
	var next []string
	switch entity {
	case EntityEquipment:
		for _, s := range equipmentGraph[model.EquipmentState(current)] {
			next = append(next, string(s))
		}
	case EntityFaultReport:
		for _, s := range faultGraph[model.FaultState(current)] {
			next = append(next, string(s))
		}
	case EntityRepairRecord:
		for _, s := range repairGraph[model.RepairState(current)] {
			next = append(next, string(s))
		}
	}
	return next
}

// CanTransition reports whether from -> to is an edge in the entity's graph.
func CanTransition(entity EntityType, from, to string) bool {
	for _, s := range ValidNextStates(entity, from) {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionEquipment is a typed convenience wrapper for the equipment graph.
func CanTransitionEquipment(from, to model.EquipmentState) bool {
	return CanTransition(EntityEquipment, string(from), string(to))
}

// CanTransitionFault is a typed convenience wrapper for the fault-report graph.
func CanTransitionFault(from, to model.FaultState) bool {
	return CanTransition(EntityFaultReport, string(from), string(to))
}

// CanTransitionRepair is a typed convenience wrapper for the repair-record graph.
func CanTransitionRepair(from, to model.RepairState) bool {
	return CanTransition(EntityRepairRecord, string(from), string(to))
}
