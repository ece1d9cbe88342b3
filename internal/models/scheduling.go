package models

import (
	"fmt"
	"time"
)

// FeasibilityReason identifies which necessary condition failed.
type FeasibilityReason string

const (
	FeasibilityReasonCensus        FeasibilityReason = "RESOURCE_CENSUS"
	FeasibilityReasonCoverage      FeasibilityReason = "GROUP_COVERAGE"
	FeasibilityReasonCapacity      FeasibilityReason = "CAPACITY"
	FeasibilityReasonEquipment     FeasibilityReason = "EQUIPMENT"
	FeasibilityReasonQualification FeasibilityReason = "QUALIFICATION"
	FeasibilityReasonSlotBudget    FeasibilityReason = "SLOT_BUDGET"
	FeasibilityReasonGroupBudget   FeasibilityReason = "GROUP_BUDGET"
)

// EntityRef points at the entity that caused an infeasibility.
type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// FeasibilityReport is the analyser's verdict. Feasibility proves necessary
// conditions only; callers must still handle search failure.
type FeasibilityReport struct {
	Feasible  bool              `json:"feasible"`
	Reason    FeasibilityReason `json:"reason,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	EntityRef *EntityRef        `json:"entity_ref,omitempty"`
}

// ConstraintAnalysis summarises resource utilisation for operators.
type ConstraintAnalysis struct {
	Groups          int     `json:"groups"`
	Courses         int     `json:"courses"`
	Teachers        int     `json:"teachers"`
	Classrooms      int     `json:"classrooms"`
	TeachingSlots   int     `json:"teaching_slots"`
	RequiredPeriods int     `json:"required_periods"`
	SlotUtilisation float64 `json:"slot_utilisation"`
	RoomUtilisation float64 `json:"room_utilisation"`
}

// UnschedulableReason distinguishes why the search exhausted.
type UnschedulableReason string

const (
	UnschedulableNoRoomFits    UnschedulableReason = "NO_ROOM_FITS"
	UnschedulableNoTeacherFits UnschedulableReason = "NO_TEACHER_FITS"
	UnschedulableNoFreeSlots   UnschedulableReason = "NO_FREE_SLOTS"
	UnschedulableConflicts     UnschedulableReason = "BLOCKED_BY_CONFLICTS"
)

// UnschedulableError reports the (group, course) pair on which the
// back-tracking search exhausted its alternatives.
type UnschedulableError struct {
	GroupID  string              `json:"group_id"`
	CourseID string              `json:"course_id"`
	Reason   UnschedulableReason `json:"reason"`
}

// Error implements the error interface.
func (e *UnschedulableError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("unschedulable: group %s course %s (%s)", e.GroupID, e.CourseID, e.Reason)
}

// GroupPlacement summarises partial progress for one group when the search
// is cut off by its deadline.
type GroupPlacement struct {
	GroupID  string `json:"group_id"`
	Placed   int    `json:"placed"`
	Required int    `json:"required"`
}

// TimeoutError carries the partial placement report of a search that ran
// out of deadline. The repository is not mutated in this case.
type TimeoutError struct {
	Deadline time.Time        `json:"deadline"`
	Partial  []GroupPlacement `json:"partial"`
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("scheduling deadline %s exceeded", e.Deadline.Format(time.RFC3339))
}

// RegenerateResult reports a committed regeneration.
type RegenerateResult struct {
	AssignmentCount int   `json:"assignment_count"`
	Generation      int64 `json:"generation"`
}
