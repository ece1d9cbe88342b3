package models

import "time"

// Assignment is a confirmed (group, course, teacher, room, slot) tuple
// produced by the scheduler. Assignments for a group are replaced as a unit
// on every regeneration.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	GroupID     string    `db:"group_id" json:"group_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	TimeSlotID  string    `db:"time_slot_id" json:"time_slot_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AssignmentDetail joins an assignment with its slot and display metadata
// for timetable views and exports.
type AssignmentDetail struct {
	Assignment
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	RoomNumber string `db:"room_number" json:"room_number"`
	GroupName  string `db:"group_name" json:"group_name"`
	DayOfWeek  string `db:"day_of_week" json:"day_of_week"`
	StartTime  string `db:"start_time" json:"start_time"`
	EndTime    string `db:"end_time" json:"end_time"`
}

// ClassInstance is an assignment materialised on a specific calendar date.
// The (assignment, date) pair is unique.
type ClassInstance struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	ClassDate    time.Time `db:"class_date" json:"class_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ClassInstanceDetail carries the assignment context the attendance engine
// needs to validate a scan: the slot window, the assigned teacher and the
// owning group.
type ClassInstanceDetail struct {
	ClassInstance
	GroupID     string `db:"group_id" json:"group_id"`
	CourseID    string `db:"course_id" json:"course_id"`
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	ClassroomID string `db:"classroom_id" json:"classroom_id"`
	TimeSlotID  string `db:"time_slot_id" json:"time_slot_id"`
	DayOfWeek   string `db:"day_of_week" json:"day_of_week"`
	StartTime   string `db:"start_time" json:"start_time"`
	EndTime     string `db:"end_time" json:"end_time"`
}

// Window resolves the instance's slot window on its date.
func (d *ClassInstanceDetail) Window(loc *time.Location) (time.Time, time.Time, error) {
	slot := TimeSlot{ID: d.TimeSlotID, DayOfWeek: d.DayOfWeek, StartTime: d.StartTime, EndTime: d.EndTime}
	return slot.WindowOn(d.ClassDate, loc)
}

// InstanceScopeKind selects how materialisation is filtered.
type InstanceScopeKind string

const (
	ScopeAll     InstanceScopeKind = "all"
	ScopeGroup   InstanceScopeKind = "group"
	ScopeTeacher InstanceScopeKind = "teacher"
	ScopeStudent InstanceScopeKind = "student"
)

// InstanceScope narrows materialisation to a group, teacher or student.
type InstanceScope struct {
	Kind InstanceScopeKind `json:"kind"`
	ID   string            `json:"id,omitempty"`
}
