package models

import "time"

// StudentGroup is a cohort of students sharing an identical course load and
// schedule.
type StudentGroup struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Department string    `db:"department" json:"department"`
	Year       int       `db:"year" json:"year"`
	Semester   int       `db:"semester" json:"semester"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Student is a member of a student group.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	GroupID   string    `db:"group_id" json:"group_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GroupCourse links a group to one of its courses.
type GroupCourse struct {
	GroupID  string `db:"group_id" json:"group_id"`
	CourseID string `db:"course_id" json:"course_id"`
}
