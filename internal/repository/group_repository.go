package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

// GroupRepository manages persistence for student groups and their members.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns all groups in the scheduler's canonical order: department,
// year, semester, then id as the tie-break.
func (r *GroupRepository) List(ctx context.Context) ([]models.StudentGroup, error) {
	const query = `SELECT id, name, department, year, semester, created_at, updated_at FROM student_groups
ORDER BY department ASC, year ASC, semester ASC, id ASC`
	var groups []models.StudentGroup
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID fetches a group by ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.StudentGroup, error) {
	const query = `SELECT id, name, department, year, semester, created_at, updated_at FROM student_groups WHERE id = $1`
	var group models.StudentGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListEnrollments returns every (group, course) link.
func (r *GroupRepository) ListEnrollments(ctx context.Context) ([]models.GroupCourse, error) {
	const query = `SELECT group_id, course_id FROM group_courses ORDER BY group_id ASC, course_id ASC`
	var links []models.GroupCourse
	if err := r.db.SelectContext(ctx, &links, query); err != nil {
		return nil, fmt.Errorf("list group enrollments: %w", err)
	}
	return links, nil
}

// CountStudents returns the member count of a group.
func (r *GroupRepository) CountStudents(ctx context.Context, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE group_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, groupID); err != nil {
		return 0, fmt.Errorf("count group students: %w", err)
	}
	return count, nil
}

// ListStudents returns the members of a group ordered by name.
func (r *GroupRepository) ListStudents(ctx context.Context, groupID string) ([]models.Student, error) {
	const query = `SELECT id, name, group_id, created_at, updated_at FROM students WHERE group_id = $1 ORDER BY name ASC, id ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, groupID); err != nil {
		return nil, fmt.Errorf("list group students: %w", err)
	}
	return students, nil
}

// FindStudent fetches a student by ID.
func (r *GroupRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, name, group_id, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// IsTeacher reports whether the given identity belongs to the teachers table.
// Used to authorize scan markers.
func (r *GroupRepository) IsTeacher(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM teachers WHERE id = $1 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher identity: %w", err)
	}
	return true, nil
}

// CanMarkAttendance reports whether the identity holds a staff role allowed
// to record attendance for classes it does not teach.
func (r *GroupRepository) CanMarkAttendance(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM staff_roles WHERE staff_id = $1 AND role IN ('registrar', 'attendance_admin') LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check attendance rights: %w", err)
	}
	return true, nil
}
