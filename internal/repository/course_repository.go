package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns all courses ordered by code.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, code, name, department, periods_per_week, min_capacity, required_equipment, created_at, updated_at FROM courses ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, department, periods_per_week, min_capacity, required_equipment, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListForGroup returns the courses a group is enrolled in, ordered by code.
func (r *CourseRepository) ListForGroup(ctx context.Context, groupID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.code, c.name, c.department, c.periods_per_week, c.min_capacity, c.required_equipment, c.created_at, c.updated_at
FROM courses c
JOIN group_courses gc ON gc.course_id = c.id
WHERE gc.group_id = $1
ORDER BY c.code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, groupID); err != nil {
		return nil, fmt.Errorf("list courses for group: %w", err)
	}
	return courses, nil
}
