package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns all teachers ordered by id for stable scheduling order.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, name, department, qualifications, created_at, updated_at FROM teachers ORDER BY id ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, name, department, qualifications, created_at, updated_at FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}
