package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

// ClassroomRepository manages persistence for classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs a ClassroomRepository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns all classrooms ordered by capacity then id so the scheduler
// tries the smallest fitting room first.
func (r *ClassroomRepository) List(ctx context.Context) ([]models.Classroom, error) {
	const query = `SELECT id, room_number, building, capacity, equipment, created_at, updated_at FROM classrooms ORDER BY capacity ASC, id ASC`
	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return rooms, nil
}

// FindByID fetches a classroom by ID.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, room_number, building, capacity, equipment, created_at, updated_at FROM classrooms WHERE id = $1`
	var room models.Classroom
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}
