package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

// TimeSlotRepository manages persistence for weekly time slots.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs a TimeSlotRepository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// List returns all slots, breaks included, ordered by weekday then start.
// Weekday ordering uses the Monday-first index, not the name.
func (r *TimeSlotRepository) List(ctx context.Context) ([]models.TimeSlot, error) {
	const query = `SELECT id, day_of_week, start_time, end_time, is_break, created_at, updated_at FROM time_slots
ORDER BY CASE day_of_week
	WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3
	WHEN 'THURSDAY' THEN 4 WHEN 'FRIDAY' THEN 5 WHEN 'SATURDAY' THEN 6
	ELSE 7 END ASC, start_time ASC, id ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// ListTeaching returns non-break slots in the same stable order as List.
func (r *TimeSlotRepository) ListTeaching(ctx context.Context) ([]models.TimeSlot, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	teaching := make([]models.TimeSlot, 0, len(all))
	for _, slot := range all {
		if !slot.IsBreak {
			teaching = append(teaching, slot)
		}
	}
	return teaching, nil
}

// FindByID fetches a time slot by ID.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	const query = `SELECT id, day_of_week, start_time, end_time, is_break, created_at, updated_at FROM time_slots WHERE id = $1`
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}
