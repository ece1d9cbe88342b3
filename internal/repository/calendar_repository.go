package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

// CalendarRepository manages academic years, sessions and holidays.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a CalendarRepository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// ListYears returns all academic years ordered by start date.
func (r *CalendarRepository) ListYears(ctx context.Context) ([]models.AcademicYear, error) {
	const query = `SELECT id, name, start_date, end_date, is_active, created_at, updated_at FROM academic_years ORDER BY start_date ASC`
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// ListSessions returns the sessions of an academic year ordered by start date.
func (r *CalendarRepository) ListSessions(ctx context.Context, yearID string) ([]models.AcademicSession, error) {
	const query = `SELECT id, academic_year_id, name, start_date, end_date, created_at, updated_at FROM academic_sessions WHERE academic_year_id = $1 ORDER BY start_date ASC`
	var sessions []models.AcademicSession
	if err := r.db.SelectContext(ctx, &sessions, query, yearID); err != nil {
		return nil, fmt.Errorf("list academic sessions: %w", err)
	}
	return sessions, nil
}

// ListHolidays returns the holidays of an academic year ordered by start date.
func (r *CalendarRepository) ListHolidays(ctx context.Context, yearID string) ([]models.Holiday, error) {
	const query = `SELECT id, academic_year_id, name, start_date, end_date, created_at, updated_at FROM holidays WHERE academic_year_id = $1 ORDER BY start_date ASC`
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, yearID); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}
