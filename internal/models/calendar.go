package models

import "time"

// AcademicYear is a half-open date range [StartDate, EndDate). At most one
// year is active at any date.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the date falls inside the year's half-open range.
func (y *AcademicYear) Covers(d time.Time) bool {
	return !d.Before(y.StartDate) && d.Before(y.EndDate)
}

// AcademicSession partitions its academic year into half-open date ranges.
type AcademicSession struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Name           string    `db:"name" json:"name"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the date falls inside the session's half-open range.
func (s *AcademicSession) Covers(d time.Time) bool {
	return !d.Before(s.StartDate) && d.Before(s.EndDate)
}

// Holiday is a half-open date range within an academic year that blocks
// class-instance generation.
type Holiday struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Name           string    `db:"name" json:"name"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the date falls inside the holiday's half-open range.
func (h *Holiday) Covers(d time.Time) bool {
	return !d.Before(h.StartDate) && d.Before(h.EndDate)
}
