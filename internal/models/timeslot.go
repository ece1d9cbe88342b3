package models

import (
	"fmt"
	"strings"
	"time"
)

// TimeSlot is a weekly recurring teaching window. Break slots are never
// scheduled. Start and end are wall-clock times in "HH:MM" form; the
// deployment time zone turns them into instants for a concrete date.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	IsBreak   bool      `db:"is_break" json:"is_break"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

var dayNameIndex = map[string]int{
	"MONDAY":    1,
	"TUESDAY":   2,
	"WEDNESDAY": 3,
	"THURSDAY":  4,
	"FRIDAY":    5,
	"SATURDAY":  6,
	"SUNDAY":    7,
}

var dayIndexName = map[int]string{
	1: "MONDAY",
	2: "TUESDAY",
	3: "WEDNESDAY",
	4: "THURSDAY",
	5: "FRIDAY",
	6: "SATURDAY",
	7: "SUNDAY",
}

// DayIndex converts a day name to its ISO weekday index (Monday=1). Unknown
// names map to 0.
func DayIndex(name string) int {
	return dayNameIndex[strings.ToUpper(strings.TrimSpace(name))]
}

// DayName converts an ISO weekday index back to its canonical name.
func DayName(index int) string {
	return dayIndexName[index]
}

// WeekdayIndex returns the slot's ISO weekday index (Monday=1).
func (s *TimeSlot) WeekdayIndex() int {
	return DayIndex(s.DayOfWeek)
}

// MatchesDate reports whether the slot recurs on the given calendar date.
func (s *TimeSlot) MatchesDate(d time.Time) bool {
	iso := int(d.Weekday())
	if iso == 0 {
		iso = 7
	}
	return iso == s.WeekdayIndex()
}

// WindowOn resolves the slot's start and end instants on a concrete date in
// the given location.
func (s *TimeSlot) WindowOn(date time.Time, loc *time.Location) (time.Time, time.Time, error) {
	start, err := combineDateTime(date, s.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("slot %s start: %w", s.ID, err)
	}
	end, err := combineDateTime(date, s.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("slot %s end: %w", s.ID, err)
	}
	return start, end, nil
}

func combineDateTime(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}
