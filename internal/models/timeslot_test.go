package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayIndexRoundTrip(t *testing.T) {
	assert.Equal(t, 1, DayIndex("MONDAY"))
	assert.Equal(t, 7, DayIndex(" sunday "))
	assert.Equal(t, 0, DayIndex("FUNDAY"))
	assert.Equal(t, "WEDNESDAY", DayName(3))
}

func TestTimeSlotMatchesDate(t *testing.T) {
	slot := TimeSlot{DayOfWeek: "SUNDAY"}
	// Go's Weekday numbers Sunday 0; the slot calendar numbers it 7.
	sunday := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)
	assert.True(t, slot.MatchesDate(sunday))
	assert.False(t, slot.MatchesDate(sunday.AddDate(0, 0, 1)))
}

func TestTimeSlotWindowOn(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	slot := TimeSlot{ID: "s1", DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "09:30"}
	date := time.Date(2025, 9, 8, 0, 0, 0, 0, loc)

	start, end, err := slot.WindowOn(date, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 9, 8, 8, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 9, 8, 9, 30, 0, 0, loc), end)
}

func TestTimeSlotWindowOnRejectsBadClock(t *testing.T) {
	slot := TimeSlot{ID: "s1", DayOfWeek: "MONDAY", StartTime: "8am", EndTime: "09:30"}
	_, _, err := slot.WindowOn(time.Now(), time.UTC)
	assert.Error(t, err)
}

func TestAcademicYearCoversHalfOpen(t *testing.T) {
	year := AcademicYear{StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	assert.True(t, year.Covers(year.StartDate))
	assert.True(t, year.Covers(year.EndDate.AddDate(0, 0, -1)))
	assert.False(t, year.Covers(year.EndDate))
	assert.False(t, year.Covers(year.StartDate.AddDate(0, 0, -1)))
}

func TestAttendanceTokenActiveBoundary(t *testing.T) {
	issued := time.Date(2025, 9, 8, 7, 0, 0, 0, time.UTC)
	token := AttendanceToken{IssuedAt: issued, ExpiresAt: issued.Add(AttendanceTokenTTL)}

	assert.True(t, token.Active(issued))
	assert.True(t, token.Active(token.ExpiresAt.Add(-time.Second)))
	// Exactly issued+TTL is already dead.
	assert.False(t, token.Active(token.ExpiresAt))

	token.Consumed = true
	assert.False(t, token.Active(issued))
}
