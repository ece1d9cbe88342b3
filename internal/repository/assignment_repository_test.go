package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryReplaceForGroups(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE group_id IN ($1, $2)")).
		WithArgs("g1", "g2").
		WillReturnResult(sqlmock.NewResult(0, 3))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).
		WithArgs(sqlmock.AnyArg(), "g1", "c1", "t1", "r1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).
		WithArgs(sqlmock.AnyArg(), "g2", "c2", "t2", "r2", "s2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignments := []models.Assignment{
		{GroupID: "g1", CourseID: "c1", TeacherID: "t1", ClassroomID: "r1", TimeSlotID: "s1"},
		{GroupID: "g2", CourseID: "c2", TeacherID: "t2", ClassroomID: "r2", TimeSlotID: "s2"},
	}

	require.NoError(t, repo.ReplaceForGroups(context.Background(), nil, []string{"g1", "g2"}, assignments))
	assert.NotEmpty(t, assignments[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryBumpGeneration(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO timetable_generations")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(4)))

	generation, err := repo.BumpGeneration(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), generation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListDetailsByGroup(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "group_id", "course_id", "teacher_id", "classroom_id", "time_slot_id", "created_at",
		"course_code", "course_name", "teacher_name", "room_number", "group_name",
		"day_of_week", "start_time", "end_time",
	}).AddRow(
		"a1", "g1", "c1", "t1", "r1", "s1", time.Now(),
		"CS101", "Intro to CS", "Teacher A", "101", "CS-1-1",
		"MONDAY", "08:00", "09:00",
	)
	mock.ExpectQuery("SELECT .+ FROM assignments a").
		WithArgs("g1").
		WillReturnRows(rows)

	details, err := repo.ListDetailsByGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "CS101", details[0].CourseCode)
	assert.Equal(t, "MONDAY", details[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}
