package service

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-api/internal/models"
)

type stubGroupReader struct {
	groups []models.StudentGroup
	links  []models.GroupCourse
}

func (s *stubGroupReader) List(ctx context.Context) ([]models.StudentGroup, error) {
	return s.groups, nil
}

func (s *stubGroupReader) ListEnrollments(ctx context.Context) ([]models.GroupCourse, error) {
	return s.links, nil
}

type stubCourseReader struct {
	courses []models.Course
}

func (s *stubCourseReader) List(ctx context.Context) ([]models.Course, error) {
	return s.courses, nil
}

type stubTeacherReader struct {
	teachers []models.Teacher
}

func (s *stubTeacherReader) List(ctx context.Context) ([]models.Teacher, error) {
	return s.teachers, nil
}

type stubClassroomReader struct {
	rooms []models.Classroom
}

func (s *stubClassroomReader) List(ctx context.Context) ([]models.Classroom, error) {
	return s.rooms, nil
}

type stubSlotReader struct {
	slots []models.TimeSlot
}

func (s *stubSlotReader) ListTeaching(ctx context.Context) ([]models.TimeSlot, error) {
	return s.slots, nil
}

// schedulingFixture is a small consistent timetabling universe shared by the
// feasibility and scheduler tests.
type schedulingFixture struct {
	groups     *stubGroupReader
	courses    *stubCourseReader
	teachers   *stubTeacherReader
	classrooms *stubClassroomReader
	slots      *stubSlotReader
}

func newSchedulingFixture() *schedulingFixture {
	return &schedulingFixture{
		groups: &stubGroupReader{
			groups: []models.StudentGroup{
				{ID: "g1", Name: "CS-1-1", Department: "cs", Year: 1, Semester: 1},
				{ID: "g2", Name: "EE-1-1", Department: "ee", Year: 1, Semester: 1},
			},
			links: []models.GroupCourse{
				{GroupID: "g1", CourseID: "c-algo"},
				{GroupID: "g1", CourseID: "c-lab"},
				{GroupID: "g2", CourseID: "c-circ"},
			},
		},
		courses: &stubCourseReader{
			courses: []models.Course{
				{ID: "c-algo", Code: "CS101", Name: "Algorithms", Department: "cs", PeriodsPerWeek: 2, MinCapacity: 30},
				{ID: "c-lab", Code: "CS102", Name: "Programming Lab", Department: "cs", PeriodsPerWeek: 1, MinCapacity: 25, RequiredEquipment: "computer"},
				{ID: "c-circ", Code: "EE101", Name: "Circuits", Department: "ee", PeriodsPerWeek: 2, MinCapacity: 30},
			},
		},
		teachers: &stubTeacherReader{
			teachers: []models.Teacher{
				{ID: "t1", Name: "Teacher CS", Department: "cs", Qualifications: "cs"},
				{ID: "t2", Name: "Teacher EE", Department: "ee", Qualifications: "ee"},
				{ID: "t3", Name: "Teacher Any", Department: "cs", Qualifications: ""},
			},
		},
		classrooms: &stubClassroomReader{
			rooms: []models.Classroom{
				{ID: "r1", RoomNumber: "101", Capacity: 30, Equipment: "whiteboard"},
				{ID: "r2", RoomNumber: "201", Capacity: 40, Equipment: "computer-lab, projector"},
			},
		},
		slots: &stubSlotReader{
			slots: []models.TimeSlot{
				{ID: "s1", DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "09:00"},
				{ID: "s2", DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "10:00"},
				{ID: "s3", DayOfWeek: "TUESDAY", StartTime: "08:00", EndTime: "09:00"},
				{ID: "s4", DayOfWeek: "TUESDAY", StartTime: "09:00", EndTime: "10:00"},
			},
		},
	}
}

func (f *schedulingFixture) feasibility() *FeasibilityService {
	return NewFeasibilityService(f.groups, f.courses, f.teachers, f.classrooms, f.slots, nil)
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
