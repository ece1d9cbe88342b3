package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

type captureAssignmentWriter struct {
	groupIDs    []string
	assignments []models.Assignment
	generation  int64
}

func (w *captureAssignmentWriter) ReplaceForGroups(ctx context.Context, exec sqlx.ExtContext, groupIDs []string, assignments []models.Assignment) error {
	w.groupIDs = groupIDs
	w.assignments = assignments
	return nil
}

func (w *captureAssignmentWriter) BumpGeneration(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	w.generation++
	return w.generation, nil
}

type noopCacheInvalidator struct {
	patterns []string
}

func (c *noopCacheInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

func newSchedulerFixture(t *testing.T, fixture *schedulingFixture) (*SchedulerService, *captureAssignmentWriter, *noopCacheInvalidator) {
	writer := &captureAssignmentWriter{}
	cache := &noopCacheInvalidator{}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewSchedulerService(
		fixture.groups, fixture.courses, fixture.teachers, fixture.classrooms, fixture.slots,
		fixture.feasibility(), writer, tx, cache, nil, nil, SchedulerConfig{Deadline: 5 * time.Second})
	return svc, writer, cache
}

func TestSchedulerServiceRegenerate(t *testing.T) {
	fixture := newSchedulingFixture()
	svc, writer, cache := newSchedulerFixture(t, fixture)

	result, err := svc.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.AssignmentCount)
	assert.Equal(t, int64(1), result.Generation)
	assert.ElementsMatch(t, []string{"g1", "g2"}, writer.groupIDs)
	assert.Equal(t, []string{"timetable:*"}, cache.patterns)

	assertTimetableInvariants(t, fixture, writer.assignments)
}

func assertTimetableInvariants(t *testing.T, fixture *schedulingFixture, assignments []models.Assignment) {
	t.Helper()

	courses := make(map[string]*models.Course)
	for i := range fixture.courses.courses {
		courses[fixture.courses.courses[i].ID] = &fixture.courses.courses[i]
	}
	teachers := make(map[string]*models.Teacher)
	for i := range fixture.teachers.teachers {
		teachers[fixture.teachers.teachers[i].ID] = &fixture.teachers.teachers[i]
	}
	rooms := make(map[string]*models.Classroom)
	for i := range fixture.classrooms.rooms {
		rooms[fixture.classrooms.rooms[i].ID] = &fixture.classrooms.rooms[i]
	}

	groupSlot := make(map[string]bool)
	roomSlot := make(map[string]bool)
	teacherSlot := make(map[string]bool)
	periods := make(map[string]int)

	for _, a := range assignments {
		gk := a.GroupID + "|" + a.TimeSlotID
		rk := a.ClassroomID + "|" + a.TimeSlotID
		tk := a.TeacherID + "|" + a.TimeSlotID
		assert.False(t, groupSlot[gk], "group double-booked in slot %s", a.TimeSlotID)
		assert.False(t, roomSlot[rk], "room double-booked in slot %s", a.TimeSlotID)
		assert.False(t, teacherSlot[tk], "teacher double-booked in slot %s", a.TimeSlotID)
		groupSlot[gk] = true
		roomSlot[rk] = true
		teacherSlot[tk] = true

		course := courses[a.CourseID]
		require.NotNil(t, course)
		assert.True(t, teachers[a.TeacherID].EligibleFor(course), "teacher %s not eligible for %s", a.TeacherID, course.Code)
		assert.True(t, rooms[a.ClassroomID].Fits(course), "room %s does not fit %s", a.ClassroomID, course.Code)

		periods[a.GroupID+"|"+a.CourseID]++
	}

	assert.Equal(t, 2, periods["g1|c-algo"])
	assert.Equal(t, 1, periods["g1|c-lab"])
	assert.Equal(t, 2, periods["g2|c-circ"])
}

func TestSchedulerServiceDeterministic(t *testing.T) {
	first, firstWriter, _ := newSchedulerFixture(t, newSchedulingFixture())
	second, secondWriter, _ := newSchedulerFixture(t, newSchedulingFixture())

	_, err := first.Regenerate(context.Background())
	require.NoError(t, err)
	_, err = second.Regenerate(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(firstWriter.assignments), len(secondWriter.assignments))
	for i := range firstWriter.assignments {
		a, b := firstWriter.assignments[i], secondWriter.assignments[i]
		assert.Equal(t, a.GroupID, b.GroupID)
		assert.Equal(t, a.CourseID, b.CourseID)
		assert.Equal(t, a.TeacherID, b.TeacherID)
		assert.Equal(t, a.ClassroomID, b.ClassroomID)
		assert.Equal(t, a.TimeSlotID, b.TimeSlotID)
	}
}

func TestSchedulerServiceInfeasible(t *testing.T) {
	fixture := newSchedulingFixture()
	fixture.teachers.teachers = nil
	svc, writer, _ := newSchedulerFixture(t, fixture)

	_, err := svc.Regenerate(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInfeasible))
	assert.Empty(t, writer.assignments, "failed regeneration must not touch stored assignments")
}

func TestSchedulerServiceUnschedulable(t *testing.T) {
	fixture := newSchedulingFixture()
	// Two groups each need one period, the week has a single teaching slot
	// and only one qualified teacher: every branch dies on conflicts.
	fixture.groups.links = []models.GroupCourse{
		{GroupID: "g1", CourseID: "c-algo"},
		{GroupID: "g2", CourseID: "c-circ"},
	}
	fixture.courses.courses[0].PeriodsPerWeek = 1
	fixture.courses.courses[2].PeriodsPerWeek = 1
	fixture.slots.slots = fixture.slots.slots[:1]
	fixture.teachers.teachers = []models.Teacher{
		{ID: "t3", Name: "Teacher Any", Department: "cs", Qualifications: ""},
	}
	svc, writer, _ := newSchedulerFixture(t, fixture)

	_, err := svc.Regenerate(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnschedulable))

	var unsched *models.UnschedulableError
	require.ErrorAs(t, err, &unsched)
	assert.Equal(t, models.UnschedulableConflicts, unsched.Reason)
	assert.Empty(t, writer.assignments, "failed regeneration must not touch stored assignments")
}

func TestSchedulerSearchTimeout(t *testing.T) {
	fixture := newSchedulingFixture()
	data, err := loadDataset(context.Background(), fixture.groups, fixture.courses, fixture.teachers, fixture.classrooms, fixture.slots)
	require.NoError(t, err)

	search := newSearchState(data, time.Now().Add(-time.Second))
	_, err = search.run(context.Background())
	require.Error(t, err)

	var timeout *models.TimeoutError
	require.ErrorAs(t, err, &timeout)
	require.Len(t, timeout.Partial, 2)
	assert.Equal(t, 3, timeout.Partial[0].Required)
	assert.Equal(t, 0, timeout.Partial[0].Placed)
}
