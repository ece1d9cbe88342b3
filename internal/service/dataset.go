package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/acadops/timetable-api/internal/models"
)

type groupReader interface {
	List(ctx context.Context) ([]models.StudentGroup, error)
	ListEnrollments(ctx context.Context) ([]models.GroupCourse, error)
}

type courseReader interface {
	List(ctx context.Context) ([]models.Course, error)
}

type teacherReader interface {
	List(ctx context.Context) ([]models.Teacher, error)
}

type classroomReader interface {
	List(ctx context.Context) ([]models.Classroom, error)
}

type timeSlotReader interface {
	ListTeaching(ctx context.Context) ([]models.TimeSlot, error)
}

// timetableDataset is an in-memory snapshot of everything the analyser and
// the scheduler need. The slice orders are the canonical search orders and
// must not be reshuffled after loading.
type timetableDataset struct {
	groups       []models.StudentGroup
	courses      map[string]*models.Course
	groupCourses map[string][]*models.Course
	teachers     []models.Teacher
	classrooms   []models.Classroom
	slots        []models.TimeSlot
}

// loadDataset pulls the scheduling inputs and fixes their orders: groups by
// (department, year, semester, id), per-group courses by periods descending
// then code, rooms by (capacity, id), teachers and slots as the repositories
// return them.
func loadDataset(ctx context.Context, groups groupReader, courses courseReader, teachers teacherReader, classrooms classroomReader, slots timeSlotReader) (*timetableDataset, error) {
	groupList, err := groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	courseList, err := courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	enrollments, err := groups.ListEnrollments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load enrollments: %w", err)
	}
	teacherList, err := teachers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}
	roomList, err := classrooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load classrooms: %w", err)
	}
	slotList, err := slots.ListTeaching(ctx)
	if err != nil {
		return nil, fmt.Errorf("load time slots: %w", err)
	}

	courseByID := make(map[string]*models.Course, len(courseList))
	for i := range courseList {
		courseByID[courseList[i].ID] = &courseList[i]
	}

	groupCourses := make(map[string][]*models.Course, len(groupList))
	for _, link := range enrollments {
		course, ok := courseByID[link.CourseID]
		if !ok {
			return nil, fmt.Errorf("group %s enrolled in unknown course %s", link.GroupID, link.CourseID)
		}
		groupCourses[link.GroupID] = append(groupCourses[link.GroupID], course)
	}
	for groupID := range groupCourses {
		list := groupCourses[groupID]
		sort.Slice(list, func(i, j int) bool {
			if list[i].PeriodsPerWeek != list[j].PeriodsPerWeek {
				return list[i].PeriodsPerWeek > list[j].PeriodsPerWeek
			}
			return list[i].Code < list[j].Code
		})
	}

	return &timetableDataset{
		groups:       groupList,
		courses:      courseByID,
		groupCourses: groupCourses,
		teachers:     teacherList,
		classrooms:   roomList,
		slots:        slotList,
	}, nil
}

// requiredPeriods sums periods per week across all group enrollments.
func (d *timetableDataset) requiredPeriods() int {
	total := 0
	for _, group := range d.groups {
		for _, course := range d.groupCourses[group.ID] {
			total += course.PeriodsPerWeek
		}
	}
	return total
}

// groupPeriods sums periods per week for a single group.
func (d *timetableDataset) groupPeriods(groupID string) int {
	total := 0
	for _, course := range d.groupCourses[groupID] {
		total += course.PeriodsPerWeek
	}
	return total
}
