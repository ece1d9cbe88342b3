package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/models"
)

// FeasibilityService runs the cheap necessary-condition checks that precede
// the back-tracking search. A feasible verdict does not guarantee a solution
// exists; an infeasible one guarantees the search would fail, so the
// scheduler refuses to start.
type FeasibilityService struct {
	groups     groupReader
	courses    courseReader
	teachers   teacherReader
	classrooms classroomReader
	slots      timeSlotReader
	logger     *zap.Logger
}

// NewFeasibilityService constructs the feasibility analyser.
func NewFeasibilityService(groups groupReader, courses courseReader, teachers teacherReader, classrooms classroomReader, slots timeSlotReader, logger *zap.Logger) *FeasibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeasibilityService{
		groups:     groups,
		courses:    courses,
		teachers:   teachers,
		classrooms: classrooms,
		slots:      slots,
		logger:     logger,
	}
}

// Analyze loads the scheduling inputs and returns the first failed condition,
// or a feasible report when every check passes. Checks run in a fixed order
// so the same data always yields the same verdict.
func (s *FeasibilityService) Analyze(ctx context.Context) (*models.FeasibilityReport, error) {
	data, err := loadDataset(ctx, s.groups, s.courses, s.teachers, s.classrooms, s.slots)
	if err != nil {
		return nil, err
	}
	report := s.analyze(data)
	if !report.Feasible {
		s.logger.Info("timetable infeasible",
			zap.String("reason", string(report.Reason)),
			zap.String("detail", report.Detail))
	}
	return report, nil
}

func (s *FeasibilityService) analyze(data *timetableDataset) *models.FeasibilityReport {
	if len(data.groups) == 0 {
		return infeasible(models.FeasibilityReasonCensus, "no student groups exist", nil)
	}
	if len(data.courses) == 0 {
		return infeasible(models.FeasibilityReasonCensus, "no courses exist", nil)
	}
	if len(data.teachers) == 0 {
		return infeasible(models.FeasibilityReasonCensus, "no teachers exist", nil)
	}
	if len(data.classrooms) == 0 {
		return infeasible(models.FeasibilityReasonCensus, "no classrooms exist", nil)
	}
	if len(data.slots) == 0 {
		return infeasible(models.FeasibilityReasonCensus, "no teaching time slots exist", nil)
	}

	required := data.requiredPeriods()

	for _, group := range data.groups {
		if len(data.groupCourses[group.ID]) == 0 {
			return infeasible(models.FeasibilityReasonCoverage,
				fmt.Sprintf("group %s has no enrolled courses", group.Name),
				&models.EntityRef{Kind: "group", ID: group.ID})
		}
	}

	for _, course := range orderedCourses(data) {
		if !anyRoomWithCapacity(data.classrooms, course) {
			return infeasible(models.FeasibilityReasonCapacity,
				fmt.Sprintf("no classroom holds %d students for course %s", course.MinCapacity, course.Code),
				&models.EntityRef{Kind: "course", ID: course.ID})
		}
		if !anyRoomFits(data.classrooms, course) {
			return infeasible(models.FeasibilityReasonEquipment,
				fmt.Sprintf("no classroom carries the equipment for course %s", course.Code),
				&models.EntityRef{Kind: "course", ID: course.ID})
		}
		if !anyTeacherEligible(data.teachers, course) {
			return infeasible(models.FeasibilityReasonQualification,
				fmt.Sprintf("no teacher is qualified for course %s", course.Code),
				&models.EntityRef{Kind: "course", ID: course.ID})
		}
	}

	if budget := len(data.slots) * len(data.classrooms); required > budget {
		return infeasible(models.FeasibilityReasonSlotBudget,
			fmt.Sprintf("%d periods required but only %d slot-room pairs exist", required, budget),
			nil)
	}

	for _, group := range data.groups {
		if periods := data.groupPeriods(group.ID); periods > len(data.slots) {
			return infeasible(models.FeasibilityReasonGroupBudget,
				fmt.Sprintf("group %s needs %d periods but the week has %d teaching slots", group.Name, periods, len(data.slots)),
				&models.EntityRef{Kind: "group", ID: group.ID})
		}
	}

	return &models.FeasibilityReport{Feasible: true}
}

// Utilisation summarises the scheduling inputs for operators without running
// a full analysis.
func (s *FeasibilityService) Utilisation(ctx context.Context) (*models.ConstraintAnalysis, error) {
	data, err := loadDataset(ctx, s.groups, s.courses, s.teachers, s.classrooms, s.slots)
	if err != nil {
		return nil, err
	}

	required := data.requiredPeriods()
	analysis := &models.ConstraintAnalysis{
		Groups:          len(data.groups),
		Courses:         len(data.courses),
		Teachers:        len(data.teachers),
		Classrooms:      len(data.classrooms),
		TeachingSlots:   len(data.slots),
		RequiredPeriods: required,
	}
	if budget := len(data.slots) * len(data.classrooms); budget > 0 {
		analysis.RoomUtilisation = float64(required) / float64(budget)
	}
	if len(data.slots) > 0 && len(data.groups) > 0 {
		analysis.SlotUtilisation = float64(required) / float64(len(data.slots)*len(data.groups))
	}
	return analysis, nil
}

func infeasible(reason models.FeasibilityReason, detail string, ref *models.EntityRef) *models.FeasibilityReport {
	return &models.FeasibilityReport{Feasible: false, Reason: reason, Detail: detail, EntityRef: ref}
}

// orderedCourses walks courses in the deterministic per-group order so the
// reported failing entity is stable across runs.
func orderedCourses(data *timetableDataset) []*models.Course {
	seen := make(map[string]bool, len(data.courses))
	var out []*models.Course
	for _, group := range data.groups {
		for _, course := range data.groupCourses[group.ID] {
			if !seen[course.ID] {
				seen[course.ID] = true
				out = append(out, course)
			}
		}
	}
	return out
}

func anyRoomWithCapacity(rooms []models.Classroom, course *models.Course) bool {
	for i := range rooms {
		if rooms[i].Capacity >= course.MinCapacity {
			return true
		}
	}
	return false
}

func anyRoomFits(rooms []models.Classroom, course *models.Course) bool {
	for i := range rooms {
		if rooms[i].Fits(course) {
			return true
		}
	}
	return false
}

func anyTeacherEligible(teachers []models.Teacher, course *models.Course) bool {
	for i := range teachers {
		if teachers[i].EligibleFor(course) {
			return true
		}
	}
	return false
}
