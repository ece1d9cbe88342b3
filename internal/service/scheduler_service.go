package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

type assignmentWriter interface {
	ReplaceForGroups(ctx context.Context, exec sqlx.ExtContext, groupIDs []string, assignments []models.Assignment) error
	BumpGeneration(ctx context.Context, exec sqlx.ExtContext) (int64, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type feasibilityChecker interface {
	Analyze(ctx context.Context) (*models.FeasibilityReport, error)
}

// SchedulerService owns timetable regeneration: feasibility gate, the
// deterministic back-tracking search, and the transactional commit. One
// regeneration runs at a time.
type SchedulerService struct {
	groups      groupReader
	courses     courseReader
	teachers    teacherReader
	classrooms  classroomReader
	slots       timeSlotReader
	feasibility feasibilityChecker
	assignments assignmentWriter
	tx          txProvider
	cache       cacheInvalidator
	metrics     *MetricsService
	logger      *zap.Logger

	deadline time.Duration
	mu       sync.Mutex
}

// SchedulerConfig governs search behaviour.
type SchedulerConfig struct {
	Deadline time.Duration
}

// NewSchedulerService wires the scheduler dependencies.
func NewSchedulerService(
	groups groupReader,
	courses courseReader,
	teachers teacherReader,
	classrooms classroomReader,
	slots timeSlotReader,
	feasibility feasibilityChecker,
	assignments assignmentWriter,
	tx txProvider,
	cache cacheInvalidator,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg SchedulerConfig,
) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 10 * time.Second
	}
	return &SchedulerService{
		groups:      groups,
		courses:     courses,
		teachers:    teachers,
		classrooms:  classrooms,
		slots:       slots,
		feasibility: feasibility,
		assignments: assignments,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		deadline:    cfg.Deadline,
	}
}

// Regenerate rebuilds the full timetable. The previous assignments stay in
// place until the new set commits; infeasibility, exhaustion and timeouts
// leave the repository untouched.
func (s *SchedulerService) Regenerate(ctx context.Context) (*models.RegenerateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()

	report, err := s.feasibility.Analyze(ctx)
	if err != nil {
		s.metrics.ObserveRegeneration("error", time.Since(started), 0)
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "load scheduling inputs")
	}
	if !report.Feasible {
		s.metrics.ObserveRegeneration("infeasible", time.Since(started), 0)
		return nil, appErrors.Wrap(&infeasibleError{report: report}, appErrors.ErrInfeasible.Code, appErrors.ErrInfeasible.Status, report.Detail)
	}

	data, err := loadDataset(ctx, s.groups, s.courses, s.teachers, s.classrooms, s.slots)
	if err != nil {
		s.metrics.ObserveRegeneration("error", time.Since(started), 0)
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "load scheduling inputs")
	}

	search := newSearchState(data, started.Add(s.deadline))
	assignments, err := search.run(ctx)
	if err != nil {
		switch e := err.(type) {
		case *models.TimeoutError:
			s.metrics.ObserveRegeneration("timeout", time.Since(started), search.backtracks)
			return nil, appErrors.Wrap(e, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
		case *models.UnschedulableError:
			s.metrics.ObserveRegeneration("unschedulable", time.Since(started), search.backtracks)
			return nil, appErrors.Wrap(e, appErrors.ErrUnschedulable.Code, appErrors.ErrUnschedulable.Status, e.Error())
		default:
			s.metrics.ObserveRegeneration("error", time.Since(started), search.backtracks)
			return nil, err
		}
	}

	generation, err := s.commit(ctx, data, assignments)
	if err != nil {
		s.metrics.ObserveRegeneration("error", time.Since(started), search.backtracks)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
			s.logger.Warn("invalidate timetable cache", zap.Error(err))
		}
	}

	s.metrics.ObserveRegeneration("success", time.Since(started), search.backtracks)
	s.logger.Info("timetable regenerated",
		zap.Int("assignments", len(assignments)),
		zap.Int64("generation", generation),
		zap.Int("backtracks", search.backtracks),
		zap.Duration("elapsed", time.Since(started)))

	return &models.RegenerateResult{AssignmentCount: len(assignments), Generation: generation}, nil
}

func (s *SchedulerService) commit(ctx context.Context, data *timetableDataset, assignments []models.Assignment) (int64, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "begin timetable transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	groupIDs := make([]string, 0, len(data.groups))
	for _, group := range data.groups {
		groupIDs = append(groupIDs, group.ID)
	}

	if err := s.assignments.ReplaceForGroups(ctx, tx, groupIDs, assignments); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "replace assignments")
	}
	generation, err := s.assignments.BumpGeneration(ctx, tx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "bump timetable generation")
	}
	if err := tx.Commit(); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "commit timetable transaction")
	}
	return generation, nil
}

// infeasibleError adapts a feasibility report into an error chain.
type infeasibleError struct {
	report *models.FeasibilityReport
}

func (e *infeasibleError) Error() string {
	return string(e.report.Reason) + ": " + e.report.Detail
}

// Report exposes the underlying feasibility verdict.
func (e *infeasibleError) Report() *models.FeasibilityReport {
	return e.report
}

// searchUnit is one period of one course for one group. Units are searched in
// a fixed order so identical inputs always yield identical timetables.
type searchUnit struct {
	group  *models.StudentGroup
	course *models.Course
	period int
}

// searchState carries the occupancy maps of the depth-first search. Keys are
// slot IDs; group occupancy is keyed by group then slot.
type searchState struct {
	data     *timetableDataset
	units    []searchUnit
	deadline time.Time

	roomBusy    map[string]map[string]bool
	teacherBusy map[string]map[string]bool
	groupBusy   map[string]map[string]bool

	chosen     []models.Assignment
	backtracks int

	// Deepest failure seen, for the exhaustion diagnosis.
	failDepth  int
	failReason models.UnschedulableReason
}

func newSearchState(data *timetableDataset, deadline time.Time) *searchState {
	var units []searchUnit
	for i := range data.groups {
		group := &data.groups[i]
		for _, course := range data.groupCourses[group.ID] {
			for p := 0; p < course.PeriodsPerWeek; p++ {
				units = append(units, searchUnit{group: group, course: course, period: p})
			}
		}
	}
	return &searchState{
		data:        data,
		units:       units,
		deadline:    deadline,
		roomBusy:    make(map[string]map[string]bool),
		teacherBusy: make(map[string]map[string]bool),
		groupBusy:   make(map[string]map[string]bool),
		failDepth:   -1,
	}
}

func (st *searchState) run(ctx context.Context) ([]models.Assignment, error) {
	ok, err := st.place(ctx, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		unit := st.units[0]
		reason := models.UnschedulableConflicts
		if st.failDepth >= 0 {
			unit = st.units[st.failDepth]
			reason = st.failReason
		}
		return nil, &models.UnschedulableError{GroupID: unit.group.ID, CourseID: unit.course.ID, Reason: reason}
	}
	return st.chosen, nil
}

// place tries every (slot, room, teacher) combination for the unit at depth
// in canonical order and recurses. It returns false when the subtree is
// exhausted, or a TimeoutError once the deadline passes.
func (st *searchState) place(ctx context.Context, depth int) (bool, error) {
	if depth == len(st.units) {
		return true, nil
	}
	if time.Now().After(st.deadline) {
		return false, &models.TimeoutError{Deadline: st.deadline, Partial: st.partial()}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	unit := st.units[depth]
	triedSlot := false
	triedRoom := false
	triedTeacher := false

	for si := range st.data.slots {
		slot := &st.data.slots[si]
		if st.groupBusy[unit.group.ID][slot.ID] {
			continue
		}
		triedSlot = true

		for ri := range st.data.classrooms {
			room := &st.data.classrooms[ri]
			if !room.Fits(unit.course) {
				continue
			}
			triedRoom = true
			if st.roomBusy[room.ID][slot.ID] {
				continue
			}

			for ti := range st.data.teachers {
				teacher := &st.data.teachers[ti]
				if !teacher.EligibleFor(unit.course) {
					continue
				}
				triedTeacher = true
				if st.teacherBusy[teacher.ID][slot.ID] {
					continue
				}

				st.occupy(unit.group.ID, room.ID, teacher.ID, slot.ID)
				st.chosen = append(st.chosen, models.Assignment{
					GroupID:     unit.group.ID,
					CourseID:    unit.course.ID,
					TeacherID:   teacher.ID,
					ClassroomID: room.ID,
					TimeSlotID:  slot.ID,
				})

				ok, err := st.place(ctx, depth+1)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}

				st.chosen = st.chosen[:len(st.chosen)-1]
				st.release(unit.group.ID, room.ID, teacher.ID, slot.ID)
				st.backtracks++
			}
		}
	}

	st.noteFailure(depth, triedSlot, triedRoom, triedTeacher)
	return false, nil
}

func (st *searchState) noteFailure(depth int, triedSlot, triedRoom, triedTeacher bool) {
	if depth <= st.failDepth {
		return
	}
	st.failDepth = depth
	switch {
	case !triedSlot:
		st.failReason = models.UnschedulableNoFreeSlots
	case !triedRoom:
		st.failReason = models.UnschedulableNoRoomFits
	case !triedTeacher:
		st.failReason = models.UnschedulableNoTeacherFits
	default:
		st.failReason = models.UnschedulableConflicts
	}
}

func (st *searchState) occupy(groupID, roomID, teacherID, slotID string) {
	markBusy(st.groupBusy, groupID, slotID)
	markBusy(st.roomBusy, roomID, slotID)
	markBusy(st.teacherBusy, teacherID, slotID)
}

func (st *searchState) release(groupID, roomID, teacherID, slotID string) {
	delete(st.groupBusy[groupID], slotID)
	delete(st.roomBusy[roomID], slotID)
	delete(st.teacherBusy[teacherID], slotID)
}

func markBusy(m map[string]map[string]bool, key, slotID string) {
	if m[key] == nil {
		m[key] = make(map[string]bool)
	}
	m[key][slotID] = true
}

// partial reports per-group progress of the current stack for timeout errors.
func (st *searchState) partial() []models.GroupPlacement {
	placed := make(map[string]int)
	for _, a := range st.chosen {
		placed[a.GroupID]++
	}
	out := make([]models.GroupPlacement, 0, len(st.data.groups))
	for _, group := range st.data.groups {
		out = append(out, models.GroupPlacement{
			GroupID:  group.ID,
			Placed:   placed[group.ID],
			Required: st.data.groupPeriods(group.ID),
		})
	}
	return out
}
