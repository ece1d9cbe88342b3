package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

type assignmentDetailReader interface {
	ListDetails(ctx context.Context) ([]models.AssignmentDetail, error)
	Generation(ctx context.Context) (int64, error)
}

type instanceStore interface {
	EnsureBatch(ctx context.Context, instances []models.ClassInstance) error
	ListDetailsByRange(ctx context.Context, from, to time.Time, scope models.InstanceScope) ([]models.ClassInstanceDetail, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassInstanceDetail, error)
}

type calendarReader interface {
	ListYears(ctx context.Context) ([]models.AcademicYear, error)
	ListSessions(ctx context.Context, yearID string) ([]models.AcademicSession, error)
	ListHolidays(ctx context.Context, yearID string) ([]models.Holiday, error)
}

type studentResolver interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
}

type instanceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// InstanceService materialises weekly assignments onto concrete calendar
// dates. Materialisation is lazy and idempotent: instances are created on
// first demand and never duplicated or rewritten afterwards.
type InstanceService struct {
	assignments assignmentDetailReader
	instances   instanceStore
	calendar    calendarReader
	students    studentResolver
	cache       instanceCache
	metrics     *MetricsService
	logger      *zap.Logger
	cacheTTL    time.Duration
}

// InstanceConfig governs materialisation behaviour.
type InstanceConfig struct {
	CacheTTL time.Duration
}

// NewInstanceService wires the materialiser.
func NewInstanceService(assignments assignmentDetailReader, instances instanceStore, calendar calendarReader, students studentResolver, cache instanceCache, metrics *MetricsService, logger *zap.Logger, cfg InstanceConfig) *InstanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &InstanceService{
		assignments: assignments,
		instances:   instances,
		calendar:    calendar,
		students:    students,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		cacheTTL:    cfg.CacheTTL,
	}
}

// MaterialiseRange returns the class instances falling in the half-open date
// range [from, to) for the given scope, creating missing rows first. Cached
// payloads are keyed by the timetable generation, so a committed
// regeneration makes every older entry unreachable without explicit purges.
func (s *InstanceService) MaterialiseRange(ctx context.Context, from, to time.Time, scope models.InstanceScope) ([]models.ClassInstanceDetail, error) {
	if !from.Before(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range start must precede its end")
	}

	scope, err := s.resolveScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	generation, err := s.assignments.Generation(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "read timetable generation")
	}

	key := fmt.Sprintf("timetable:instances:g%d:%s:%s:%s:%s",
		generation, from.Format("2006-01-02"), to.Format("2006-01-02"), scope.Kind, scope.ID)

	if s.cache != nil {
		var cached []models.ClassInstanceDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.ObserveCache(true)
			return cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("instance cache read", zap.Error(err))
		}
		s.metrics.ObserveCache(false)
	}

	if err := s.ensureRange(ctx, from, to, scope); err != nil {
		return nil, err
	}

	details, err := s.instances.ListDetailsByRange(ctx, from, to, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list class instances")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, details, s.cacheTTL); err != nil {
			s.logger.Warn("instance cache write", zap.Error(err))
		}
	}
	return details, nil
}

// FindDetail fetches one instance with its slot context.
func (s *InstanceService) FindDetail(ctx context.Context, id string) (*models.ClassInstanceDetail, error) {
	detail, err := s.instances.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "class instance not found")
	}
	return detail, nil
}

// resolveScope narrows a student scope to the student's group.
func (s *InstanceService) resolveScope(ctx context.Context, scope models.InstanceScope) (models.InstanceScope, error) {
	if scope.Kind != models.ScopeStudent {
		return scope, nil
	}
	student, err := s.students.FindStudent(ctx, scope.ID)
	if err != nil {
		return scope, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "student not found")
	}
	return models.InstanceScope{Kind: models.ScopeGroup, ID: student.GroupID}, nil
}

// ensureRange walks each date in the range and persists an instance for every
// assignment whose slot recurs on a teachable date. A date is teachable when
// an active academic year covers it, a session of that year covers it, and no
// holiday of that year covers it.
func (s *InstanceService) ensureRange(ctx context.Context, from, to time.Time, scope models.InstanceScope) error {
	details, err := s.assignments.ListDetails(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list assignments")
	}
	if len(details) == 0 {
		return nil
	}

	years, err := s.calendar.ListYears(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list academic years")
	}

	sessionsByYear := make(map[string][]models.AcademicSession)
	holidaysByYear := make(map[string][]models.Holiday)
	for _, year := range years {
		if !year.IsActive {
			continue
		}
		sessions, err := s.calendar.ListSessions(ctx, year.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list academic sessions")
		}
		holidays, err := s.calendar.ListHolidays(ctx, year.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list holidays")
		}
		sessionsByYear[year.ID] = sessions
		holidaysByYear[year.ID] = holidays
	}

	var pending []models.ClassInstance
	for date := dateOnly(from); date.Before(to); date = date.AddDate(0, 0, 1) {
		if !teachableOn(date, years, sessionsByYear, holidaysByYear) {
			continue
		}
		for i := range details {
			detail := &details[i]
			if !inScope(detail, scope) {
				continue
			}
			slot := models.TimeSlot{ID: detail.TimeSlotID, DayOfWeek: detail.DayOfWeek, StartTime: detail.StartTime, EndTime: detail.EndTime}
			if !slot.MatchesDate(date) {
				continue
			}
			pending = append(pending, models.ClassInstance{AssignmentID: detail.ID, ClassDate: date})
		}
	}

	if err := s.instances.EnsureBatch(ctx, pending); err != nil {
		return appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "materialise class instances")
	}
	return nil
}

func inScope(detail *models.AssignmentDetail, scope models.InstanceScope) bool {
	switch scope.Kind {
	case models.ScopeGroup:
		return detail.GroupID == scope.ID
	case models.ScopeTeacher:
		return detail.TeacherID == scope.ID
	default:
		return true
	}
}

func teachableOn(date time.Time, years []models.AcademicYear, sessionsByYear map[string][]models.AcademicSession, holidaysByYear map[string][]models.Holiday) bool {
	for i := range years {
		year := &years[i]
		if !year.IsActive || !year.Covers(date) {
			continue
		}
		inSession := false
		for _, session := range sessionsByYear[year.ID] {
			if session.Covers(date) {
				inSession = true
				break
			}
		}
		if !inSession {
			return false
		}
		for _, holiday := range holidaysByYear[year.ID] {
			if holiday.Covers(date) {
				return false
			}
		}
		return true
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
