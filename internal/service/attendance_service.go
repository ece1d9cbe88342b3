package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

// SweepMarkedBy identifies absence records written by the sweep rather than
// by a person.
const SweepMarkedBy = "system:absence-sweep"

type attendanceRepository interface {
	CreateToken(ctx context.Context, exec sqlx.ExtContext, token *models.AttendanceToken) error
	FindTokenByNonce(ctx context.Context, nonce string) (*models.AttendanceToken, error)
	ExpireActiveTokens(ctx context.Context, exec sqlx.ExtContext, studentID string, now time.Time) error
	ConsumeToken(ctx context.Context, exec sqlx.ExtContext, tokenID string, now time.Time) error
	FindRecord(ctx context.Context, studentID, instanceID string) (*models.AttendanceRecord, error)
	CreateRecord(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error
	EnsureAbsent(ctx context.Context, exec sqlx.ExtContext, studentID, instanceID, markedBy string, now time.Time) (bool, error)
	ListRecordsByInstance(ctx context.Context, instanceID string) ([]models.AttendanceRecord, error)
	ListRecordsByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
}

type instanceDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassInstanceDetail, error)
	ListEndedBefore(ctx context.Context, cutoffDate time.Time, cutoffClock string) ([]models.ClassInstanceDetail, error)
}

type rosterReader interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	ListStudents(ctx context.Context, groupID string) ([]models.Student, error)
	IsTeacher(ctx context.Context, id string) (bool, error)
	CanMarkAttendance(ctx context.Context, id string) (bool, error)
}

// ScanCommand carries one scan attempt through the capture pipeline.
type ScanCommand struct {
	Nonce           string `validate:"required"`
	ClassInstanceID string `validate:"required"`
	MarkerID        string `validate:"required"`
}

// AttendanceService implements the token lifecycle, the scan pipeline and the
// absence sweep. Scans for the same (student, instance) pair are serialised
// through a keyed mutex so double-scans cannot race past the duplicate check.
type AttendanceService struct {
	tokens    attendanceRepository
	instances instanceDetailReader
	roster    rosterReader
	tx        txProvider
	validate  *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time

	locks sync.Map
}

// NewAttendanceService constructs the attendance engine.
func NewAttendanceService(tokens attendanceRepository, instances instanceDetailReader, roster rosterReader, tx txProvider, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, location *time.Location) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &AttendanceService{
		tokens:    tokens,
		instances: instances,
		roster:    roster,
		tx:        tx,
		validate:  validate,
		metrics:   metrics,
		logger:    logger,
		location:  location,
		now:       time.Now,
	}
}

// IssueToken mints a fresh single-use token for the student. Any still-active
// older token is force-expired first, so at most one token per student can
// ever be consumed.
func (s *AttendanceService) IssueToken(ctx context.Context, studentID string) (*models.AttendanceToken, error) {
	if _, err := s.roster.FindStudent(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "load student")
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generate token nonce")
	}

	now := s.now().UTC()
	token := &models.AttendanceToken{
		StudentID: studentID,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(models.AttendanceTokenTTL),
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "begin token transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.tokens.ExpireActiveTokens(ctx, tx, studentID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "expire previous tokens")
	}
	if err := s.tokens.CreateToken(ctx, tx, token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "store token")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "commit token transaction")
	}

	return token, nil
}

// TokenQR renders the token nonce as a QR code PNG.
func (s *AttendanceService) TokenQR(token *models.AttendanceToken, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(token.Nonce, qrcode.Medium, size)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render token qr")
	}
	return png, nil
}

// Scan validates a token against a class instance and records attendance.
// The checks run in a fixed order; the first failure wins and nothing is
// written. On success the record insert and the token consumption commit in
// one transaction.
func (s *AttendanceService) Scan(ctx context.Context, cmd ScanCommand) (*models.ScanResult, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}
	result, err := s.scan(ctx, cmd)
	s.metrics.ObserveScan(scanOutcomeLabel(result, err))
	return result, err
}

func (s *AttendanceService) scan(ctx context.Context, cmd ScanCommand) (*models.ScanResult, error) {
	instanceID, markerID := cmd.ClassInstanceID, cmd.MarkerID

	token, err := s.tokens.FindTokenByNonce(ctx, cmd.Nonce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTokenMissing
		}
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "load token")
	}

	unlock := s.lock(token.StudentID, instanceID)
	defer unlock()

	now := s.now()
	if token.Consumed {
		return nil, appErrors.ErrTokenConsumed
	}
	if !now.Before(token.ExpiresAt) {
		return nil, appErrors.ErrTokenExpired
	}

	student, err := s.roster.FindStudent(ctx, token.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "token student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "load student")
	}

	instance, err := s.instances.FindDetailByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class instance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "load class instance")
	}

	if err := s.authorizeMarker(ctx, markerID, instance); err != nil {
		return nil, err
	}

	if student.GroupID != instance.GroupID {
		return nil, appErrors.ErrWrongGroup
	}

	start, end, err := instance.Window(s.location)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve class window")
	}
	if now.Before(start) {
		return nil, appErrors.ErrNotYetStarted
	}
	if now.After(end) {
		return nil, appErrors.ErrEnded
	}

	if _, err := s.tokens.FindRecord(ctx, token.StudentID, instanceID); err == nil {
		return nil, appErrors.ErrAlreadyMarked
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "check existing record")
	}

	status := models.AttendanceStatusPresent
	minutesLate := 0
	if now.After(start.Add(models.AttendanceGracePeriod)) {
		status = models.AttendanceStatusLate
		minutesLate = int(now.Sub(start) / time.Minute)
	}

	record := &models.AttendanceRecord{
		StudentID:       token.StudentID,
		ClassInstanceID: instanceID,
		Status:          status,
		MarkedAt:        now.UTC(),
		MarkedBy:        markerID,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "begin scan transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.tokens.CreateRecord(ctx, tx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "store attendance record")
	}
	if err := s.tokens.ConsumeToken(ctx, tx, token.ID, now.UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "consume token")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "commit scan transaction")
	}

	return &models.ScanResult{Status: status, MinutesLate: minutesLate, RecordID: record.ID}, nil
}

// authorizeMarker accepts the teacher assigned to the class, or any identity
// the roster grants standing attendance-marking rights. Students cannot mark
// themselves; other teachers and arbitrary identities are refused.
func (s *AttendanceService) authorizeMarker(ctx context.Context, markerID string, instance *models.ClassInstanceDetail) error {
	if markerID == instance.TeacherID {
		isTeacher, err := s.roster.IsTeacher(ctx, markerID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "check marker identity")
		}
		if isTeacher {
			return nil
		}
	}
	allowed, err := s.roster.CanMarkAttendance(ctx, markerID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "check marker rights")
	}
	if allowed {
		return nil
	}
	return appErrors.ErrUnauthorizedMarker
}

// SweepAbsences marks every unrecorded student absent for instances that have
// already ended. The sweep is idempotent: a rerun writes nothing new, and
// present or late records are never overwritten.
func (s *AttendanceService) SweepAbsences(ctx context.Context) (int, error) {
	now := s.now().In(s.location)
	cutoffDate := dateOnly(now)
	cutoffClock := now.Format("15:04")

	ended, err := s.instances.ListEndedBefore(ctx, cutoffDate, cutoffClock)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list ended instances")
	}

	marked := 0
	for i := range ended {
		instance := &ended[i]
		students, err := s.roster.ListStudents(ctx, instance.GroupID)
		if err != nil {
			return marked, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list group students")
		}
		for _, student := range students {
			written, err := s.tokens.EnsureAbsent(ctx, nil, student.ID, instance.ID, SweepMarkedBy, now.UTC())
			if err != nil {
				return marked, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "mark absent")
			}
			if written {
				marked++
			}
		}
	}

	s.metrics.ObserveSweep(marked)
	if marked > 0 {
		s.logger.Info("absence sweep finished", zap.Int("marked", marked), zap.Int("instances", len(ended)))
	}
	return marked, nil
}

// InstanceRecords returns every attendance record of a class instance.
func (s *AttendanceService) InstanceRecords(ctx context.Context, instanceID string) ([]models.AttendanceRecord, error) {
	records, err := s.tokens.ListRecordsByInstance(ctx, instanceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list instance records")
	}
	return records, nil
}

// StudentRecords returns a student's attendance history, newest first.
func (s *AttendanceService) StudentRecords(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	records, err := s.tokens.ListRecordsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list student records")
	}
	return records, nil
}

// lock serialises work on a (student, instance) pair.
func (s *AttendanceService) lock(studentID, instanceID string) func() {
	key := studentID + "|" + instanceID
	val, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// newNonce returns 128 bits of randomness in URL-safe base64.
func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func scanOutcomeLabel(result *models.ScanResult, err error) string {
	if err == nil {
		if result != nil {
			return string(result.Status)
		}
		return "unknown"
	}
	if e := appErrors.FromError(err); e != nil {
		return e.Code
	}
	return "error"
}
