package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

type memAttendanceRepo struct {
	tokens  map[string]*models.AttendanceToken
	records map[string]*models.AttendanceRecord
	seq     int
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{
		tokens:  make(map[string]*models.AttendanceToken),
		records: make(map[string]*models.AttendanceRecord),
	}
}

func recordKey(studentID, instanceID string) string {
	return studentID + "|" + instanceID
}

func (r *memAttendanceRepo) CreateToken(ctx context.Context, exec sqlx.ExtContext, token *models.AttendanceToken) error {
	r.seq++
	if token.ID == "" {
		token.ID = fmt.Sprintf("tok-%d", r.seq)
	}
	copied := *token
	r.tokens[token.Nonce] = &copied
	return nil
}

func (r *memAttendanceRepo) FindTokenByNonce(ctx context.Context, nonce string) (*models.AttendanceToken, error) {
	token, ok := r.tokens[nonce]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *memAttendanceRepo) ExpireActiveTokens(ctx context.Context, exec sqlx.ExtContext, studentID string, now time.Time) error {
	for _, token := range r.tokens {
		if token.StudentID == studentID && !token.Consumed && token.ExpiresAt.After(now) {
			token.ExpiresAt = now
		}
	}
	return nil
}

func (r *memAttendanceRepo) ConsumeToken(ctx context.Context, exec sqlx.ExtContext, tokenID string, now time.Time) error {
	for _, token := range r.tokens {
		if token.ID == tokenID {
			token.Consumed = true
			consumedAt := now
			token.ConsumedAt = &consumedAt
		}
	}
	return nil
}

func (r *memAttendanceRepo) FindRecord(ctx context.Context, studentID, instanceID string) (*models.AttendanceRecord, error) {
	record, ok := r.records[recordKey(studentID, instanceID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (r *memAttendanceRepo) CreateRecord(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error {
	r.seq++
	if record.ID == "" {
		record.ID = fmt.Sprintf("rec-%d", r.seq)
	}
	copied := *record
	r.records[recordKey(record.StudentID, record.ClassInstanceID)] = &copied
	return nil
}

func (r *memAttendanceRepo) EnsureAbsent(ctx context.Context, exec sqlx.ExtContext, studentID, instanceID, markedBy string, now time.Time) (bool, error) {
	key := recordKey(studentID, instanceID)
	if _, ok := r.records[key]; ok {
		return false, nil
	}
	r.seq++
	r.records[key] = &models.AttendanceRecord{
		ID:              fmt.Sprintf("rec-%d", r.seq),
		StudentID:       studentID,
		ClassInstanceID: instanceID,
		Status:          models.AttendanceStatusAbsent,
		MarkedAt:        now,
		MarkedBy:        markedBy,
	}
	return true, nil
}

func (r *memAttendanceRepo) ListRecordsByInstance(ctx context.Context, instanceID string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, record := range r.records {
		if record.ClassInstanceID == instanceID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (r *memAttendanceRepo) ListRecordsByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, record := range r.records {
		if record.StudentID == studentID {
			out = append(out, *record)
		}
	}
	return out, nil
}

type stubInstanceDetails struct {
	instances map[string]*models.ClassInstanceDetail
	ended     []models.ClassInstanceDetail
}

func (s *stubInstanceDetails) FindDetailByID(ctx context.Context, id string) (*models.ClassInstanceDetail, error) {
	instance, ok := s.instances[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return instance, nil
}

func (s *stubInstanceDetails) ListEndedBefore(ctx context.Context, cutoffDate time.Time, cutoffClock string) ([]models.ClassInstanceDetail, error) {
	return s.ended, nil
}

type stubRoster struct {
	students map[string]models.Student
	teachers map[string]bool
	markers  map[string]bool
}

func (s *stubRoster) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (s *stubRoster) ListStudents(ctx context.Context, groupID string) ([]models.Student, error) {
	var out []models.Student
	for _, student := range s.students {
		if student.GroupID == groupID {
			out = append(out, student)
		}
	}
	return out, nil
}

func (s *stubRoster) IsTeacher(ctx context.Context, id string) (bool, error) {
	return s.teachers[id], nil
}

func (s *stubRoster) CanMarkAttendance(ctx context.Context, id string) (bool, error) {
	return s.markers[id], nil
}

type attendanceFixture struct {
	svc   *AttendanceService
	repo  *memAttendanceRepo
	inst  *stubInstanceDetails
	start time.Time
	end   time.Time
}

// newAttendanceFixture builds a Monday class 08:00-09:00 UTC on 2025-09-08
// for group g1 taught by t1, with students stu-1 (g1) and stu-2 (g2).
func newAttendanceFixture(t *testing.T, txExpectations int) *attendanceFixture {
	repo := newMemAttendanceRepo()
	classDate := time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)
	inst := &stubInstanceDetails{
		instances: map[string]*models.ClassInstanceDetail{
			"ci-1": {
				ClassInstance: models.ClassInstance{ID: "ci-1", AssignmentID: "a1", ClassDate: classDate},
				GroupID:       "g1",
				CourseID:      "c1",
				TeacherID:     "t1",
				ClassroomID:   "r1",
				TimeSlotID:    "s1",
				DayOfWeek:     "MONDAY",
				StartTime:     "08:00",
				EndTime:       "09:00",
			},
		},
	}
	roster := &stubRoster{
		students: map[string]models.Student{
			"stu-1": {ID: "stu-1", Name: "Student One", GroupID: "g1"},
			"stu-2": {ID: "stu-2", Name: "Student Two", GroupID: "g2"},
		},
		teachers: map[string]bool{"t1": true, "t2": true},
		markers:  map[string]bool{"registrar-1": true},
	}

	tx, mock := newTxProviderMock(t)
	for i := 0; i < txExpectations; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	svc := NewAttendanceService(repo, inst, roster, tx, nil, nil, nil, time.UTC)
	return &attendanceFixture{
		svc:   svc,
		repo:  repo,
		inst:  inst,
		start: time.Date(2025, 9, 8, 8, 0, 0, 0, time.UTC),
		end:   time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC),
	}
}

func (f *attendanceFixture) issue(t *testing.T, studentID string, at time.Time) *models.AttendanceToken {
	t.Helper()
	f.svc.now = func() time.Time { return at }
	token, err := f.svc.IssueToken(context.Background(), studentID)
	require.NoError(t, err)
	return token
}

func (f *attendanceFixture) scan(nonce, markerID string) (*models.ScanResult, error) {
	return f.svc.Scan(context.Background(), ScanCommand{
		Nonce:           nonce,
		ClassInstanceID: "ci-1",
		MarkerID:        markerID,
	})
}

func TestAttendanceScanRejectsEmptyCommand(t *testing.T) {
	f := newAttendanceFixture(t, 0)
	_, err := f.svc.Scan(context.Background(), ScanCommand{Nonce: "n"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceScanPresentAtGraceBoundary(t *testing.T) {
	f := newAttendanceFixture(t, 2)
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))

	// Exactly start+15m still counts as present.
	f.svc.now = func() time.Time { return f.start.Add(models.AttendanceGracePeriod) }
	result, err := f.scan(token.Nonce, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, result.Status)
	assert.Equal(t, 0, result.MinutesLate)

	stored, err := f.repo.FindRecord(context.Background(), "stu-1", "ci-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, stored.Status)
}

func TestAttendanceScanLate(t *testing.T) {
	f := newAttendanceFixture(t, 2)
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))

	f.svc.now = func() time.Time { return f.start.Add(16*time.Minute + 30*time.Second) }
	result, err := f.scan(token.Nonce, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, result.Status)
	assert.Equal(t, 16, result.MinutesLate, "minutes late round down")
}

func TestAttendanceScanWindow(t *testing.T) {
	f := newAttendanceFixture(t, 2)
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))

	f.svc.now = func() time.Time { return f.start.Add(-time.Minute) }
	_, err := f.scan(token.Nonce, "t1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotYetStarted))

	f.svc.now = func() time.Time { return f.end.Add(time.Minute) }
	_, err = f.scan(token.Nonce, "t1")
	assert.True(t, appErrors.Is(err, appErrors.ErrEnded))

	// The failed scans must not have burned the token.
	stored, err := f.repo.FindTokenByNonce(context.Background(), token.Nonce)
	require.NoError(t, err)
	assert.False(t, stored.Consumed)
}

func TestAttendanceScanTokenLifecycle(t *testing.T) {
	f := newAttendanceFixture(t, 3)
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))

	f.svc.now = func() time.Time { return f.start }
	_, err := f.scan("no-such-nonce", "t1")
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenMissing))

	// Exactly issued+TTL is already expired.
	f.svc.now = func() time.Time { return token.ExpiresAt }
	_, err = f.scan(token.Nonce, "t1")
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenExpired))

	fresh := f.issue(t, "stu-1", f.start.Add(-30*time.Minute))
	f.svc.now = func() time.Time { return f.start }
	_, err = f.scan(fresh.Nonce, "t1")
	require.NoError(t, err)

	_, err = f.scan(fresh.Nonce, "t1")
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenConsumed))
}

func TestAttendanceIssueSupersedesPreviousToken(t *testing.T) {
	f := newAttendanceFixture(t, 2)
	first := f.issue(t, "stu-1", f.start.Add(-time.Hour))
	_ = f.issue(t, "stu-1", f.start.Add(-30*time.Minute))

	// The superseded token now reads as expired, not missing.
	f.svc.now = func() time.Time { return f.start }
	_, err := f.scan(first.Nonce, "t1")
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenExpired))
}

func TestAttendanceScanWrongGroup(t *testing.T) {
	f := newAttendanceFixture(t, 1)
	token := f.issue(t, "stu-2", f.start.Add(-time.Hour))

	f.svc.now = func() time.Time { return f.start }
	_, err := f.scan(token.Nonce, "t1")
	assert.True(t, appErrors.Is(err, appErrors.ErrWrongGroup))
}

func TestAttendanceScanMarkerAuthorization(t *testing.T) {
	f := newAttendanceFixture(t, 2)
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))
	f.svc.now = func() time.Time { return f.start }

	// A random identity cannot mark, a teacher not assigned to the class
	// cannot, and the student cannot mark themselves.
	_, err := f.scan(token.Nonce, "someone-else")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorizedMarker))
	_, err = f.scan(token.Nonce, "t2")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorizedMarker))
	_, err = f.scan(token.Nonce, "stu-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorizedMarker))

	// The assigned teacher can.
	result, err := f.scan(token.Nonce, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, result.Status)

	stored, err := f.repo.FindRecord(context.Background(), "stu-1", "ci-1")
	require.NoError(t, err)
	assert.Equal(t, "t1", stored.MarkedBy)
}

func TestAttendanceScanRosterAuthorizedMarker(t *testing.T) {
	f := newAttendanceFixture(t, 2)
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))

	// An identity with standing marking rights may record for a class it
	// does not teach.
	f.svc.now = func() time.Time { return f.start }
	result, err := f.scan(token.Nonce, "registrar-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, result.Status)

	stored, err := f.repo.FindRecord(context.Background(), "stu-1", "ci-1")
	require.NoError(t, err)
	assert.Equal(t, "registrar-1", stored.MarkedBy)
}

func TestAttendanceScanAuthorizationPrecedesGroupCheck(t *testing.T) {
	f := newAttendanceFixture(t, 1)
	token := f.issue(t, "stu-2", f.start.Add(-time.Hour))

	// An unauthorised marker scanning a wrong-group student reads as the
	// marker failure, not the membership one.
	f.svc.now = func() time.Time { return f.start }
	_, err := f.scan(token.Nonce, "someone-else")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorizedMarker))
}

func TestAttendanceScanUnknownTokenStudent(t *testing.T) {
	f := newAttendanceFixture(t, 1)
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))
	roster := f.svc.roster.(*stubRoster)
	delete(roster.students, "stu-1")

	f.svc.now = func() time.Time { return f.start }
	_, err := f.scan(token.Nonce, "t1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAttendanceScanAlreadyMarked(t *testing.T) {
	f := newAttendanceFixture(t, 3)
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))

	f.svc.now = func() time.Time { return f.start }
	_, err := f.scan(token.Nonce, "t1")
	require.NoError(t, err)

	// A second token cannot produce a second record for the same class.
	second := f.issue(t, "stu-1", f.start.Add(5*time.Minute))
	f.svc.now = func() time.Time { return f.start.Add(10 * time.Minute) }
	_, err = f.scan(second.Nonce, "t1")
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyMarked))
}

func TestAttendanceSweepIdempotent(t *testing.T) {
	f := newAttendanceFixture(t, 2)
	instance := f.inst.instances["ci-1"]
	f.inst.ended = []models.ClassInstanceDetail{*instance}

	// stu-1 scanned during class; stu-3 (also g1) never did.
	roster := f.svc.roster.(*stubRoster)
	roster.students["stu-3"] = models.Student{ID: "stu-3", Name: "Student Three", GroupID: "g1"}
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))
	f.svc.now = func() time.Time { return f.start }
	_, err := f.scan(token.Nonce, "t1")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return f.end.Add(time.Hour) }
	marked, err := f.svc.SweepAbsences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	record, err := f.repo.FindRecord(context.Background(), "stu-3", "ci-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, record.Status)
	assert.Equal(t, SweepMarkedBy, record.MarkedBy)

	// The scanned student keeps their present record.
	present, err := f.repo.FindRecord(context.Background(), "stu-1", "ci-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, present.Status)

	// A rerun writes nothing new.
	marked, err = f.svc.SweepAbsences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
}

func TestAttendanceTokenQR(t *testing.T) {
	f := newAttendanceFixture(t, 1)
	token := f.issue(t, "stu-1", f.start.Add(-time.Hour))

	png, err := f.svc.TokenQR(token, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
