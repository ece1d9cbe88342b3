package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

// AttendanceRepository manages attendance tokens and records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateToken inserts a new attendance token.
func (r *AttendanceRepository) CreateToken(ctx context.Context, exec sqlx.ExtContext, token *models.AttendanceToken) error {
	target := r.exec(exec)
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendance_tokens (id, student_id, nonce, issued_at, expires_at, consumed, consumed_at)
VALUES (:id, :student_id, :nonce, :issued_at, :expires_at, :consumed, :consumed_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, token); err != nil {
		return fmt.Errorf("create attendance token: %w", err)
	}
	return nil
}

// FindTokenByNonce fetches a token by its nonce.
func (r *AttendanceRepository) FindTokenByNonce(ctx context.Context, nonce string) (*models.AttendanceToken, error) {
	const query = `SELECT id, student_id, nonce, issued_at, expires_at, consumed, consumed_at FROM attendance_tokens WHERE nonce = $1`
	var token models.AttendanceToken
	if err := r.db.GetContext(ctx, &token, query, nonce); err != nil {
		return nil, err
	}
	return &token, nil
}

// ExpireActiveTokens force-expires every still-active token of a student by
// setting expires_at to now. A later scan of a superseded token reads as
// expired, not missing.
func (r *AttendanceRepository) ExpireActiveTokens(ctx context.Context, exec sqlx.ExtContext, studentID string, now time.Time) error {
	target := r.exec(exec)
	const query = `UPDATE attendance_tokens SET expires_at = $2 WHERE student_id = $1 AND consumed = FALSE AND expires_at > $2`
	if _, err := target.ExecContext(ctx, query, studentID, now); err != nil {
		return fmt.Errorf("expire active tokens: %w", err)
	}
	return nil
}

// ConsumeToken marks a token consumed at the given time.
func (r *AttendanceRepository) ConsumeToken(ctx context.Context, exec sqlx.ExtContext, tokenID string, now time.Time) error {
	target := r.exec(exec)
	const query = `UPDATE attendance_tokens SET consumed = TRUE, consumed_at = $2 WHERE id = $1`
	if _, err := target.ExecContext(ctx, query, tokenID, now); err != nil {
		return fmt.Errorf("consume attendance token: %w", err)
	}
	return nil
}

// FindRecord fetches the attendance record for a (student, instance) pair if
// one exists. sql.ErrNoRows passes through for the caller to interpret.
func (r *AttendanceRepository) FindRecord(ctx context.Context, studentID, instanceID string) (*models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, class_instance_id, status, marked_at, marked_by FROM attendance_records WHERE student_id = $1 AND class_instance_id = $2`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, instanceID); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateRecord inserts an attendance record.
func (r *AttendanceRepository) CreateRecord(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error {
	target := r.exec(exec)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendance_records (id, student_id, class_instance_id, status, marked_at, marked_by)
VALUES (:id, :student_id, :class_instance_id, :status, :marked_at, :marked_by)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, record); err != nil {
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// EnsureAbsent inserts an absent record for the pair unless any record
// already exists, and reports whether a row was written. The sweep relies on
// the conflict clause for idempotence.
func (r *AttendanceRepository) EnsureAbsent(ctx context.Context, exec sqlx.ExtContext, studentID, instanceID, markedBy string, now time.Time) (bool, error) {
	target := r.exec(exec)
	const query = `INSERT INTO attendance_records (id, student_id, class_instance_id, status, marked_at, marked_by)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, class_instance_id) DO NOTHING`
	res, err := target.ExecContext(ctx, query, uuid.NewString(), studentID, instanceID, models.AttendanceStatusAbsent, now, markedBy)
	if err != nil {
		return false, fmt.Errorf("ensure absent record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure absent record: %w", err)
	}
	return affected > 0, nil
}

// ListRecordsByInstance returns every record of a class instance.
func (r *AttendanceRepository) ListRecordsByInstance(ctx context.Context, instanceID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, class_instance_id, status, marked_at, marked_by FROM attendance_records WHERE class_instance_id = $1 ORDER BY marked_at ASC, id ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, instanceID); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// ListRecordsByStudent returns a student's records, newest first.
func (r *AttendanceRepository) ListRecordsByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, class_instance_id, status, marked_at, marked_by FROM attendance_records WHERE student_id = $1 ORDER BY marked_at DESC, id ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance records: %w", err)
	}
	return records, nil
}
