package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// Contract constants of the capture engine. These are frozen: changing
// either silently changes the meaning of recorded data.
const (
	// AttendanceGracePeriod is how long after slot start an arrival still
	// counts as present.
	AttendanceGracePeriod = 15 * time.Minute

	// AttendanceTokenTTL is the lifetime of an issued token.
	AttendanceTokenTTL = 24 * time.Hour
)

// AttendanceToken is a single-use, time-bounded credential tying a student
// to at most one scan. A student has at most one active token at a time.
type AttendanceToken struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	Nonce      string     `db:"nonce" json:"nonce"`
	IssuedAt   time.Time  `db:"issued_at" json:"issued_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	Consumed   bool       `db:"consumed" json:"consumed"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}

// Active reports whether the token can still be consumed at the given time.
// Expiry is inclusive: a token issued at T is dead at exactly T+TTL.
func (t *AttendanceToken) Active(now time.Time) bool {
	return !t.Consumed && now.Before(t.ExpiresAt)
}

// AttendanceRecord is the immutable outcome of a scan or an absence sweep.
// At most one record exists per (student, class-instance).
type AttendanceRecord struct {
	ID              string           `db:"id" json:"id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	ClassInstanceID string           `db:"class_instance_id" json:"class_instance_id"`
	Status          AttendanceStatus `db:"status" json:"status"`
	MarkedAt        time.Time        `db:"marked_at" json:"marked_at"`
	MarkedBy        string           `db:"marked_by" json:"marked_by"`
}

// ScanResult reports the outcome of a successful scan.
type ScanResult struct {
	Status      AttendanceStatus `json:"status"`
	MinutesLate int              `json:"minutes_late,omitempty"`
	RecordID    string           `json:"record_id"`
}
