package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

const instanceDetailColumns = `ci.id, ci.assignment_id, ci.class_date, ci.created_at,
a.group_id, a.course_id, a.teacher_id, a.classroom_id, a.time_slot_id,
s.day_of_week, s.start_time, s.end_time`

const instanceDetailJoins = `FROM class_instances ci
JOIN assignments a ON a.id = ci.assignment_id
JOIN time_slots s ON s.id = a.time_slot_id`

// InstanceRepository manages persistence for materialised class instances.
type InstanceRepository struct {
	db *sqlx.DB
}

// NewInstanceRepository constructs an InstanceRepository.
func NewInstanceRepository(db *sqlx.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// EnsureBatch inserts the given (assignment, date) instances, skipping rows
// that already exist. Re-running materialisation never duplicates instances
// and never disturbs attendance hanging off existing ones.
func (r *InstanceRepository) EnsureBatch(ctx context.Context, instances []models.ClassInstance) error {
	if len(instances) == 0 {
		return nil
	}
	now := time.Now().UTC()
	const query = `INSERT INTO class_instances (id, assignment_id, class_date, created_at)
VALUES (:id, :assignment_id, :class_date, :created_at)
ON CONFLICT (assignment_id, class_date) DO NOTHING`
	for i := range instances {
		inst := &instances[i]
		if inst.ID == "" {
			inst.ID = uuid.NewString()
		}
		if inst.CreatedAt.IsZero() {
			inst.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, r.db, query, inst); err != nil {
			return fmt.Errorf("ensure class instance: %w", err)
		}
	}
	return nil
}

// ListDetailsByRange returns instance details whose date falls in the
// half-open range [from, to), optionally narrowed to a group or teacher.
func (r *InstanceRepository) ListDetailsByRange(ctx context.Context, from, to time.Time, scope models.InstanceScope) ([]models.ClassInstanceDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE ci.class_date >= $1 AND ci.class_date < $2", instanceDetailColumns, instanceDetailJoins)
	args := []interface{}{from, to}

	switch scope.Kind {
	case models.ScopeGroup:
		query += " AND a.group_id = $3"
		args = append(args, scope.ID)
	case models.ScopeTeacher:
		query += " AND a.teacher_id = $3"
		args = append(args, scope.ID)
	}
	query += " ORDER BY ci.class_date ASC, s.start_time ASC, ci.id ASC"

	var details []models.ClassInstanceDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list class instances: %w", err)
	}
	return details, nil
}

// FindDetailByID fetches one instance with its assignment and slot context.
func (r *InstanceRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassInstanceDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE ci.id = $1", instanceDetailColumns, instanceDetailJoins)
	var detail models.ClassInstanceDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListEndedBefore returns instances whose slot already ended before the given
// local wall-clock moment, for the absence sweep. The end comparison happens
// in SQL against the date plus the slot's end time.
func (r *InstanceRepository) ListEndedBefore(ctx context.Context, cutoffDate time.Time, cutoffClock string) ([]models.ClassInstanceDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
WHERE ci.class_date < $1 OR (ci.class_date = $1 AND s.end_time <= $2)
ORDER BY ci.class_date ASC, s.start_time ASC, ci.id ASC`, instanceDetailColumns, instanceDetailJoins)
	var details []models.ClassInstanceDetail
	if err := r.db.SelectContext(ctx, &details, query, cutoffDate, cutoffClock); err != nil {
		return nil, fmt.Errorf("list ended class instances: %w", err)
	}
	return details, nil
}
