package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadops/timetable-api/internal/models"
)

const assignmentDetailColumns = `a.id, a.group_id, a.course_id, a.teacher_id, a.classroom_id, a.time_slot_id, a.created_at,
c.code AS course_code, c.name AS course_name,
t.name AS teacher_name,
r.room_number AS room_number,
g.name AS group_name,
s.day_of_week, s.start_time, s.end_time`

const assignmentDetailJoins = `FROM assignments a
JOIN courses c ON c.id = a.course_id
JOIN teachers t ON t.id = a.teacher_id
JOIN classrooms r ON r.id = a.classroom_id
JOIN student_groups g ON g.id = a.group_id
JOIN time_slots s ON s.id = a.time_slot_id`

const assignmentDetailOrder = `ORDER BY CASE s.day_of_week
	WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3
	WHEN 'THURSDAY' THEN 4 WHEN 'FRIDAY' THEN 5 WHEN 'SATURDAY' THEN 6
	ELSE 7 END ASC, s.start_time ASC, g.name ASC`

// AssignmentRepository manages persistence for scheduler assignments and the
// timetable generation counter.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListDetails returns all assignments with display metadata, ordered by
// weekday, start time and group.
func (r *AssignmentRepository) ListDetails(ctx context.Context) ([]models.AssignmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s %s", assignmentDetailColumns, assignmentDetailJoins, assignmentDetailOrder)
	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query); err != nil {
		return nil, fmt.Errorf("list assignment details: %w", err)
	}
	return details, nil
}

// ListDetailsByGroup returns one group's assignments with display metadata.
func (r *AssignmentRepository) ListDetailsByGroup(ctx context.Context, groupID string) ([]models.AssignmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.group_id = $1 %s", assignmentDetailColumns, assignmentDetailJoins, assignmentDetailOrder)
	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, groupID); err != nil {
		return nil, fmt.Errorf("list assignment details by group: %w", err)
	}
	return details, nil
}

// ListDetailsByTeacher returns one teacher's assignments with display metadata.
func (r *AssignmentRepository) ListDetailsByTeacher(ctx context.Context, teacherID string) ([]models.AssignmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.teacher_id = $1 %s", assignmentDetailColumns, assignmentDetailJoins, assignmentDetailOrder)
	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assignment details by teacher: %w", err)
	}
	return details, nil
}

// ReplaceForGroups deletes every assignment belonging to the given groups and
// inserts the replacement set, all inside the caller's transaction. Either
// the whole new timetable lands or none of it does.
func (r *AssignmentRepository) ReplaceForGroups(ctx context.Context, exec sqlx.ExtContext, groupIDs []string, assignments []models.Assignment) error {
	target := r.exec(exec)

	if len(groupIDs) > 0 {
		placeholders := make([]string, len(groupIDs))
		args := make([]interface{}, len(groupIDs))
		for i, id := range groupIDs {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}
		query := fmt.Sprintf("DELETE FROM assignments WHERE group_id IN (%s)", strings.Join(placeholders, ", "))
		if _, err := target.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete group assignments: %w", err)
		}
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO assignments (id, group_id, course_id, teacher_id, classroom_id, time_slot_id, created_at)
VALUES (:id, :group_id, :course_id, :teacher_id, :classroom_id, :time_slot_id, :created_at)`
	for i := range assignments {
		a := &assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, insert, a); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

// Generation returns the current timetable generation counter. A missing row
// counts as generation zero.
func (r *AssignmentRepository) Generation(ctx context.Context) (int64, error) {
	const query = `SELECT COALESCE(MAX(generation), 0) FROM timetable_generations`
	var generation int64
	if err := r.db.GetContext(ctx, &generation, query); err != nil {
		return 0, fmt.Errorf("read timetable generation: %w", err)
	}
	return generation, nil
}

// BumpGeneration advances the generation counter inside the caller's
// transaction and returns the new value. Every committed regeneration bumps
// it so cached materialisations from older timetables stop matching.
func (r *AssignmentRepository) BumpGeneration(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	target := r.exec(exec)
	const query = `INSERT INTO timetable_generations (id, generation, updated_at)
VALUES (1, 1, $1)
ON CONFLICT (id) DO UPDATE SET generation = timetable_generations.generation + 1, updated_at = EXCLUDED.updated_at
RETURNING generation`
	var generation int64
	if err := sqlx.GetContext(ctx, target, &generation, query, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("bump timetable generation: %w", err)
	}
	return generation, nil
}
