package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// ErrVersionMismatch reports a compare-and-set update that found a stale
// lesson version. The service layer maps it to a conflict response.
var ErrVersionMismatch = errors.New("lesson version mismatch")

// WeekFilter narrows the joined weekly view. TermID is required; the other
// fields are optional scope restrictions combined with AND.
type WeekFilter struct {
	TermID      string
	SectionIDs  []string
	GradeLevels []int
	TeacherIDs  []string
	RoomID      string
}

// PlacementRow is one solver placement to persist.
type PlacementRow struct {
	LessonID   string
	TimeSlotID string
	RoomID     *string
}

// LessonRepository persists the durable lesson rows and their placements.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// EnsureForOfferings reconciles lesson rows with the offerings' demand: each
// offering ends up with exactly periods_per_week rows carrying the current
// teaching assignment. Existing rows keep their ids so the drag-drop client
// can keep addressing them across regenerations; surplus rows are dropped
// unplaced-first.
func (r *LessonRepository) EnsureForOfferings(ctx context.Context, offerings []models.ClassOffering, assignments map[string]models.TeachingAssignment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lesson reconcile transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const selectQuery = `SELECT id, offering_id, class_section_id, teacher_id, subject_id, time_slot_id, room_id, version, created_at, updated_at FROM lessons WHERE offering_id = $1 ORDER BY time_slot_id IS NOT NULL, id FOR UPDATE`
	const insertQuery = `INSERT INTO lessons (id, offering_id, class_section_id, teacher_id, subject_id, version, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, 1, $6, $6)`
	const retagQuery = `UPDATE lessons SET teacher_id = $1, updated_at = $2 WHERE offering_id = $3 AND teacher_id <> $1`
	const deleteQuery = `DELETE FROM lessons WHERE id = ANY($1)`

	now := time.Now().UTC()
	for _, off := range offerings {
		teacherID := ""
		if ta, ok := assignments[off.ID]; ok {
			teacherID = ta.TeacherID
		}
		if teacherID == "" {
			// Unassigned offerings keep whatever rows they have; the
			// engine reports them unplaced either way.
			continue
		}

		var existing []models.Lesson
		if err = tx.SelectContext(ctx, &existing, selectQuery, off.ID); err != nil {
			return fmt.Errorf("lock lessons for offering %s: %w", off.ID, err)
		}

		for i := len(existing); i < off.PeriodsPerWeek; i++ {
			if _, err = tx.ExecContext(ctx, insertQuery, uuid.NewString(), off.ID, off.ClassSectionID, teacherID, off.SubjectID, now); err != nil {
				return fmt.Errorf("insert lesson for offering %s: %w", off.ID, err)
			}
		}
		if len(existing) > off.PeriodsPerWeek {
			surplus := make([]string, 0, len(existing)-off.PeriodsPerWeek)
			for _, l := range existing[off.PeriodsPerWeek:] {
				surplus = append(surplus, l.ID)
			}
			if _, err = tx.ExecContext(ctx, deleteQuery, pq.Array(surplus)); err != nil {
				return fmt.Errorf("trim surplus lessons for offering %s: %w", off.ID, err)
			}
		}
		if _, err = tx.ExecContext(ctx, retagQuery, teacherID, now, off.ID); err != nil {
			return fmt.Errorf("update lesson teacher for offering %s: %w", off.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit lesson reconcile transaction: %w", err)
	}
	return nil
}

// ListByOfferings returns the raw lesson rows of a set of offerings.
func (r *LessonRepository) ListByOfferings(ctx context.Context, offeringIDs []string) ([]models.Lesson, error) {
	if len(offeringIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, offering_id, class_section_id, teacher_id, subject_id, time_slot_id, room_id, version, created_at, updated_at FROM lessons WHERE offering_id = ANY($1) ORDER BY offering_id, id`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, pq.Array(offeringIDs)); err != nil {
		return nil, err
	}
	return lessons, nil
}

const weekRowSelect = `SELECT l.id AS lesson_id, l.offering_id, l.class_section_id,
	'Grade ' || cs.grade_level || ' - ' || cs.name AS class_section_name,
	cs.grade_level, l.teacher_id,
	t.first_name || ' ' || t.last_name AS teacher_name,
	l.subject_id, s.name AS subject_name,
	l.time_slot_id, ts.day_of_week,
	to_char(ts.start_time, 'HH24:MI') AS start_time,
	to_char(ts.end_time, 'HH24:MI') AS end_time,
	l.room_id, l.version
	FROM lessons l
	JOIN class_offerings o ON o.id = l.offering_id
	JOIN class_sections cs ON cs.id = l.class_section_id
	JOIN teachers t ON t.id = l.teacher_id
	JOIN subjects s ON s.id = l.subject_id
	JOIN time_slots ts ON ts.id = l.time_slot_id`

// ListWeek returns the placed lessons of a term as joined weekly rows, in a
// stable (day, start, section, id) order.
func (r *LessonRepository) ListWeek(ctx context.Context, filter WeekFilter) ([]models.LessonWeekRow, error) {
	query := weekRowSelect + ` WHERE o.term_id = $1`
	args := []interface{}{filter.TermID}

	if len(filter.SectionIDs) > 0 {
		query += fmt.Sprintf(" AND l.class_section_id = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(filter.SectionIDs))
	}
	if len(filter.GradeLevels) > 0 {
		query += fmt.Sprintf(" AND cs.grade_level = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(filter.GradeLevels))
	}
	if len(filter.TeacherIDs) > 0 {
		query += fmt.Sprintf(" AND l.teacher_id = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(filter.TeacherIDs))
	}
	if filter.RoomID != "" {
		query += fmt.Sprintf(" AND l.room_id = $%d", len(args)+1)
		args = append(args, filter.RoomID)
	}
	query += " ORDER BY ts.day_of_week, ts.start_time, class_section_name, l.id"

	var rows []models.LessonWeekRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID returns one lesson row.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	const query = `SELECT id, offering_id, class_section_id, teacher_id, subject_id, time_slot_id, room_id, version, created_at, updated_at FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindWeekRowByID returns the joined view of one lesson, placed or not.
// Slot columns are empty for unplaced lessons.
func (r *LessonRepository) FindWeekRowByID(ctx context.Context, id string) (*models.LessonWeekRow, error) {
	const query = `SELECT l.id AS lesson_id, l.offering_id, l.class_section_id,
	'Grade ' || cs.grade_level || ' - ' || cs.name AS class_section_name,
	cs.grade_level, l.teacher_id,
	t.first_name || ' ' || t.last_name AS teacher_name,
	l.subject_id, s.name AS subject_name,
	COALESCE(l.time_slot_id, '') AS time_slot_id,
	COALESCE(ts.day_of_week, 0) AS day_of_week,
	COALESCE(to_char(ts.start_time, 'HH24:MI'), '') AS start_time,
	COALESCE(to_char(ts.end_time, 'HH24:MI'), '') AS end_time,
	l.room_id, l.version
	FROM lessons l
	JOIN class_offerings o ON o.id = l.offering_id
	JOIN class_sections cs ON cs.id = l.class_section_id
	JOIN teachers t ON t.id = l.teacher_id
	JOIN subjects s ON s.id = l.subject_id
	LEFT JOIN time_slots ts ON ts.id = l.time_slot_id
	WHERE l.id = $1`
	var row models.LessonWeekRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ApplyPlacements atomically replaces the placements of the given offerings:
// every lesson of the scope is cleared, then the solver's placements are
// written back, each bumping its row version. A failed write leaves the
// previous timetable untouched.
func (r *LessonRepository) ApplyPlacements(ctx context.Context, offeringIDs []string, placements []PlacementRow) (err error) {
	if len(offeringIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin placement transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const clearQuery = `UPDATE lessons SET time_slot_id = NULL, room_id = NULL, version = version + 1, updated_at = $1 WHERE offering_id = ANY($2)`
	if _, err = tx.ExecContext(ctx, clearQuery, now, pq.Array(offeringIDs)); err != nil {
		return fmt.Errorf("clear placements: %w", err)
	}

	const placeQuery = `UPDATE lessons SET time_slot_id = $1, room_id = $2, version = version + 1, updated_at = $3 WHERE id = $4`
	for _, p := range placements {
		if _, err = tx.ExecContext(ctx, placeQuery, p.TimeSlotID, p.RoomID, now, p.LessonID); err != nil {
			return fmt.Errorf("place lesson %s: %w", p.LessonID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit placement transaction: %w", err)
	}
	return nil
}

// MoveLesson updates one lesson's slot if and only if the caller saw the
// current version. A stale version returns ErrVersionMismatch and leaves the
// row untouched.
func (r *LessonRepository) MoveLesson(ctx context.Context, lessonID string, version int, timeSlotID string) error {
	const query = `UPDATE lessons SET time_slot_id = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4`
	res, err := r.db.ExecContext(ctx, query, timeSlotID, time.Now().UTC(), lessonID, version)
	if err != nil {
		return fmt.Errorf("move lesson %s: %w", lessonID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("move lesson %s: %w", lessonID, err)
	}
	if affected == 0 {
		return ErrVersionMismatch
	}
	return nil
}
