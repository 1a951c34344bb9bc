package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// TeacherRepository provides read access to teachers and their subject
// qualifications.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListActiveBySchool returns the school's active teachers.
func (r *TeacherRepository) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	const query = `SELECT id, school_id, first_name, last_name, email, active FROM teachers WHERE school_id = $1 AND active = TRUE ORDER BY last_name, first_name, id`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, schoolID); err != nil {
		return nil, err
	}
	return teachers, nil
}

// ListQualificationsBySchool returns every teacher-subject qualification of
// the school's active teachers.
func (r *TeacherRepository) ListQualificationsBySchool(ctx context.Context, schoolID string) ([]models.TeacherQualification, error) {
	const query = `SELECT q.id, q.teacher_id, q.subject_id FROM teacher_qualifications q JOIN teachers t ON t.id = q.teacher_id WHERE t.school_id = $1 AND t.active = TRUE`
	var quals []models.TeacherQualification
	if err := r.db.SelectContext(ctx, &quals, query, schoolID); err != nil {
		return nil, err
	}
	return quals, nil
}
