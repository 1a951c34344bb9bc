package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// SectionFilter narrows class sections by grade levels or explicit ids.
// Empty filters match every section of the school.
type SectionFilter struct {
	GradeLevels []int
	IDs         []string
}

// SectionRepository provides read access to class sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new class section repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns the school's class sections matching the filter, ordered by
// grade then name.
func (r *SectionRepository) List(ctx context.Context, schoolID string, filter SectionFilter) ([]models.ClassSection, error) {
	query := `SELECT id, school_id, grade_level, name, created_at FROM class_sections WHERE school_id = $1`
	args := []interface{}{schoolID}

	if len(filter.GradeLevels) > 0 {
		query += fmt.Sprintf(" AND grade_level = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(filter.GradeLevels))
	}
	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(filter.IDs))
	}
	query += " ORDER BY grade_level, name, id"

	var sections []models.ClassSection
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, err
	}
	return sections, nil
}
