package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// OfferingRepository provides read access to class offerings and their
// teaching assignments.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository creates a new offering repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// ListByTerm returns the term's offerings, optionally narrowed to a set of
// class sections.
func (r *OfferingRepository) ListByTerm(ctx context.Context, termID string, sectionIDs []string) ([]models.ClassOffering, error) {
	query := `SELECT id, term_id, class_section_id, subject_id, periods_per_week FROM class_offerings WHERE term_id = $1`
	args := []interface{}{termID}
	if len(sectionIDs) > 0 {
		query += fmt.Sprintf(" AND class_section_id = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(sectionIDs))
	}
	query += " ORDER BY id"

	var offerings []models.ClassOffering
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, err
	}
	return offerings, nil
}

// ListAssignments returns the teaching assignments for a set of offerings.
func (r *OfferingRepository) ListAssignments(ctx context.Context, offeringIDs []string) ([]models.TeachingAssignment, error) {
	if len(offeringIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, class_offering_id, teacher_id FROM teaching_assignments WHERE class_offering_id = ANY($1) ORDER BY class_offering_id, id`
	var assignments []models.TeachingAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, pq.Array(offeringIDs)); err != nil {
		return nil, err
	}
	return assignments, nil
}
