package models

import "time"

// ClassOffering is the demand unit: a subject taught to a class section for
// a term, requiring exactly PeriodsPerWeek scheduled lessons per week.
type ClassOffering struct {
	ID             string    `db:"id" json:"id"`
	TermID         string    `db:"term_id" json:"term_id"`
	ClassSectionID string    `db:"class_section_id" json:"class_section_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	PeriodsPerWeek int       `db:"periods_per_week" json:"periods_per_week"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TeachingAssignment binds one teacher to one class offering for the whole
// term. At most one assignment exists per offering.
type TeachingAssignment struct {
	ID              string    `db:"id" json:"id"`
	ClassOfferingID string    `db:"class_offering_id" json:"class_offering_id"`
	TeacherID       string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
