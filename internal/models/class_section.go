package models

import (
	"fmt"
	"time"
)

// ClassSection represents a cohort of students at a grade level.
// (school_id, grade_level, name) is unique upstream.
type ClassSection struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	GradeLevel int       `db:"grade_level" json:"grade_level"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DisplayName renders the section the way the timetable UI labels it.
func (c ClassSection) DisplayName() string {
	return fmt.Sprintf("Grade %d - %s", c.GradeLevel, c.Name)
}
