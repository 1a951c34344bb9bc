package models

import "time"

// SubjectType distinguishes room requirements.
type SubjectType string

const (
	SubjectTypeTheory    SubjectType = "THEORY"
	SubjectTypePractical SubjectType = "PRACTICAL"
)

// Subject represents a teachable unit.
type Subject struct {
	ID        string      `db:"id" json:"id"`
	SchoolID  string      `db:"school_id" json:"school_id"`
	Code      string      `db:"code" json:"code"`
	Name      string      `db:"name" json:"name"`
	Type      SubjectType `db:"subject_type" json:"subject_type"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
