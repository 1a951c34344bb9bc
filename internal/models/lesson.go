package models

import "time"

// Lesson is one concrete weekly occurrence of a class offering. Rows are
// durable so the drag-drop UI can address them by stable id across
// regenerations; TimeSlotID is nil until the solver places the lesson.
// Version backs the optimistic-concurrency check on single-lesson moves.
type Lesson struct {
	ID             string    `db:"id" json:"id"`
	OfferingID     string    `db:"offering_id" json:"offering_id"`
	ClassSectionID string    `db:"class_section_id" json:"class_section_id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	TimeSlotID     *string   `db:"time_slot_id" json:"time_slot_id,omitempty"`
	RoomID         *string   `db:"room_id" json:"room_id,omitempty"`
	Version        int       `db:"version" json:"version"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LessonWeekRow is the joined view used for conflict checks and projection:
// a placed lesson together with its slot, names and ids.
type LessonWeekRow struct {
	LessonID         string  `db:"lesson_id" json:"lesson_id"`
	OfferingID       string  `db:"offering_id" json:"offering_id"`
	ClassSectionID   string  `db:"class_section_id" json:"class_section_id"`
	ClassSectionName string  `db:"class_section_name" json:"class_section_name"`
	GradeLevel       int     `db:"grade_level" json:"grade_level"`
	TeacherID        string  `db:"teacher_id" json:"teacher_id"`
	TeacherName      string  `db:"teacher_name" json:"teacher_name"`
	SubjectID        string  `db:"subject_id" json:"subject_id"`
	SubjectName      string  `db:"subject_name" json:"subject_name"`
	TimeSlotID       string  `db:"time_slot_id" json:"time_slot_id"`
	DayOfWeek        int     `db:"day_of_week" json:"day_of_week"`
	StartTime        string  `db:"start_time" json:"start_time"`
	EndTime          string  `db:"end_time" json:"end_time"`
	RoomID           *string `db:"room_id" json:"room_id,omitempty"`
	Version          int     `db:"version" json:"version"`
}

// ConflictDimension names the resource a rejected placement collided on.
type ConflictDimension string

const (
	ConflictTeacher ConflictDimension = "TEACHER"
	ConflictClass   ConflictDimension = "CLASS"
	ConflictRoom    ConflictDimension = "ROOM"
)

// ScheduleConflict describes the existing lesson a move collided with.
type ScheduleConflict struct {
	Dimension        ConflictDimension `json:"dimension"`
	LessonID         string            `json:"lesson_id"`
	TeacherID        string            `json:"teacher_id,omitempty"`
	ClassSectionID   string            `json:"class_section_id,omitempty"`
	RoomID           string            `json:"room_id,omitempty"`
	SubjectName      string            `json:"subject_name,omitempty"`
	ClassSectionName string            `json:"class_section_name,omitempty"`
	DayOfWeek        int               `json:"day_of_week"`
	StartTime        string            `json:"start_time"`
}
