package models

import "time"

// TimeSlot is a recurring weekly slot in the school bell schedule.
// StartTime/EndTime use the wire format "HH:MM". Non-teaching slots
// (breaks, lunch) exist in the bell schedule but are never assignable.
type TimeSlot struct {
	ID               string    `db:"id" json:"id"`
	SchoolID         string    `db:"school_id" json:"school_id"`
	DayOfWeek        int       `db:"day_of_week" json:"day_of_week"`
	StartTime        string    `db:"start_time" json:"start_time"`
	EndTime          string    `db:"end_time" json:"end_time"`
	IsTeachingPeriod bool      `db:"is_teaching_period" json:"is_teaching_period"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
