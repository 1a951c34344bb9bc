package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// TimeSlotRepository provides read access to the weekly slot grid.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new time slot repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

const timeSlotColumns = `id, school_id, day_of_week, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, is_teaching_period`

// ListBySchool returns every slot of the school's grid, teaching or not,
// in (day, start) order.
func (r *TimeSlotRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.TimeSlot, error) {
	query := `SELECT ` + timeSlotColumns + ` FROM time_slots WHERE school_id = $1 ORDER BY day_of_week, start_time, id`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, schoolID); err != nil {
		return nil, err
	}
	return slots, nil
}

// FindByDayStart resolves the slot a drag-drop move targets.
func (r *TimeSlotRepository) FindByDayStart(ctx context.Context, schoolID string, day int, start string) (*models.TimeSlot, error) {
	query := `SELECT ` + timeSlotColumns + ` FROM time_slots WHERE school_id = $1 AND day_of_week = $2 AND start_time = $3::time`
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, schoolID, day, start); err != nil {
		return nil, err
	}
	return &slot, nil
}
