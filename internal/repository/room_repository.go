package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// RoomRepository provides read access to rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListBySchool returns the school's rooms. An empty result is valid: the
// solver then skips room constraints entirely.
func (r *RoomRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Room, error) {
	const query = `SELECT id, school_id, name, capacity, type FROM rooms WHERE school_id = $1 ORDER BY id`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, schoolID); err != nil {
		return nil, err
	}
	return rooms, nil
}
