package models

import "time"

// RoomType mirrors SubjectType: practical subjects need lab-class rooms.
type RoomType string

const (
	RoomTypeClassroom RoomType = "CLASSROOM"
	RoomTypeLab       RoomType = "LAB"
)

// Room is an optional scheduling resource. Room occupancy is only enforced
// when the solver is configured to do so.
type Room struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Type      RoomType  `db:"room_type" json:"room_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Fits reports whether the room can host the subject type.
func (r Room) Fits(subject SubjectType) bool {
	if subject == SubjectTypePractical {
		return r.Type == RoomTypeLab
	}
	return true
}
