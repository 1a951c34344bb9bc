package engine

import "github.com/noah-isme/timetable-engine/internal/models"

// MoveCheck carries everything needed to validate a single-lesson move:
// the lesson being moved, the target slot, and the already-placed lessons
// of the affected teacher, class section and (optionally) room for the
// week. The caller scopes the week rows, so validation is O(week), not
// O(schedule).
type MoveCheck struct {
	Lesson     models.LessonWeekRow
	Target     models.TimeSlot
	TeacherWk  []models.LessonWeekRow
	SectionWk  []models.LessonWeekRow
	RoomWk     []models.LessonWeekRow
	Qualified  bool
	EnforceRms bool
}

// ValidateMove checks a proposed placement against the clash and
// qualification invariants. It returns the first conflict found, in
// teacher, class, room order, or nil when the move is valid. The schedule
// itself is untouched; persistence is the caller's transaction.
func ValidateMove(chk MoveCheck) *models.ScheduleConflict {
	if !chk.Qualified {
		return &models.ScheduleConflict{
			Dimension:   models.ConflictTeacher,
			TeacherID:   chk.Lesson.TeacherID,
			SubjectName: chk.Lesson.SubjectName,
			DayOfWeek:   chk.Target.DayOfWeek,
			StartTime:   chk.Target.StartTime,
		}
	}

	if hit := occupant(chk.TeacherWk, chk.Lesson.LessonID, chk.Target); hit != nil {
		return &models.ScheduleConflict{
			Dimension:        models.ConflictTeacher,
			LessonID:         hit.LessonID,
			TeacherID:        hit.TeacherID,
			SubjectName:      hit.SubjectName,
			ClassSectionName: hit.ClassSectionName,
			DayOfWeek:        chk.Target.DayOfWeek,
			StartTime:        chk.Target.StartTime,
		}
	}
	if hit := occupant(chk.SectionWk, chk.Lesson.LessonID, chk.Target); hit != nil {
		return &models.ScheduleConflict{
			Dimension:        models.ConflictClass,
			LessonID:         hit.LessonID,
			ClassSectionID:   hit.ClassSectionID,
			SubjectName:      hit.SubjectName,
			ClassSectionName: hit.ClassSectionName,
			DayOfWeek:        chk.Target.DayOfWeek,
			StartTime:        chk.Target.StartTime,
		}
	}
	if chk.EnforceRms && chk.Lesson.RoomID != nil {
		if hit := occupant(chk.RoomWk, chk.Lesson.LessonID, chk.Target); hit != nil {
			roomID := ""
			if hit.RoomID != nil {
				roomID = *hit.RoomID
			}
			return &models.ScheduleConflict{
				Dimension:        models.ConflictRoom,
				LessonID:         hit.LessonID,
				RoomID:           roomID,
				SubjectName:      hit.SubjectName,
				ClassSectionName: hit.ClassSectionName,
				DayOfWeek:        chk.Target.DayOfWeek,
				StartTime:        chk.Target.StartTime,
			}
		}
	}
	return nil
}

// occupant finds a week row other than the moving lesson already sitting on
// the target (day, start) cell.
func occupant(week []models.LessonWeekRow, movingID string, target models.TimeSlot) *models.LessonWeekRow {
	for i := range week {
		row := &week[i]
		if row.LessonID == movingID {
			continue
		}
		if row.DayOfWeek == target.DayOfWeek && row.StartTime == target.StartTime {
			return row
		}
	}
	return nil
}
