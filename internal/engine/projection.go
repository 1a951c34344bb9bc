package engine

import (
	"sort"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/models"
)

// Project converts persisted lesson rows into the calendar-event timetable
// the UI consumes, sorted by (day, start time, class section). Period
// numbers are the 1-based position of the slot within that day's teaching
// slots. Output is deterministic for a given schedule.
func Project(rows []models.LessonWeekRow, slots []models.TimeSlot) []dto.TimetableEntry {
	periods := periodNumbers(slots)

	entries := make([]dto.TimetableEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, dto.TimetableEntry{
			LessonID:         row.LessonID,
			ClassSectionName: row.ClassSectionName,
			Day:              row.DayOfWeek,
			Period:           periods[row.TimeSlotID],
			StartTime:        row.StartTime,
			EndTime:          row.EndTime,
			SubjectName:      row.SubjectName,
			TeacherName:      row.TeacherName,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.ClassSectionName != b.ClassSectionName {
			return a.ClassSectionName < b.ClassSectionName
		}
		return a.LessonID < b.LessonID
	})
	return entries
}

// periodNumbers maps each teaching slot id to its 1-based position within
// its day, ordered by start time.
func periodNumbers(slots []models.TimeSlot) map[string]int {
	byDay := make(map[int][]models.TimeSlot)
	for _, ts := range slots {
		if !ts.IsTeachingPeriod {
			continue
		}
		byDay[ts.DayOfWeek] = append(byDay[ts.DayOfWeek], ts)
	}

	out := make(map[string]int)
	for _, daySlots := range byDay {
		sort.Slice(daySlots, func(i, j int) bool {
			if daySlots[i].StartTime != daySlots[j].StartTime {
				return daySlots[i].StartTime < daySlots[j].StartTime
			}
			return daySlots[i].ID < daySlots[j].ID
		})
		for i, ts := range daySlots {
			out[ts.ID] = i + 1
		}
	}
	return out
}
