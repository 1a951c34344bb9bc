package engine

import "github.com/noah-isme/timetable-engine/internal/models"

// Snapshot is the in-memory domain model for one generation or repair run.
// It is assembled by the loader at call start and never refreshed mid-run,
// so every placement decision inside a run sees one consistent world.
type Snapshot struct {
	Term        models.Term
	TimeSlots   []models.TimeSlot
	Sections    map[string]models.ClassSection
	Subjects    map[string]models.Subject
	Teachers    map[string]models.Teacher
	Rooms       []models.Room
	Offerings   []models.ClassOffering
	Assignments map[string]models.TeachingAssignment
	Qualified   map[string]map[string]bool
	Lessons     map[string][]models.Lesson
}

// IsQualified reports whether the teacher holds a qualification for the
// subject.
func (s *Snapshot) IsQualified(teacherID, subjectID string) bool {
	subjects, ok := s.Qualified[teacherID]
	if !ok {
		return false
	}
	return subjects[subjectID]
}

// TeacherName resolves a display name, falling back to the raw id for
// teachers outside the loaded scope.
func (s *Snapshot) TeacherName(teacherID string) string {
	if t, ok := s.Teachers[teacherID]; ok {
		return t.FullName()
	}
	return teacherID
}

// SectionName resolves the UI label of a class section.
func (s *Snapshot) SectionName(sectionID string) string {
	if sec, ok := s.Sections[sectionID]; ok {
		return sec.DisplayName()
	}
	return sectionID
}

// SubjectName resolves a subject display name.
func (s *Snapshot) SubjectName(subjectID string) string {
	if sub, ok := s.Subjects[subjectID]; ok {
		return sub.Name
	}
	return subjectID
}
