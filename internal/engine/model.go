package engine

import (
	"sort"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// Slot is an assignable teaching period in the weekly grid, indexed in
// deterministic (day, start time) order.
type Slot struct {
	Index  int
	ID     string
	Day    int
	Start  string
	End    string
	Period int
}

// Demand is one lesson-period the solver must place: a variable whose
// domain is the set of slots (and optionally rooms) compatible with the
// offering's teacher and class section.
type Demand struct {
	LessonID    string
	OfferingID  string
	SectionID   string
	SectionName string
	SubjectID   string
	SubjectName string
	SubjectType models.SubjectType
	TeacherID   string
	TeacherName string
}

// Unplaced is demand the engine could not (or will not) place, with the
// violated constraint spelled out.
type Unplaced struct {
	OfferingID  string
	SectionName string
	SubjectName string
	Missing     int
	Reason      string
}

// Options toggle policy decisions of the search.
type Options struct {
	// AllowSameDay permits two periods of one offering on the same day.
	AllowSameDay bool
	// EnforceRooms makes room occupancy a hard constraint.
	EnforceRooms bool
	// MaxBacktracks bounds search effort before degrading to the best
	// partial assignment found so far.
	MaxBacktracks int
}

// Model is the constraint formulation handed to Solve.
type Model struct {
	Slots   []Slot
	Demands []Demand
	Rooms   []models.Room

	// PreUnplaced holds demand rejected before search: offerings with no
	// assigned teacher or an unqualified one can never be validly placed.
	PreUnplaced []Unplaced

	slotsByID map[string]int
}

// SlotByID returns the indexed slot for a time-slot id.
func (m *Model) SlotByID(id string) (Slot, bool) {
	idx, ok := m.slotsByID[id]
	if !ok {
		return Slot{}, false
	}
	return m.Slots[idx], true
}

const (
	ReasonNoTeacher       = "no teacher assigned"
	ReasonNotQualified    = "assigned teacher not qualified for subject"
	ReasonTeacherBusy     = "teacher unavailable"
	ReasonClassBusy       = "class section fully booked"
	ReasonNoRoom          = "no compatible room available"
	ReasonNoTeachingSlots = "no teaching slots available"
)

// BuildModel translates a loaded snapshot into solver variables. Teaching
// slots are indexed in (day, start) order; each required weekly period of
// each offering becomes one demand backed by its durable lesson row.
// Offerings that fail static domain pruning (no assignment, unqualified
// teacher) are emitted as pre-unplaced rather than entering the search.
func BuildModel(snap *Snapshot) *Model {
	m := &Model{slotsByID: make(map[string]int)}

	for _, ts := range snap.TimeSlots {
		if !ts.IsTeachingPeriod {
			continue
		}
		m.Slots = append(m.Slots, Slot{
			ID:    ts.ID,
			Day:   ts.DayOfWeek,
			Start: ts.StartTime,
			End:   ts.EndTime,
		})
	}
	sort.Slice(m.Slots, func(i, j int) bool {
		a, b := m.Slots[i], m.Slots[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})
	period := 0
	lastDay := 0
	for i := range m.Slots {
		if m.Slots[i].Day != lastDay {
			lastDay = m.Slots[i].Day
			period = 0
		}
		period++
		m.Slots[i].Index = i
		m.Slots[i].Period = period
		m.slotsByID[m.Slots[i].ID] = i
	}

	m.Rooms = append(m.Rooms, snap.Rooms...)
	sort.Slice(m.Rooms, func(i, j int) bool { return m.Rooms[i].ID < m.Rooms[j].ID })

	offerings := append([]models.ClassOffering(nil), snap.Offerings...)
	sort.Slice(offerings, func(i, j int) bool { return offerings[i].ID < offerings[j].ID })

	for _, off := range offerings {
		sectionName := snap.SectionName(off.ClassSectionID)
		subjectName := snap.SubjectName(off.SubjectID)

		assignment, ok := snap.Assignments[off.ID]
		if !ok {
			m.PreUnplaced = append(m.PreUnplaced, Unplaced{
				OfferingID:  off.ID,
				SectionName: sectionName,
				SubjectName: subjectName,
				Missing:     off.PeriodsPerWeek,
				Reason:      ReasonNoTeacher,
			})
			continue
		}
		if !snap.IsQualified(assignment.TeacherID, off.SubjectID) {
			m.PreUnplaced = append(m.PreUnplaced, Unplaced{
				OfferingID:  off.ID,
				SectionName: sectionName,
				SubjectName: subjectName,
				Missing:     off.PeriodsPerWeek,
				Reason:      ReasonNotQualified,
			})
			continue
		}

		subjectType := models.SubjectTypeTheory
		if sub, ok := snap.Subjects[off.SubjectID]; ok {
			subjectType = sub.Type
		}

		lessons := append([]models.Lesson(nil), snap.Lessons[off.ID]...)
		sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
		for i := 0; i < off.PeriodsPerWeek && i < len(lessons); i++ {
			m.Demands = append(m.Demands, Demand{
				LessonID:    lessons[i].ID,
				OfferingID:  off.ID,
				SectionID:   off.ClassSectionID,
				SectionName: sectionName,
				SubjectID:   off.SubjectID,
				SubjectName: subjectName,
				SubjectType: subjectType,
				TeacherID:   assignment.TeacherID,
				TeacherName: snap.TeacherName(assignment.TeacherID),
			})
		}
	}

	return m
}
