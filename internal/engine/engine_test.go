package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// fixture assembles a snapshot with a 5-day week. slotsPerDay teaching
// periods start hourly at 08:00; a non-teaching lunch row is always present
// to prove it never enters the assignable domain.
type fixture struct {
	snap *Snapshot
}

func newFixture(days, slotsPerDay int) *fixture {
	snap := &Snapshot{
		Term:        models.Term{ID: "term-1", SchoolID: "school-1", Name: "Term 1"},
		Sections:    make(map[string]models.ClassSection),
		Subjects:    make(map[string]models.Subject),
		Teachers:    make(map[string]models.Teacher),
		Assignments: make(map[string]models.TeachingAssignment),
		Qualified:   make(map[string]map[string]bool),
		Lessons:     make(map[string][]models.Lesson),
	}
	for day := 1; day <= days; day++ {
		for p := 0; p < slotsPerDay; p++ {
			start := fmt.Sprintf("%02d:00", 8+p)
			end := fmt.Sprintf("%02d:00", 9+p)
			snap.TimeSlots = append(snap.TimeSlots, models.TimeSlot{
				ID:               fmt.Sprintf("slot-%d-%d", day, p+1),
				DayOfWeek:        day,
				StartTime:        start,
				EndTime:          end,
				IsTeachingPeriod: true,
			})
		}
		snap.TimeSlots = append(snap.TimeSlots, models.TimeSlot{
			ID:               fmt.Sprintf("lunch-%d", day),
			DayOfWeek:        day,
			StartTime:        "12:30",
			EndTime:          "13:00",
			IsTeachingPeriod: false,
		})
	}
	return &fixture{snap: snap}
}

func (f *fixture) addSection(id string, grade int, name string) {
	f.snap.Sections[id] = models.ClassSection{ID: id, GradeLevel: grade, Name: name}
}

func (f *fixture) addSubject(id, name string, typ models.SubjectType) {
	f.snap.Subjects[id] = models.Subject{ID: id, Name: name, Type: typ}
}

func (f *fixture) addTeacher(id, first, last string, subjects ...string) {
	f.snap.Teachers[id] = models.Teacher{ID: id, FirstName: first, LastName: last, Active: true}
	f.snap.Qualified[id] = make(map[string]bool)
	for _, s := range subjects {
		f.snap.Qualified[id][s] = true
	}
}

func (f *fixture) addOffering(id, sectionID, subjectID, teacherID string, periods int) {
	f.snap.Offerings = append(f.snap.Offerings, models.ClassOffering{
		ID:             id,
		TermID:         f.snap.Term.ID,
		ClassSectionID: sectionID,
		SubjectID:      subjectID,
		PeriodsPerWeek: periods,
	})
	if teacherID != "" {
		f.snap.Assignments[id] = models.TeachingAssignment{
			ID:              "ta-" + id,
			ClassOfferingID: id,
			TeacherID:       teacherID,
		}
	}
	for i := 0; i < periods; i++ {
		f.snap.Lessons[id] = append(f.snap.Lessons[id], models.Lesson{
			ID:             fmt.Sprintf("lesson-%s-%d", id, i+1),
			OfferingID:     id,
			ClassSectionID: sectionID,
			SubjectID:      subjectID,
			TeacherID:      teacherID,
		})
	}
}

func solveFixture(t *testing.T, f *fixture, opts Options) (*Model, *Result) {
	t.Helper()
	m := BuildModel(f.snap)
	return m, Solve(context.Background(), m, opts)
}

func assertNoClashes(t *testing.T, m *Model, res *Result) {
	t.Helper()
	demandByLesson := make(map[string]Demand)
	for _, d := range m.Demands {
		demandByLesson[d.LessonID] = d
	}
	teacherSeen := make(map[string]bool)
	classSeen := make(map[string]bool)
	for _, p := range res.Placements {
		d := demandByLesson[p.LessonID]
		tKey := fmt.Sprintf("%s@%d", d.TeacherID, p.SlotIndex)
		cKey := fmt.Sprintf("%s@%d", d.SectionID, p.SlotIndex)
		assert.False(t, teacherSeen[tKey], "teacher %s double-booked at slot %d", d.TeacherID, p.SlotIndex)
		assert.False(t, classSeen[cKey], "class %s double-booked at slot %d", d.SectionID, p.SlotIndex)
		teacherSeen[tKey] = true
		classSeen[cKey] = true
	}
}

func TestSolvePlacesAllPeriodsOnDistinctDays(t *testing.T) {
	f := newFixture(5, 5)
	f.addSection("sec-a", 7, "A")
	f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
	f.addTeacher("t-1", "Ada", "Okafor", "math")
	f.addOffering("off-1", "sec-a", "math", "t-1", 3)

	m, res := solveFixture(t, f, Options{})
	require.True(t, res.Complete)
	require.Len(t, res.Placements, 3)
	require.Empty(t, res.Unplaced)

	days := make(map[int]bool)
	for _, p := range res.Placements {
		days[m.Slots[p.SlotIndex].Day] = true
	}
	assert.Len(t, days, 3, "three periods must land on three distinct days")
	assertNoClashes(t, m, res)
}

func TestSolveNeverUsesNonTeachingSlots(t *testing.T) {
	f := newFixture(5, 2)
	f.addSection("sec-a", 7, "A")
	f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
	f.addTeacher("t-1", "Ada", "Okafor", "math")
	f.addOffering("off-1", "sec-a", "math", "t-1", 4)

	m, res := solveFixture(t, f, Options{})
	require.True(t, res.Complete)
	for _, p := range res.Placements {
		assert.NotContains(t, m.Slots[p.SlotIndex].ID, "lunch")
	}
}

func TestSolveSharedTeacherHasNoClashes(t *testing.T) {
	f := newFixture(5, 5)
	f.addSection("sec-a", 7, "A")
	f.addSection("sec-b", 7, "B")
	f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
	f.addSubject("phy", "Physics", models.SubjectTypeTheory)
	f.addTeacher("t-1", "Ada", "Okafor", "math", "phy")
	f.addTeacher("t-2", "Ben", "Suzuki", "math", "phy")
	f.addOffering("off-1", "sec-a", "math", "t-1", 4)
	f.addOffering("off-2", "sec-b", "math", "t-1", 4)
	f.addOffering("off-3", "sec-a", "phy", "t-2", 3)
	f.addOffering("off-4", "sec-b", "phy", "t-2", 3)

	m, res := solveFixture(t, f, Options{})
	require.True(t, res.Complete, "feasible instance must be fully placed")
	require.Len(t, res.Placements, 14)
	assertNoClashes(t, m, res)
}

func TestSolveExactPeriodsPerOffering(t *testing.T) {
	f := newFixture(5, 6)
	f.addSection("sec-a", 8, "A")
	f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
	f.addSubject("bio", "Biology", models.SubjectTypeTheory)
	f.addTeacher("t-1", "Ada", "Okafor", "math")
	f.addTeacher("t-2", "Ben", "Suzuki", "bio")
	f.addOffering("off-1", "sec-a", "math", "t-1", 5)
	f.addOffering("off-2", "sec-a", "bio", "t-2", 2)

	m, res := solveFixture(t, f, Options{})
	require.True(t, res.Complete)

	counts := make(map[string]int)
	demandByLesson := make(map[string]Demand)
	for _, d := range m.Demands {
		demandByLesson[d.LessonID] = d
	}
	for _, p := range res.Placements {
		counts[demandByLesson[p.LessonID].OfferingID]++
	}
	assert.Equal(t, 5, counts["off-1"])
	assert.Equal(t, 2, counts["off-2"])
}

func TestSolveUnqualifiedTeacherNeverPlaced(t *testing.T) {
	f := newFixture(5, 5)
	f.addSection("sec-a", 7, "A")
	f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
	f.addSubject("art", "Art", models.SubjectTypeTheory)
	f.addTeacher("t-1", "Ada", "Okafor", "math") // not qualified for art
	f.addOffering("off-1", "sec-a", "art", "t-1", 2)

	_, res := solveFixture(t, f, Options{})
	require.Empty(t, res.Placements)
	require.Len(t, res.Unplaced, 1)
	assert.Equal(t, ReasonNotQualified, res.Unplaced[0].Reason)
	assert.Equal(t, 2, res.Unplaced[0].Missing)
}

func TestSolveMissingAssignmentReported(t *testing.T) {
	f := newFixture(5, 5)
	f.addSection("sec-a", 7, "A")
	f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
	f.addOffering("off-1", "sec-a", "math", "", 3)

	_, res := solveFixture(t, f, Options{})
	require.Len(t, res.Unplaced, 1)
	assert.Equal(t, ReasonNoTeacher, res.Unplaced[0].Reason)
	assert.False(t, res.Complete)
}

func TestSolveOverbookedTeacherReturnsPartial(t *testing.T) {
	// One teaching slot per day, five days: a single teacher can cover at
	// most five periods. Demand is six, so exactly one period must be
	// reported unplaced with the teacher named as the bottleneck.
	f := newFixture(5, 1)
	f.addSection("sec-a", 7, "A")
	f.addSection("sec-b", 7, "B")
	f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
	f.addTeacher("t-1", "Ada", "Okafor", "math")
	f.addOffering("off-1", "sec-a", "math", "t-1", 3)
	f.addOffering("off-2", "sec-b", "math", "t-1", 3)

	m, res := solveFixture(t, f, Options{})
	require.False(t, res.Complete)
	assert.Len(t, res.Placements, 5, "best partial must fill every coverable slot")
	require.Len(t, res.Unplaced, 1)
	assert.Equal(t, ReasonTeacherBusy, res.Unplaced[0].Reason)
	assert.Equal(t, 1, res.Unplaced[0].Missing)
	assertNoClashes(t, m, res)
}

func TestSolveSameDayPolicy(t *testing.T) {
	// Two days of three slots each cannot host three periods of one
	// offering on distinct days.
	f := newFixture(2, 3)
	f.addSection("sec-a", 7, "A")
	f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
	f.addTeacher("t-1", "Ada", "Okafor", "math")
	f.addOffering("off-1", "sec-a", "math", "t-1", 3)

	_, res := solveFixture(t, f, Options{})
	require.False(t, res.Complete)
	require.Len(t, res.Unplaced, 1)
	assert.Equal(t, ReasonDaySpread, res.Unplaced[0].Reason)

	_, relaxed := solveFixture(t, f, Options{AllowSameDay: true})
	assert.True(t, relaxed.Complete)
	assert.Len(t, relaxed.Placements, 3)
}

func TestSolveRoomEnforcement(t *testing.T) {
	f := newFixture(5, 3)
	f.addSection("sec-a", 7, "A")
	f.addSubject("chem", "Chemistry", models.SubjectTypePractical)
	f.addTeacher("t-1", "Ada", "Okafor", "chem")
	f.addOffering("off-1", "sec-a", "chem", "t-1", 2)
	f.snap.Rooms = []models.Room{
		{ID: "room-1", Name: "R1", Capacity: 32, Type: models.RoomTypeClassroom},
	}

	_, res := solveFixture(t, f, Options{EnforceRooms: true})
	require.False(t, res.Complete)
	require.Len(t, res.Unplaced, 1)
	assert.Equal(t, ReasonNoRoom, res.Unplaced[0].Reason)

	f.snap.Rooms = append(f.snap.Rooms, models.Room{ID: "room-2", Name: "Lab", Capacity: 24, Type: models.RoomTypeLab})
	_, res = solveFixture(t, f, Options{EnforceRooms: true})
	require.True(t, res.Complete)
	for _, p := range res.Placements {
		assert.Equal(t, "room-2", p.RoomID, "practical lessons must land in the lab")
	}
}

func TestSolveDeterministic(t *testing.T) {
	build := func() *fixture {
		f := newFixture(5, 5)
		f.addSection("sec-a", 7, "A")
		f.addSection("sec-b", 8, "B")
		f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
		f.addSubject("eng", "English", models.SubjectTypeTheory)
		f.addTeacher("t-1", "Ada", "Okafor", "math", "eng")
		f.addTeacher("t-2", "Ben", "Suzuki", "math", "eng")
		f.addOffering("off-1", "sec-a", "math", "t-1", 4)
		f.addOffering("off-2", "sec-b", "eng", "t-2", 4)
		f.addOffering("off-3", "sec-a", "eng", "t-2", 3)
		f.addOffering("off-4", "sec-b", "math", "t-1", 3)
		return f
	}

	_, first := solveFixture(t, build(), Options{})
	_, second := solveFixture(t, build(), Options{})
	require.True(t, first.Complete)
	assert.Equal(t, first.Placements, second.Placements, "identical input must produce an identical schedule")
	assert.Equal(t, first.SoftCost, second.SoftCost)
}

func TestSolveHonoursContextDeadline(t *testing.T) {
	f := newFixture(5, 6)
	for s := 0; s < 6; s++ {
		sec := fmt.Sprintf("sec-%d", s)
		f.addSection(sec, 7+s%3, fmt.Sprintf("S%d", s))
	}
	f.addSubject("math", "Mathematics", models.SubjectTypeTheory)
	f.addTeacher("t-1", "Ada", "Okafor", "math")
	for s := 0; s < 6; s++ {
		f.addOffering(fmt.Sprintf("off-%d", s), fmt.Sprintf("sec-%d", s), "math", "t-1", 5)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already expired: solver must still return a result

	m := BuildModel(f.snap)
	res := Solve(ctx, m, Options{})
	require.NotNil(t, res)
	assertNoClashes(t, m, res)
}

func TestBuildModelSlotOrderAndPeriods(t *testing.T) {
	f := newFixture(2, 3)
	m := BuildModel(f.snap)

	require.Len(t, m.Slots, 6, "non-teaching slots are excluded from the grid")
	for i := 1; i < len(m.Slots); i++ {
		prev, cur := m.Slots[i-1], m.Slots[i]
		ordered := prev.Day < cur.Day || (prev.Day == cur.Day && prev.Start <= cur.Start)
		assert.True(t, ordered, "slots must be sorted by day then start")
	}
	assert.Equal(t, 1, m.Slots[0].Period)
	assert.Equal(t, 3, m.Slots[2].Period)
	assert.Equal(t, 1, m.Slots[3].Period, "period numbering restarts per day")
}

func TestValidateMoveTeacherConflict(t *testing.T) {
	target := models.TimeSlot{ID: "slot-2-1", DayOfWeek: 2, StartTime: "08:00", EndTime: "09:00", IsTeachingPeriod: true}
	moving := models.LessonWeekRow{LessonID: "lesson-1", TeacherID: "t-1", ClassSectionID: "sec-a"}
	other := models.LessonWeekRow{
		LessonID: "lesson-2", TeacherID: "t-1", ClassSectionID: "sec-b",
		SubjectName: "Physics", ClassSectionName: "Grade 8 - B",
		DayOfWeek: 2, StartTime: "08:00",
	}

	conflict := ValidateMove(MoveCheck{
		Lesson:    moving,
		Target:    target,
		TeacherWk: []models.LessonWeekRow{moving, other},
		Qualified: true,
	})
	require.NotNil(t, conflict)
	assert.Equal(t, models.ConflictTeacher, conflict.Dimension)
	assert.Equal(t, "lesson-2", conflict.LessonID)
}

func TestValidateMoveClassConflictAndSuccess(t *testing.T) {
	target := models.TimeSlot{ID: "slot-3-1", DayOfWeek: 3, StartTime: "09:00", EndTime: "10:00", IsTeachingPeriod: true}
	moving := models.LessonWeekRow{LessonID: "lesson-1", TeacherID: "t-1", ClassSectionID: "sec-a"}
	classmate := models.LessonWeekRow{
		LessonID: "lesson-3", TeacherID: "t-2", ClassSectionID: "sec-a",
		DayOfWeek: 3, StartTime: "09:00",
	}

	conflict := ValidateMove(MoveCheck{
		Lesson:    moving,
		Target:    target,
		SectionWk: []models.LessonWeekRow{classmate},
		Qualified: true,
	})
	require.NotNil(t, conflict)
	assert.Equal(t, models.ConflictClass, conflict.Dimension)

	// Clear cell: no conflict.
	conflict = ValidateMove(MoveCheck{
		Lesson:    moving,
		Target:    target,
		SectionWk: []models.LessonWeekRow{},
		Qualified: true,
	})
	assert.Nil(t, conflict)
}

func TestValidateMoveIgnoresOwnPlacement(t *testing.T) {
	// Moving a lesson back onto its own current cell is always legal.
	target := models.TimeSlot{ID: "slot-1-1", DayOfWeek: 1, StartTime: "08:00", IsTeachingPeriod: true}
	moving := models.LessonWeekRow{
		LessonID: "lesson-1", TeacherID: "t-1", ClassSectionID: "sec-a",
		DayOfWeek: 1, StartTime: "08:00",
	}

	conflict := ValidateMove(MoveCheck{
		Lesson:    moving,
		Target:    target,
		TeacherWk: []models.LessonWeekRow{moving},
		SectionWk: []models.LessonWeekRow{moving},
		Qualified: true,
	})
	assert.Nil(t, conflict)
}

func TestProjectSortsAndNumbersPeriods(t *testing.T) {
	slots := []models.TimeSlot{
		{ID: "s-1-1", DayOfWeek: 1, StartTime: "08:00", EndTime: "09:00", IsTeachingPeriod: true},
		{ID: "s-1-2", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", IsTeachingPeriod: true},
		{ID: "s-2-1", DayOfWeek: 2, StartTime: "08:00", EndTime: "09:00", IsTeachingPeriod: true},
		{ID: "lunch", DayOfWeek: 1, StartTime: "12:00", EndTime: "12:30", IsTeachingPeriod: false},
	}
	rows := []models.LessonWeekRow{
		{LessonID: "l-2", TimeSlotID: "s-2-1", DayOfWeek: 2, StartTime: "08:00", EndTime: "09:00", ClassSectionName: "Grade 7 - A", SubjectName: "Biology", TeacherName: "Ben Suzuki"},
		{LessonID: "l-1", TimeSlotID: "s-1-2", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", ClassSectionName: "Grade 7 - A", SubjectName: "Mathematics", TeacherName: "Ada Okafor"},
	}

	entries := Project(rows, slots)
	require.Len(t, entries, 2)
	assert.Equal(t, "l-1", entries[0].LessonID, "day 1 sorts before day 2")
	assert.Equal(t, 2, entries[0].Period, "09:00 is the second period of day 1")
	assert.Equal(t, 1, entries[1].Period)
}
