package engine

import (
	"context"
	"sort"
	"time"
)

// Placement binds a demand's lesson to a concrete slot (and room when rooms
// are enforced).
type Placement struct {
	LessonID  string
	SlotIndex int
	RoomID    string
}

// Stats reports search effort.
type Stats struct {
	Visited    int
	Backtracks int
	SolveTime  time.Duration
}

// Result is the outcome of one solve. Complete is false when the returned
// assignment is the best feasible partial one; that is a normal outcome for
// over-constrained input or an expired deadline, never an error.
type Result struct {
	Placements []Placement
	Unplaced   []Unplaced
	SoftCost   float64
	Complete   bool
	Stats      Stats
}

const deadlineCheckInterval = 128

// Additional diagnosis reasons produced after search.
const (
	ReasonNoMutualSlot = "no mutually free slot for teacher and class"
	ReasonDaySpread    = "periods per week exceed distinct available days"
	ReasonBudget       = "search budget exhausted before placement"
)

type candidate struct {
	slot int
	room int // index into model.Rooms, -1 when rooms are not enforced
}

type searchState struct {
	m    *Model
	opts Options

	assigned []int // demand -> slot index, -1 unassigned
	roomOf   []int // demand -> room index, -1 none

	teacherBusy map[string][]bool
	classBusy   map[string][]bool
	roomBusy    [][]bool
	offDayUse   map[string][]int // offering -> per-day placement count
}

func newSearchState(m *Model, opts Options) *searchState {
	st := &searchState{
		m:           m,
		opts:        opts,
		assigned:    make([]int, len(m.Demands)),
		roomOf:      make([]int, len(m.Demands)),
		teacherBusy: make(map[string][]bool),
		classBusy:   make(map[string][]bool),
		roomBusy:    make([][]bool, len(m.Rooms)),
		offDayUse:   make(map[string][]int),
	}
	for i := range st.assigned {
		st.assigned[i] = -1
		st.roomOf[i] = -1
	}
	for _, d := range m.Demands {
		if st.teacherBusy[d.TeacherID] == nil {
			st.teacherBusy[d.TeacherID] = make([]bool, len(m.Slots))
		}
		if st.classBusy[d.SectionID] == nil {
			st.classBusy[d.SectionID] = make([]bool, len(m.Slots))
		}
		if st.offDayUse[d.OfferingID] == nil {
			st.offDayUse[d.OfferingID] = make([]int, 8)
		}
	}
	for i := range m.Rooms {
		st.roomBusy[i] = make([]bool, len(m.Slots))
	}
	return st
}

func (st *searchState) dayAllowed(d Demand, day int) bool {
	if st.opts.AllowSameDay {
		return true
	}
	return st.offDayUse[d.OfferingID][day] == 0
}

// pickRoom returns the lowest-id free room compatible with the subject type,
// or -1 when none exists.
func (st *searchState) pickRoom(d Demand, slot int) int {
	for ri, room := range st.m.Rooms {
		if !room.Fits(d.SubjectType) {
			continue
		}
		if !st.roomBusy[ri][slot] {
			return ri
		}
	}
	return -1
}

// candidates lists valid placements for a demand in deterministic
// earliest-day, earliest-start order. Domains are computed lazily against
// current occupancy rather than precomputed, bounding memory on large scopes.
func (st *searchState) candidates(di int) []candidate {
	d := st.m.Demands[di]
	var out []candidate
	for si := range st.m.Slots {
		slot := st.m.Slots[si]
		if st.teacherBusy[d.TeacherID][si] || st.classBusy[d.SectionID][si] {
			continue
		}
		if !st.dayAllowed(d, slot.Day) {
			continue
		}
		room := -1
		if st.opts.EnforceRooms {
			room = st.pickRoom(d, si)
			if room == -1 {
				continue
			}
		}
		out = append(out, candidate{slot: si, room: room})
	}
	return out
}

func (st *searchState) place(di int, c candidate) {
	d := st.m.Demands[di]
	st.assigned[di] = c.slot
	st.roomOf[di] = c.room
	st.teacherBusy[d.TeacherID][c.slot] = true
	st.classBusy[d.SectionID][c.slot] = true
	st.offDayUse[d.OfferingID][st.m.Slots[c.slot].Day]++
	if c.room >= 0 {
		st.roomBusy[c.room][c.slot] = true
	}
}

func (st *searchState) unplace(di int) {
	d := st.m.Demands[di]
	c := candidate{slot: st.assigned[di], room: st.roomOf[di]}
	st.assigned[di] = -1
	st.roomOf[di] = -1
	st.teacherBusy[d.TeacherID][c.slot] = false
	st.classBusy[d.SectionID][c.slot] = false
	st.offDayUse[d.OfferingID][st.m.Slots[c.slot].Day]--
	if c.room >= 0 {
		st.roomBusy[c.room][c.slot] = false
	}
}

// pickDemand applies most-constrained-variable-first ordering: the
// unassigned demand with the fewest remaining candidates, ties broken by
// lowest teacher id then lowest lesson id so runs are reproducible.
func (st *searchState) pickDemand() (int, []candidate, bool) {
	best := -1
	var bestCands []candidate
	for di := range st.m.Demands {
		if st.assigned[di] != -1 {
			continue
		}
		cands := st.candidates(di)
		if best == -1 || len(cands) < len(bestCands) ||
			(len(cands) == len(bestCands) && demandLess(st.m.Demands[di], st.m.Demands[best])) {
			best = di
			bestCands = cands
		}
	}
	if best == -1 {
		return -1, nil, false
	}
	return best, bestCands, true
}

func demandLess(a, b Demand) bool {
	if a.TeacherID != b.TeacherID {
		return a.TeacherID < b.TeacherID
	}
	return a.LessonID < b.LessonID
}

type frame struct {
	demand int
	cands  []candidate
	next   int
}

// Solve runs backtracking search with lazy forward checking over the model.
// It is a pure function of its inputs: no side effects until the caller
// persists the result. On deadline or backtrack-budget exhaustion it
// returns the best feasible partial assignment found so far.
func Solve(ctx context.Context, m *Model, opts Options) *Result {
	start := time.Now()
	if opts.MaxBacktracks <= 0 {
		opts.MaxBacktracks = 200000
	}

	res := &Result{}
	res.Unplaced = append(res.Unplaced, m.PreUnplaced...)

	st := newSearchState(m, opts)

	bestAssigned := make([]int, len(st.assigned))
	bestRooms := make([]int, len(st.roomOf))
	copy(bestAssigned, st.assigned)
	copy(bestRooms, st.roomOf)
	bestPlaced := 0
	placed := 0

	snapshotBest := func() {
		if placed > bestPlaced {
			bestPlaced = placed
			copy(bestAssigned, st.assigned)
			copy(bestRooms, st.roomOf)
		}
	}

	var stack []frame
	aborted := false

	if len(m.Slots) > 0 && len(m.Demands) > 0 {
		di, cands, _ := st.pickDemand()
		stack = append(stack, frame{demand: di, cands: cands})

		for len(stack) > 0 {
			res.Stats.Visited++
			if res.Stats.Visited%deadlineCheckInterval == 0 {
				select {
				case <-ctx.Done():
					aborted = true
				default:
				}
			}
			if aborted || res.Stats.Backtracks > opts.MaxBacktracks {
				break
			}

			top := &stack[len(stack)-1]
			if top.next >= len(top.cands) {
				// Exhausted values for this variable: backtrack.
				stack = stack[:len(stack)-1]
				res.Stats.Backtracks++
				if len(stack) > 0 {
					parent := &stack[len(stack)-1]
					st.unplace(parent.demand)
					placed--
				}
				continue
			}

			c := top.cands[top.next]
			top.next++
			st.place(top.demand, c)
			placed++
			snapshotBest()

			if placed == len(m.Demands) {
				break
			}

			di, cands, ok := st.pickDemand()
			if !ok {
				break
			}
			if len(cands) == 0 {
				// Dead end ahead; undo this value and try the next.
				st.unplace(top.demand)
				placed--
				res.Stats.Backtracks++
				continue
			}
			stack = append(stack, frame{demand: di, cands: cands})
		}
	}

	// Rebuild occupancy from the best assignment for cost + diagnosis.
	final := newSearchState(m, opts)
	for di, si := range bestAssigned {
		if si == -1 {
			continue
		}
		final.place(di, candidate{slot: si, room: bestRooms[di]})
	}

	for di, si := range bestAssigned {
		if si == -1 {
			continue
		}
		roomID := ""
		if bestRooms[di] >= 0 {
			roomID = m.Rooms[bestRooms[di]].ID
		}
		res.Placements = append(res.Placements, Placement{
			LessonID:  m.Demands[di].LessonID,
			SlotIndex: si,
			RoomID:    roomID,
		})
	}
	sort.Slice(res.Placements, func(i, j int) bool {
		a, b := res.Placements[i], res.Placements[j]
		if a.SlotIndex != b.SlotIndex {
			return a.SlotIndex < b.SlotIndex
		}
		return a.LessonID < b.LessonID
	})

	res.Unplaced = append(res.Unplaced, diagnoseUnplaced(final, bestAssigned)...)
	res.Complete = len(res.Unplaced) == 0
	res.SoftCost = softCost(final, bestAssigned)
	res.Stats.SolveTime = time.Since(start)
	return res
}

// diagnoseUnplaced explains each demand left without a slot, aggregated per
// offering in deterministic demand order.
func diagnoseUnplaced(st *searchState, assigned []int) []Unplaced {
	type agg struct {
		u     Unplaced
		order int
	}
	byOffering := make(map[string]*agg)
	var order []string

	for di, si := range assigned {
		if si != -1 {
			continue
		}
		d := st.m.Demands[di]
		entry, ok := byOffering[d.OfferingID]
		if !ok {
			entry = &agg{u: Unplaced{
				OfferingID:  d.OfferingID,
				SectionName: d.SectionName,
				SubjectName: d.SubjectName,
				Reason:      unplacedReason(st, d),
			}}
			byOffering[d.OfferingID] = entry
			order = append(order, d.OfferingID)
		}
		entry.u.Missing++
	}

	out := make([]Unplaced, 0, len(order))
	for _, id := range order {
		out = append(out, byOffering[id].u)
	}
	return out
}

func unplacedReason(st *searchState, d Demand) string {
	if len(st.m.Slots) == 0 {
		return ReasonNoTeachingSlots
	}
	teacherFree, classFree, bothFree, dayOK, roomOK := false, false, false, false, false
	for si := range st.m.Slots {
		tf := !st.teacherBusy[d.TeacherID][si]
		cf := !st.classBusy[d.SectionID][si]
		teacherFree = teacherFree || tf
		classFree = classFree || cf
		if tf && cf {
			bothFree = true
			if st.dayAllowed(d, st.m.Slots[si].Day) {
				dayOK = true
				if !st.opts.EnforceRooms || st.pickRoom(d, si) >= 0 {
					roomOK = true
				}
			}
		}
	}
	switch {
	case !teacherFree:
		return ReasonTeacherBusy
	case !classFree:
		return ReasonClassBusy
	case !bothFree:
		return ReasonNoMutualSlot
	case !dayOK:
		return ReasonDaySpread
	case !roomOK:
		return ReasonNoRoom
	default:
		return ReasonBudget
	}
}
