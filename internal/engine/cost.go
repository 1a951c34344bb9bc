package engine

import (
	"sort"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// Soft-constraint weights. Hard constraints are never traded against these;
// the cost only ranks otherwise-valid schedules.
const (
	gapWeight      = 1.0
	clusterWeight  = 0.5
	roomFitPenalty = 2.0
)

// softCost scores an assignment: idle gaps inside a teacher's day, periods
// of one offering clustered on adjacent days, and practical subjects placed
// without a fitting room (when rooms are modeled but not enforced).
func softCost(st *searchState, assigned []int) float64 {
	var cost float64
	cost += teacherGapCost(st, assigned)
	cost += clusterCost(st, assigned)
	cost += roomFitCost(st, assigned)
	return cost
}

func teacherGapCost(st *searchState, assigned []int) float64 {
	// teacher -> day -> sorted period numbers
	periods := make(map[string]map[int][]int)
	for di, si := range assigned {
		if si == -1 {
			continue
		}
		d := st.m.Demands[di]
		slot := st.m.Slots[si]
		if periods[d.TeacherID] == nil {
			periods[d.TeacherID] = make(map[int][]int)
		}
		periods[d.TeacherID][slot.Day] = append(periods[d.TeacherID][slot.Day], slot.Period)
	}

	var cost float64
	for _, days := range periods {
		for _, ps := range days {
			if len(ps) < 2 {
				continue
			}
			sort.Ints(ps)
			for i := 0; i < len(ps)-1; i++ {
				if gap := ps[i+1] - ps[i] - 1; gap > 0 {
					cost += gapWeight * float64(gap)
				}
			}
		}
	}
	return cost
}

func clusterCost(st *searchState, assigned []int) float64 {
	days := make(map[string][]int)
	for di, si := range assigned {
		if si == -1 {
			continue
		}
		d := st.m.Demands[di]
		days[d.OfferingID] = append(days[d.OfferingID], st.m.Slots[si].Day)
	}

	var cost float64
	for _, ds := range days {
		if len(ds) < 2 {
			continue
		}
		sort.Ints(ds)
		for i := 0; i < len(ds)-1; i++ {
			if ds[i+1]-ds[i] <= 1 {
				cost += clusterWeight
			}
		}
	}
	return cost
}

func roomFitCost(st *searchState, assigned []int) float64 {
	if st.opts.EnforceRooms || len(st.m.Rooms) == 0 {
		return 0
	}
	labs := 0
	for _, room := range st.m.Rooms {
		if room.Type == models.RoomTypeLab {
			labs++
		}
	}
	if labs > 0 {
		return 0
	}
	var cost float64
	for di, si := range assigned {
		if si == -1 {
			continue
		}
		if st.m.Demands[di].SubjectType == models.SubjectTypePractical {
			cost += roomFitPenalty
		}
	}
	return cost
}
