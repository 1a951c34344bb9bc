package dto

// Scope selects the subset of the school a generation run applies to.
const (
	ScopeSchool  = "school"
	ScopeGrade   = "grade"
	ScopeClass   = "class"
	ScopeTeacher = "teacher"
)

// GenerateRequest is the body of POST /generate, kept wire-compatible with
// the timetable UI.
type GenerateRequest struct {
	TermID          string   `json:"term_id" validate:"required"`
	UserID          string   `json:"user_id" validate:"required"`
	Scope           string   `json:"scope" validate:"omitempty,oneof=school grade class teacher"`
	GradeLevels     []int    `json:"grade_levels" validate:"omitempty,dive,min=1"`
	ClassSectionIDs []string `json:"class_section_ids" validate:"omitempty,dive,required"`
	TeacherIDs      []string `json:"teacher_ids" validate:"omitempty,dive,required"`
}

// TimetableEntry is one calendar cell of the rendered weekly timetable.
type TimetableEntry struct {
	LessonID         string `json:"lesson_id"`
	ClassSectionName string `json:"class_section_name"`
	Day              int    `json:"day"`
	Period           int    `json:"period"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	SubjectName      string `json:"subject_name"`
	TeacherName      string `json:"teacher_name"`
}

// UnplacedOffering reports demand the solver could not satisfy, with the
// constraint that blocked it. Presence of unplaced entries is a normal
// outcome, not an error.
type UnplacedOffering struct {
	OfferingID       string `json:"offering_id"`
	SubjectName      string `json:"subject_name"`
	ClassSectionName string `json:"class_section_name"`
	MissingPeriods   int    `json:"missing_periods"`
	Reason           string `json:"reason"`
}

// SolverStats summarises a generation run.
type SolverStats struct {
	Visited    int     `json:"visited_nodes"`
	Backtracks int     `json:"backtracks"`
	Placed     int     `json:"placed"`
	Unplaced   int     `json:"unplaced"`
	SoftCost   float64 `json:"soft_cost"`
	SolveTime  float64 `json:"solve_time_seconds"`
}

// GenerateResponse is the flat legacy body of POST /generate.
type GenerateResponse struct {
	Message      string             `json:"message"`
	SolverStatus string             `json:"solver_status"`
	SolveTime    float64            `json:"solve_time"`
	Timetable    []TimetableEntry   `json:"timetable"`
	Unplaced     []UnplacedOffering `json:"unplaced,omitempty"`
	Stats        *SolverStats       `json:"stats,omitempty"`
}

// UpdateLessonRequest is the body of POST /update-lesson (drag-drop move).
type UpdateLessonRequest struct {
	TermID       string `json:"term_id" validate:"required"`
	LessonID     string `json:"lesson_id" validate:"required"`
	NewDay       int    `json:"new_day" validate:"required,min=1,max=7"`
	NewStartTime string `json:"new_start_time" validate:"required"`
}

// UpdateLessonResponse returns the full re-projected timetable after a move.
type UpdateLessonResponse struct {
	Timetable []TimetableEntry `json:"timetable"`
}

// FeasibilityRequest mirrors GenerateRequest without a user.
type FeasibilityRequest struct {
	TermID          string   `json:"term_id" validate:"required"`
	Scope           string   `json:"scope" validate:"omitempty,oneof=school grade class teacher"`
	GradeLevels     []int    `json:"grade_levels"`
	ClassSectionIDs []string `json:"class_section_ids"`
	TeacherIDs      []string `json:"teacher_ids"`
}

// FeasibilityReport is a cheap upper-bound check run before a full solve.
type FeasibilityReport struct {
	TotalPeriodsNeeded int                `json:"total_periods_needed"`
	TotalTimeSlots     int                `json:"total_time_slots_available"`
	UtilizationRate    float64            `json:"utilization_rate"`
	BasicallyFeasible  bool               `json:"is_basically_feasible"`
	OverloadedTeachers []TeacherLoadBound `json:"overloaded_teachers,omitempty"`
}

// TeacherLoadBound flags a teacher whose assigned demand exceeds the weekly
// slot capacity even before clash constraints are considered.
type TeacherLoadBound struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Demand      int    `json:"demand"`
	Capacity    int    `json:"capacity"`
}

// TimetableQuery filters GET /timetable and GET /timetable/export.
type TimetableQuery struct {
	TermID          string   `form:"term_id"`
	Scope           string   `form:"scope"`
	GradeLevels     []int    `form:"grade_levels"`
	ClassSectionIDs []string `form:"class_section_ids"`
	TeacherIDs      []string `form:"teacher_ids"`
}
