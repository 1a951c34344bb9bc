package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/engine"
	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/repository"
	"github.com/noah-isme/timetable-engine/pkg/config"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/lock"
	"github.com/noah-isme/timetable-engine/pkg/worker"
)

// Solver status values kept wire-compatible with the previous engine.
const (
	StatusOptimal    = "OPTIMAL"
	StatusFeasible   = "FEASIBLE"
	StatusInfeasible = "INFEASIBLE"
)

type snapshotLoader interface {
	Load(ctx context.Context, scope Scope) (*LoadResult, error)
}

type lessonStore interface {
	ApplyPlacements(ctx context.Context, offeringIDs []string, placements []repository.PlacementRow) error
	MoveLesson(ctx context.Context, lessonID string, version int, timeSlotID string) error
	FindWeekRowByID(ctx context.Context, id string) (*models.LessonWeekRow, error)
	ListWeek(ctx context.Context, filter repository.WeekFilter) ([]models.LessonWeekRow, error)
}

type slotResolver interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.TimeSlot, error)
	FindByDayStart(ctx context.Context, schoolID string, day int, start string) (*models.TimeSlot, error)
}

type termResolver interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type qualificationReader interface {
	ListQualificationsBySchool(ctx context.Context, schoolID string) ([]models.TeacherQualification, error)
}

type projectionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type solverMetrics interface {
	ObserveSolve(status string, duration time.Duration, placed, unplaced, backtracks int)
	ObserveRepair(outcome string)
	ObserveLockContention(termID string)
}

// TimetableService owns timetable generation, single-lesson repair and the
// read projections.
type TimetableService struct {
	loader    snapshotLoader
	lessons   lessonStore
	slots     slotResolver
	terms     termResolver
	quals     qualificationReader
	cache     projectionCache
	locker    lock.TermLocker
	pool      *worker.Pool
	metrics   solverMetrics
	validator *validator.Validate
	logger    *zap.Logger
	solverCfg config.SolverConfig
	cacheCfg  config.CacheConfig
}

// NewTimetableService wires the engine dependencies.
func NewTimetableService(
	loader snapshotLoader,
	lessons lessonStore,
	slots slotResolver,
	terms termResolver,
	quals qualificationReader,
	cache projectionCache,
	locker lock.TermLocker,
	pool *worker.Pool,
	metrics solverMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	solverCfg config.SolverConfig,
	cacheCfg config.CacheConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		loader:    loader,
		lessons:   lessons,
		slots:     slots,
		terms:     terms,
		quals:     quals,
		cache:     cache,
		locker:    locker,
		pool:      pool,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		solverCfg: solverCfg,
		cacheCfg:  cacheCfg,
	}
}

func scopeFromGenerate(req dto.GenerateRequest) Scope {
	return Scope{
		TermID:          req.TermID,
		Kind:            req.Scope,
		GradeLevels:     req.GradeLevels,
		ClassSectionIDs: req.ClassSectionIDs,
		TeacherIDs:      req.TeacherIDs,
	}
}

func weekFilterFromScope(scope Scope) repository.WeekFilter {
	f := repository.WeekFilter{TermID: scope.TermID}
	switch scope.Kind {
	case dto.ScopeGrade:
		f.GradeLevels = scope.GradeLevels
	case dto.ScopeClass:
		f.SectionIDs = scope.ClassSectionIDs
	case dto.ScopeTeacher:
		f.TeacherIDs = scope.TeacherIDs
	}
	return f
}

// Generate runs a full scoped solve and atomically replaces the scope's
// placements. Concurrent runs against the same term are rejected; an
// over-constrained instance yields the best partial timetable plus unplaced
// diagnostics rather than an error.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	release, ok, err := s.locker.Acquire(ctx, req.TermID)
	if err != nil {
		return nil, fmt.Errorf("acquire term lock: %w", err)
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.ObserveLockContention(req.TermID)
		}
		return nil, appErrors.ErrLockHeld
	}
	defer release()

	scope := scopeFromGenerate(req)
	loaded, err := s.loader.Load(ctx, scope)
	if err != nil {
		return nil, err
	}

	model := engine.BuildModel(loaded.Snapshot)
	opts := engine.Options{
		AllowSameDay:  s.solverCfg.AllowSameDay,
		EnforceRooms:  s.solverCfg.EnforceRooms,
		MaxBacktracks: s.solverCfg.MaxBacktracks,
	}

	var result *engine.Result
	solveErr := s.pool.Run(ctx, func(ctx context.Context) error {
		solveCtx, cancel := context.WithTimeout(ctx, s.solverCfg.Timeout)
		defer cancel()
		result = engine.Solve(solveCtx, model, opts)
		return nil
	})
	if solveErr != nil {
		return nil, fmt.Errorf("run solver: %w", solveErr)
	}

	placements := make([]repository.PlacementRow, 0, len(result.Placements))
	for _, p := range result.Placements {
		row := repository.PlacementRow{
			LessonID:   p.LessonID,
			TimeSlotID: model.Slots[p.SlotIndex].ID,
		}
		if p.RoomID != "" {
			roomID := p.RoomID
			row.RoomID = &roomID
		}
		placements = append(placements, row)
	}
	if err := s.lessons.ApplyPlacements(ctx, loaded.OfferingIDs, placements); err != nil {
		return nil, fmt.Errorf("persist placements: %w", err)
	}
	s.invalidateProjections(ctx, req.TermID)

	entries, err := s.project(ctx, weekFilterFromScope(scope), loaded.Snapshot.TimeSlots)
	if err != nil {
		return nil, err
	}

	status := solverStatus(result)
	if s.metrics != nil {
		s.metrics.ObserveSolve(status, result.Stats.SolveTime, len(result.Placements), missingPeriods(result.Unplaced), result.Stats.Backtracks)
	}
	s.logger.Info("timetable generated",
		zap.String("term_id", req.TermID),
		zap.String("scope", scope.Kind),
		zap.String("status", status),
		zap.Int("placed", len(result.Placements)),
		zap.Int("unplaced", missingPeriods(result.Unplaced)),
		zap.Duration("solve_time", result.Stats.SolveTime),
		zap.String("user_id", req.UserID),
	)

	return &dto.GenerateResponse{
		Message:      generateMessage(result),
		SolverStatus: status,
		SolveTime:    result.Stats.SolveTime.Seconds(),
		Timetable:    entries,
		Unplaced:     unplacedDTO(result.Unplaced),
		Stats: &dto.SolverStats{
			Visited:    result.Stats.Visited,
			Backtracks: result.Stats.Backtracks,
			Placed:     len(result.Placements),
			Unplaced:   missingPeriods(result.Unplaced),
			SoftCost:   result.SoftCost,
			SolveTime:  result.Stats.SolveTime.Seconds(),
		},
	}, nil
}

// UpdateLesson moves one lesson to a new slot after validating the move
// against the current schedule. The write is guarded by the lesson's version
// so a concurrent change surfaces as a conflict instead of a lost update.
func (s *TimetableService) UpdateLesson(ctx context.Context, req dto.UpdateLessonRequest) (*dto.UpdateLessonResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	release, ok, err := s.locker.Acquire(ctx, req.TermID)
	if err != nil {
		return nil, fmt.Errorf("acquire term lock: %w", err)
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.ObserveLockContention(req.TermID)
		}
		return nil, appErrors.ErrLockHeld
	}
	defer release()

	term, err := s.terms.FindByID(ctx, req.TermID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("term %s not found", req.TermID))
		}
		return nil, fmt.Errorf("load term: %w", err)
	}

	row, err := s.lessons.FindWeekRowByID(ctx, req.LessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("lesson %s not found", req.LessonID))
		}
		return nil, fmt.Errorf("load lesson: %w", err)
	}

	target, err := s.slots.FindByDayStart(ctx, term.SchoolID, req.NewDay, req.NewStartTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no time slot at day %d %s", req.NewDay, req.NewStartTime))
		}
		return nil, fmt.Errorf("resolve target slot: %w", err)
	}
	if !target.IsTeachingPeriod {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot at day %d %s is not a teaching period", req.NewDay, req.NewStartTime))
	}

	teacherWk, err := s.lessons.ListWeek(ctx, repository.WeekFilter{TermID: req.TermID, TeacherIDs: []string{row.TeacherID}})
	if err != nil {
		return nil, fmt.Errorf("load teacher week: %w", err)
	}
	sectionWk, err := s.lessons.ListWeek(ctx, repository.WeekFilter{TermID: req.TermID, SectionIDs: []string{row.ClassSectionID}})
	if err != nil {
		return nil, fmt.Errorf("load class week: %w", err)
	}
	var roomWk []models.LessonWeekRow
	if s.solverCfg.EnforceRooms && row.RoomID != nil {
		roomWk, err = s.lessons.ListWeek(ctx, repository.WeekFilter{TermID: req.TermID, RoomID: *row.RoomID})
		if err != nil {
			return nil, fmt.Errorf("load room week: %w", err)
		}
	}

	qualified, err := s.isQualified(ctx, term.SchoolID, row.TeacherID, row.SubjectID)
	if err != nil {
		return nil, err
	}

	if conflict := engine.ValidateMove(engine.MoveCheck{
		Lesson:     *row,
		Target:     *target,
		TeacherWk:  teacherWk,
		SectionWk:  sectionWk,
		RoomWk:     roomWk,
		Qualified:  qualified,
		EnforceRms: s.solverCfg.EnforceRooms,
	}); conflict != nil {
		if s.metrics != nil {
			s.metrics.ObserveRepair("conflict")
		}
		return nil, appErrors.Clone(appErrors.ErrScheduleConflict, conflictMessage(conflict))
	}

	if err := s.lessons.MoveLesson(ctx, req.LessonID, row.Version, target.ID); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			if s.metrics != nil {
				s.metrics.ObserveRepair("stale_version")
			}
			return nil, appErrors.ErrConcurrentModification
		}
		return nil, fmt.Errorf("move lesson: %w", err)
	}
	s.invalidateProjections(ctx, req.TermID)
	if s.metrics != nil {
		s.metrics.ObserveRepair("moved")
	}
	s.logger.Info("lesson moved",
		zap.String("term_id", req.TermID),
		zap.String("lesson_id", req.LessonID),
		zap.Int("day", req.NewDay),
		zap.String("start_time", req.NewStartTime),
	)

	slots, err := s.slots.ListBySchool(ctx, term.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("load time slots: %w", err)
	}
	entries, err := s.project(ctx, repository.WeekFilter{TermID: req.TermID}, slots)
	if err != nil {
		return nil, err
	}
	return &dto.UpdateLessonResponse{Timetable: entries}, nil
}

// Timetable returns the scoped weekly projection, served from cache when
// possible.
func (s *TimetableService) Timetable(ctx context.Context, query dto.TimetableQuery) ([]dto.TimetableEntry, error) {
	if query.TermID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term_id is required")
	}
	scope := Scope{
		TermID:          query.TermID,
		Kind:            query.Scope,
		GradeLevels:     query.GradeLevels,
		ClassSectionIDs: query.ClassSectionIDs,
		TeacherIDs:      query.TeacherIDs,
	}
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	key := projectionKey(scope)
	if s.cacheCfg.Enabled && s.cache != nil {
		var cached []dto.TimetableEntry
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	term, err := s.terms.FindByID(ctx, query.TermID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("term %s not found", query.TermID))
		}
		return nil, fmt.Errorf("load term: %w", err)
	}
	slots, err := s.slots.ListBySchool(ctx, term.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("load time slots: %w", err)
	}
	entries, err := s.project(ctx, weekFilterFromScope(scope), slots)
	if err != nil {
		return nil, err
	}

	if s.cacheCfg.Enabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, entries, s.cacheCfg.TTL); err != nil {
			s.logger.Warn("cache projection", zap.String("key", key), zap.Error(err))
		}
	}
	return entries, nil
}

// CheckFeasibility runs the cheap counting bounds without searching: total
// demand against grid capacity, and per-teacher demand against the weekly
// teaching slot count.
func (s *TimetableService) CheckFeasibility(ctx context.Context, req dto.FeasibilityRequest) (*dto.FeasibilityReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	loaded, err := s.loader.Load(ctx, Scope{
		TermID:          req.TermID,
		Kind:            req.Scope,
		GradeLevels:     req.GradeLevels,
		ClassSectionIDs: req.ClassSectionIDs,
		TeacherIDs:      req.TeacherIDs,
	})
	if err != nil {
		return nil, err
	}
	snap := loaded.Snapshot

	teachingSlots := 0
	for _, ts := range snap.TimeSlots {
		if ts.IsTeachingPeriod {
			teachingSlots++
		}
	}

	totalNeeded := 0
	teacherDemand := make(map[string]int)
	for _, off := range snap.Offerings {
		totalNeeded += off.PeriodsPerWeek
		if ta, ok := snap.Assignments[off.ID]; ok {
			teacherDemand[ta.TeacherID] += off.PeriodsPerWeek
		}
	}
	capacity := teachingSlots * len(snap.Sections)

	var overloaded []dto.TeacherLoadBound
	for teacherID, demand := range teacherDemand {
		if demand > teachingSlots {
			overloaded = append(overloaded, dto.TeacherLoadBound{
				TeacherID:   teacherID,
				TeacherName: snap.TeacherName(teacherID),
				Demand:      demand,
				Capacity:    teachingSlots,
			})
		}
	}
	sort.Slice(overloaded, func(i, j int) bool { return overloaded[i].TeacherID < overloaded[j].TeacherID })

	rate := 0.0
	if capacity > 0 {
		rate = float64(totalNeeded) / float64(capacity)
	}
	return &dto.FeasibilityReport{
		TotalPeriodsNeeded: totalNeeded,
		TotalTimeSlots:     teachingSlots,
		UtilizationRate:    rate,
		BasicallyFeasible:  totalNeeded <= capacity && len(overloaded) == 0,
		OverloadedTeachers: overloaded,
	}, nil
}

func (s *TimetableService) project(ctx context.Context, filter repository.WeekFilter, slots []models.TimeSlot) ([]dto.TimetableEntry, error) {
	rows, err := s.lessons.ListWeek(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load week rows: %w", err)
	}
	return engine.Project(rows, slots), nil
}

func (s *TimetableService) isQualified(ctx context.Context, schoolID, teacherID, subjectID string) (bool, error) {
	quals, err := s.quals.ListQualificationsBySchool(ctx, schoolID)
	if err != nil {
		return false, fmt.Errorf("load qualifications: %w", err)
	}
	for _, q := range quals {
		if q.TeacherID == teacherID && q.SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (s *TimetableService) invalidateProjections(ctx context.Context, termID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:"+termID+":*"); err != nil {
		s.logger.Warn("invalidate projections", zap.String("term_id", termID), zap.Error(err))
	}
}

func projectionKey(scope Scope) string {
	var b strings.Builder
	b.WriteString("timetable:")
	b.WriteString(scope.TermID)
	b.WriteString(":")
	kind := scope.Kind
	if kind == "" {
		kind = dto.ScopeSchool
	}
	b.WriteString(kind)
	for _, g := range scope.GradeLevels {
		fmt.Fprintf(&b, ":g%d", g)
	}
	for _, id := range scope.ClassSectionIDs {
		b.WriteString(":c")
		b.WriteString(id)
	}
	for _, id := range scope.TeacherIDs {
		b.WriteString(":t")
		b.WriteString(id)
	}
	return b.String()
}

func solverStatus(res *engine.Result) string {
	switch {
	case res.Complete:
		return StatusOptimal
	case len(res.Placements) > 0:
		return StatusFeasible
	default:
		return StatusInfeasible
	}
}

func generateMessage(res *engine.Result) string {
	if res.Complete {
		return "Timetable generated successfully"
	}
	missing := missingPeriods(res.Unplaced)
	if len(res.Placements) == 0 {
		return "No lessons could be placed"
	}
	return fmt.Sprintf("Timetable generated with %d unplaced periods", missing)
}

func missingPeriods(unplaced []engine.Unplaced) int {
	total := 0
	for _, u := range unplaced {
		total += u.Missing
	}
	return total
}

func unplacedDTO(unplaced []engine.Unplaced) []dto.UnplacedOffering {
	out := make([]dto.UnplacedOffering, 0, len(unplaced))
	for _, u := range unplaced {
		out = append(out, dto.UnplacedOffering{
			OfferingID:       u.OfferingID,
			SubjectName:      u.SubjectName,
			ClassSectionName: u.SectionName,
			MissingPeriods:   u.Missing,
			Reason:           u.Reason,
		})
	}
	return out
}

func conflictMessage(c *models.ScheduleConflict) string {
	switch c.Dimension {
	case models.ConflictTeacher:
		if c.LessonID == "" {
			return "teacher is not qualified for this subject"
		}
		return fmt.Sprintf("teacher already teaches %s for %s at day %d %s", c.SubjectName, c.ClassSectionName, c.DayOfWeek, c.StartTime)
	case models.ConflictClass:
		return fmt.Sprintf("class %s already has %s at day %d %s", c.ClassSectionName, c.SubjectName, c.DayOfWeek, c.StartTime)
	case models.ConflictRoom:
		return fmt.Sprintf("room is already occupied by %s at day %d %s", c.ClassSectionName, c.DayOfWeek, c.StartTime)
	default:
		return "requested placement conflicts with an existing lesson"
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return strings.Join(fields, ", ")
	}
	return "validation failed"
}
