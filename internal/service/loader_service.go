package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/engine"
	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/repository"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

type loaderTermReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type loaderSlotReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.TimeSlot, error)
}

type loaderSectionReader interface {
	List(ctx context.Context, schoolID string, filter repository.SectionFilter) ([]models.ClassSection, error)
}

type loaderSubjectReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Subject, error)
}

type loaderTeacherReader interface {
	ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error)
	ListQualificationsBySchool(ctx context.Context, schoolID string) ([]models.TeacherQualification, error)
}

type loaderRoomReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Room, error)
}

type loaderOfferingReader interface {
	ListByTerm(ctx context.Context, termID string, sectionIDs []string) ([]models.ClassOffering, error)
	ListAssignments(ctx context.Context, offeringIDs []string) ([]models.TeachingAssignment, error)
}

type loaderLessonStore interface {
	EnsureForOfferings(ctx context.Context, offerings []models.ClassOffering, assignments map[string]models.TeachingAssignment) error
	ListByOfferings(ctx context.Context, offeringIDs []string) ([]models.Lesson, error)
}

// Scope names the slice of the school a run applies to.
type Scope struct {
	TermID          string
	Kind            string
	GradeLevels     []int
	ClassSectionIDs []string
	TeacherIDs      []string
}

// LoadResult is a fully resolved scheduling snapshot plus the offering ids
// the scope covers. Writes are restricted to exactly these offerings.
type LoadResult struct {
	Snapshot    *engine.Snapshot
	OfferingIDs []string
}

// LoaderService resolves a scope into the in-memory snapshot the engine
// solves over, reconciling durable lesson rows along the way.
type LoaderService struct {
	terms     loaderTermReader
	slots     loaderSlotReader
	sections  loaderSectionReader
	subjects  loaderSubjectReader
	teachers  loaderTeacherReader
	rooms     loaderRoomReader
	offerings loaderOfferingReader
	lessons   loaderLessonStore
	logger    *zap.Logger
}

// NewLoaderService wires loader dependencies.
func NewLoaderService(
	terms loaderTermReader,
	slots loaderSlotReader,
	sections loaderSectionReader,
	subjects loaderSubjectReader,
	teachers loaderTeacherReader,
	rooms loaderRoomReader,
	offerings loaderOfferingReader,
	lessons loaderLessonStore,
	logger *zap.Logger,
) *LoaderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoaderService{
		terms:     terms,
		slots:     slots,
		sections:  sections,
		subjects:  subjects,
		teachers:  teachers,
		rooms:     rooms,
		offerings: offerings,
		lessons:   lessons,
		logger:    logger,
	}
}

// validateScope enforces the filter each scope kind requires. A narrowing
// scope with an empty filter is rejected rather than silently widened.
func validateScope(s Scope) error {
	switch s.Kind {
	case "", dto.ScopeSchool:
		return nil
	case dto.ScopeGrade:
		if len(s.GradeLevels) == 0 {
			return appErrors.Clone(appErrors.ErrInvalidScope, "scope 'grade' requires grade_levels")
		}
	case dto.ScopeClass:
		if len(s.ClassSectionIDs) == 0 {
			return appErrors.Clone(appErrors.ErrInvalidScope, "scope 'class' requires class_section_ids")
		}
	case dto.ScopeTeacher:
		if len(s.TeacherIDs) == 0 {
			return appErrors.Clone(appErrors.ErrInvalidScope, "scope 'teacher' requires teacher_ids")
		}
	default:
		return appErrors.Clone(appErrors.ErrInvalidScope, fmt.Sprintf("unknown scope %q", s.Kind))
	}
	return nil
}

// Load resolves the scoped snapshot. Lesson rows are reconciled first so
// every offering in scope owns exactly periods_per_week durable rows.
func (s *LoaderService) Load(ctx context.Context, scope Scope) (*LoadResult, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	term, err := s.terms.FindByID(ctx, scope.TermID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("term %s not found", scope.TermID))
		}
		return nil, fmt.Errorf("load term: %w", err)
	}

	sectionFilter := repository.SectionFilter{}
	switch scope.Kind {
	case dto.ScopeGrade:
		sectionFilter.GradeLevels = scope.GradeLevels
	case dto.ScopeClass:
		sectionFilter.IDs = scope.ClassSectionIDs
	}
	sections, err := s.sections.List(ctx, term.SchoolID, sectionFilter)
	if err != nil {
		return nil, fmt.Errorf("load class sections: %w", err)
	}
	if len(sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidScope, "scope matches no class sections")
	}

	slots, err := s.slots.ListBySchool(ctx, term.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("load time slots: %w", err)
	}
	subjects, err := s.subjects.ListBySchool(ctx, term.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	teachers, err := s.teachers.ListActiveBySchool(ctx, term.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}
	quals, err := s.teachers.ListQualificationsBySchool(ctx, term.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("load qualifications: %w", err)
	}
	rooms, err := s.rooms.ListBySchool(ctx, term.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	sectionIDs := make([]string, 0, len(sections))
	for _, sec := range sections {
		sectionIDs = append(sectionIDs, sec.ID)
	}
	// School and teacher scopes solve over all sections; the grade and
	// class scopes restrict the offering query itself.
	var offeringSectionIDs []string
	if scope.Kind == dto.ScopeGrade || scope.Kind == dto.ScopeClass {
		offeringSectionIDs = sectionIDs
	}
	offerings, err := s.offerings.ListByTerm(ctx, scope.TermID, offeringSectionIDs)
	if err != nil {
		return nil, fmt.Errorf("load offerings: %w", err)
	}

	offeringIDs := make([]string, 0, len(offerings))
	for _, off := range offerings {
		offeringIDs = append(offeringIDs, off.ID)
	}
	assignmentRows, err := s.offerings.ListAssignments(ctx, offeringIDs)
	if err != nil {
		return nil, fmt.Errorf("load teaching assignments: %w", err)
	}
	assignments := make(map[string]models.TeachingAssignment, len(assignmentRows))
	for _, ta := range assignmentRows {
		assignments[ta.ClassOfferingID] = ta
	}

	if scope.Kind == dto.ScopeTeacher {
		wanted := make(map[string]bool, len(scope.TeacherIDs))
		for _, id := range scope.TeacherIDs {
			wanted[id] = true
		}
		filtered := offerings[:0]
		for _, off := range offerings {
			if ta, ok := assignments[off.ID]; ok && wanted[ta.TeacherID] {
				filtered = append(filtered, off)
			}
		}
		offerings = filtered
		offeringIDs = offeringIDs[:0]
		for _, off := range offerings {
			offeringIDs = append(offeringIDs, off.ID)
		}
	}

	if err := s.lessons.EnsureForOfferings(ctx, offerings, assignments); err != nil {
		return nil, fmt.Errorf("reconcile lesson rows: %w", err)
	}
	lessonRows, err := s.lessons.ListByOfferings(ctx, offeringIDs)
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}

	snap := &engine.Snapshot{
		Term:        *term,
		TimeSlots:   slots,
		Sections:    make(map[string]models.ClassSection, len(sections)),
		Subjects:    make(map[string]models.Subject, len(subjects)),
		Teachers:    make(map[string]models.Teacher, len(teachers)),
		Rooms:       rooms,
		Offerings:   offerings,
		Assignments: assignments,
		Qualified:   make(map[string]map[string]bool, len(teachers)),
		Lessons:     make(map[string][]models.Lesson, len(offerings)),
	}
	for _, sec := range sections {
		snap.Sections[sec.ID] = sec
	}
	for _, sub := range subjects {
		snap.Subjects[sub.ID] = sub
	}
	for _, t := range teachers {
		snap.Teachers[t.ID] = t
	}
	for _, q := range quals {
		if snap.Qualified[q.TeacherID] == nil {
			snap.Qualified[q.TeacherID] = make(map[string]bool)
		}
		snap.Qualified[q.TeacherID][q.SubjectID] = true
	}
	for _, l := range lessonRows {
		snap.Lessons[l.OfferingID] = append(snap.Lessons[l.OfferingID], l)
	}

	s.logger.Debug("snapshot loaded",
		zap.String("term_id", scope.TermID),
		zap.String("scope", scope.Kind),
		zap.Int("sections", len(sections)),
		zap.Int("offerings", len(offerings)),
		zap.Int("lessons", len(lessonRows)),
	)

	return &LoadResult{Snapshot: snap, OfferingIDs: offeringIDs}, nil
}
