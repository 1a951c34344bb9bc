package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/service"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/response"
)

type timetableEngine interface {
	Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error)
	UpdateLesson(ctx context.Context, req dto.UpdateLessonRequest) (*dto.UpdateLessonResponse, error)
	Timetable(ctx context.Context, query dto.TimetableQuery) ([]dto.TimetableEntry, error)
	CheckFeasibility(ctx context.Context, req dto.FeasibilityRequest) (*dto.FeasibilityReport, error)
}

type timetableExporter interface {
	Export(ctx context.Context, query dto.TimetableQuery, format string) (*service.ExportFile, error)
}

// EngineHandler exposes the timetable engine endpoints. The /generate and
// /update-lesson bodies stay flat for the legacy drag-drop client; newer
// read endpoints use the envelope.
type EngineHandler struct {
	engine  timetableEngine
	exports timetableExporter
}

// NewEngineHandler constructs handler.
func NewEngineHandler(engine timetableEngine, exports timetableExporter) *EngineHandler {
	return &EngineHandler{engine: engine, exports: exports}
}

// Generate godoc
// @Summary Generate a timetable for a term scope
// @Tags Engine
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Generation scope"
// @Success 200 {object} dto.GenerateResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /generate [post]
func (h *EngineHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.LegacyError(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	resp, err := h.engine.Generate(c.Request.Context(), req)
	if err != nil {
		response.LegacyError(c, err)
		return
	}
	response.Raw(c, http.StatusOK, resp)
}

// UpdateLesson godoc
// @Summary Move a single lesson to a new slot
// @Tags Engine
// @Accept json
// @Produce json
// @Param payload body dto.UpdateLessonRequest true "Lesson move"
// @Success 200 {object} dto.UpdateLessonResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /update-lesson [post]
func (h *EngineHandler) UpdateLesson(c *gin.Context) {
	var req dto.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.LegacyError(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	resp, err := h.engine.UpdateLesson(c.Request.Context(), req)
	if err != nil {
		response.LegacyError(c, err)
		return
	}
	response.Raw(c, http.StatusOK, resp)
}

// CheckFeasibility godoc
// @Summary Run a cheap feasibility bound before generating
// @Tags Engine
// @Accept json
// @Produce json
// @Param payload body dto.FeasibilityRequest true "Scope to check"
// @Success 200 {object} response.Envelope{data=dto.FeasibilityReport}
// @Failure 400 {object} response.Envelope
// @Router /check-feasibility [post]
func (h *EngineHandler) CheckFeasibility(c *gin.Context) {
	var req dto.FeasibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	report, err := h.engine.CheckFeasibility(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

func timetableQuery(c *gin.Context) dto.TimetableQuery {
	query := dto.TimetableQuery{
		TermID: c.Query("term_id"),
		Scope:  c.Query("scope"),
	}
	for _, raw := range splitCSV(c.Query("grade_levels")) {
		if g, err := strconv.Atoi(raw); err == nil {
			query.GradeLevels = append(query.GradeLevels, g)
		}
	}
	query.ClassSectionIDs = splitCSV(c.Query("class_section_ids"))
	query.TeacherIDs = splitCSV(c.Query("teacher_ids"))
	return query
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Timetable godoc
// @Summary Read the current weekly timetable projection
// @Tags Engine
// @Produce json
// @Param term_id query string true "Term ID"
// @Param scope query string false "school, grade, class or teacher"
// @Param grade_levels query string false "Comma-separated grade levels"
// @Param class_section_ids query string false "Comma-separated class section IDs"
// @Param teacher_ids query string false "Comma-separated teacher IDs"
// @Success 200 {object} response.Envelope{data=[]dto.TimetableEntry}
// @Failure 400 {object} response.Envelope
// @Router /timetable [get]
func (h *EngineHandler) Timetable(c *gin.Context) {
	entries, err := h.engine.Timetable(c.Request.Context(), timetableQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}

// Export godoc
// @Summary Download the weekly timetable as CSV or PDF
// @Tags Engine
// @Produce octet-stream
// @Param term_id query string true "Term ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /timetable/export [get]
func (h *EngineHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	file, err := h.exports.Export(c.Request.Context(), timetableQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
