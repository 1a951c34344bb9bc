package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/service"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

type engineStub struct {
	generateResp *dto.GenerateResponse
	generateErr  error
	updateResp   *dto.UpdateLessonResponse
	updateErr    error
	entries      []dto.TimetableEntry
	entriesErr   error
	report       *dto.FeasibilityReport
	lastGenerate dto.GenerateRequest
	lastUpdate   dto.UpdateLessonRequest
	lastQuery    dto.TimetableQuery
}

func (s *engineStub) Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	s.lastGenerate = req
	return s.generateResp, s.generateErr
}

func (s *engineStub) UpdateLesson(ctx context.Context, req dto.UpdateLessonRequest) (*dto.UpdateLessonResponse, error) {
	s.lastUpdate = req
	return s.updateResp, s.updateErr
}

func (s *engineStub) Timetable(ctx context.Context, query dto.TimetableQuery) ([]dto.TimetableEntry, error) {
	s.lastQuery = query
	return s.entries, s.entriesErr
}

func (s *engineStub) CheckFeasibility(ctx context.Context, req dto.FeasibilityRequest) (*dto.FeasibilityReport, error) {
	return s.report, nil
}

type exporterStub struct {
	file *service.ExportFile
	err  error
}

func (s *exporterStub) Export(ctx context.Context, query dto.TimetableQuery, format string) (*service.ExportFile, error) {
	return s.file, s.err
}

func newEngineRouter(stub *engineStub, exporter *exporterStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if exporter == nil {
		exporter = &exporterStub{}
	}
	h := NewEngineHandler(stub, exporter)
	r := gin.New()
	r.POST("/generate", h.Generate)
	r.POST("/update-lesson", h.UpdateLesson)
	r.POST("/check-feasibility", h.CheckFeasibility)
	r.GET("/timetable", h.Timetable)
	r.GET("/timetable/export", h.Export)
	return r
}

func TestGenerateReturnsFlatBody(t *testing.T) {
	stub := &engineStub{generateResp: &dto.GenerateResponse{
		Message:      "Timetable generated successfully",
		SolverStatus: "OPTIMAL",
		SolveTime:    0.42,
		Timetable:    []dto.TimetableEntry{{LessonID: "lesson-1", Day: 1, Period: 1}},
	}}
	router := newEngineRouter(stub, nil)

	body := bytes.NewBufferString(`{"term_id":"term-1","user_id":"user-1"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	// Legacy clients read message and timetable at the top level, not
	// under a data envelope.
	assert.Contains(t, payload, "message")
	assert.Contains(t, payload, "timetable")
	assert.NotContains(t, payload, "data")
	assert.Equal(t, "term-1", stub.lastGenerate.TermID)
}

func TestGenerateLockHeldConflict(t *testing.T) {
	stub := &engineStub{generateErr: appErrors.ErrLockHeld}
	router := newEngineRouter(stub, nil)

	body := bytes.NewBufferString(`{"term_id":"term-1","user_id":"user-1"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload["error"])
}

func TestGenerateRejectsMalformedBody(t *testing.T) {
	router := newEngineRouter(&engineStub{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(`{"term_id":`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateLessonConflictBody(t *testing.T) {
	stub := &engineStub{updateErr: appErrors.Clone(appErrors.ErrScheduleConflict, "teacher already teaches Mathematics for Grade 7 - A at day 2 08:00")}
	router := newEngineRouter(stub, nil)

	body := bytes.NewBufferString(`{"term_id":"term-1","lesson_id":"lesson-1","new_day":2,"new_start_time":"08:00"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/update-lesson", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Contains(t, payload["error"], "already teaches")
}

func TestUpdateLessonReturnsTimetable(t *testing.T) {
	stub := &engineStub{updateResp: &dto.UpdateLessonResponse{
		Timetable: []dto.TimetableEntry{{LessonID: "lesson-1", Day: 2, Period: 1}},
	}}
	router := newEngineRouter(stub, nil)

	body := bytes.NewBufferString(`{"term_id":"term-1","lesson_id":"lesson-1","new_day":2,"new_start_time":"08:00"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/update-lesson", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload dto.UpdateLessonResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Timetable, 1)
	assert.Equal(t, 2, payload.Timetable[0].Day)
	assert.Equal(t, "lesson-1", stub.lastUpdate.LessonID)
}

func TestTimetableParsesScopeQuery(t *testing.T) {
	stub := &engineStub{entries: []dto.TimetableEntry{{LessonID: "lesson-1"}}}
	router := newEngineRouter(stub, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/timetable?term_id=term-1&scope=grade&grade_levels=7,8&teacher_ids=t-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "term-1", stub.lastQuery.TermID)
	assert.Equal(t, "grade", stub.lastQuery.Scope)
	assert.Equal(t, []int{7, 8}, stub.lastQuery.GradeLevels)
	assert.Equal(t, []string{"t-1"}, stub.lastQuery.TeacherIDs)
}

func TestExportStreamsFile(t *testing.T) {
	exporter := &exporterStub{file: &service.ExportFile{
		Content:     []byte("Day,Period\nMonday,1\n"),
		ContentType: "text/csv",
		Filename:    "timetable-term-1.csv",
	}}
	router := newEngineRouter(&engineStub{}, exporter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/timetable/export?term_id=term-1&format=csv", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timetable-term-1.csv")
	assert.Contains(t, w.Body.String(), "Monday")
}

func TestCheckFeasibilityEnvelope(t *testing.T) {
	stub := &engineStub{report: &dto.FeasibilityReport{TotalPeriodsNeeded: 10, TotalTimeSlots: 25, BasicallyFeasible: true}}
	router := newEngineRouter(stub, nil)

	body := bytes.NewBufferString(`{"term_id":"term-1"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check-feasibility", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.FeasibilityReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.BasicallyFeasible)
	assert.Equal(t, 10, envelope.Data.TotalPeriodsNeeded)
}
