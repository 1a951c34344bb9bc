package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/export"
)

type projectorStub struct {
	entries []dto.TimetableEntry
	err     error
}

func (s projectorStub) Timetable(ctx context.Context, query dto.TimetableQuery) ([]dto.TimetableEntry, error) {
	return s.entries, s.err
}

func sampleEntries() []dto.TimetableEntry {
	return []dto.TimetableEntry{
		{LessonID: "lesson-1", Day: 1, Period: 1, StartTime: "08:00", EndTime: "09:00", ClassSectionName: "Grade 7 - A", SubjectName: "Mathematics", TeacherName: "Ada Okafor"},
		{LessonID: "lesson-2", Day: 3, Period: 2, StartTime: "09:00", EndTime: "10:00", ClassSectionName: "Grade 7 - A", SubjectName: "Biology", TeacherName: "Ben Suzuki"},
	}
}

func TestExportCSV(t *testing.T) {
	svc := NewExportService(projectorStub{entries: sampleEntries()}, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop(), true)

	file, err := svc.Export(context.Background(), dto.TimetableQuery{TermID: "term-1"}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	body := string(file.Content)
	assert.Contains(t, body, "Day,Period,Time,Class,Subject,Teacher")
	assert.Contains(t, body, "Monday,1,08:00 - 09:00,Grade 7 - A,Mathematics,Ada Okafor")
	assert.Contains(t, body, "Wednesday")
}

func TestExportPDF(t *testing.T) {
	svc := NewExportService(projectorStub{entries: sampleEntries()}, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop(), true)

	file, err := svc.Export(context.Background(), dto.TimetableQuery{TermID: "term-1"}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := NewExportService(projectorStub{entries: sampleEntries()}, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop(), true)

	_, err := svc.Export(context.Background(), dto.TimetableQuery{TermID: "term-1"}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportDisabled(t *testing.T) {
	svc := NewExportService(projectorStub{entries: sampleEntries()}, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop(), false)

	_, err := svc.Export(context.Background(), dto.TimetableQuery{TermID: "term-1"}, "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
