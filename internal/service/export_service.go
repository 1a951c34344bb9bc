package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/export"
)

type timetableProjector interface {
	Timetable(ctx context.Context, query dto.TimetableQuery) ([]dto.TimetableEntry, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered timetable ready to stream to the client.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders weekly timetable projections as downloadable files.
type ExportService struct {
	timetables timetableProjector
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
	enabled    bool
}

// NewExportService wires export dependencies.
func NewExportService(timetables timetableProjector, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger, enabled bool) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{timetables: timetables, csv: csv, pdf: pdf, logger: logger, enabled: enabled}
}

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func timetableDataset(entries []dto.TimetableEntry) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		day := ""
		if e.Day >= 1 && e.Day < len(dayNames) {
			day = dayNames[e.Day]
		}
		rows = append(rows, map[string]string{
			"Day":     day,
			"Period":  strconv.Itoa(e.Period),
			"Time":    e.StartTime + " - " + e.EndTime,
			"Class":   e.ClassSectionName,
			"Subject": e.SubjectName,
			"Teacher": e.TeacherName,
		})
	}
	return export.Dataset{
		Headers: []string{"Day", "Period", "Time", "Class", "Subject", "Teacher"},
		Rows:    rows,
	}
}

// Export renders the scoped timetable in the requested format.
func (s *ExportService) Export(ctx context.Context, query dto.TimetableQuery, format string) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exports are disabled")
	}

	entries, err := s.timetables.Timetable(ctx, query)
	if err != nil {
		return nil, err
	}
	dataset := timetableDataset(entries)
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
		return &ExportFile{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("timetable-%s-%s.csv", query.TermID, stamp),
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, "Weekly Timetable")
		if err != nil {
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		return &ExportFile{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("timetable-%s-%s.pdf", query.TermID, stamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
