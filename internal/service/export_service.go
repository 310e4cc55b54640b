package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var timetableExportHeaders = []string{"Teacher", "Day", "Hour", "Lesson", "Locations", "Classes"}

type timetableReader interface {
	Get(ctx context.Context, id string) (*dto.TimetableResponse, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered timetable ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders saved timetables as CSV or PDF.
type ExportService struct {
	timetables timetableReader
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(timetables timetableReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{timetables: timetables, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the saved timetable id. A non-empty teacherID keeps only the
// hours that teacher takes part in.
func (s *ExportService) Export(ctx context.Context, id, format, teacherID string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	timetable, err := s.timetables.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	teacherID = strings.TrimSpace(teacherID)
	dataset := buildTimetableDataset(timetable.Schedule, teacherID)

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, exportTitle(timetable, teacherID))
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}
	s.logger.Debug("timetable exported",
		zap.String("timetable_id", id),
		zap.String("format", format),
		zap.String("teacher_id", teacherID),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &ExportFile{
		Filename:    buildExportFilename(id, teacherID, format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func buildTimetableDataset(rows []scheduler.Row, teacherID string) export.Dataset {
	data := export.Dataset{Headers: timetableExportHeaders, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		entry := row.Entry
		if teacherID != "" && !slices.Contains(entry.TeacherIDs, teacherID) {
			continue
		}
		day, hour := "", ""
		if parsed, err := scheduler.ParseKey(row.Key, entry.PrimaryTeacher()); err == nil {
			day = parsed.Slot.Day.String()
			hour = strconv.Itoa(parsed.Slot.Hour)
		}
		data.Rows = append(data.Rows, []string{
			strings.Join(entry.TeacherIDs, " + "),
			day,
			hour,
			entry.LessonID,
			strings.Join(entry.LocationIDs, ", "),
			strings.Join(entry.ClassIDs, ", "),
		})
	}
	return data
}

func exportTitle(timetable *dto.TimetableResponse, teacherID string) string {
	title := "Timetable " + timetable.ID
	if timetable.Name != nil && *timetable.Name != "" {
		title = *timetable.Name
	}
	if teacherID != "" {
		title = fmt.Sprintf("%s (teacher %s)", title, teacherID)
	}
	return title
}

func buildExportFilename(id, teacherID, format string) string {
	name := "timetable_" + sanitizeFilename(id)
	if teacherID != "" {
		name += "_" + sanitizeFilename(teacherID)
	}
	return name + "." + format
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
