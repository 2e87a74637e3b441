package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/scolaris/vie-scolaire-api/internal/models"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
	"github.com/scolaris/vie-scolaire-api/pkg/export"
)

// ExportFormat identifies the supported score sheet formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type schoolScoreLister interface {
	ListBySchool(ctx context.Context, schoolID, schoolYearID, semesterID string) ([]models.ConductScoreRow, error)
}

// ExportService renders conduct score sheets for a school period.
type ExportService struct {
	scores schoolScoreLister
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(scores schoolScoreLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		scores: scores,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// ExportResult carries rendered bytes plus response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ScoreSheet renders the conduct scores of a school period in the
// requested format.
func (s *ExportService) ScoreSheet(ctx context.Context, schoolID, schoolYearID, semesterID string, format ExportFormat) (*ExportResult, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	rows, err := s.scores.ListBySchool(ctx, schoolID, schoolYearID, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conduct scores")
	}

	sheet := buildScoreSheet(rows)
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("conduct-scores-%s.csv", semesterID),
		}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("conduct-scores-%s.pdf", semesterID),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format, expected csv or pdf")
	}
}

func buildScoreSheet(rows []models.ConductScoreRow) export.Sheet {
	sheet := export.Sheet{
		Title:   "Notes de conduite",
		Columns: []string{"Student", "Class", "Attendance", "Dresscode", "Morality", "Discipline", "Total", "Grade"},
	}
	for _, row := range rows {
		className := ""
		if row.ClassName != nil {
			className = *row.ClassName
		}
		sheet.Rows = append(sheet.Rows, []string{
			row.StudentName,
			className,
			formatPoints(row.AttendanceScore),
			formatPoints(row.DresscodeScore),
			formatPoints(row.MoralityScore),
			formatPoints(row.DisciplineScore),
			formatPoints(row.TotalScore),
			string(row.Grade),
		})
	}
	return sheet
}

func formatPoints(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
