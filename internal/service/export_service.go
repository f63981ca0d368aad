package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
	"github.com/escola-dev/escola-api/pkg/export"
)

type boletimProvider interface {
	Boletim(ctx context.Context, professorID, turmaID string) (*models.Boletim, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered boletim representation.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat normalizes a query value into an ExportFormat.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return ExportFormatCSV, nil
	case "pdf":
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ExportResult carries a rendered boletim file.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders boletins as downloadable CSV or PDF files.
type ExportService struct {
	boletins boletimProvider
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(boletins boletimProvider, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{boletins: boletins, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// BoletimFile builds the turma's boletim and renders it in the requested format.
func (s *ExportService) BoletimFile(ctx context.Context, professorID, turmaID string, format ExportFormat) (*ExportResult, error) {
	boletim, err := s.boletins.Boletim(ctx, professorID, turmaID)
	if err != nil {
		return nil, err
	}

	dataset := boletimDataset(boletim)
	title := fmt.Sprintf("Boletim %s (%d)", boletim.Turma.Nome, boletim.Turma.Ano)

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render boletim")
	}

	filename := fmt.Sprintf("boletim_%s_%s.%s", sanitizeFilename(boletim.Turma.Nome), s.now().UTC().Format("20060102_150405"), format)
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func boletimDataset(boletim *models.Boletim) export.Dataset {
	rows := make([]map[string]string, 0, len(boletim.Linhas))
	for _, linha := range boletim.Linhas {
		rows = append(rows, map[string]string{
			"Matricula": linha.Aluno.Matricula,
			"Aluno":     linha.Aluno.Nome,
			"Notas":     fmt.Sprintf("%d", len(linha.Notas)),
			"Media":     fmt.Sprintf("%.2f", linha.Media),
		})
	}
	return export.Dataset{
		Headers: []string{"Matricula", "Aluno", "Notas", "Media"},
		Rows:    rows,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "turma"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(strings.ToLower(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
