package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/pkg/datatransform"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/export"
)

type listSource interface {
	All(ctx context.Context, modelID string, params models.ListParams) (*models.ModelSchema, []models.Record, error)
}

// ExportFile is a rendered list view export.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportResult points at an export published to file storage.
type ExportResult struct {
	Key    string       `json:"key"`
	URL    string       `json:"url"`
	Format export.Format `json:"format"`
	Rows   int          `json:"rows"`
}

// ExportService renders the list view of a model as CSV, PDF or XLSX.
type ExportService struct {
	schemas SchemaProvider
	records listSource
	files   recordFileStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. files may be nil when exports are only streamed.
func NewExportService(schemas SchemaProvider, records listSource, files recordFileStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{schemas: schemas, records: records, files: files, logger: logger, now: time.Now}
}

// Export renders every record matching params with the model's list_display columns.
func (s *ExportService) Export(ctx context.Context, modelID string, params models.ListParams, format export.Format) (*ExportFile, int, error) {
	exporter, err := export.ForFormat(format)
	if err != nil {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	admin, err := s.schemas.Admin(modelID)
	if err != nil {
		return nil, 0, err
	}
	schema, rows, err := s.records.All(ctx, modelID, params)
	if err != nil {
		return nil, 0, err
	}

	dataset := buildDataset(schema, admin, rows)
	body, err := exporter.Render(dataset)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s_%s_%s.%s", schema.App, schema.Name, s.now().UTC().Format("20060102_150405"), exporter.Extension())
	s.logger.Sugar().Infow("list view exported", "model", schema.ID(), "format", exporter.Extension(), "rows", len(rows))
	return &ExportFile{Filename: filename, ContentType: exporter.ContentType(), Body: body}, len(rows), nil
}

// Publish renders an export and stores it, returning an access url.
func (s *ExportService) Publish(ctx context.Context, modelID string, params models.ListParams, format export.Format) (*ExportResult, error) {
	if s.files == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage not configured")
	}
	file, rows, err := s.Export(ctx, modelID, params, format)
	if err != nil {
		return nil, err
	}
	key, err := s.files.Save(ctx, "exports/"+file.Filename, bytes.NewReader(file.Body), int64(len(file.Body)), file.ContentType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	url, err := s.files.URL(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}
	return &ExportResult{Key: key, URL: url, Format: format, Rows: rows}, nil
}

func buildDataset(schema *models.ModelSchema, admin *models.ModelAdmin, rows []models.Record) export.Dataset {
	columns := admin.ListDisplay
	if len(columns) == 0 {
		columns = []string{schema.PrimaryKey().Name}
	}
	headers := make([]string, 0, len(columns))
	for _, col := range columns {
		headers = append(headers, datatransform.ToLabel(col))
	}

	out := make([]map[string]string, 0, len(rows))
	for _, rec := range rows {
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[headers[i]] = exportCell(rec[col])
		}
		out = append(out, row)
	}
	return export.Dataset{Title: objectLabel(schema), Headers: headers, Rows: out}
}

func exportCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, exportCell(item))
		}
		return strings.Join(parts, ", ")
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
