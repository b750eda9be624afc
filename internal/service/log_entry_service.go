package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

const defaultLogEntryLimit = 50

type auditLogReader interface {
	ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

// LogEntryList is one page of the audit trail.
type LogEntryList struct {
	Entries    []models.AuditLog
	Pagination *models.Pagination
}

// LogEntryService reads the admin change history.
type LogEntryService struct {
	repo   auditLogReader
	perms  permissionChecker
	logger *zap.Logger
}

// NewLogEntryService constructs the service.
func NewLogEntryService(repo auditLogReader, perms permissionChecker, logger *zap.Logger) *LogEntryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEntryService{repo: repo, perms: perms, logger: logger}
}

// LogEntrySchema is the pseudo model whose view permission guards the audit trail.
func LogEntrySchema() *models.ModelSchema {
	return &models.ModelSchema{App: models.LogEntryApp, Name: models.LogEntryModel, ObjectName: "LogEntry"}
}

// List returns the newest entries matching filter. Requires the log entry view permission.
func (s *LogEntryService) List(ctx context.Context, claims *models.JWTClaims, filter models.AuditLogFilter) (*LogEntryList, error) {
	if err := s.perms.Require(ctx, claims, LogEntrySchema(), models.PermView); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLogEntryLimit
	}
	entries, total, err := s.repo.ListAuditLogs(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list log entries")
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}
	return &LogEntryList{Entries: entries, Pagination: models.NewPagination(filter.Limit, filter.Offset, total)}, nil
}
