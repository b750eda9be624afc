package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

type auditLogReaderStub struct {
	entries []models.AuditLog
	total   int
	err     error
	filter  models.AuditLogFilter
}

func (s *auditLogReaderStub) ListAuditLogs(_ context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	s.filter = filter
	return s.entries, s.total, s.err
}

func TestLogEntryServiceRequiresViewPermission(t *testing.T) {
	repo := &auditLogReaderStub{}
	svc := NewLogEntryService(repo, NewPermissionService(&permissionListerStub{codenames: []string{"demo.view_type"}}, nil), nil)

	_, err := svc.List(context.Background(), &models.JWTClaims{UserID: "u1", IsStaff: true}, models.AuditLogFilter{})
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
	assert.Empty(t, repo.filter.Limit)
}

func TestLogEntryServiceListsPage(t *testing.T) {
	repo := &auditLogReaderStub{total: 120, entries: []models.AuditLog{{ID: "log_1", Action: models.AuditActionRecordCreate, Resource: "demo.type"}}}
	perms := NewPermissionService(&permissionListerStub{codenames: []string{"admin.view_logentry"}}, nil)
	svc := NewLogEntryService(repo, perms, nil)

	list, err := svc.List(context.Background(), &models.JWTClaims{UserID: "u1", IsStaff: true}, models.AuditLogFilter{Resource: "demo.type", Offset: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, repo.filter.Limit)
	assert.Equal(t, "demo.type", repo.filter.Resource)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, 120, list.Pagination.TotalCount)
	require.NotNil(t, list.Pagination.Next)
	assert.Equal(t, 100, *list.Pagination.Next)
}

func TestLogEntryServiceWrapsStoreErrors(t *testing.T) {
	repo := &auditLogReaderStub{err: errors.New("connection reset")}
	svc := NewLogEntryService(repo, NewPermissionService(&permissionListerStub{}, nil), nil)

	_, err := svc.List(context.Background(), &models.JWTClaims{UserID: "root", IsSuperuser: true}, models.AuditLogFilter{})
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}
