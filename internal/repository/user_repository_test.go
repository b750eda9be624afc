package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-api/internal/models"
)

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password", "full_name", "is_active", "is_staff", "is_superuser", "last_login", "created_at", "updated_at"}).
		AddRow("user_1", "admin@example.com", "hash", "Admin", true, true, false, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password, full_name, is_active, is_staff, is_superuser, last_login, created_at, updated_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("admin@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.True(t, user.IsStaff)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserGeneratesIdentifier(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "new@example.com", PasswordHash: "hash", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Regexp(t, `^user_[0-9a-f-]{36}$`, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPermissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT codename FROM user_permissions WHERE user_id = $1 ORDER BY codename")).
		WithArgs("user_1").
		WillReturnRows(sqlmock.NewRows([]string{"codename"}).AddRow("demo.add_type").AddRow("demo.view_type"))

	perms, err := repo.ListPermissions(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo.add_type", "demo.view_type"}, perms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantPermissionsSingleStatement(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_permissions (user_id,codename) VALUES ($1,$2),($3,$4) ON CONFLICT (user_id, codename) DO NOTHING")).
		WithArgs("user_1", "demo.add_type", "user_1", "demo.change_type").
		WillReturnError(assert.AnError)

	err := repo.GrantPermissions(context.Background(), "user_1", []string{"demo.add_type", "demo.change_type"})
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, repo.GrantPermissions(context.Background(), "user_1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeUserRefreshTokensOnlyLiveSessions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = $1, revoked_at = $2 WHERE revoked = $3 AND user_id = $4")).
		WithArgs(true, sqlmock.AnyArg(), false, "user_1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.RevokeUserRefreshTokens(context.Background(), "user_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRefreshTokenNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM refresh_tokens WHERE token = \\$1 LIMIT 1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindRefreshToken(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "RECORD_CREATE", "demo.type", sqlmock.AnyArg(), []byte(`{"status":201}`), "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	entry := (&models.AuditLog{Action: models.AuditActionRecordCreate, Resource: "demo.type"}).SetValues(map[string]int{"status": 201})
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAuditLogsFiltersAndPages(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE action = $1 AND user_id = $2")).
		WithArgs("RECORD_DELETE", "user_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "new_values", "ip_address", "user_agent", "created_at"}).
		AddRow("log_2", "user_1", "RECORD_DELETE", "demo.type", "4", []byte(`{"status":202}`), "10.0.0.1", "curl", now).
		AddRow("log_1", "user_1", "RECORD_DELETE", "demo.type", nil, nil, "", "", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at FROM audit_logs WHERE action = $1 AND user_id = $2 ORDER BY created_at DESC, id LIMIT 2 OFFSET 1")).
		WithArgs("RECORD_DELETE", "user_1").
		WillReturnRows(rows)

	entries, total, err := repo.ListAuditLogs(context.Background(), models.AuditLogFilter{UserID: "user_1", Action: "RECORD_DELETE", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionRecordDelete, entries[0].Action)
	assert.JSONEq(t, `{"status":202}`, string(entries[0].NewValues))
	assert.Nil(t, entries[1].ResourceID)
	assert.Empty(t, entries[1].NewValues)
	assert.NoError(t, mock.ExpectationsWereMet())
}
