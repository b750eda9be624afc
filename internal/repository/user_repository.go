package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admin-api/internal/models"
)

var (
	userColumns         = []string{"id", "email", "password", "full_name", "is_active", "is_staff", "is_superuser", "last_login", "created_at", "updated_at"}
	auditLogColumns     = []string{"id", "user_id", "action", "resource", "resource_id", "new_values", "ip_address", "user_agent", "created_at"}
	refreshTokenColumns = []string{"id", "user_id", "token", "expires_at", "created_at", "revoked", "revoked_at", "ip_address", "user_agent"}
)

// UserRepository stores admin accounts together with their permission grants, refresh
// token sessions and audit trail.
type UserRepository struct {
	db   *sqlx.DB
	psql sq.StatementBuilderType
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// get runs a single row query into dest. sql.ErrNoRows is returned unwrapped.
func (r *UserRepository) get(ctx context.Context, dest interface{}, b sq.SelectBuilder, op string) error {
	query, args, err := b.Limit(1).ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if err := r.db.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *UserRepository) exec(ctx context.Context, b sq.Sqlizer, op string) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", op, err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.get(ctx, &user, r.psql.Select(userColumns...).From("users").Where(sq.Eq{"email": email}), "find user by email"); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.get(ctx, &user, r.psql.Select(userColumns...).From("users").Where(sq.Eq{"id": id}), "find user by id"); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new account, assigning a `user_` prefixed id when none is set.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user_" + uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	insert := r.psql.Insert("users").
		Columns("id", "email", "password", "full_name", "is_active", "is_staff", "is_superuser", "created_at", "updated_at").
		Values(user.ID, user.Email, user.PasswordHash, user.FullName, user.IsActive, user.IsStaff, user.IsSuperuser, user.CreatedAt, user.UpdatedAt)
	_, err := r.exec(ctx, insert, "create user")
	return err
}

// UpdateLastLogin stamps a successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	_, err := r.exec(ctx, r.psql.Update("users").
		SetMap(map[string]interface{}{"last_login": ts, "updated_at": ts}).
		Where(sq.Eq{"id": id}), "update last login")
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	_, err := r.exec(ctx, r.psql.Update("users").
		SetMap(map[string]interface{}{"password": passwordHash, "updated_at": updatedAt}).
		Where(sq.Eq{"id": id}), "update password")
	return err
}

// ListPermissions returns the `app.action_model` codenames granted to a user.
func (r *UserRepository) ListPermissions(ctx context.Context, userID string) ([]string, error) {
	query, args, err := r.psql.Select("codename").From("user_permissions").
		Where(sq.Eq{"user_id": userID}).OrderBy("codename").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list user permissions: %w", err)
	}
	var codenames []string
	if err := r.db.SelectContext(ctx, &codenames, query, args...); err != nil {
		return nil, fmt.Errorf("list user permissions: %w", err)
	}
	return codenames, nil
}

// GrantPermissions adds codenames to a user in one statement; existing grants are kept.
func (r *UserRepository) GrantPermissions(ctx context.Context, userID string, codenames []string) error {
	if len(codenames) == 0 {
		return nil
	}
	insert := r.psql.Insert("user_permissions").Columns("user_id", "codename").
		Suffix("ON CONFLICT (user_id, codename) DO NOTHING")
	for _, codename := range codenames {
		insert = insert.Values(userID, codename)
	}
	_, err := r.exec(ctx, insert, "grant permissions")
	return err
}

// CreateRefreshToken stores a new session.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	insert := r.psql.Insert("refresh_tokens").Columns(refreshTokenColumns...).
		Values(token.ID, token.UserID, token.Token, token.ExpiresAt, token.CreatedAt, token.Revoked, token.RevokedAt, token.IPAddress, token.UserAgent)
	_, err := r.exec(ctx, insert, "create refresh token")
	return err
}

// FindRefreshToken looks a session up by its opaque token.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := r.get(ctx, &rt, r.psql.Select(refreshTokenColumns...).From("refresh_tokens").Where(sq.Eq{"token": token}), "find refresh token"); err != nil {
		return nil, err
	}
	return &rt, nil
}

// RevokeRefreshToken ends one session.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	_, err := r.exec(ctx, r.psql.Update("refresh_tokens").
		SetMap(map[string]interface{}{"revoked": true, "revoked_at": revokedAt}).
		Where(sq.Eq{"id": id}), "revoke refresh token")
	return err
}

// RevokeUserRefreshTokens ends every live session of a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.exec(ctx, r.psql.Update("refresh_tokens").
		SetMap(map[string]interface{}{"revoked": true, "revoked_at": time.Now().UTC()}).
		Where(sq.Eq{"user_id": userID, "revoked": false}), "revoke user refresh tokens")
	return err
}

// CreateAuditLog appends an entry to the audit trail.
func (r *UserRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var values interface{}
	if len(entry.NewValues) > 0 {
		values = []byte(entry.NewValues)
	}
	insert := r.psql.Insert("audit_logs").
		Columns(auditLogColumns...).
		Values(entry.ID, entry.UserID, string(entry.Action), entry.Resource, entry.ResourceID, values, entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	_, err := r.exec(ctx, insert, "create audit log")
	return err
}

// auditRow scans nullable JSONB payloads.
type auditRow struct {
	models.AuditLog
	Values []byte `db:"new_values"`
}

// ListAuditLogs returns the newest audit entries matching filter and the total match count.
func (r *UserRepository) ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	where := sq.Eq{}
	if filter.UserID != "" {
		where["user_id"] = filter.UserID
	}
	if filter.Action != "" {
		where["action"] = filter.Action
	}
	if filter.Resource != "" {
		where["resource"] = filter.Resource
	}
	if filter.ResourceID != "" {
		where["resource_id"] = filter.ResourceID
	}

	count := r.psql.Select("COUNT(*)").From("audit_logs")
	list := r.psql.Select(auditLogColumns...).From("audit_logs").OrderBy("created_at DESC", "id")
	if len(where) > 0 {
		count = count.Where(where)
		list = list.Where(where)
	}

	countQuery, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count audit logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	if filter.Limit > 0 {
		list = list.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		list = list.Offset(uint64(filter.Offset))
	}
	query, args, err := list.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list audit logs: %w", err)
	}
	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	entries := make([]models.AuditLog, 0, len(rows))
	for _, row := range rows {
		entry := row.AuditLog
		entry.NewValues = row.Values
		entries = append(entries, entry)
	}
	return entries, total, nil
}
