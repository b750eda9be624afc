package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.User
	userByID            *models.User
	findByEmailErr      error
	findByIDErr         error
	permissions         []string
	refreshTokens       map[string]*models.RefreshToken
	refreshTokenErr     error
	createRefreshErr    error
	revokeRefreshErr    error
	revokeUserTokensErr error
	updatePasswordErr   error
	auditLogs           []*models.AuditLog
	lastLoginUpdated    bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) ListPermissions(ctx context.Context, userID string) ([]string, error) {
	return m.permissions, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if m.userByEmail != nil && m.userByEmail.ID == id {
		m.userByEmail.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if m.refreshTokenErr != nil {
		return nil, m.refreshTokenErr
	}
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func testAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: time.Hour * 24,
	})
}

func staffUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "user_1", Email: "staff@example.com", PasswordHash: string(hash), IsActive: true, IsStaff: true}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: staffUser(t, "password1"), permissions: []string{"demo.view_demomodel"}}
	svc := testAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, res.User.IsStaff)
	assert.Equal(t, []string{"demo.view_demomodel"}, res.User.Permissions)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsStaff)
	assert.False(t, claims.IsSuperuser)
}

func TestAuthServiceLoginRejections(t *testing.T) {
	inactive := staffUser(t, "password1")
	inactive.IsActive = false
	_, err := testAuthService(&mockAuthRepo{userByEmail: inactive}).Login(context.Background(), models.LoginRequest{Email: "staff@example.com", Password: "password1"})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)

	member := staffUser(t, "password1")
	member.IsStaff = false
	_, err = testAuthService(&mockAuthRepo{userByEmail: member}).Login(context.Background(), models.LoginRequest{Email: "staff@example.com", Password: "password1"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = testAuthService(&mockAuthRepo{userByEmail: staffUser(t, "password1")}).Login(context.Background(), models.LoginRequest{Email: "staff@example.com", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = testAuthService(&mockAuthRepo{}).Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = testAuthService(&mockAuthRepo{}).Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	user := staffUser(t, "password1")
	repo := &mockAuthRepo{userByID: user, refreshTokens: map[string]*models.RefreshToken{}}
	repo.refreshTokens["token"] = &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	svc := testAuthService(repo)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "unknown"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogout(t *testing.T) {
	user := staffUser(t, "password1")
	repo := &mockAuthRepo{userByID: user, refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := testAuthService(repo)

	err := svc.Logout(context.Background(), "token", "someone_else", models.ClientInfo{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "token", user.ID, models.ClientInfo{}))
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceMe(t *testing.T) {
	repo := &mockAuthRepo{userByID: staffUser(t, "password1"), permissions: []string{"demo.add_type"}}
	info, err := testAuthService(repo).Me(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", info.Email)
	assert.Equal(t, []string{"demo.add_type"}, info.Permissions)

	_, err = testAuthService(&mockAuthRepo{}).Me(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	user := staffUser(t, "old-password1")
	oldHash := user.PasswordHash
	repo := &mockAuthRepo{userByEmail: user}
	svc := testAuthService(repo)

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpassword1"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{OldPassword: "old-password1", NewPassword: "newpassword1"})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, repo.userByEmail.PasswordHash)
}

func TestValidateToken(t *testing.T) {
	svc := testAuthService(&mockAuthRepo{})
	user := &models.User{ID: "u1", Email: "user@example.com", IsSuperuser: true}
	token, err := svc.signAccessToken(user, time.Now().UTC())
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.IsSuperuser)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "different", AccessTokenExpiry: time.Hour})
	_, err = other.ValidateToken(token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

type recordingMailer struct {
	links   []string
	changed []string
}

func (m *recordingMailer) PasswordChanged(email, _ string, _ time.Time) error {
	m.changed = append(m.changed, email)
	return nil
}

func (m *recordingMailer) PasswordResetLink(_, _, link string) error {
	m.links = append(m.links, link)
	return nil
}

func resetParts(t *testing.T, link string) (string, string) {
	t.Helper()
	parts := strings.Split(link, "/")
	require.GreaterOrEqual(t, len(parts), 2)
	return parts[len(parts)-2], parts[len(parts)-1]
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: staffUser(t, "password1")}
	svc := testAuthService(repo)
	svc.config.PasswordResetURL = "https://ui.example.com/users/reset/"
	mailer := &recordingMailer{}
	svc.SetNotifier(mailer)

	require.NoError(t, svc.SendPasswordResetLink(context.Background(), "user_1", models.ClientInfo{IP: "10.0.0.9"}))
	require.Len(t, mailer.links, 1)
	assert.True(t, strings.HasPrefix(mailer.links[0], "https://ui.example.com/users/reset/dXNlcl8x/"))

	uid, token := resetParts(t, mailer.links[0])
	require.NoError(t, svc.VerifyPasswordResetLink(context.Background(), uid, token))
	require.NoError(t, svc.ResetPassword(context.Background(), uid, token, models.ResetPasswordRequest{Password: "brandnew42"}, models.ClientInfo{}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.userByEmail.PasswordHash), []byte("brandnew42")))

	err := svc.VerifyPasswordResetLink(context.Background(), uid, token)
	assert.Equal(t, "Token is invalid or has expired.", appErrors.FromError(err).Message)

	require.Len(t, repo.auditLogs, 2)
	assert.Equal(t, models.AuditActionPasswordReset, repo.auditLogs[0].Action)
	assert.Equal(t, "10.0.0.9", repo.auditLogs[0].IPAddress)
	assert.JSONEq(t, `{"step":"completed","sessions":"revoked"}`, string(repo.auditLogs[1].NewValues))
}

func TestAuthServicePasswordResetExpires(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: staffUser(t, "password1")}
	svc := testAuthService(repo)
	mailer := &recordingMailer{}
	svc.SetNotifier(mailer)
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	require.NoError(t, svc.SendPasswordResetLink(context.Background(), "user_1", models.ClientInfo{}))
	uid, token := resetParts(t, mailer.links[0])

	svc.now = func() time.Time { return issued.Add(defaultPasswordResetTTL + time.Minute) }
	err := svc.ResetPassword(context.Background(), uid, token, models.ResetPasswordRequest{Password: "brandnew42"}, models.ClientInfo{})
	assert.Equal(t, "Token is invalid or has expired.", appErrors.FromError(err).Message)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.userByEmail.PasswordHash), []byte("password1")))
}

func TestAuthServicePasswordResetRejections(t *testing.T) {
	svc := testAuthService(&mockAuthRepo{})
	svc.SetNotifier(&recordingMailer{})

	err := svc.SendPasswordResetLink(context.Background(), "user_404", models.ClientInfo{})
	assert.Equal(t, "User does not exist", appErrors.FromError(err).Message)

	err = svc.VerifyPasswordResetLink(context.Background(), "%%%", "token")
	assert.Equal(t, "Invalid UID.", appErrors.FromError(err).Message)

	withUser := testAuthService(&mockAuthRepo{userByEmail: staffUser(t, "password1")})
	err = withUser.VerifyPasswordResetLink(context.Background(), "dXNlcl8x", "not-a-jwt")
	assert.Equal(t, "Token is invalid or has expired.", appErrors.FromError(err).Message)

	err = withUser.ResetPassword(context.Background(), "dXNlcl8x", "not-a-jwt", models.ResetPasswordRequest{Password: "short"}, models.ClientInfo{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = testAuthService(&mockAuthRepo{}).SendPasswordResetLink(context.Background(), "user_1", models.ClientInfo{})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
