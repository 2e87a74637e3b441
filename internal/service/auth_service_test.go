package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/scolaris/vie-scolaire-api/internal/models"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	refreshTokens    map[string]*models.RefreshToken
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, stored := range m.refreshTokens {
		if stored.ID == id {
			stored.Revoked = true
			stored.RevokedAt = &revokedAt
		}
	}
	return nil
}

func authFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{user: &models.User{
		ID:           "u1",
		Email:        "educ@ecole.test",
		PasswordHash: string(hash),
		FullName:     "Educateur Test",
		Role:         models.RoleEducator,
		Active:       true,
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "vie-scolaire-test",
	})
	return svc, repo
}

func TestAuthLogin(t *testing.T) {
	svc, repo := authFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "educ@ecole.test", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleEducator, res.User.Role)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleEducator, claims.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "educ@ecole.test", Password: "wrong"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	svc, repo := authFixture(t)
	repo.user.Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "educ@ecole.test", Password: "secret123"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	svc, repo := authFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "educ@ecole.test", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	// The used token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthRefreshExpiredToken(t *testing.T) {
	svc, repo := authFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "educ@ecole.test", Password: "secret123"})
	require.NoError(t, err)
	repo.refreshTokens[login.RefreshToken].ExpiresAt = time.Now().UTC().Add(-time.Minute)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthLogout(t *testing.T) {
	svc, repo := authFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "educ@ecole.test", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u1"))
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAuthValidateTokenRejectsTampered(t *testing.T) {
	svc, _ := authFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "educ@ecole.test", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(login.AccessToken + "x")
	require.Error(t, err)
}
