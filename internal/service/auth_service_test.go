package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

type mockAuthRepo struct {
	usersByID    map[string]*models.User
	usersByEmail map[string]*models.User
	tokens       map[string]*models.RefreshToken
	lastLogin    map[string]time.Time
	nextUserID   string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		usersByID:    map[string]*models.User{},
		usersByEmail: map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
		lastLogin:    map[string]time.Time{},
		nextUserID:   "user-1",
	}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if _, exists := m.usersByEmail[user.Email]; exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	user.ID = m.nextUserID
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func newAuthFixture() (*AuthService, *mockAuthRepo) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "escola-api-test",
	})
	return svc, repo
}

func seedProfessor(t *testing.T, repo *mockAuthRepo, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "prof-1",
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Prof Silva",
		Active:       true,
	}
	repo.usersByID[user.ID] = user
	repo.usersByEmail[user.Email] = user
	return user
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, repo := newAuthFixture()

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "silva@escola.dev",
		Password: "senha123",
		FullName: "Prof Silva",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.NotEqual(t, "senha123", repo.usersByID[info.ID].PasswordHash)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "silva@escola.dev",
		Password: "senha123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, info.ID, resp.User.ID)
	assert.Contains(t, repo.lastLogin, info.ID)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, repo := newAuthFixture()
	seedProfessor(t, repo, "silva@escola.dev", "senha123")

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "silva@escola.dev",
		Password: "outrasenha",
		FullName: "Impostor",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, repo := newAuthFixture()
	seedProfessor(t, repo, "silva@escola.dev", "senha123")

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "silva@escola.dev",
		Password: "errada",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ninguem@escola.dev",
		Password: "qualquer",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture()
	user := seedProfessor(t, repo, "silva@escola.dev", "senha123")
	user.Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "silva@escola.dev",
		Password: "senha123",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthService_ValidateToken_RoundTrip(t *testing.T) {
	svc, repo := newAuthFixture()
	seedProfessor(t, repo, "silva@escola.dev", "senha123")

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "silva@escola.dev",
		Password: "senha123",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "prof-1", claims.UserID)
	assert.Equal(t, "silva@escola.dev", claims.Email)
}

func TestAuthService_ValidateToken_WrongSecret(t *testing.T) {
	svc, repo := newAuthFixture()
	seedProfessor(t, repo, "silva@escola.dev", "senha123")

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "silva@escola.dev",
		Password: "senha123",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "other-secret",
		AccessTokenExpiry: 15 * time.Minute,
	})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestAuthService_RefreshToken_Rotation(t *testing.T) {
	svc, repo := newAuthFixture()
	seedProfessor(t, repo, "silva@escola.dev", "senha123")

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "silva@escola.dev",
		Password: "senha123",
	})
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, rotated.RefreshToken)
	assert.True(t, repo.tokens[resp.RefreshToken].Revoked)

	// the spent token cannot be exchanged again
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthService_RefreshToken_Expired(t *testing.T) {
	svc, repo := newAuthFixture()
	seedProfessor(t, repo, "silva@escola.dev", "senha123")
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "tok-1",
		UserID:    "prof-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthService_Logout_OtherUsersToken(t *testing.T) {
	svc, repo := newAuthFixture()
	seedProfessor(t, repo, "silva@escola.dev", "senha123")
	repo.tokens["borrowed"] = &models.RefreshToken{
		ID:        "tok-2",
		UserID:    "prof-1",
		Token:     "borrowed",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	err := svc.Logout(context.Background(), "borrowed", "prof-2")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	assert.False(t, repo.tokens["borrowed"].Revoked)
}
