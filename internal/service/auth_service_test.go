package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/presenca-digital/presenca-api/internal/models"
	appErrors "github.com/presenca-digital/presenca-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users      map[string]*models.User
	lastLogins []string
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func authFixture(t *testing.T, active bool) (*mockAuthUserRepo, *AuthService) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("senha123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthUserRepo{users: map[string]*models.User{
		"u1": {
			ID:           "u1",
			Name:         "Maria",
			Email:        "maria@escola.com",
			PasswordHash: string(hash),
			Role:         models.RoleProfessor,
			Active:       active,
		},
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "presenca-api",
	})
	return repo, svc
}

func TestAuthLogin(t *testing.T) {
	repo, svc := authFixture(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "maria@escola.com",
		Password: "senha123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, []string{"u1"}, repo.lastLogins)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "Maria", claims.Name)
	assert.Equal(t, models.RoleProfessor, claims.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	_, svc := authFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "maria@escola.com",
		Password: "errada",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Equal(t, "E-mail ou senha inválidos.", err.(*appErrors.Error).Message)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	_, svc := authFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alguem@escola.com",
		Password: "senha123",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	_, svc := authFixture(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "maria@escola.com",
		Password: "senha123",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
	assert.Equal(t, "Conta inativa.", err.(*appErrors.Error).Message)
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	_, svc := authFixture(t, true)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
	assert.Equal(t, "Token inválido.", err.(*appErrors.Error).Message)
}

func TestAuthValidateTokenRejectsForeignSignature(t *testing.T) {
	_, issuer := authFixture(t, true)
	issued, err := issuer.Login(context.Background(), models.LoginRequest{
		Email:    "maria@escola.com",
		Password: "senha123",
	})
	require.NoError(t, err)

	verifier := NewAuthService(&mockAuthUserRepo{}, validator.New(), zap.NewNop(), AuthConfig{
		Secret:     "other-secret",
		Expiration: time.Hour,
		Issuer:     "presenca-api",
	})
	_, err = verifier.ValidateToken(issued.AccessToken)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
