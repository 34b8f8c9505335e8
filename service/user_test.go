package service

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ctachat/model"
	"ctachat/platform"
)

func newTestUserService(t *testing.T) (*UserService, *TokenService) {
	t.Helper()
	tokens := NewTokenService("test-secret", time.Hour)
	return NewUserService(newTestDB(t), BcryptHasher{Cost: bcrypt.MinCost}, tokens, platform.DiscardLogger()), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users, tokens := newTestUserService(t)

	created, err := users.Register(ctx, &User{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, created.Role)
	assert.NotEqual(t, "secret123", created.Password)

	token, err := users.Login(ctx, &User{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	details, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.EqualValues(t, created.ID, details.UserID)
	assert.Equal(t, "alice", details.UserName)

	_, err = users.Login(ctx, &User{Username: "alice", Password: "wrong-pass1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.Login(ctx, &User{Username: "nobody", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	users, _ := newTestUserService(t)

	cases := []struct {
		user User
		want error
	}{
		{User{Username: "al", Email: "al@example.com", Password: "secret123"}, ErrInvalidUsername},
		{User{Username: "alice", Email: "not-an-email", Password: "secret123"}, ErrInvalidEmail},
		{User{Username: "alice", Email: "alice@example.com", Password: "short1"}, ErrWeakPassword},
		{User{Username: "alice", Email: "alice@example.com", Password: "lettersonly"}, ErrWeakPassword},
	}
	for _, tc := range cases {
		u := tc.user
		_, err := users.Register(ctx, &u)
		assert.ErrorIs(t, err, tc.want, u.Username+"/"+u.Email+"/"+u.Password)
	}

	_, err := users.Register(ctx, &User{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	_, err = users.Register(ctx, &User{Username: "alice", Email: "other@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestTokenRefreshAndTampering(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	td, err := tokens.CreateToken(3, "carol")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/v1/token/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+td.AccessToken)
	refreshed, err := tokens.Refresh(req)
	require.NoError(t, err)
	assert.NotEqual(t, td.AccessUUID, refreshed.AccessUUID)

	other := NewTokenService("another-secret", time.Hour)
	_, err = other.Parse(td.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := &TokenService{Secret: "test-secret", TTL: -time.Minute}
	old, err := expired.CreateToken(3, "carol")
	require.NoError(t, err)
	_, err = tokens.Parse(old.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.ExtractTokenMetadata(httptest.NewRequest("GET", "/", nil))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
