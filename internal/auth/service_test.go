package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(ttl time.Duration) *Service {
	return NewService(NewMemoryUserStore(), "levtrade", []byte("test-secret"), ttl)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(time.Hour)
	ctx := context.Background()

	id, err := svc.Register(ctx, "a@b.c", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	token, err := svc.Login(ctx, "a@b.c", "password123")
	require.NoError(t, err)

	userID, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, id, userID)
}

func TestRegisterRequiresFields(t *testing.T) {
	svc := newTestService(time.Hour)
	_, err := svc.Register(context.Background(), "", "pw")
	require.Error(t, err)
	_, err = svc.Register(context.Background(), "a@b.c", "")
	require.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(time.Hour)
	ctx := context.Background()
	_, err := svc.Register(ctx, "a@b.c", "pw1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "a@b.c", "pw2")
	require.Error(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(time.Hour)
	ctx := context.Background()
	_, err := svc.Register(ctx, "a@b.c", "password123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@b.c", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@b.c", "password123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := newTestService(-time.Minute)
	ctx := context.Background()
	_, err := svc.Register(ctx, "a@b.c", "password123")
	require.NoError(t, err)

	token, err := svc.Login(ctx, "a@b.c", "password123")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	issuerA := NewService(NewMemoryUserStore(), "a", []byte("secret"), time.Hour)
	issuerB := NewService(NewMemoryUserStore(), "b", []byte("secret"), time.Hour)

	token, err := issuerA.signToken("u1")
	require.NoError(t, err)

	_, err = issuerB.ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(time.Hour)
	other := NewService(NewMemoryUserStore(), "levtrade", []byte("other-secret"), time.Hour)

	token, err := svc.signToken("u1")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	require.Error(t, err)
}
