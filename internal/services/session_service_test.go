package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/routing"
	"github.com/formacionweb360/training-service/internal/testutil"
)

const testSecret = "test-secret"

func (e *testEnv) sessionService(identity repositories.IdentityProvider) *sessionService {
	svc := NewSessionService(e.repo, identity, testSecret, time.Hour, e.logger, e.validator).(*sessionService)
	svc.now = fixedClock
	return svc
}

type stubIdentity struct {
	names map[string]string
}

func (s *stubIdentity) ResolveUsername(ctx context.Context, token string) (string, error) {
	if name, ok := s.names[token]; ok {
		return name, nil
	}
	return "", repositories.ErrNotFound
}

func signSession(t *testing.T, sid string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: sid}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestSessionService_Login(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	advisor := env.advisor(t, "asesor1", "Grupo A")
	svc := env.sessionService(nil)

	tests := []struct {
		name     string
		usuario  string
		redirect string
	}{
		{name: "admin", usuario: env.fx.Admin.Usuario, redirect: routing.ViewAdmin},
		{name: "trainer", usuario: env.fx.Trainer.Usuario, redirect: routing.ViewTrainer},
		{name: "advisor", usuario: advisor.Usuario, redirect: routing.ViewAdvisor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(ctx, &LoginRequest{Usuario: tt.usuario, Password: testutil.Password})
			require.NoError(t, err)
			assert.Equal(t, tt.redirect, resp.Redirect)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, testNow.Add(time.Hour), resp.ExpiresAt)

			session, err := svc.Load(ctx, resp.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.usuario, session.Usuario)
		})
	}

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginRequest{Usuario: advisor.Usuario, Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginRequest{Usuario: "fantasma", Password: testutil.Password})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := inactiveAdvisor(t, env, "asesor_baja", "Grupo A")
		_, err := svc.Login(ctx, &LoginRequest{Usuario: inactive.Usuario, Password: testutil.Password})
		assert.ErrorIs(t, err, ErrUserInactive)
	})

	t.Run("empty form", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginRequest{})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestSessionService_Load(t *testing.T) {
	ctx := context.Background()
	env := newRedisTestEnv(t)
	advisor := env.advisor(t, "asesor1", "Grupo A")
	svc := env.sessionService(nil)
	// redis expires keys on the wall clock
	svc.now = time.Now

	login := func(t *testing.T) *LoginResponse {
		t.Helper()
		resp, err := svc.Login(ctx, &LoginRequest{Usuario: advisor.Usuario, Password: testutil.Password})
		require.NoError(t, err)
		return resp
	}

	t.Run("logout clears the session", func(t *testing.T) {
		resp := login(t)
		require.NoError(t, svc.Logout(ctx, resp.Token))

		_, err := svc.Load(ctx, resp.Token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("tampered token", func(t *testing.T) {
		resp := login(t)
		_, err := svc.Load(ctx, resp.Token+"x")
		assert.ErrorIs(t, err, ErrUnauthorized)

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: resp.Session.ID}).SignedString([]byte("other"))
		require.NoError(t, err)
		_, err = svc.Load(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("expired session is cleared", func(t *testing.T) {
		resp := login(t)
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err := svc.Load(ctx, resp.Token)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.False(t, env.redis.Exists("session:"+resp.Session.ID))
	})

	t.Run("malformed stored value is cleared", func(t *testing.T) {
		sid := uuid.NewString()
		require.NoError(t, env.redis.Set("session:"+sid, "{not json"))

		_, err := svc.Load(ctx, signSession(t, sid))
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.False(t, env.redis.Exists("session:"+sid))
	})

	t.Run("schema violation is cleared", func(t *testing.T) {
		sid := uuid.NewString()
		require.NoError(t, env.repo.Session().Save(ctx, &models.Session{
			ID:        sid,
			UserID:    advisor.ID,
			Usuario:   advisor.Usuario,
			Rol:       "root",
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}))

		_, err := svc.Load(ctx, signSession(t, sid))
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.False(t, env.redis.Exists("session:"+sid))
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Load(ctx, signSession(t, uuid.NewString()))
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestSessionService_LoginWithCasdoor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	advisor := env.advisor(t, "asesor1", "Grupo A")

	t.Run("disabled without identity provider", func(t *testing.T) {
		_, err := env.sessionService(nil).LoginWithCasdoor(ctx, &CasdoorLoginRequest{AccessToken: "abc"})
		assert.ErrorIs(t, err, ErrSSODisabled)
	})

	svc := env.sessionService(&stubIdentity{names: map[string]string{
		"good":   advisor.Usuario,
		"orphan": "sin_cuenta",
	}})

	t.Run("maps to the portal account", func(t *testing.T) {
		resp, err := svc.LoginWithCasdoor(ctx, &CasdoorLoginRequest{AccessToken: "good"})
		require.NoError(t, err)
		assert.Equal(t, advisor.ID, resp.Session.UserID)
		assert.Equal(t, routing.ViewAdvisor, resp.Redirect)
	})

	t.Run("rejected tokens", func(t *testing.T) {
		for _, token := range []string{"bad", "orphan"} {
			_, err := svc.LoginWithCasdoor(ctx, &CasdoorLoginRequest{AccessToken: token})
			assert.True(t, errors.Is(err, ErrInvalidCredentials), token)
		}
	})
}
