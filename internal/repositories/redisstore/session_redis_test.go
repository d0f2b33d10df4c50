package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

func setup(t *testing.T) (repositories.SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionRedis(client), mr
}

func newSession(ttl time.Duration) *models.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Session{
		ID:        uuid.NewString(),
		UserID:    4,
		Usuario:   "mquispe",
		Nombre:    "Maria Quispe",
		Rol:       models.RoleTrainer,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSessionRedis_SaveGetDelete(t *testing.T) {
	repo, mr := setup(t)
	ctx := context.Background()
	s := newSession(time.Hour)

	require.NoError(t, repo.Save(ctx, s))
	assert.True(t, mr.Exists("session:"+s.ID))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:"+s.ID).Seconds(), 5)

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, got.UserID)
	assert.Equal(t, s.Rol, got.Rol)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, repo.Delete(ctx, s.ID))
	_, err = repo.Get(ctx, s.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestSessionRedis_Expiry(t *testing.T) {
	repo, mr := setup(t)
	ctx := context.Background()
	s := newSession(time.Minute)

	require.NoError(t, repo.Save(ctx, s))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, s.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestSessionRedis_Malformed(t *testing.T) {
	repo, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("session:broken", "{not json"))
	_, err := repo.Get(ctx, "broken")
	assert.True(t, errors.Is(err, repositories.ErrMalformed))

	require.NoError(t, mr.Set("session:wrongtype", `{"user_id":"seven"}`))
	_, err = repo.Get(ctx, "wrongtype")
	assert.True(t, errors.Is(err, repositories.ErrMalformed))
}

func TestSessionRedis_RejectsExpiredSave(t *testing.T) {
	repo, _ := setup(t)
	s := newSession(-time.Minute)
	assert.Error(t, repo.Save(context.Background(), s))
}
