package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formacionweb360/training-service/internal/cache"
	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

// SessionRedis keeps sessions under session:<id> with the session's own expiry
type SessionRedis struct {
	helper *cache.CacheHelper
	now    func() time.Time
}

func NewSessionRedis(client *redis.Client) repositories.SessionRepository {
	return &SessionRedis{
		helper: cache.NewCacheHelper(client, cache.SessionCacheConfig.Prefix),
		now:    time.Now,
	}
}

func (s *SessionRedis) Save(ctx context.Context, session *models.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}
	if err := s.helper.Set(ctx, session.ID, session, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionRedis) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := s.helper.Get(ctx, id, &session)
	switch {
	case err == nil:
		return &session, nil
	case errors.Is(err, cache.ErrCacheNotFound), errors.Is(err, cache.ErrCacheNotAvailable):
		return nil, fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
	case isDecodeError(err):
		return nil, fmt.Errorf("session %s: %w", id, repositories.ErrMalformed)
	default:
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
}

func (s *SessionRedis) Delete(ctx context.Context, id string) error {
	if err := s.helper.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var timeErr *time.ParseError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.As(err, &timeErr)
}
