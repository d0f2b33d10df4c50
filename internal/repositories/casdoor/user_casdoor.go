package casdoor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/formacionweb360/training-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// IdentityCasdoor resolves Casdoor access tokens to portal login names
type IdentityCasdoor struct {
	client *casdoorsdk.Client
	redis  *redis.Client
	config CasdoorConfig

	// Cache settings
	cachePrefix string
	cacheTTL    time.Duration
}

func NewIdentityCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.IdentityProvider {
	// Initialize Casdoor client
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &IdentityCasdoor{
		client:      client,
		redis:       redisClient,
		config:      config,
		cachePrefix: "casdoor:",
		cacheTTL:    15 * time.Minute,
	}
}

// ===== CACHE METHODS =====

// getCacheKey never stores the raw token
func (u *IdentityCasdoor) getCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return u.cachePrefix + hex.EncodeToString(sum[:])
}

func (u *IdentityCasdoor) getFromCache(ctx context.Context, token string) (string, bool) {
	if u.redis == nil {
		return "", false
	}
	name, err := u.redis.Get(ctx, u.getCacheKey(token)).Result()
	if err != nil {
		return "", false
	}
	return name, true
}

func (u *IdentityCasdoor) setCache(ctx context.Context, token, name string, ttl time.Duration) {
	if u.redis == nil || ttl <= 0 {
		return
	}
	_ = u.redis.Set(ctx, u.getCacheKey(token), name, ttl).Err()
}

// ===== IDENTITY =====

// ResolveUsername validates the token signature and returns the Casdoor user name
func (u *IdentityCasdoor) ResolveUsername(ctx context.Context, token string) (string, error) {
	if name, ok := u.getFromCache(ctx, token); ok {
		return name, nil
	}

	claims, err := u.client.ParseJwtToken(token)
	if err != nil {
		return "", fmt.Errorf("invalid casdoor token: %w", errors.Join(repositories.ErrNotFound, err))
	}
	if claims.Owner != "" && u.config.OrganizationName != "" && claims.Owner != u.config.OrganizationName {
		return "", fmt.Errorf("casdoor user belongs to organization %q: %w", claims.Owner, repositories.ErrNotFound)
	}
	if claims.Name == "" {
		return "", fmt.Errorf("casdoor token without user name: %w", repositories.ErrNotFound)
	}

	ttl := u.cacheTTL
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining < ttl {
			ttl = remaining
		}
	}
	u.setCache(ctx, token, claims.Name, ttl)

	return claims.Name, nil
}
