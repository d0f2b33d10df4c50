package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/routing"
	"github.com/formacionweb360/training-service/internal/utils"
	"github.com/formacionweb360/training-service/internal/validator"
)

type sessionService struct {
	repo      repositories.Repository
	identity  repositories.IdentityProvider
	logger    *slog.Logger
	validator *validator.Validator
	secret    []byte
	ttl       time.Duration
	now       utils.Clock
}

// NewSessionService builds the session store. identity may be nil when SSO is not configured.
func NewSessionService(repo repositories.Repository, identity repositories.IdentityProvider, secret string, ttl time.Duration, logger *slog.Logger, validator *validator.Validator) SessionService {
	return &sessionService{
		repo:      repo,
		identity:  identity,
		logger:    logger,
		validator: validator,
		secret:    []byte(secret),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *sessionService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByUsuario(ctx, req.Usuario)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Warn("Login rejected", "usuario", req.Usuario, "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("Login rejected", "usuario", req.Usuario, "reason", "bad password")
		return nil, ErrInvalidCredentials
	}

	return s.open(ctx, user)
}

func (s *sessionService) LoginWithCasdoor(ctx context.Context, req *CasdoorLoginRequest) (*LoginResponse, error) {
	if s.identity == nil {
		return nil, ErrSSODisabled
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	usuario, err := s.identity.ResolveUsername(ctx, req.AccessToken)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to resolve casdoor identity: %w", err)
	}

	user, err := s.repo.User().GetByUsuario(ctx, usuario)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Warn("Casdoor login without portal account", "usuario", usuario)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return s.open(ctx, user)
}

// open stores a new session for user and signs its token
func (s *sessionService) open(ctx context.Context, user *models.User) (*LoginResponse, error) {
	if !user.IsActive() {
		s.logger.Warn("Login rejected", "user_id", user.ID, "reason", "inactive")
		return nil, ErrUserInactive
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Usuario:   user.Usuario,
		Nombre:    user.Nombre,
		Rol:       user.Rol,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Session().Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        session.ID,
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	s.logger.Info("Session opened", "user_id", user.ID, "rol", user.Rol)

	return &LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Session:   session,
		Redirect:  routing.Resolve(user.Rol),
	}, nil
}

// Load returns the stored identity context of token. Anything unusable is cleared.
func (s *sessionService) Load(ctx context.Context, token string) (*models.Session, error) {
	sid, err := s.sessionID(token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	session, err := s.repo.Session().Get(ctx, sid)
	switch {
	case err == nil:
	case repositories.IsNotFoundError(err):
		return nil, ErrUnauthorized
	case errors.Is(err, repositories.ErrMalformed):
		s.logger.Warn("Malformed session cleared", "session_id", sid)
		s.clear(ctx, sid)
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := s.validator.Validate(session); err != nil || session.ID != sid {
		s.logger.Warn("Invalid session cleared", "session_id", sid, "error", err)
		s.clear(ctx, sid)
		return nil, ErrUnauthorized
	}
	if session.Expired(s.now()) {
		s.clear(ctx, sid)
		return nil, ErrUnauthorized
	}

	return session, nil
}

func (s *sessionService) Logout(ctx context.Context, token string) error {
	sid, err := s.sessionID(token)
	if err != nil {
		return ErrUnauthorized
	}
	if err := s.repo.Session().Delete(ctx, sid); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info("Session closed", "session_id", sid)
	return nil
}

// sessionID verifies the token signature and returns the session id it carries.
// Expiry is checked against the stored session instead of the token.
func (s *sessionService) sessionID(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if claims.ID == "" {
		return "", errors.New("token carries no session id")
	}
	return claims.ID, nil
}

func (s *sessionService) clear(ctx context.Context, sid string) {
	if err := s.repo.Session().Delete(ctx, sid); err != nil {
		s.logger.Error("Failed to clear session", "session_id", sid, "error", err)
	}
}

func (s *sessionService) validate(req interface{}) error {
	if err := s.validator.Validate(req); err != nil {
		var errs ValidationErrors
		if errors.As(err, &errs) {
			return validationFailed(errs)
		}
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return nil
}
