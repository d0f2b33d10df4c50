package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/formacionweb360/training-service/internal/cache"
	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/utils"
	"github.com/formacionweb360/training-service/internal/validator"
)

const (
	defaultUserPageSize = 50
)

type userService struct {
	repo         repositories.Repository
	cacheManager *cache.CacheManager
	logger       *slog.Logger
	validator    *validator.Validator
	loc          *time.Location
	now          utils.Clock
}

func NewUserService(repo repositories.Repository, cacheManager *cache.CacheManager, logger *slog.Logger, validator *validator.Validator, loc *time.Location) UserService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &userService{
		repo:         repo,
		cacheManager: cacheManager,
		logger:       logger,
		validator:    validator,
		loc:          loc,
		now:          time.Now,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user %d", userID)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	if req == nil {
		req = &UserListRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	page, size := req.Page, req.Size
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultUserPageSize
	}

	filters := repositories.UserFilters{
		CampaniaID: req.CampaniaID,
		Query:      strings.TrimSpace(req.Query),
		Limit:      size,
		Offset:     (page - 1) * size,
		SortBy:     "nombre",
		SortOrder:  "asc",
	}
	if req.Rol != "" {
		filters.Rol = &req.Rol
	}
	if req.Grupo != "" {
		filters.Grupo = &req.Grupo
	}
	if req.Estado != "" {
		filters.Estado = &req.Estado
	}

	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &UserListResponse{
		Users: users,
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}

// SetStatus activates or deactivates an account. Inactive advisors stop receiving enrollments.
func (s *userService) SetStatus(ctx context.Context, userID uint, req *UserStatusRequest, actorID uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user %d", userID)
	}

	if errs := s.validator.GetBusinessValidator().ValidateStatusChange(req, user, actorID); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if user.Estado == req.Estado {
		return user, nil
	}

	if err := s.repo.User().UpdateStatus(ctx, userID, req.Estado); err != nil {
		return nil, notFound(err, "user %d", userID)
	}
	user.Estado = req.Estado

	s.logger.Info("User status changed", "user_id", userID, "estado", req.Estado, "actor_id", actorID)
	cache.InvalidateAttendanceStats(ctx, s.cacheManager, utils.DateIn(s.now(), s.loc))
	return user, nil
}

// MarkAttendance records presence for a past or current date
func (s *userService) MarkAttendance(ctx context.Context, userID uint, req *AttendanceRequest) (*models.User, error) {
	today := utils.DateIn(s.now(), s.loc)
	if errs := s.validator.GetBusinessValidator().ValidateAttendance(req, today); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user %d", userID)
	}
	return s.markAttendance(ctx, user, req.Fecha, *req.Presente)
}

// CheckInByQR marks the holder of a QR identifier present today
func (s *userService) CheckInByQR(ctx context.Context, req *QRCheckInRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	user, err := s.repo.User().GetByQRID(ctx, strings.TrimSpace(req.QRID))
	if err != nil {
		return nil, notFound(err, "qr %s", req.QRID)
	}
	if !user.IsActive() {
		return nil, NewBusinessRuleError("inactive_user", "inactive users cannot check in", map[string]interface{}{
			"user_id": user.ID,
		})
	}

	return s.markAttendance(ctx, user, utils.DateIn(s.now(), s.loc), true)
}

func (s *userService) markAttendance(ctx context.Context, user *models.User, fecha string, present bool) (*models.User, error) {
	if err := s.repo.User().UpdateAttendance(ctx, user.ID, fecha, present); err != nil {
		return nil, notFound(err, "user %d", user.ID)
	}
	// Re-read so the caller sees markers written concurrently by others
	updated, err := s.repo.User().GetByID(ctx, user.ID)
	if err != nil {
		return nil, notFound(err, "user %d", user.ID)
	}

	s.logger.Info("Attendance marked", "user_id", user.ID, "fecha", fecha, "presente", present)
	cache.InvalidateAttendanceStats(ctx, s.cacheManager, fecha)
	return updated, nil
}
