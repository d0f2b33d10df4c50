package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{db: db}
}

// ===== DASHBOARD STATS =====

func (r *dashboardRepository) CountUsersByRole(ctx context.Context) (map[models.UserRole]int64, error) {
	var rows []struct {
		Rol   models.UserRole
		Total int64
	}

	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("rol, COUNT(*) AS total").
		Where("estado = ?", models.UserActive).
		Group("rol").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}

	out := make(map[models.UserRole]int64, len(rows))
	for _, row := range rows {
		out[row.Rol] = row.Total
	}
	return out, nil
}

func (r *dashboardRepository) CountActivationsOn(ctx context.Context, fecha string) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).
		Model(&models.CourseActivation{}).
		Where("fecha = ?", fecha).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count activations: %w", err)
	}

	return count, nil
}

func (r *dashboardRepository) CountCompletionsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Where("estado = ? AND fecha_fin >= ?", models.ProgressCompleted, since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}

	return count, nil
}

func (r *dashboardRepository) ListAdvisors(ctx context.Context, campaniaID *uint) ([]*models.User, error) {
	var users []*models.User

	query := r.db.WithContext(ctx).Where("rol = ?", models.RoleAdvisor)
	if campaniaID != nil {
		query = query.Where("campania_id = ?", *campaniaID)
	}
	if err := query.Order("grupo_nombre, nombre").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list advisors: %w", err)
	}

	return users, nil
}
