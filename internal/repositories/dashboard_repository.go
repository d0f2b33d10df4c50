package repositories

import (
	"context"
	"time"

	"github.com/formacionweb360/training-service/internal/models"
)

// DashboardRepository defines aggregate queries for dashboards
type DashboardRepository interface {
	// CountUsersByRole counts active accounts per role
	CountUsersByRole(ctx context.Context) (map[models.UserRole]int64, error)

	// CountActivationsOn counts activations of a date
	CountActivationsOn(ctx context.Context, fecha string) (int64, error)

	// CountCompletionsSince counts progress records completed after since
	CountCompletionsSince(ctx context.Context, since time.Time) (int64, error)

	// ListAdvisors returns advisors for the attendance dashboard, optionally per campaign
	ListAdvisors(ctx context.Context, campaniaID *uint) ([]*models.User, error)
}
