package repositories

import (
	"context"

	"github.com/formacionweb360/training-service/internal/models"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Rol        *models.UserRole
	Grupo      *string
	CampaniaID *uint
	Estado     *models.UserStatus
	Query      string // Search on nombre or usuario
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

// UserRepository interface for portal accounts. Users are never deleted.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsuario(ctx context.Context, usuario string) (*models.User, error)
	GetByQRID(ctx context.Context, qrID string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error)

	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)

	// ListEligibleAdvisors returns active "user"-role accounts of a group
	ListEligibleAdvisors(ctx context.Context, grupoNombre string) ([]*models.User, error)

	UpdateStatus(ctx context.Context, id uint, status models.UserStatus) error
	// UpdateAttendance sets one date's marker in place, keeping the others
	UpdateAttendance(ctx context.Context, id uint, fecha string, present bool) error
}
