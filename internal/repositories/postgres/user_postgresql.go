package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

type UserPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateError(err, "failed to create user")
	}
	return nil
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("failed to get user %d", id))
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByUsuario(ctx context.Context, usuario string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("usuario = ?", usuario).First(&user).Error; err != nil {
		return nil, translateError(err, "failed to get user by usuario")
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByQRID(ctx context.Context, qrID string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("qr_id = ?", qrID).First(&user).Error; err != nil {
		return nil, translateError(err, "failed to get user by qr")
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	ids = uniqueIDs(ids)
	out := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []*models.User
	if err := u.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}
	for _, user := range users {
		out[user.ID] = user
	}
	return out, nil
}

func (u *UserPostgreSQL) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	// apply filter first
	query := u.db.WithContext(ctx).Model(&models.User{})
	if filters.Rol != nil {
		query = query.Where("rol = ?", *filters.Rol)
	}
	if filters.Grupo != nil {
		query = query.Where("grupo_nombre = ?", *filters.Grupo)
	}
	if filters.CampaniaID != nil {
		query = query.Where("campania_id = ?", *filters.CampaniaID)
	}
	if filters.Estado != nil {
		query = query.Where("estado = ?", *filters.Estado)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(nombre) LIKE ? OR LOWER(usuario) LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	// then apply pagination and sorting
	query = u.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

func (u *UserPostgreSQL) ListEligibleAdvisors(ctx context.Context, grupoNombre string) ([]*models.User, error) {
	var users []*models.User
	err := u.db.WithContext(ctx).
		Where("rol = ? AND estado = ? AND grupo_nombre = ?", models.RoleAdvisor, models.UserActive, grupoNombre).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible advisors: %w", err)
	}
	return users, nil
}

func (u *UserPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.UserStatus) error {
	result := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("estado", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update user status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func (u *UserPostgreSQL) UpdateAttendance(ctx context.Context, id uint, fecha string, present bool) error {
	path, value := attendanceMarker(u.db.Dialector.Name(), fecha, present)

	var affected int64
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// JSON_SET and JSONB_SET yield NULL on a NULL document
		if err := tx.Model(&models.User{}).
			Where("id = ? AND asistencias IS NULL", id).
			Update("asistencias", datatypes.JSON("{}")).Error; err != nil {
			return err
		}
		result := tx.Model(&models.User{}).
			Where("id = ?", id).
			UpdateColumn("asistencias", datatypes.JSONSet("asistencias").Set(path, value))
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}

// attendanceMarker builds the JSON path and value for one date's marker.
// sqlite binds a bare bool as 0/1, so the value goes through json().
func attendanceMarker(dialect, fecha string, present bool) (string, interface{}) {
	switch dialect {
	case "postgres":
		return "{" + fecha + "}", present
	case "sqlite":
		return fecha, gorm.Expr("json(?)", strconv.FormatBool(present))
	default:
		return fecha, present
	}
}
