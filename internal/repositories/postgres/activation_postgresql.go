package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

type ActivationPostgreSQL struct {
	db *gorm.DB
}

func NewActivationPostgreSQL(db *gorm.DB) repositories.ActivationRepository {
	return &ActivationPostgreSQL{db: db}
}

// Create inserts the activation. The unique index on the activation tuple is
// the authority on duplicates; a violation surfaces as ErrDuplicate.
func (a *ActivationPostgreSQL) Create(ctx context.Context, activation *models.CourseActivation) error {
	if err := a.db.WithContext(ctx).Omit("Curso", "Grupo", "Campania").Create(activation).Error; err != nil {
		return translateError(err, "failed to create activation")
	}
	return nil
}

func (a *ActivationPostgreSQL) GetByID(ctx context.Context, id uint) (*models.CourseActivation, error) {
	var activation models.CourseActivation
	if err := a.db.WithContext(ctx).First(&activation, id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("failed to get activation %d", id))
	}
	return &activation, nil
}

func (a *ActivationPostgreSQL) FindByTuple(ctx context.Context, fecha string, campaniaID, grupoID, cursoID uint) (*models.CourseActivation, error) {
	var activation models.CourseActivation
	err := a.db.WithContext(ctx).
		Where("fecha = ? AND campania_id = ? AND grupo_id = ? AND curso_id = ?", fecha, campaniaID, grupoID, cursoID).
		First(&activation).Error
	if err != nil {
		return nil, translateError(err, "failed to find activation")
	}
	return &activation, nil
}

func (a *ActivationPostgreSQL) List(ctx context.Context, filters repositories.ActivationFilters) ([]*models.CourseActivation, error) {
	var activations []*models.CourseActivation

	query := a.db.WithContext(ctx).Model(&models.CourseActivation{})
	if filters.Fecha != nil {
		query = query.Where("fecha = ?", *filters.Fecha)
	}
	if filters.CampaniaID != nil {
		query = query.Where("campania_id = ?", *filters.CampaniaID)
	}
	if filters.GrupoID != nil {
		query = query.Where("grupo_id = ?", *filters.GrupoID)
	}
	if filters.CursoID != nil {
		query = query.Where("curso_id = ?", *filters.CursoID)
	}
	if filters.CreadoPor != nil {
		query = query.Where("creado_por = ?", *filters.CreadoPor)
	}
	if filters.ActiveOnly {
		query = query.Where("activo = ?", true)
	}
	if filters.IDs != nil {
		ids := uniqueIDs(filters.IDs)
		if len(ids) == 0 {
			return activations, nil
		}
		query = query.Where("id IN ?", ids)
	}

	if err := query.Order("fecha DESC, id").Find(&activations).Error; err != nil {
		return nil, fmt.Errorf("failed to list activations: %w", err)
	}
	return activations, nil
}

func (a *ActivationPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := a.db.WithContext(ctx).Delete(&models.CourseActivation{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete activation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("activation %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}
