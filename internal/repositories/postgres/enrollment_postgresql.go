package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

const enrollmentBatchSize = 500

type EnrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db}
}

// CreateBatch is idempotent: rows already present are skipped by the unique index
func (e *EnrollmentPostgreSQL) CreateBatch(ctx context.Context, activationID uint, userIDs []uint) (int64, error) {
	userIDs = uniqueIDs(userIDs)
	if len(userIDs) == 0 {
		return 0, nil
	}

	rows := make([]models.Enrollment, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.Enrollment{ActivacionID: activationID, UsuarioID: userID})
	}

	var inserted int64
	for start := 0; start < len(rows); start += enrollmentBatchSize {
		end := min(start+enrollmentBatchSize, len(rows))
		batch := rows[start:end]
		result := e.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "activacion_id"}, {Name: "usuario_id"}},
				DoNothing: true,
			}).
			Create(&batch)
		if result.Error != nil {
			return inserted, fmt.Errorf("failed to create enrollments: %w", result.Error)
		}
		inserted += result.RowsAffected
	}

	return inserted, nil
}

func (e *EnrollmentPostgreSQL) DeleteByActivation(ctx context.Context, activationID uint) (int64, error) {
	result := e.db.WithContext(ctx).
		Where("activacion_id = ?", activationID).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete enrollments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (e *EnrollmentPostgreSQL) Exists(ctx context.Context, activationID, userID uint) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("activacion_id = ? AND usuario_id = ?", activationID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

func (e *EnrollmentPostgreSQL) ListByUser(ctx context.Context, userID uint) ([]*models.Enrollment, error) {
	var enrollments []*models.Enrollment
	err := e.db.WithContext(ctx).
		Where("usuario_id = ?", userID).
		Order("activacion_id DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

func (e *EnrollmentPostgreSQL) ListUserIDs(ctx context.Context, activationID uint) ([]uint, error) {
	var ids []uint
	err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("activacion_id = ?", activationID).
		Order("usuario_id").
		Pluck("usuario_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrolled users: %w", err)
	}
	return ids, nil
}

func (e *EnrollmentPostgreSQL) CountByActivations(ctx context.Context, activationIDs []uint) (map[uint]int64, error) {
	activationIDs = uniqueIDs(activationIDs)
	out := make(map[uint]int64, len(activationIDs))
	if len(activationIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ActivacionID uint
		Total        int64
	}
	err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Select("activacion_id, COUNT(*) AS total").
		Where("activacion_id IN ?", activationIDs).
		Group("activacion_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}
	for _, row := range rows {
		out[row.ActivacionID] = row.Total
	}
	return out, nil
}
