package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

func (p *ProgressPostgreSQL) Get(ctx context.Context, userID, courseID uint) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	err := p.db.WithContext(ctx).
		Where("usuario_id = ? AND curso_id = ?", userID, courseID).
		First(&record).Error
	if err != nil {
		return nil, translateError(err, "failed to get progress")
	}
	return &record, nil
}

func (p *ProgressPostgreSQL) Create(ctx context.Context, record *models.ProgressRecord) error {
	if err := p.db.WithContext(ctx).Create(record).Error; err != nil {
		return translateError(err, "failed to create progress")
	}
	return nil
}

func (p *ProgressPostgreSQL) UpdateProgress(ctx context.Context, id uint, progreso int) error {
	result := p.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Where("id = ? AND estado = ?", id, models.ProgressInProgress).
		Updates(map[string]interface{}{
			"progreso":   progreso,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("in-progress record %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func (p *ProgressPostgreSQL) MarkCompleted(ctx context.Context, id uint, progreso int, fechaFin time.Time) error {
	result := p.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"estado":     models.ProgressCompleted,
			"progreso":   progreso,
			"fecha_fin":  fechaFin,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("progress %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func (p *ProgressPostgreSQL) ListByUser(ctx context.Context, userID uint, courseIDs []uint) (map[uint]*models.ProgressRecord, error) {
	out := make(map[uint]*models.ProgressRecord)
	query := p.db.WithContext(ctx).Where("usuario_id = ?", userID)
	if courseIDs != nil {
		courseIDs = uniqueIDs(courseIDs)
		if len(courseIDs) == 0 {
			return out, nil
		}
		query = query.Where("curso_id IN ?", courseIDs)
	}

	var records []*models.ProgressRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	for _, record := range records {
		out[record.CursoID] = record
	}
	return out, nil
}

func (p *ProgressPostgreSQL) CountCompleted(ctx context.Context, courseID uint, userIDs []uint) (int64, error) {
	userIDs = uniqueIDs(userIDs)
	if len(userIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := p.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Where("curso_id = ? AND estado = ? AND usuario_id IN ?", courseID, models.ProgressCompleted, userIDs).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}
