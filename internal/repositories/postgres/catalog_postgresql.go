package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/formacionweb360/training-service/internal/cache"
	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

// CatalogPostgreSQL reads campaigns, groups and courses. Single-row reads go
// through the catalog cache since the portal never mutates these rows.
type CatalogPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCatalogPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CatalogRepository {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &CatalogPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (c *CatalogPostgreSQL) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	return translateError(c.db.WithContext(ctx).Create(campaign).Error, "failed to create campaign")
}

func (c *CatalogPostgreSQL) CreateGroup(ctx context.Context, group *models.Group) error {
	return translateError(c.db.WithContext(ctx).Create(group).Error, "failed to create group")
}

func (c *CatalogPostgreSQL) CreateCourse(ctx context.Context, course *models.Course) error {
	return translateError(c.db.WithContext(ctx).Create(course).Error, "failed to create course")
}

func (c *CatalogPostgreSQL) GetCampaign(ctx context.Context, id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	err := c.cacheManager.Catalog.CacheOrExecute(ctx, fmt.Sprintf("campaign:%d", id), &campaign, cache.CatalogCacheConfig.TTL, func() (interface{}, error) {
		var dbCampaign models.Campaign
		if err := c.db.WithContext(ctx).First(&dbCampaign, id).Error; err != nil {
			return nil, translateError(err, fmt.Sprintf("failed to get campaign %d", id))
		}
		return &dbCampaign, nil
	})
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (c *CatalogPostgreSQL) GetGroup(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	err := c.cacheManager.Catalog.CacheOrExecute(ctx, fmt.Sprintf("group:%d", id), &group, cache.CatalogCacheConfig.TTL, func() (interface{}, error) {
		var dbGroup models.Group
		if err := c.db.WithContext(ctx).First(&dbGroup, id).Error; err != nil {
			return nil, translateError(err, fmt.Sprintf("failed to get group %d", id))
		}
		return &dbGroup, nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *CatalogPostgreSQL) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	err := c.cacheManager.Catalog.CacheOrExecute(ctx, fmt.Sprintf("course:%d", id), &course, cache.CatalogCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := c.db.WithContext(ctx).First(&dbCourse, id).Error; err != nil {
			return nil, translateError(err, fmt.Sprintf("failed to get course %d", id))
		}
		return &dbCourse, nil
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *CatalogPostgreSQL) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	if err := c.db.WithContext(ctx).Order("nombre").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

func (c *CatalogPostgreSQL) ListGroups(ctx context.Context, campaniaID *uint) ([]*models.Group, error) {
	var groups []*models.Group
	query := c.db.WithContext(ctx).Order("nombre")
	if campaniaID != nil {
		query = query.Where("campania_id = ?", *campaniaID)
	}
	if err := query.Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (c *CatalogPostgreSQL) ListCourses(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, error) {
	var courses []*models.Course
	query := c.db.WithContext(ctx).Order("titulo")
	if filters.GrupoID != nil {
		query = query.Where("grupo_id = ? OR grupo_id IS NULL", *filters.GrupoID)
	}
	if filters.CampaniaID != nil {
		query = query.Where("campania_id = ? OR campania_id IS NULL", *filters.CampaniaID)
	}
	if err := query.Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (c *CatalogPostgreSQL) GetCampaignsByIDs(ctx context.Context, ids []uint) (map[uint]*models.Campaign, error) {
	ids = uniqueIDs(ids)
	out := make(map[uint]*models.Campaign, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*models.Campaign
	if err := c.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get campaigns: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (c *CatalogPostgreSQL) GetGroupsByIDs(ctx context.Context, ids []uint) (map[uint]*models.Group, error) {
	ids = uniqueIDs(ids)
	out := make(map[uint]*models.Group, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*models.Group
	if err := c.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (c *CatalogPostgreSQL) GetCoursesByIDs(ctx context.Context, ids []uint) (map[uint]*models.Course, error) {
	ids = uniqueIDs(ids)
	out := make(map[uint]*models.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*models.Course
	if err := c.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
