package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

type catalogService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewCatalogService(repo repositories.Repository, logger *slog.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

func (s *catalogService) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	campaigns, err := s.repo.Catalog().ListCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// ListGroups returns the groups of an existing campaign
func (s *catalogService) ListGroups(ctx context.Context, campaniaID uint) ([]*models.Group, error) {
	if _, err := s.repo.Catalog().GetCampaign(ctx, campaniaID); err != nil {
		return nil, notFound(err, "campaign %d", campaniaID)
	}
	groups, err := s.repo.Catalog().ListGroups(ctx, &campaniaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (s *catalogService) ListCourses(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, error) {
	courses, err := s.repo.Catalog().ListCourses(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}
