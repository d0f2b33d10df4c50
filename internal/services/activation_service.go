package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/formacionweb360/training-service/internal/cache"
	"github.com/formacionweb360/training-service/internal/events"
	"github.com/formacionweb360/training-service/internal/metrics"
	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/utils"
	"github.com/formacionweb360/training-service/internal/validator"
)

type activationService struct {
	repo         repositories.Repository
	publisher    events.EventPublisher
	cacheManager *cache.CacheManager
	logger       *slog.Logger
	validator    *validator.Validator
	views        *readModelAssembler
	loc          *time.Location
	now          utils.Clock
}

func NewActivationService(repo repositories.Repository, publisher events.EventPublisher, cacheManager *cache.CacheManager, logger *slog.Logger, validator *validator.Validator, loc *time.Location) ActivationService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &activationService{
		repo:         repo,
		publisher:    publisher,
		cacheManager: cacheManager,
		logger:       logger,
		validator:    validator,
		views:        &readModelAssembler{repo: repo},
		loc:          loc,
		now:          time.Now,
	}
}

func (s *activationService) today() string {
	return utils.DateIn(s.now(), s.loc)
}

// Activate makes a course available today to the advisors of a group
func (s *activationService) Activate(ctx context.Context, req *ActivationRequest, actorID uint) (*ActivationResult, error) {
	s.logger.Info("Activating course", "actor_id", actorID, "campania_id", req.CampaniaID, "grupo_id", req.GrupoID, "curso_id", req.CursoID)

	// Validate request before touching the database
	if errs := s.validator.GetBusinessValidator().ValidateActivation(req); len(errs) > 0 {
		metrics.ActivationsTotal.WithLabelValues("invalid").Inc()
		return nil, validationFailed(errs)
	}

	group, err := s.checkReferences(ctx, req)
	if err != nil {
		metrics.ActivationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	fecha := s.today()

	// Fast path; the unique index below is what actually decides
	if _, err := s.repo.Activation().FindByTuple(ctx, fecha, req.CampaniaID, req.GrupoID, req.CursoID); err == nil {
		metrics.ActivationsTotal.WithLabelValues("duplicate").Inc()
		return nil, fmt.Errorf("activation of course %d for group %d on %s: %w", req.CursoID, req.GrupoID, fecha, ErrDuplicateActivation)
	} else if !repositories.IsNotFoundError(err) {
		metrics.ActivationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to check existing activation: %w", err)
	}

	result := &ActivationResult{}
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		activation := &models.CourseActivation{
			CursoID:    req.CursoID,
			GrupoID:    req.GrupoID,
			CampaniaID: req.CampaniaID,
			Fecha:      fecha,
			Activo:     true,
			CreadoPor:  actorID,
		}
		if err := tx.Activation().Create(ctx, activation); err != nil {
			if repositories.IsDuplicateError(err) {
				return fmt.Errorf("activation of course %d for group %d on %s: %w", req.CursoID, req.GrupoID, fecha, ErrDuplicateActivation)
			}
			return fmt.Errorf("failed to create activation: %w", err)
		}

		enrolled, err := enrollAdvisors(ctx, tx, activation.ID, group.Nombre)
		if err != nil {
			return err
		}

		result.Activation = activation
		result.Enrolled = enrolled
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateActivation) {
			metrics.ActivationsTotal.WithLabelValues("duplicate").Inc()
		} else {
			metrics.ActivationsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	result.ZeroAdvisors = result.Enrolled == 0
	metrics.ActivationsTotal.WithLabelValues("created").Inc()
	metrics.EnrollmentsCreated.WithLabelValues("activation").Add(float64(result.Enrolled))
	cache.InvalidateActivationStats(ctx, s.cacheManager, fecha)

	if result.ZeroAdvisors {
		s.logger.Warn("Course activated without eligible advisors", "activation_id", result.Activation.ID, "grupo", group.Nombre)
	}
	s.logger.Info("Course activated", "activation_id", result.Activation.ID, "enrolled", result.Enrolled)

	s.publish(ctx, events.NewEvent(events.TopicCourseActivated, actorID, events.CourseActivatedEvent{
		ActivationID: result.Activation.ID,
		CursoID:      req.CursoID,
		GrupoID:      req.GrupoID,
		CampaniaID:   req.CampaniaID,
		Fecha:        fecha,
		Enrolled:     result.Enrolled,
		ZeroAdvisors: result.ZeroAdvisors,
	}))

	return result, nil
}

// checkReferences loads the group after verifying campaign, group and course exist
func (s *activationService) checkReferences(ctx context.Context, req *ActivationRequest) (*models.Group, error) {
	if _, err := s.repo.Catalog().GetCampaign(ctx, req.CampaniaID); err != nil {
		return nil, notFound(err, "campaign %d", req.CampaniaID)
	}
	group, err := s.repo.Catalog().GetGroup(ctx, req.GrupoID)
	if err != nil {
		return nil, notFound(err, "group %d", req.GrupoID)
	}
	if group.CampaniaID != req.CampaniaID {
		return nil, NewValidationError("grupo_id", "does not belong to the selected campaign", req.GrupoID)
	}
	if _, err := s.repo.Catalog().GetCourse(ctx, req.CursoID); err != nil {
		return nil, notFound(err, "course %d", req.CursoID)
	}
	return group, nil
}

// enrollAdvisors inserts the missing enrollments of every eligible advisor of grupoNombre
func enrollAdvisors(ctx context.Context, repo repositories.Repository, activationID uint, grupoNombre string) (int64, error) {
	advisors, err := repo.User().ListEligibleAdvisors(ctx, grupoNombre)
	if err != nil {
		return 0, fmt.Errorf("failed to list advisors: %w", err)
	}
	if len(advisors) == 0 {
		return 0, nil
	}

	userIDs := make([]uint, 0, len(advisors))
	for _, advisor := range advisors {
		userIDs = append(userIDs, advisor.ID)
	}

	added, err := repo.Enrollment().CreateBatch(ctx, activationID, userIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to enroll advisors: %w", err)
	}
	return added, nil
}

// Deactivate removes the enrollments of an activation and then the activation
func (s *activationService) Deactivate(ctx context.Context, activationID, actorID uint) error {
	s.logger.Info("Deactivating course", "activation_id", activationID, "actor_id", actorID)

	var (
		fecha   string
		removed int64
	)
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		activation, err := tx.Activation().GetByID(ctx, activationID)
		if err != nil {
			return notFound(err, "activation %d", activationID)
		}
		fecha = activation.Fecha

		removed, err = tx.Enrollment().DeleteByActivation(ctx, activationID)
		if err != nil {
			return fmt.Errorf("failed to delete enrollments: %w", err)
		}
		if err := tx.Activation().Delete(ctx, activationID); err != nil {
			return notFound(err, "activation %d", activationID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateActivationStats(ctx, s.cacheManager, fecha)
	s.logger.Info("Course deactivated", "activation_id", activationID, "enrollments_removed", removed)

	s.publish(ctx, events.NewEvent(events.TopicCourseDeactivated, actorID, events.CourseDeactivatedEvent{
		ActivationID:       activationID,
		EnrollmentsRemoved: removed,
	}))
	return nil
}

// RepairEnrollments re-runs the fan-out of an activation, adding only missing rows
func (s *activationService) RepairEnrollments(ctx context.Context, activationID uint) (int64, error) {
	activation, err := s.repo.Activation().GetByID(ctx, activationID)
	if err != nil {
		return 0, notFound(err, "activation %d", activationID)
	}
	return s.repair(ctx, activation)
}

func (s *activationService) repair(ctx context.Context, activation *models.CourseActivation) (int64, error) {
	group, err := s.repo.Catalog().GetGroup(ctx, activation.GrupoID)
	if err != nil {
		return 0, notFound(err, "group %d of activation %d", activation.GrupoID, activation.ID)
	}

	added, err := enrollAdvisors(ctx, s.repo, activation.ID, group.Nombre)
	if err != nil {
		return 0, err
	}

	if added > 0 {
		metrics.EnrollmentsCreated.WithLabelValues("repair").Add(float64(added))
		s.logger.Info("Enrollments repaired", "activation_id", activation.ID, "added", added)
		s.publish(ctx, events.NewEvent(events.TopicEnrollmentRepaired, 0, events.EnrollmentRepairedEvent{
			ActivationID: activation.ID,
			Added:        added,
		}))
	}
	return added, nil
}

// RepairAll reconciles every active activation of fecha. An empty fecha means today.
func (s *activationService) RepairAll(ctx context.Context, fecha string) (*RepairSummary, error) {
	if fecha == "" {
		fecha = s.today()
	}
	if _, err := utils.ParseDate(fecha); err != nil {
		return nil, NewValidationError("fecha", "must be a date in YYYY-MM-DD format", fecha)
	}

	activations, err := s.repo.Activation().List(ctx, repositories.ActivationFilters{Fecha: &fecha, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list activations: %w", err)
	}

	summary := &RepairSummary{Fecha: fecha, Activations: len(activations)}
	for _, activation := range activations {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		added, err := s.repair(ctx, activation)
		if err != nil {
			summary.Failed++
			s.logger.Error("Enrollment repair failed", "activation_id", activation.ID, "error", err)
			continue
		}
		summary.Added += added
	}

	return summary, nil
}

func (s *activationService) Get(ctx context.Context, activationID uint) (*ActivationView, error) {
	activation, err := s.repo.Activation().GetByID(ctx, activationID)
	if err != nil {
		return nil, notFound(err, "activation %d", activationID)
	}
	views, err := s.views.activationViews(ctx, []*models.CourseActivation{activation})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListToday returns today's activations with their enrollment counts
func (s *activationService) ListToday(ctx context.Context, filters ActivationListFilters) ([]*ActivationView, error) {
	fecha := s.today()
	activations, err := s.repo.Activation().List(ctx, repositories.ActivationFilters{
		Fecha:      &fecha,
		CampaniaID: filters.CampaniaID,
		GrupoID:    filters.GrupoID,
		CreadoPor:  filters.CreadoPor,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activations: %w", err)
	}
	return s.views.activationViews(ctx, activations)
}

// publish is best effort: the write already happened
func (s *activationService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "type", event.Type, "event_id", event.ID, "error", err)
	}
}
