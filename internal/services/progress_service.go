package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/formacionweb360/training-service/internal/events"
	"github.com/formacionweb360/training-service/internal/metrics"
	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/progress"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/utils"
	"github.com/formacionweb360/training-service/internal/validator"
)

type progressService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	registry  *progress.Registry
	logger    *slog.Logger
	validator *validator.Validator
	views     *readModelAssembler
	now       utils.Clock
}

func NewProgressService(repo repositories.Repository, publisher events.EventPublisher, registry *progress.Registry, logger *slog.Logger, validator *validator.Validator) ProgressService {
	return &progressService{
		repo:      repo,
		publisher: publisher,
		registry:  registry,
		logger:    logger,
		validator: validator,
		views:     &readModelAssembler{repo: repo},
		now:       time.Now,
	}
}

// viewContext is what every progress operation resolves first
type viewContext struct {
	activation *models.CourseActivation
	course     *models.Course
	lookup     *catalogLookup
	key        progress.Key
}

// resolve checks that the activation is live and userID is enrolled in it
func (s *progressService) resolve(ctx context.Context, userID, activationID uint) (*viewContext, error) {
	activation, err := s.repo.Activation().GetByID(ctx, activationID)
	if err != nil {
		return nil, notFound(err, "activation %d", activationID)
	}
	if !activation.Activo {
		return nil, fmt.Errorf("activation %d is inactive: %w", activationID, ErrNotFound)
	}

	enrolled, err := s.repo.Enrollment().Exists(ctx, activationID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, NewPermissionError(userID, activationID, "activation", "view", "user is not enrolled")
	}

	lookup, err := s.views.lookupCatalog(ctx, []*models.CourseActivation{activation})
	if err != nil {
		return nil, err
	}
	course, ok := lookup.courses[activation.CursoID]
	if !ok {
		return nil, fmt.Errorf("course %d of activation %d: %w", activation.CursoID, activationID, ErrNotFound)
	}

	return &viewContext{
		activation: activation,
		course:     course,
		lookup:     lookup,
		key:        progress.Key{UserID: userID, CourseID: course.ID},
	}, nil
}

// findOrCreate returns the record of the pair, creating it on first view.
// A concurrent first view loses on the unique index and re-reads.
func (s *progressService) findOrCreate(ctx context.Context, userID, courseID uint) (*models.ProgressRecord, bool, error) {
	record, err := s.repo.Progress().Get(ctx, userID, courseID)
	if err == nil {
		return record, false, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, false, fmt.Errorf("failed to load progress: %w", err)
	}

	record = &models.ProgressRecord{
		UsuarioID:   userID,
		CursoID:     courseID,
		Estado:      models.ProgressInProgress,
		Progreso:    0,
		FechaInicio: s.now(),
	}
	if err := s.repo.Progress().Create(ctx, record); err != nil {
		if !repositories.IsDuplicateError(err) {
			return nil, false, fmt.Errorf("failed to create progress: %w", err)
		}
		record, err = s.repo.Progress().Get(ctx, userID, courseID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to reload progress: %w", err)
		}
		return record, false, nil
	}
	return record, true, nil
}

// flusher writes tracker values to the record, stopping the tracker once the
// record has left the in-progress state
func (s *progressService) flusher(recordID uint) progress.Flusher {
	return func(ctx context.Context, value int) error {
		err := s.repo.Progress().UpdateProgress(ctx, recordID, value)
		if repositories.IsNotFoundError(err) {
			return progress.ErrRecordClosed
		}
		return err
	}
}

func (s *progressService) OpenView(ctx context.Context, userID, activationID uint) (*CourseView, error) {
	vc, err := s.resolve(ctx, userID, activationID)
	if err != nil {
		return nil, err
	}

	record, created, err := s.findOrCreate(ctx, userID, vc.course.ID)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("Progress started", "user_id", userID, "curso_id", vc.course.ID, "activation_id", activationID)
	}

	view := buildCourseView(vc.activation, vc.course, vc.lookup, record)
	if !record.IsCompleted() {
		tracker, running := s.registry.Start(vc.key, record.Progreso, s.flusher(record.ID))
		s.applyTracker(view, tracker, running)
	}
	return view, nil
}

// Heartbeat keeps the view's tracker alive, restarting it when it was stopped
func (s *progressService) Heartbeat(ctx context.Context, userID, activationID uint) (*CourseView, error) {
	return s.OpenView(ctx, userID, activationID)
}

// CloseView flushes the pending progress of the view and stops tracking
func (s *progressService) CloseView(ctx context.Context, userID, activationID uint) (*CourseView, error) {
	vc, err := s.resolve(ctx, userID, activationID)
	if err != nil {
		return nil, err
	}

	if value, ok, err := s.registry.Stop(ctx, vc.key); err != nil {
		s.logger.Error("Failed to flush progress on close", "user_id", userID, "curso_id", vc.course.ID, "value", value, "error", err)
	} else if ok {
		s.logger.Debug("Progress flushed on close", "user_id", userID, "curso_id", vc.course.ID, "value", value)
	}

	record, err := s.repo.Progress().Get(ctx, userID, vc.course.ID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return buildCourseView(vc.activation, vc.course, vc.lookup, record), nil
}

// Complete finalizes the record. The write must succeed for the state to change;
// on failure the record stays in progress and keeps accruing.
func (s *progressService) Complete(ctx context.Context, userID, activationID uint, req *CompleteCourseRequest) (*CourseView, error) {
	if req == nil || !req.Confirm {
		return nil, fmt.Errorf("%w: %w", ErrCompletionNotConfirmed, validationFailed(ValidationErrors{{
			Field:   "confirm",
			Message: "must be true to complete the course",
			Rule:    "required",
		}}))
	}

	vc, err := s.resolve(ctx, userID, activationID)
	if err != nil {
		return nil, err
	}

	record, _, err := s.findOrCreate(ctx, userID, vc.course.ID)
	if err != nil {
		return nil, err
	}
	if record.IsCompleted() {
		s.registry.Discard(vc.key)
		return buildCourseView(vc.activation, vc.course, vc.lookup, record), nil
	}

	accrued := record.Progreso
	if tracker, ok := s.registry.Get(vc.key); ok {
		accrued = max(accrued, tracker.Value())
	}
	final := progress.CompletionValue(accrued, vc.course.DuracionMinutos)
	fechaFin := s.now()

	if err := s.repo.Progress().MarkCompleted(ctx, record.ID, final, fechaFin); err != nil {
		s.logger.Error("Failed to complete course", "user_id", userID, "curso_id", vc.course.ID, "error", err)
		return nil, fmt.Errorf("failed to complete course: %w", err)
	}
	s.registry.Discard(vc.key)
	metrics.CompletionsTotal.Inc()

	record.Estado = models.ProgressCompleted
	record.Progreso = final
	record.FechaFin = &fechaFin

	s.logger.Info("Course completed", "user_id", userID, "curso_id", vc.course.ID, "progreso", final)

	if s.publisher != nil {
		event := events.NewEvent(events.TopicProgressCompleted, userID, events.ProgressCompletedEvent{
			UsuarioID:    userID,
			CursoID:      vc.course.ID,
			ActivationID: activationID,
			Progreso:     final,
			FechaFin:     fechaFin,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("Failed to publish event", "type", event.Type, "event_id", event.ID, "error", err)
		}
	}

	return buildCourseView(vc.activation, vc.course, vc.lookup, record), nil
}

func (s *progressService) Shutdown(ctx context.Context) error {
	return s.registry.Shutdown(ctx)
}

// applyTracker shows the live accrued value, which may be ahead of the stored one
func (s *progressService) applyTracker(view *CourseView, tracker *progress.Tracker, running bool) {
	value := tracker.Value()
	if value > view.Progreso {
		view.Progreso = value
		view.Porcentaje = progress.Percentage(value, view.DuracionMinutos, false)
	}
	view.Tracking = running
}
