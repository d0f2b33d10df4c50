package services

import (
	"context"
	"fmt"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/progress"
	"github.com/formacionweb360/training-service/internal/repositories"
)

// readModelAssembler joins activations with their catalog rows and progress.
// Relations that cannot be resolved render as placeholders, never as errors.
type readModelAssembler struct {
	repo repositories.Repository
}

type catalogLookup struct {
	courses   map[uint]*models.Course
	groups    map[uint]*models.Group
	campaigns map[uint]*models.Campaign
}

func (a *readModelAssembler) lookupCatalog(ctx context.Context, activations []*models.CourseActivation) (*catalogLookup, error) {
	courseIDs := make([]uint, 0, len(activations))
	groupIDs := make([]uint, 0, len(activations))
	campaignIDs := make([]uint, 0, len(activations))
	for _, act := range activations {
		courseIDs = append(courseIDs, act.CursoID)
		groupIDs = append(groupIDs, act.GrupoID)
		campaignIDs = append(campaignIDs, act.CampaniaID)
	}

	courses, err := a.repo.Catalog().GetCoursesByIDs(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load courses: %w", err)
	}
	groups, err := a.repo.Catalog().GetGroupsByIDs(ctx, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}
	campaigns, err := a.repo.Catalog().GetCampaignsByIDs(ctx, campaignIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}

	return &catalogLookup{courses: courses, groups: groups, campaigns: campaigns}, nil
}

func (l *catalogLookup) groupName(id uint) string {
	if g, ok := l.groups[id]; ok && g.Nombre != "" {
		return g.Nombre
	}
	return PlaceholderUnavailable
}

func (l *catalogLookup) campaignName(id uint) string {
	if c, ok := l.campaigns[id]; ok && c.Nombre != "" {
		return c.Nombre
	}
	return PlaceholderUnavailable
}

// activationViews builds the trainer rows including enrollment and completion counts
func (a *readModelAssembler) activationViews(ctx context.Context, activations []*models.CourseActivation) ([]*ActivationView, error) {
	views := make([]*ActivationView, 0, len(activations))
	if len(activations) == 0 {
		return views, nil
	}

	lookup, err := a.lookupCatalog(ctx, activations)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(activations))
	for _, act := range activations {
		ids = append(ids, act.ID)
	}
	enrolled, err := a.repo.Enrollment().CountByActivations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}

	for _, act := range activations {
		view := &ActivationView{
			ID:          act.ID,
			Fecha:       act.Fecha,
			Activo:      act.Activo,
			CursoID:     act.CursoID,
			CursoTitulo: PlaceholderUnavailable,
			GrupoID:     act.GrupoID,
			GrupoNombre: lookup.groupName(act.GrupoID),
			CampaniaID:  act.CampaniaID,
			CreadoPor:   act.CreadoPor,
			Inscritos:   enrolled[act.ID],
		}
		view.CampaniaNombre = lookup.campaignName(act.CampaniaID)
		if course, ok := lookup.courses[act.CursoID]; ok {
			view.CursoTitulo = course.Titulo
			view.DuracionMinutos = course.DuracionMinutos
		}

		if view.Inscritos > 0 {
			userIDs, err := a.repo.Enrollment().ListUserIDs(ctx, act.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to list enrolled users: %w", err)
			}
			completed, err := a.repo.Progress().CountCompleted(ctx, act.CursoID, userIDs)
			if err != nil {
				return nil, fmt.Errorf("failed to count completions: %w", err)
			}
			view.Completados = completed
		}

		views = append(views, view)
	}

	return views, nil
}

// courseViews builds the advisor rows of userID for the given activations
func (a *readModelAssembler) courseViews(ctx context.Context, userID uint, activations []*models.CourseActivation) ([]*CourseView, error) {
	views := make([]*CourseView, 0, len(activations))
	if len(activations) == 0 {
		return views, nil
	}

	lookup, err := a.lookupCatalog(ctx, activations)
	if err != nil {
		return nil, err
	}

	courseIDs := make([]uint, 0, len(activations))
	for _, act := range activations {
		courseIDs = append(courseIDs, act.CursoID)
	}
	records, err := a.repo.Progress().ListByUser(ctx, userID, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	for _, act := range activations {
		views = append(views, buildCourseView(act, lookup.courses[act.CursoID], lookup, records[act.CursoID]))
	}
	return views, nil
}

func buildCourseView(act *models.CourseActivation, course *models.Course, lookup *catalogLookup, record *models.ProgressRecord) *CourseView {
	view := &CourseView{
		ActivacionID:   act.ID,
		Fecha:          act.Fecha,
		CursoID:        act.CursoID,
		Titulo:         PlaceholderUnavailable,
		GrupoNombre:    lookup.groupName(act.GrupoID),
		CampaniaNombre: lookup.campaignName(act.CampaniaID),
		Estado:         PlaceholderNotStarted,
	}
	if course != nil {
		view.Titulo = course.Titulo
		view.Descripcion = course.Descripcion
		view.URLContenido = course.URLContenido
		view.DuracionMinutos = course.DuracionMinutos
	}
	applyProgress(view, record)
	return view
}

// applyProgress copies the record state onto the view; nil means not started
func applyProgress(view *CourseView, record *models.ProgressRecord) {
	if record == nil {
		view.Estado = PlaceholderNotStarted
		view.Progreso = 0
		view.Porcentaje = 0
		return
	}
	view.Estado = string(record.Estado)
	view.Progreso = record.Progreso
	view.Porcentaje = progress.Percentage(record.Progreso, view.DuracionMinutos, record.IsCompleted())
	fechaInicio := record.FechaInicio
	view.FechaInicio = &fechaInicio
	view.FechaFin = record.FechaFin
}
