package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/formacionweb360/training-service/internal/cache"
	"github.com/formacionweb360/training-service/internal/progress"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/utils"
	"github.com/formacionweb360/training-service/internal/validator"
)

const recentActivityLimit = 10

type dashboardService struct {
	repo         repositories.Repository
	registry     *progress.Registry
	cacheManager *cache.CacheManager
	logger       *slog.Logger
	validator    *validator.Validator
	views        *readModelAssembler
	loc          *time.Location
	now          utils.Clock
}

// NewDashboardService builds the read-model service. registry may be nil, in which
// case advisor rows only show stored progress.
func NewDashboardService(repo repositories.Repository, registry *progress.Registry, cacheManager *cache.CacheManager, logger *slog.Logger, validator *validator.Validator, loc *time.Location) DashboardService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &dashboardService{
		repo:         repo,
		registry:     registry,
		cacheManager: cacheManager,
		logger:       logger,
		validator:    validator,
		views:        &readModelAssembler{repo: repo},
		loc:          loc,
		now:          time.Now,
	}
}

// MyCourses lists the active courses userID is enrolled in, with progress
func (s *dashboardService) MyCourses(ctx context.Context, userID uint) ([]*CourseView, error) {
	enrollments, err := s.repo.Enrollment().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return []*CourseView{}, nil
	}

	ids := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.ActivacionID)
	}
	activations, err := s.repo.Activation().List(ctx, repositories.ActivationFilters{IDs: ids, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list activations: %w", err)
	}

	views, err := s.views.courseViews(ctx, userID, activations)
	if err != nil {
		return nil, err
	}

	if s.registry != nil {
		for _, view := range views {
			tracker, ok := s.registry.Get(progress.Key{UserID: userID, CourseID: view.CursoID})
			if !ok {
				continue
			}
			view.Tracking = true
			if value := tracker.Value(); value > view.Progreso {
				view.Progreso = value
				view.Porcentaje = progress.Percentage(value, view.DuracionMinutos, false)
			}
		}
	}

	return views, nil
}

// Attendance builds the per-group attendance of a date, today by default
func (s *dashboardService) Attendance(ctx context.Context, query *AttendanceQuery) (*AttendanceDashboard, error) {
	if query == nil {
		query = &AttendanceQuery{}
	}
	if err := s.validator.Validate(query); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	fecha := query.Fecha
	if fecha == "" {
		fecha = utils.DateIn(s.now(), s.loc)
	}

	scope := "all"
	if query.CampaniaID != nil {
		scope = fmt.Sprintf("%d", *query.CampaniaID)
	}
	key := fmt.Sprintf("attendance:%s:%s", fecha, scope)

	var out AttendanceDashboard
	err := s.cacheManager.Stats.CacheOrExecute(ctx, key, &out, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.buildAttendance(ctx, fecha, query.CampaniaID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build attendance: %w", err)
	}
	return &out, nil
}

func (s *dashboardService) buildAttendance(ctx context.Context, fecha string, campaniaID *uint) (*AttendanceDashboard, error) {
	advisors, err := s.repo.Dashboard().ListAdvisors(ctx, campaniaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advisors: %w", err)
	}

	campaignIDs := make([]uint, 0, len(advisors))
	for _, u := range advisors {
		if u.CampaniaID != nil {
			campaignIDs = append(campaignIDs, *u.CampaniaID)
		}
	}
	campaigns, err := s.repo.Catalog().GetCampaignsByIDs(ctx, campaignIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	lookup := &catalogLookup{campaigns: campaigns}

	dashboard := &AttendanceDashboard{
		Fecha:    fecha,
		Grupos:   []GroupAttendance{},
		Usuarios: make([]AttendanceRow, 0, len(advisors)),
	}
	groups := make(map[string]*GroupAttendance)

	for _, u := range advisors {
		row := AttendanceRow{
			UsuarioID:      u.ID,
			Nombre:         u.Nombre,
			Usuario:        u.Usuario,
			GrupoNombre:    u.GrupoNombre,
			CampaniaNombre: PlaceholderUnavailable,
			Asistencia:     AttendanceUnmarked,
		}
		if row.GrupoNombre == "" {
			row.GrupoNombre = PlaceholderUnavailable
		}
		if u.CampaniaID != nil {
			row.CampaniaNombre = lookup.campaignName(*u.CampaniaID)
		}

		group, ok := groups[row.GrupoNombre]
		if !ok {
			group = &GroupAttendance{GrupoNombre: row.GrupoNombre}
			groups[row.GrupoNombre] = group
		}

		present, marked := u.AttendanceOn(fecha)
		switch {
		case !marked:
			group.SinMarcar++
			dashboard.Totales.SinMarcar++
		case present:
			row.Asistencia = AttendancePresent
			group.Presentes++
			dashboard.Totales.Presentes++
		default:
			row.Asistencia = AttendanceAbsent
			group.Ausentes++
			dashboard.Totales.Ausentes++
		}

		dashboard.Usuarios = append(dashboard.Usuarios, row)
	}

	for _, group := range groups {
		dashboard.Grupos = append(dashboard.Grupos, *group)
	}
	slices.SortFunc(dashboard.Grupos, func(a, b GroupAttendance) int {
		return strings.Compare(a.GrupoNombre, b.GrupoNombre)
	})

	return dashboard, nil
}

// AdminSummary returns the counters shown on the admin landing view. The
// summary is cached per day and dropped when an activation changes.
func (s *dashboardService) AdminSummary(ctx context.Context) (*AdminSummary, error) {
	now := s.now()
	fecha := utils.DateIn(now, s.loc)

	var out AdminSummary
	err := s.cacheManager.Stats.CacheOrExecute(ctx, cache.SummaryKey(fecha), &out, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.buildSummary(ctx, now, fecha)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build summary: %w", err)
	}
	return &out, nil
}

func (s *dashboardService) buildSummary(ctx context.Context, now time.Time, fecha string) (*AdminSummary, error) {
	byRole, err := s.repo.Dashboard().CountUsersByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	today, err := s.repo.Dashboard().CountActivationsOn(ctx, fecha)
	if err != nil {
		return nil, fmt.Errorf("failed to count activations: %w", err)
	}

	completed, err := s.repo.Dashboard().CountCompletionsSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("failed to count completions: %w", err)
	}

	recent, err := s.repo.Activity().ListRecent(ctx, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	return &AdminSummary{
		UsuariosPorRol:    byRole,
		ActivacionesHoy:   today,
		CompletadosSemana: completed,
		ActividadReciente: recent,
	}, nil
}
