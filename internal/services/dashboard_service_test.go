package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formacionweb360/training-service/internal/cache"
	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/progress"
)

func (e *testEnv) dashboardService(registry *progress.Registry, cm *cache.CacheManager) *dashboardService {
	svc := NewDashboardService(e.repo, registry, cm, e.logger, e.validator, time.UTC).(*dashboardService)
	svc.now = fixedClock
	return svc
}

func TestDashboardService_MyCourses(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	advisor := env.advisor(t, "asesor1", "Grupo A")
	course := env.activate(t, env.fx.Course)
	short := env.activate(t, env.fx.Short)

	registry := env.slowRegistry(t)
	progressSvc := env.progressService(t, registry)
	svc := env.dashboardService(registry, nil)

	t.Run("not started courses", func(t *testing.T) {
		views, err := svc.MyCourses(ctx, advisor.ID)
		require.NoError(t, err)
		require.Len(t, views, 2)
		for _, v := range views {
			assert.Equal(t, PlaceholderNotStarted, v.Estado)
			assert.Zero(t, v.Porcentaje)
			assert.False(t, v.Tracking)
		}
	})

	t.Run("open view overlays unflushed progress", func(t *testing.T) {
		_, err := progressSvc.OpenView(ctx, advisor.ID, course.Activation.ID)
		require.NoError(t, err)
		tracker, ok := registry.Get(progress.Key{UserID: advisor.ID, CourseID: env.fx.Course.ID})
		require.True(t, ok)
		tracker.Tick(ctx)
		tracker.Tick(ctx)
		tracker.Tick(ctx)

		views, err := svc.MyCourses(ctx, advisor.ID)
		require.NoError(t, err)

		byActivation := make(map[uint]*CourseView)
		for _, v := range views {
			byActivation[v.ActivacionID] = v
		}
		open := byActivation[course.Activation.ID]
		require.NotNil(t, open)
		assert.True(t, open.Tracking)
		assert.Equal(t, string(models.ProgressInProgress), open.Estado)
		assert.Equal(t, 3, open.Progreso)
		assert.Equal(t, 10, open.Porcentaje)

		assert.False(t, byActivation[short.Activation.ID].Tracking)
	})

	t.Run("deactivated courses disappear", func(t *testing.T) {
		require.NoError(t, env.activationService().Deactivate(ctx, short.Activation.ID, env.fx.Trainer.ID))

		views, err := svc.MyCourses(ctx, advisor.ID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, course.Activation.ID, views[0].ActivacionID)
	})

	t.Run("missing course renders placeholder", func(t *testing.T) {
		require.NoError(t, env.db.Delete(&models.Course{}, env.fx.Course.ID).Error)

		views, err := svc.MyCourses(ctx, advisor.ID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, PlaceholderUnavailable, views[0].Titulo)
	})

	t.Run("no enrollments", func(t *testing.T) {
		views, err := svc.MyCourses(ctx, env.fx.Admin.ID)
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestDashboardService_Attendance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	users := NewUserService(env.repo, nil, env.logger, env.validator, time.UTC).(*userService)
	users.now = fixedClock

	present := env.advisor(t, "asesor1", "Grupo A")
	absent := env.advisor(t, "asesor2", "Grupo A")
	env.advisor(t, "asesor3", "Grupo B")

	yes, no := true, false
	_, err := users.MarkAttendance(ctx, present.ID, &AttendanceRequest{Fecha: testToday, Presente: &yes})
	require.NoError(t, err)
	_, err = users.MarkAttendance(ctx, absent.ID, &AttendanceRequest{Fecha: testToday, Presente: &no})
	require.NoError(t, err)

	svc := env.dashboardService(nil, nil)

	dashboard, err := svc.Attendance(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, testToday, dashboard.Fecha)
	assert.Equal(t, AttendanceCounts{Presentes: 1, Ausentes: 1, SinMarcar: 1}, dashboard.Totales)

	require.Len(t, dashboard.Grupos, 2)
	assert.Equal(t, "Grupo A", dashboard.Grupos[0].GrupoNombre)
	assert.Equal(t, AttendanceCounts{Presentes: 1, Ausentes: 1}, dashboard.Grupos[0].AttendanceCounts)
	assert.Equal(t, "Grupo B", dashboard.Grupos[1].GrupoNombre)
	assert.Equal(t, 1, dashboard.Grupos[1].SinMarcar)

	labels := make(map[uint]string)
	for _, row := range dashboard.Usuarios {
		labels[row.UsuarioID] = row.Asistencia
		assert.Equal(t, PlaceholderUnavailable, row.CampaniaNombre)
	}
	assert.Equal(t, AttendancePresent, labels[present.ID])
	assert.Equal(t, AttendanceAbsent, labels[absent.ID])

	t.Run("other dates are unmarked", func(t *testing.T) {
		dashboard, err := svc.Attendance(ctx, &AttendanceQuery{Fecha: "2025-03-09"})
		require.NoError(t, err)
		assert.Equal(t, 3, dashboard.Totales.SinMarcar)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := svc.Attendance(ctx, &AttendanceQuery{Fecha: "ayer"})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestDashboardService_AttendanceCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	advisor := env.advisor(t, "asesor1", "Grupo A")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cm := cache.NewCacheManager(client)

	svc := env.dashboardService(nil, cm)
	users := NewUserService(env.repo, cm, env.logger, env.validator, time.UTC).(*userService)
	users.now = fixedClock

	first, err := svc.Attendance(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Totales.SinMarcar)
	// the dashboard is written to redis in the background
	require.Eventually(t, func() bool { return len(mr.Keys()) > 0 }, time.Second, 10*time.Millisecond)

	_, err = users.CheckInByQR(ctx, &QRCheckInRequest{QRID: *advisor.QRID})
	require.NoError(t, err)

	second, err := svc.Attendance(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Totales.Presentes, "check-in invalidates the cached dashboard")
}

func TestDashboardService_AdminSummary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	advisor := env.advisor(t, "asesor1", "Grupo A")
	inactiveAdvisor(t, env, "asesor2", "Grupo A")
	env.activate(t, env.fx.Course)

	recent := testNow.Add(-24 * time.Hour)
	old := testNow.AddDate(0, 0, -30)
	require.NoError(t, env.db.Create(&[]models.ProgressRecord{
		{UsuarioID: advisor.ID, CursoID: env.fx.Course.ID, Estado: models.ProgressCompleted, Progreso: 30, FechaInicio: recent, FechaFin: &recent},
		{UsuarioID: advisor.ID, CursoID: env.fx.Short.ID, Estado: models.ProgressCompleted, Progreso: 2, FechaInicio: old, FechaFin: &old},
	}).Error)

	summary, err := env.dashboardService(nil, nil).AdminSummary(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.UsuariosPorRol[models.RoleAdmin])
	assert.Equal(t, int64(1), summary.UsuariosPorRol[models.RoleTrainer])
	assert.Equal(t, int64(1), summary.UsuariosPorRol[models.RoleAdvisor])
	assert.Equal(t, int64(1), summary.ActivacionesHoy)
	assert.Equal(t, int64(1), summary.CompletadosSemana)
	assert.NotNil(t, summary.ActividadReciente)
}

func TestDashboardService_AdminSummaryCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.advisor(t, "asesor1", "Grupo A")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cm := cache.NewCacheManager(client)

	svc := env.dashboardService(nil, cm)
	activations := NewActivationService(env.repo, env.publisher, cm, env.logger, env.validator, time.UTC).(*activationService)
	activations.now = fixedClock

	first, err := svc.AdminSummary(ctx)
	require.NoError(t, err)
	assert.Zero(t, first.ActivacionesHoy)
	summaryKey := "stats:" + cache.SummaryKey(testToday)
	require.Eventually(t, func() bool { return mr.Exists(summaryKey) }, time.Second, 10*time.Millisecond)

	res, err := activations.Activate(ctx, &ActivationRequest{
		CampaniaID: env.fx.Campaign.ID,
		GrupoID:    env.fx.GroupA.ID,
		CursoID:    env.fx.Course.ID,
	}, env.fx.Trainer.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(summaryKey), "activation drops the cached summary")

	second, err := svc.AdminSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.ActivacionesHoy)
	require.Eventually(t, func() bool { return mr.Exists(summaryKey) }, time.Second, 10*time.Millisecond)

	require.NoError(t, activations.Deactivate(ctx, res.Activation.ID, env.fx.Trainer.ID))
	assert.False(t, mr.Exists(summaryKey), "deactivation drops the cached summary")

	third, err := svc.AdminSummary(ctx)
	require.NoError(t, err)
	assert.Zero(t, third.ActivacionesHoy)
}
