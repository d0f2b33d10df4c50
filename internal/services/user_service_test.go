package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formacionweb360/training-service/internal/models"
)

func (e *testEnv) userService() *userService {
	svc := NewUserService(e.repo, nil, e.logger, e.validator, time.UTC).(*userService)
	svc.now = fixedClock
	return svc
}

func TestUserService_SetStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	advisor := env.advisor(t, "asesor1", "Grupo A")
	svc := env.userService()

	t.Run("trainer cannot deactivate themselves", func(t *testing.T) {
		_, err := svc.SetStatus(ctx, env.fx.Trainer.ID, &UserStatusRequest{Estado: models.UserInactive}, env.fx.Trainer.ID)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.SetStatus(ctx, advisor.ID, &UserStatusRequest{Estado: "Suspended"}, env.fx.Trainer.ID)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.SetStatus(ctx, 9999, &UserStatusRequest{Estado: models.UserInactive}, env.fx.Trainer.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deactivated advisors are not enrolled", func(t *testing.T) {
		user, err := svc.SetStatus(ctx, advisor.ID, &UserStatusRequest{Estado: models.UserInactive}, env.fx.Trainer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.UserInactive, user.Estado)

		res := env.activate(t, env.fx.Course)
		assert.Zero(t, res.Enrolled)
		assert.True(t, res.ZeroAdvisors)
	})

	t.Run("reactivation", func(t *testing.T) {
		user, err := svc.SetStatus(ctx, advisor.ID, &UserStatusRequest{Estado: models.UserActive}, env.fx.Trainer.ID)
		require.NoError(t, err)
		assert.True(t, user.IsActive())
	})
}

func TestUserService_Attendance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	advisor := env.advisor(t, "asesor1", "Grupo A")
	svc := env.userService()
	yes := true

	t.Run("future date is rejected", func(t *testing.T) {
		_, err := svc.MarkAttendance(ctx, advisor.ID, &AttendanceRequest{Fecha: "2025-03-11", Presente: &yes})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("missing marker is rejected", func(t *testing.T) {
		_, err := svc.MarkAttendance(ctx, advisor.ID, &AttendanceRequest{Fecha: testToday})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("past dates keep earlier markers", func(t *testing.T) {
		_, err := svc.MarkAttendance(ctx, advisor.ID, &AttendanceRequest{Fecha: "2025-03-07", Presente: &yes})
		require.NoError(t, err)
		user, err := svc.MarkAttendance(ctx, advisor.ID, &AttendanceRequest{Fecha: testToday, Presente: &yes})
		require.NoError(t, err)

		markers, err := user.AttendanceMap()
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"2025-03-07": true, testToday: true}, markers)
	})

	t.Run("stale copy does not drop other markers", func(t *testing.T) {
		other := env.advisor(t, "asesor3", "Grupo A")
		stale, err := env.repo.User().GetByID(ctx, other.ID)
		require.NoError(t, err)

		_, err = svc.MarkAttendance(ctx, other.ID, &AttendanceRequest{Fecha: "2025-03-07", Presente: &yes})
		require.NoError(t, err)

		// Marked from a copy loaded before the first write
		user, err := svc.markAttendance(ctx, stale, testToday, false)
		require.NoError(t, err)
		markers, err := user.AttendanceMap()
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"2025-03-07": true, testToday: false}, markers)
	})

	t.Run("check in by qr", func(t *testing.T) {
		other := env.advisor(t, "asesor2", "Grupo A")
		user, err := svc.CheckInByQR(ctx, &QRCheckInRequest{QRID: " " + *other.QRID + " "})
		require.NoError(t, err)
		assert.Equal(t, other.ID, user.ID)

		stored, err := env.repo.User().GetByID(ctx, other.ID)
		require.NoError(t, err)
		present, ok := stored.AttendanceOn(testToday)
		assert.True(t, ok)
		assert.True(t, present)
	})

	t.Run("unknown qr", func(t *testing.T) {
		_, err := svc.CheckInByQR(ctx, &QRCheckInRequest{QRID: "QR-nadie"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("inactive holder", func(t *testing.T) {
		inactive := inactiveAdvisor(t, env, "asesor3", "Grupo A")
		_, err := svc.CheckInByQR(ctx, &QRCheckInRequest{QRID: *inactive.QRID})
		var rule *BusinessRuleError
		require.ErrorAs(t, err, &rule)
		assert.Equal(t, "inactive_user", rule.Rule)
	})
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.advisor(t, "asesor1", "Grupo A")
	env.advisor(t, "asesor2", "Grupo B")
	inactiveAdvisor(t, env, "asesor3", "Grupo A")
	svc := env.userService()

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), all.Total)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, defaultUserPageSize, all.Size)

	advisors, err := svc.List(ctx, &UserListRequest{Rol: models.RoleAdvisor, Grupo: "Grupo A", Estado: models.UserActive})
	require.NoError(t, err)
	require.Len(t, advisors.Users, 1)
	assert.Equal(t, "asesor1", advisors.Users[0].Usuario)

	paged, err := svc.List(ctx, &UserListRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Users, 2)
	assert.Equal(t, int64(5), paged.Total)

	_, err = svc.List(ctx, &UserListRequest{Rol: "root"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	t.Run("profile", func(t *testing.T) {
		user, err := svc.GetProfile(ctx, env.fx.Admin.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, user.Rol)

		_, err = svc.GetProfile(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
