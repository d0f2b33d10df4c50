package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formacionweb360/training-service/internal/progress"
	"github.com/formacionweb360/training-service/internal/testutil"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	advisor := env.advisor(t, "asesor1", "Grupo A")

	sm := NewServiceManager(Dependencies{
		Repo:      env.repo,
		Publisher: env.publisher,
		Logger:    env.logger,
		Validator: env.validator,
	}, ServiceManagerConfig{
		SessionSecret: testSecret,
		SessionTTL:    time.Hour,
		Progress:      progress.Config{TickInterval: time.Hour},
		QREndpoint:    "http://127.0.0.1:1",
		QRSize:        "150x150",
		QRTimeout:     time.Second,
		RepairCron:    "*/5 * * * *",
	})

	t.Run("getters panic before initialize", func(t *testing.T) {
		assert.Panics(t, func() { sm.Session() })
		assert.Error(t, sm.HealthCheck(ctx))
	})

	require.NoError(t, sm.Initialize(ctx))
	require.NoError(t, sm.Initialize(ctx))
	assert.NoError(t, sm.HealthCheck(ctx))

	assert.NotNil(t, sm.Activation())
	assert.NotNil(t, sm.Dashboard())
	assert.NotNil(t, sm.User())
	assert.NotNil(t, sm.Catalog())
	assert.NotNil(t, sm.QR())
	assert.NotNil(t, sm.Report())

	login, err := sm.Session().Login(ctx, &LoginRequest{Usuario: advisor.Usuario, Password: testutil.Password})
	require.NoError(t, err)
	assert.Equal(t, "/asesor", login.Redirect)

	trainer, err := sm.Session().Login(ctx, &LoginRequest{Usuario: env.fx.Trainer.Usuario, Password: testutil.Password})
	require.NoError(t, err)

	res, err := sm.Activation().Activate(ctx, &ActivationRequest{
		CampaniaID: env.fx.Campaign.ID,
		GrupoID:    env.fx.GroupA.ID,
		CursoID:    env.fx.Course.ID,
	}, trainer.Session.UserID)
	require.NoError(t, err)

	_, err = sm.Progress().OpenView(ctx, advisor.ID, res.Activation.ID)
	require.NoError(t, err)

	t.Run("shutdown stops tracking", func(t *testing.T) {
		require.NoError(t, sm.Shutdown(ctx))
		require.NoError(t, sm.Shutdown(ctx))
		assert.Error(t, sm.HealthCheck(ctx))
	})
}

func TestServiceManager_BadRepairSchedule(t *testing.T) {
	env := newTestEnv(t)
	sm := NewServiceManager(Dependencies{
		Repo:      env.repo,
		Publisher: env.publisher,
		Logger:    env.logger,
		Validator: env.validator,
	}, ServiceManagerConfig{RepairCron: "every now and then"})

	assert.Error(t, sm.Initialize(context.Background()))
}
