package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/testutil"
)

func newRepo(t *testing.T) (*PostgreSQLRepository, *testutil.Fixture) {
	t.Helper()
	db := testutil.NewDB(t)
	fx := testutil.Seed(t, db)
	return NewPostgreSQLRepository(RepositoryConfig{DB: db}), fx
}

func activationFor(fx *testutil.Fixture, fecha string) *models.CourseActivation {
	return &models.CourseActivation{
		CursoID:    fx.Course.ID,
		GrupoID:    fx.GroupA.ID,
		CampaniaID: fx.Campaign.ID,
		Fecha:      fecha,
		Activo:     true,
		CreadoPor:  fx.Trainer.ID,
	}
}

func TestActivation_DuplicateTuple(t *testing.T) {
	repo, fx := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Activation().Create(ctx, activationFor(fx, "2026-03-02")))

	err := repo.Activation().Create(ctx, activationFor(fx, "2026-03-02"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, repositories.ErrDuplicate))

	// another date is a different tuple
	require.NoError(t, repo.Activation().Create(ctx, activationFor(fx, "2026-03-03")))

	found, err := repo.Activation().FindByTuple(ctx, "2026-03-02", fx.Campaign.ID, fx.GroupA.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", found.Fecha)

	_, err = repo.Activation().FindByTuple(ctx, "2026-03-02", fx.Campaign.ID, fx.GroupB.ID, fx.Course.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestActivation_ListAndDelete(t *testing.T) {
	repo, fx := newRepo(t)
	ctx := context.Background()

	a := activationFor(fx, "2026-03-02")
	require.NoError(t, repo.Activation().Create(ctx, a))

	fecha := "2026-03-02"
	list, err := repo.Activation().List(ctx, repositories.ActivationFilters{Fecha: &fecha, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	require.NoError(t, repo.Activation().Delete(ctx, a.ID))
	err = repo.Activation().Delete(ctx, a.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestEnrollment_CreateBatchIsIdempotent(t *testing.T) {
	repo, fx := newRepo(t)
	ctx := context.Background()

	a := activationFor(fx, "2026-03-02")
	require.NoError(t, repo.Activation().Create(ctx, a))

	u1 := testutil.NewUser(t, repo.db, "asesor1", models.RoleAdvisor, "Grupo A", models.UserActive)
	u2 := testutil.NewUser(t, repo.db, "asesor2", models.RoleAdvisor, "Grupo A", models.UserActive)

	n, err := repo.Enrollment().CreateBatch(ctx, a.ID, []uint{u1.ID, u2.ID, u1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.Enrollment().CreateBatch(ctx, a.ID, []uint{u1.ID, u2.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	ids, err := repo.Enrollment().ListUserIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{u1.ID, u2.ID}, ids)

	counts, err := repo.Enrollment().CountByActivations(ctx, []uint{a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[a.ID])

	deleted, err := repo.Enrollment().DeleteByActivation(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	ok, err := repo.Enrollment().Exists(ctx, a.ID, u1.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUser_ListEligibleAdvisors(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	in := testutil.NewUser(t, repo.db, "asesor1", models.RoleAdvisor, "Grupo A", models.UserActive)
	testutil.NewUser(t, repo.db, "asesor2", models.RoleAdvisor, "Grupo A", models.UserInactive)
	testutil.NewUser(t, repo.db, "asesor3", models.RoleAdvisor, "Grupo B", models.UserActive)
	testutil.NewUser(t, repo.db, "formador2", models.RoleTrainer, "Grupo A", models.UserActive)

	users, err := repo.User().ListEligibleAdvisors(ctx, "Grupo A")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, in.ID, users[0].ID)
}

func TestUser_UpdateAttendanceMergesMarkers(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	advisor := testutil.NewUser(t, repo.db, "asesor1", models.RoleAdvisor, "Grupo A", models.UserActive)

	// Two writers that never read each other's marker
	require.NoError(t, repo.User().UpdateAttendance(ctx, advisor.ID, "2025-03-07", true))
	require.NoError(t, repo.User().UpdateAttendance(ctx, advisor.ID, "2025-03-10", false))

	stored, err := repo.User().GetByID(ctx, advisor.ID)
	require.NoError(t, err)
	markers, err := stored.AttendanceMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"2025-03-07": true, "2025-03-10": false}, markers)

	require.NoError(t, repo.User().UpdateAttendance(ctx, advisor.ID, "2025-03-10", true))
	stored, err = repo.User().GetByID(ctx, advisor.ID)
	require.NoError(t, err)
	markers, err = stored.AttendanceMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"2025-03-07": true, "2025-03-10": true}, markers)

	err = repo.User().UpdateAttendance(ctx, 9999, "2025-03-10", true)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestProgress_UpdateSkipsCompleted(t *testing.T) {
	repo, fx := newRepo(t)
	ctx := context.Background()
	u := testutil.NewUser(t, repo.db, "asesor1", models.RoleAdvisor, "Grupo A", models.UserActive)

	rec := &models.ProgressRecord{
		UsuarioID:   u.ID,
		CursoID:     fx.Course.ID,
		Estado:      models.ProgressInProgress,
		FechaInicio: time.Now(),
	}
	require.NoError(t, repo.Progress().Create(ctx, rec))

	dup := &models.ProgressRecord{UsuarioID: u.ID, CursoID: fx.Course.ID, Estado: models.ProgressInProgress, FechaInicio: time.Now()}
	assert.True(t, errors.Is(repo.Progress().Create(ctx, dup), repositories.ErrDuplicate))

	require.NoError(t, repo.Progress().UpdateProgress(ctx, rec.ID, 4))
	require.NoError(t, repo.Progress().MarkCompleted(ctx, rec.ID, 30, time.Now()))

	err := repo.Progress().UpdateProgress(ctx, rec.ID, 6)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	got, err := repo.Progress().Get(ctx, u.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressCompleted, got.Estado)
	assert.Equal(t, 30, got.Progreso)
	assert.NotNil(t, got.FechaFin)

	n, err := repo.Progress().CountCompleted(ctx, fx.Course.ID, []uint{u.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWithTransaction_RollsBack(t *testing.T) {
	repo, fx := newRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Activation().Create(ctx, activationFor(fx, "2026-03-02")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Activation().FindByTuple(ctx, "2026-03-02", fx.Campaign.ID, fx.GroupA.ID, fx.Course.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestSessionTable(t *testing.T) {
	repo, fx := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s := &models.Session{
		ID:        uuid.NewString(),
		UserID:    fx.Admin.ID,
		Usuario:   fx.Admin.Usuario,
		Rol:       models.RoleAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, repo.Session().Save(ctx, s))
	// saving again overwrites
	require.NoError(t, repo.Session().Save(ctx, s))

	got, err := repo.Session().Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.Admin.ID, got.UserID)

	require.NoError(t, repo.Session().Delete(ctx, s.ID))
	_, err = repo.Session().Get(ctx, s.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestActivity_IgnoresRepeatedEvent(t *testing.T) {
	repo, fx := newRepo(t)
	ctx := context.Background()

	entry := func() *models.ActivityLog {
		return &models.ActivityLog{EventID: "evt-1", Tipo: "course.activated", ActorID: fx.Trainer.ID}
	}
	require.NoError(t, repo.Activity().Create(ctx, entry()))
	require.NoError(t, repo.Activity().Create(ctx, entry()))

	list, err := repo.Activity().ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCatalog_BatchLookupsSkipMissing(t *testing.T) {
	repo, fx := newRepo(t)
	ctx := context.Background()

	courses, err := repo.Catalog().GetCoursesByIDs(ctx, []uint{fx.Course.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Contains(t, courses, fx.Course.ID)

	_, err = repo.Catalog().GetGroup(ctx, 9999)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}
