package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/formacionweb360/training-service/internal/events"
	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/progress"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/repositories/postgres"
	"github.com/formacionweb360/training-service/internal/testutil"
	"github.com/formacionweb360/training-service/internal/validator"
)

// testToday is the date every service under test treats as today
const testToday = "2025-03-10"

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	fx        *testutil.Fixture
	publisher *events.MockEventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	redis     *miniredis.Miniredis
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv builds a seeded sqlite repository. Sessions use the sesiones table.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	logger := discardLogger()
	return &testEnv{
		db:        db,
		repo:      postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db}),
		fx:        testutil.Seed(t, db),
		publisher: events.NewMockEventPublisher(logger),
		logger:    logger,
		validator: validator.New(),
	}
}

// newRedisTestEnv is newTestEnv with a miniredis-backed session store
func newRedisTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	db := testutil.NewDB(t)
	logger := discardLogger()
	return &testEnv{
		db:        db,
		repo:      postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: client}),
		fx:        testutil.Seed(t, db),
		publisher: events.NewMockEventPublisher(logger),
		logger:    logger,
		validator: validator.New(),
		redis:     mr,
	}
}

func (e *testEnv) activationService() *activationService {
	svc := NewActivationService(e.repo, e.publisher, nil, e.logger, e.validator, time.UTC).(*activationService)
	svc.now = fixedClock
	return svc
}

// slowRegistry never ticks on its own; tests drive trackers directly
func (e *testEnv) slowRegistry(t *testing.T) *progress.Registry {
	t.Helper()
	r := progress.NewRegistry(progress.Config{TickInterval: time.Hour}, e.logger)
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	return r
}

func (e *testEnv) progressService(t *testing.T, registry *progress.Registry) *progressService {
	if registry == nil {
		registry = e.slowRegistry(t)
	}
	svc := NewProgressService(e.repo, e.publisher, registry, e.logger, e.validator).(*progressService)
	svc.now = fixedClock
	return svc
}

func (e *testEnv) advisor(t *testing.T, usuario, grupo string) models.User {
	return testutil.NewUser(t, e.db, usuario, models.RoleAdvisor, grupo, models.UserActive)
}

// activate creates today's activation of course for GroupA and returns it
func (e *testEnv) activate(t *testing.T, course models.Course) *ActivationResult {
	t.Helper()
	res, err := e.activationService().Activate(context.Background(), &ActivationRequest{
		CampaniaID: e.fx.Campaign.ID,
		GrupoID:    e.fx.GroupA.ID,
		CursoID:    course.ID,
	}, e.fx.Trainer.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	return res
}

func (e *testEnv) progressRow(t *testing.T, userID, courseID uint) *models.ProgressRecord {
	t.Helper()
	var record models.ProgressRecord
	if err := e.db.Where("usuario_id = ? AND curso_id = ?", userID, courseID).First(&record).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	return &record
}

// failingProgressRepo fails MarkCompleted, and UpdateProgress while failUpdates is set
type failingProgressRepo struct {
	repositories.ProgressRepository
	failUpdates bool
}

var errInjected = errors.New("injected failure")

func (f *failingProgressRepo) MarkCompleted(ctx context.Context, id uint, progreso int, fechaFin time.Time) error {
	return errInjected
}

func (f *failingProgressRepo) UpdateProgress(ctx context.Context, id uint, progreso int) error {
	if f.failUpdates {
		return errInjected
	}
	return f.ProgressRepository.UpdateProgress(ctx, id, progreso)
}

// failingRepo swaps in failingProgressRepo
type failingRepo struct {
	repositories.Repository
	progress *failingProgressRepo
}

func (f *failingRepo) Progress() repositories.ProgressRepository {
	return f.progress
}

func newFailingRepo(repo repositories.Repository) *failingRepo {
	return &failingRepo{
		Repository: repo,
		progress:   &failingProgressRepo{ProgressRepository: repo.Progress()},
	}
}

// staleActivationRepo never sees an existing tuple, like a reader that lost
// the race against a concurrent activation
type staleActivationRepo struct {
	repositories.ActivationRepository
}

func (s *staleActivationRepo) FindByTuple(ctx context.Context, fecha string, campaniaID, grupoID, cursoID uint) (*models.CourseActivation, error) {
	return nil, repositories.ErrNotFound
}

// staleProgressRepo misses the first misses reads and counts inserts
type staleProgressRepo struct {
	repositories.ProgressRepository
	misses  int
	creates int
}

func (s *staleProgressRepo) Get(ctx context.Context, userID, courseID uint) (*models.ProgressRecord, error) {
	if s.misses > 0 {
		s.misses--
		return nil, repositories.ErrNotFound
	}
	return s.ProgressRepository.Get(ctx, userID, courseID)
}

func (s *staleProgressRepo) Create(ctx context.Context, record *models.ProgressRecord) error {
	s.creates++
	return s.ProgressRepository.Create(ctx, record)
}

// staleRepo swaps in the stale readers that are set
type staleRepo struct {
	repositories.Repository
	activation *staleActivationRepo
	progress   *staleProgressRepo
}

func (s *staleRepo) Activation() repositories.ActivationRepository {
	if s.activation != nil {
		return s.activation
	}
	return s.Repository.Activation()
}

func (s *staleRepo) Progress() repositories.ProgressRepository {
	if s.progress != nil {
		return s.progress
	}
	return s.Repository.Progress()
}
