package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/formacionweb360/training-service/internal/cache"
	"github.com/formacionweb360/training-service/internal/config"
	"github.com/formacionweb360/training-service/internal/events"
	"github.com/formacionweb360/training-service/internal/progress"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Location *time.Location

	// Session tokens
	SessionSecret string
	SessionTTL    time.Duration

	// Progress accrual
	Progress progress.Config

	// QR rendering
	QREndpoint string
	QRSize     string
	QRTimeout  time.Duration

	// Cron spec of the enrollment repair job, empty disables it
	RepairCron string
}

// NewServiceManagerConfig maps the runtime configuration onto the service layer
func NewServiceManagerConfig(cfg *config.Config) ServiceManagerConfig {
	return ServiceManagerConfig{
		Location:      cfg.Location(),
		SessionSecret: cfg.Session.Secret,
		SessionTTL:    cfg.Session.TTL,
		Progress: progress.Config{
			TickInterval: cfg.Progress.TickInterval,
			TickUnit:     cfg.Progress.TickUnit,
			FlushEvery:   cfg.Progress.FlushEvery,
			IdleTimeout:  cfg.Progress.IdleTimeout,
		},
		QREndpoint: cfg.QR.Endpoint,
		QRSize:     cfg.QR.Size,
		QRTimeout:  cfg.QR.Timeout,
		RepairCron: cfg.RepairCron,
	}
}

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Repo         repositories.Repository
	Publisher    events.EventPublisher
	CacheManager *cache.CacheManager
	// Identity is nil when Casdoor is not configured
	Identity  repositories.IdentityProvider
	Logger    *slog.Logger
	Validator *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	// Service instances
	sessionService    SessionService
	activationService ActivationService
	progressService   ProgressService
	dashboardService  DashboardService
	userService       UserService
	catalogService    CatalogService
	qrService         QRService
	reportService     ReportService

	registry  *progress.Registry
	scheduler *RepairScheduler

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if deps.CacheManager == nil {
		deps.CacheManager = cache.NewCacheManager(nil)
	}
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	if sm.scheduler != nil {
		sm.scheduler.Start()
	}

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() error {
	d := sm.deps
	loc := sm.config.Location

	sm.registry = progress.NewRegistry(sm.config.Progress, d.Logger)

	sm.sessionService = NewSessionService(d.Repo, d.Identity, sm.config.SessionSecret, sm.config.SessionTTL, d.Logger, d.Validator)
	sm.deps.Logger.Info("Session service initialized", "sso", d.Identity != nil)

	sm.activationService = NewActivationService(d.Repo, d.Publisher, d.CacheManager, d.Logger, d.Validator, loc)
	sm.deps.Logger.Info("Activation service initialized")

	sm.progressService = NewProgressService(d.Repo, d.Publisher, sm.registry, d.Logger, d.Validator)
	sm.deps.Logger.Info("Progress service initialized")

	sm.dashboardService = NewDashboardService(d.Repo, sm.registry, d.CacheManager, d.Logger, d.Validator, loc)
	sm.userService = NewUserService(d.Repo, d.CacheManager, d.Logger, d.Validator, loc)
	sm.catalogService = NewCatalogService(d.Repo, d.Logger)
	sm.qrService = NewQRService(sm.config.QREndpoint, sm.config.QRSize, sm.config.QRTimeout, d.Logger)
	sm.reportService = NewReportService(sm.dashboardService, d.Logger)

	if sm.config.RepairCron != "" {
		scheduler, err := NewRepairScheduler(sm.config.RepairCron, sm.activationService, d.Logger, loc)
		if err != nil {
			return err
		}
		sm.scheduler = scheduler
	}

	return nil
}

// Service getters
func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.sessionService
}

func (sm *serviceManager) Activation() ActivationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.activationService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.progressService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.dashboardService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.userService
}

func (sm *serviceManager) Catalog() CatalogService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.catalogService
}

func (sm *serviceManager) QR() QRService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.qrService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.reportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown stops the repair job and flushes every open course view.
// Repository connections are owned by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown || !sm.initialized {
		sm.shutdown = true
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager", "open_views", sm.registry.Len())

	if sm.scheduler != nil {
		sm.scheduler.Stop(ctx)
	}

	err := sm.progressService.Shutdown(ctx)
	if err != nil {
		sm.deps.Logger.Error("Failed to flush progress on shutdown", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return err
}
