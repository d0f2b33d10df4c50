package repositories

import (
	"context"
	"time"

	"github.com/formacionweb360/training-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	GrupoID    *uint `json:"grupo_id" form:"grupo_id"`
	CampaniaID *uint `json:"campania_id" form:"campania_id"`
}

type ActivationFilters struct {
	Fecha      *string `json:"fecha"`
	CampaniaID *uint   `json:"campania_id"`
	GrupoID    *uint   `json:"grupo_id"`
	CursoID    *uint   `json:"curso_id"`
	CreadoPor  *uint   `json:"creado_por"`
	ActiveOnly bool    `json:"active_only"`
	IDs        []uint  `json:"ids"`
}

// ===== CATALOG =====

// CatalogRepository reads campaigns, groups and courses
type CatalogRepository interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	CreateGroup(ctx context.Context, g *models.Group) error
	CreateCourse(ctx context.Context, c *models.Course) error

	GetCampaign(ctx context.Context, id uint) (*models.Campaign, error)
	GetGroup(ctx context.Context, id uint) (*models.Group, error)
	GetCourse(ctx context.Context, id uint) (*models.Course, error)

	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
	ListGroups(ctx context.Context, campaniaID *uint) ([]*models.Group, error)
	ListCourses(ctx context.Context, filters CourseFilters) ([]*models.Course, error)

	// Batch lookups for read-model assembly; missing ids are simply absent
	GetCampaignsByIDs(ctx context.Context, ids []uint) (map[uint]*models.Campaign, error)
	GetGroupsByIDs(ctx context.Context, ids []uint) (map[uint]*models.Group, error)
	GetCoursesByIDs(ctx context.Context, ids []uint) (map[uint]*models.Course, error)
}

// ===== ACTIVATION WORKFLOW =====

type ActivationRepository interface {
	// Create returns ErrDuplicate when the (fecha, campania, grupo, curso) tuple exists
	Create(ctx context.Context, activation *models.CourseActivation) error
	GetByID(ctx context.Context, id uint) (*models.CourseActivation, error)
	FindByTuple(ctx context.Context, fecha string, campaniaID, grupoID, cursoID uint) (*models.CourseActivation, error)
	List(ctx context.Context, filters ActivationFilters) ([]*models.CourseActivation, error)
	Delete(ctx context.Context, id uint) error
}

type EnrollmentRepository interface {
	// CreateBatch inserts missing (activation, user) rows and returns how many were added
	CreateBatch(ctx context.Context, activationID uint, userIDs []uint) (int64, error)
	DeleteByActivation(ctx context.Context, activationID uint) (int64, error)
	Exists(ctx context.Context, activationID, userID uint) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Enrollment, error)
	ListUserIDs(ctx context.Context, activationID uint) ([]uint, error)
	CountByActivations(ctx context.Context, activationIDs []uint) (map[uint]int64, error)
}

// ===== PROGRESS =====

type ProgressRepository interface {
	Get(ctx context.Context, userID, courseID uint) (*models.ProgressRecord, error)
	// Create returns ErrDuplicate when a record for (user, course) exists
	Create(ctx context.Context, record *models.ProgressRecord) error
	// UpdateProgress writes the accrued value of an in-progress record.
	// Completed records are left untouched.
	UpdateProgress(ctx context.Context, id uint, progreso int) error
	MarkCompleted(ctx context.Context, id uint, progreso int, fechaFin time.Time) error
	ListByUser(ctx context.Context, userID uint, courseIDs []uint) (map[uint]*models.ProgressRecord, error)
	// CountCompleted counts completed records of a course among userIDs
	CountCompleted(ctx context.Context, courseID uint, userIDs []uint) (int64, error)
}

// ===== SESSIONS =====

// SessionRepository stores identity contexts keyed by session id
type SessionRepository interface {
	Save(ctx context.Context, session *models.Session) error
	// Get returns ErrNotFound when absent and ErrMalformed when the stored value cannot be decoded
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// ===== AUDIT =====

type ActivityRepository interface {
	// Create ignores entries whose event id was already stored
	Create(ctx context.Context, entry *models.ActivityLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.ActivityLog, error)
}

// ===== EXTERNAL IDENTITY =====

// IdentityProvider maps an external SSO token to a portal login name
type IdentityProvider interface {
	// ResolveUsername returns ErrNotFound when the token is not accepted
	ResolveUsername(ctx context.Context, token string) (string, error)
}
