package services

import (
	"context"
	"time"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/validator"
)

// Placeholders shown for relations that cannot be resolved
const (
	PlaceholderUnavailable = "No disponible"
	PlaceholderNotStarted  = string(models.ProgressNotStarted)
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type LoginRequest = validator.LoginRequest
type CasdoorLoginRequest = validator.CasdoorLoginRequest
type ActivationRequest = validator.ActivationRequest
type UserStatusRequest = validator.UserStatusRequest
type AttendanceRequest = validator.AttendanceRequest
type QRCheckInRequest = validator.QRCheckInRequest
type CompleteCourseRequest = validator.CompleteCourseRequest
type UserListRequest = validator.UserListRequest
type AttendanceQuery = validator.AttendanceQuery

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Session   *models.Session `json:"session"`
	Redirect  string          `json:"redirect"`
}

// ActivationResult is returned by Activate
type ActivationResult struct {
	Activation   *models.CourseActivation `json:"activation"`
	Enrolled     int64                    `json:"enrolled"`
	ZeroAdvisors bool                     `json:"zero_advisors"`
}

// ActivationView is one row of the trainer's "active today" list
type ActivationView struct {
	ID              uint   `json:"id"`
	Fecha           string `json:"fecha"`
	Activo          bool   `json:"activo"`
	CursoID         uint   `json:"curso_id"`
	CursoTitulo     string `json:"curso_titulo"`
	DuracionMinutos int    `json:"duracion_minutos"`
	GrupoID         uint   `json:"grupo_id"`
	GrupoNombre     string `json:"grupo_nombre"`
	CampaniaID      uint   `json:"campania_id"`
	CampaniaNombre  string `json:"campania_nombre"`
	CreadoPor       uint   `json:"creado_por"`
	Inscritos       int64  `json:"inscritos"`
	Completados     int64  `json:"completados"`
}

type ActivationListFilters struct {
	CampaniaID *uint `form:"campania_id"`
	GrupoID    *uint `form:"grupo_id"`
	CreadoPor  *uint `form:"creado_por"`
}

// RepairSummary reports a reconciliation pass over one date
type RepairSummary struct {
	Fecha       string `json:"fecha"`
	Activations int    `json:"activations"`
	Added       int64  `json:"added"`
	Failed      int    `json:"failed"`
}

// CourseView is one course as seen by an advisor
type CourseView struct {
	ActivacionID    uint       `json:"activacion_id"`
	Fecha           string     `json:"fecha"`
	CursoID         uint       `json:"curso_id"`
	Titulo          string     `json:"titulo"`
	Descripcion     string     `json:"descripcion"`
	URLContenido    string     `json:"url_contenido"`
	DuracionMinutos int        `json:"duracion_minutos"`
	GrupoNombre     string     `json:"grupo_nombre"`
	CampaniaNombre  string     `json:"campania_nombre"`
	Estado          string     `json:"estado"`
	Progreso        int        `json:"progreso"`
	Porcentaje      int        `json:"porcentaje"`
	FechaInicio     *time.Time `json:"fecha_inicio,omitempty"`
	FechaFin        *time.Time `json:"fecha_fin,omitempty"`
	Tracking        bool       `json:"tracking"`
}

// Attendance marker labels
const (
	AttendancePresent  = "Presente"
	AttendanceAbsent   = "Ausente"
	AttendanceUnmarked = "Sin marcar"
)

type AttendanceCounts struct {
	Presentes int `json:"presentes"`
	Ausentes  int `json:"ausentes"`
	SinMarcar int `json:"sin_marcar"`
}

type GroupAttendance struct {
	GrupoNombre string `json:"grupo_nombre"`
	AttendanceCounts
}

type AttendanceRow struct {
	UsuarioID      uint   `json:"usuario_id"`
	Nombre         string `json:"nombre"`
	Usuario        string `json:"usuario"`
	GrupoNombre    string `json:"grupo_nombre"`
	CampaniaNombre string `json:"campania_nombre"`
	Asistencia     string `json:"asistencia"`
}

// AttendanceDashboard is the admin view of one date
type AttendanceDashboard struct {
	Fecha    string            `json:"fecha"`
	Totales  AttendanceCounts  `json:"totales"`
	Grupos   []GroupAttendance `json:"grupos"`
	Usuarios []AttendanceRow   `json:"usuarios"`
}

// AdminSummary is the header of the admin dashboard
type AdminSummary struct {
	UsuariosPorRol    map[models.UserRole]int64 `json:"usuarios_por_rol"`
	ActivacionesHoy   int64                     `json:"activaciones_hoy"`
	CompletadosSemana int64                     `json:"completados_semana"`
	ActividadReciente []*models.ActivityLog     `json:"actividad_reciente"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// QRImage is a PNG rendering of a user's QR identifier
type QRImage struct {
	Data        []byte
	ContentType string
	Fallback    bool
}

// ===== SERVICE INTERFACES =====

// SessionService manages the identity context of logged-in users
type SessionService interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	LoginWithCasdoor(ctx context.Context, req *CasdoorLoginRequest) (*LoginResponse, error)
	// Load returns ErrUnauthorized for missing, expired or malformed sessions, clearing them
	Load(ctx context.Context, token string) (*models.Session, error)
	Logout(ctx context.Context, token string) error
}

// ActivationService runs the course-activation workflow
type ActivationService interface {
	Activate(ctx context.Context, req *ActivationRequest, actorID uint) (*ActivationResult, error)
	Deactivate(ctx context.Context, activationID, actorID uint) error
	RepairEnrollments(ctx context.Context, activationID uint) (int64, error)
	RepairAll(ctx context.Context, fecha string) (*RepairSummary, error)
	Get(ctx context.Context, activationID uint) (*ActivationView, error)
	ListToday(ctx context.Context, filters ActivationListFilters) ([]*ActivationView, error)
}

// ProgressService runs the progress-tracking state machine
type ProgressService interface {
	OpenView(ctx context.Context, userID, activationID uint) (*CourseView, error)
	Heartbeat(ctx context.Context, userID, activationID uint) (*CourseView, error)
	CloseView(ctx context.Context, userID, activationID uint) (*CourseView, error)
	Complete(ctx context.Context, userID, activationID uint, req *CompleteCourseRequest) (*CourseView, error)
	// Shutdown flushes every open view
	Shutdown(ctx context.Context) error
}

// DashboardService assembles read models
type DashboardService interface {
	MyCourses(ctx context.Context, userID uint) ([]*CourseView, error)
	Attendance(ctx context.Context, query *AttendanceQuery) (*AttendanceDashboard, error)
	AdminSummary(ctx context.Context) (*AdminSummary, error)
}

// UserService covers trainer-side user management
type UserService interface {
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
	List(ctx context.Context, req *UserListRequest) (*UserListResponse, error)
	SetStatus(ctx context.Context, userID uint, req *UserStatusRequest, actorID uint) (*models.User, error)
	MarkAttendance(ctx context.Context, userID uint, req *AttendanceRequest) (*models.User, error)
	CheckInByQR(ctx context.Context, req *QRCheckInRequest) (*models.User, error)
}

// CatalogService lists campaigns, groups and courses
type CatalogService interface {
	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
	ListGroups(ctx context.Context, campaniaID uint) ([]*models.Group, error)
	ListCourses(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, error)
}

// QRService renders QR identifiers
type QRService interface {
	Image(ctx context.Context, qrID string) (*QRImage, error)
}

// ReportService exports spreadsheets
type ReportService interface {
	AttendanceWorkbook(ctx context.Context, query *AttendanceQuery) ([]byte, string, error)
}

// ServiceManager interface for managing all services
type ServiceManager interface {
	Session() SessionService
	Activation() ActivationService
	Progress() ProgressService
	Dashboard() DashboardService
	User() UserService
	Catalog() CatalogService
	QR() QRService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
