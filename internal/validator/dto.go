package validator

import "github.com/formacionweb360/training-service/internal/models"

// LoginRequest is the username/password login form
type LoginRequest struct {
	Usuario  string `json:"usuario" validate:"required,login_name"`
	Password string `json:"password" validate:"required,max=200"`
}

// CasdoorLoginRequest exchanges a Casdoor access token for a portal session
type CasdoorLoginRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

// ActivationRequest activates a course for a group of a campaign, today
type ActivationRequest struct {
	CampaniaID uint `json:"campania_id" validate:"required,gt=0"`
	GrupoID    uint `json:"grupo_id" validate:"required,gt=0"`
	CursoID    uint `json:"curso_id" validate:"required,gt=0"`
}

// UserStatusRequest sets a user Active or Inactive
type UserStatusRequest struct {
	Estado models.UserStatus `json:"estado" validate:"required,user_status"`
}

// AttendanceRequest marks a user present or absent on a date
type AttendanceRequest struct {
	Fecha    string `json:"fecha" validate:"required,iso_date"`
	Presente *bool  `json:"presente" validate:"required"`
}

// QRCheckInRequest marks today's attendance for the holder of a QR identifier
type QRCheckInRequest struct {
	QRID string `json:"qr_id" validate:"required,max=100"`
}

// CompleteCourseRequest requires explicit confirmation from the advisor
type CompleteCourseRequest struct {
	Confirm bool `json:"confirm"`
}

// UserListRequest filters the trainer's user list
type UserListRequest struct {
	Rol        models.UserRole   `form:"rol" validate:"omitempty,portal_role"`
	Grupo      string            `form:"grupo" validate:"omitempty,max=150"`
	CampaniaID *uint             `form:"campania_id"`
	Estado     models.UserStatus `form:"estado" validate:"omitempty,user_status"`
	Query      string            `form:"q" validate:"omitempty,max=100"`
	Page       int               `form:"page" validate:"omitempty,min=1"`
	Size       int               `form:"size" validate:"omitempty,min=1,max=200"`
}

// AttendanceQuery selects the admin attendance dashboard
type AttendanceQuery struct {
	Fecha      string `form:"fecha" validate:"omitempty,iso_date"`
	CampaniaID *uint  `form:"campania_id"`
}
