package models

import (
	"time"

	"gorm.io/datatypes"
)

// Session is the server-side identity context of a logged-in user.
// Stored sessions are validated against these tags on every load.
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64" validate:"required,uuid4"`
	UserID    uint      `json:"user_id" gorm:"not null;index" validate:"required,gt=0"`
	Usuario   string    `json:"usuario" gorm:"size:100" validate:"required"`
	Nombre    string    `json:"nombre" gorm:"size:150"`
	Rol       UserRole  `json:"rol" gorm:"size:20" validate:"required,oneof=admin formador user"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index" validate:"required,gtfield=CreatedAt"`
}

func (Session) TableName() string {
	return "sesiones"
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ActivityLog is an audit entry derived from domain events
type ActivityLog struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	EventID   string         `json:"event_id" gorm:"uniqueIndex;size:64"`
	Tipo      string         `json:"tipo" gorm:"not null;size:50;index"`
	ActorID   uint           `json:"actor_id" gorm:"index"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "actividad"
}

// AllModels lists every table managed by migrations
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Campaign{},
		&Group{},
		&Course{},
		&CourseActivation{},
		&Enrollment{},
		&ProgressRecord{},
		&Session{},
		&ActivityLog{},
	}
}
