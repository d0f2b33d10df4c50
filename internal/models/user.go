package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTrainer UserRole = "formador"
	RoleAdvisor UserRole = "user"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTrainer, RoleAdvisor:
		return true
	}
	return false
}

type UserStatus string

const (
	UserActive   UserStatus = "Active"
	UserInactive UserStatus = "Inactive"
)

// User is a portal account. Users are never deleted, only deactivated.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Nombre       string     `json:"nombre" gorm:"not null;size:150"`
	Usuario      string     `json:"usuario" gorm:"uniqueIndex;not null;size:100"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;size:255"`
	Rol          UserRole   `json:"rol" gorm:"not null;size:20;index"`
	GrupoNombre  string     `json:"grupo_nombre" gorm:"size:150;index"`
	CampaniaID   *uint      `json:"campania_id" gorm:"index"`
	Estado       UserStatus `json:"estado" gorm:"not null;size:20;default:Active;index"`

	// Attendance markers keyed by YYYY-MM-DD
	Asistencias datatypes.JSON `json:"asistencias,omitempty"`
	QRID        *string        `json:"qr_id,omitempty" gorm:"column:qr_id;uniqueIndex;size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "usuarios"
}

func (u *User) IsActive() bool {
	return u.Estado == UserActive
}

// AttendanceMap decodes the attendance markers. Absent or empty data yields an empty map.
func (u *User) AttendanceMap() (map[string]bool, error) {
	out := make(map[string]bool)
	if len(u.Asistencias) == 0 || string(u.Asistencias) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(u.Asistencias, &out); err != nil {
		return nil, fmt.Errorf("decode attendance for user %d: %w", u.ID, err)
	}
	return out, nil
}

// AttendanceOn reports the marker for date; ok is false when unmarked
func (u *User) AttendanceOn(date string) (present bool, ok bool) {
	m, err := u.AttendanceMap()
	if err != nil {
		return false, false
	}
	present, ok = m[date]
	return present, ok
}
