package models

import "time"

// CourseActivation makes a course available to one group of a campaign on one date.
// At most one activation exists per (fecha, campania, grupo, curso).
type CourseActivation struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CursoID    uint      `json:"curso_id" gorm:"not null;uniqueIndex:uq_activation_tuple,priority:4"`
	GrupoID    uint      `json:"grupo_id" gorm:"not null;uniqueIndex:uq_activation_tuple,priority:3"`
	CampaniaID uint      `json:"campania_id" gorm:"not null;uniqueIndex:uq_activation_tuple,priority:2"`
	Fecha      string    `json:"fecha" gorm:"not null;size:10;uniqueIndex:uq_activation_tuple,priority:1"`
	Activo     bool      `json:"activo" gorm:"not null"`
	CreadoPor  uint      `json:"creado_por" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Curso    *Course   `json:"curso,omitempty" gorm:"foreignKey:CursoID"`
	Grupo    *Group    `json:"grupo,omitempty" gorm:"foreignKey:GrupoID"`
	Campania *Campaign `json:"campania,omitempty" gorm:"foreignKey:CampaniaID"`
}

func (CourseActivation) TableName() string {
	return "cursos_activados"
}

// Enrollment links an advisor to an activation. Rows are created and deleted, never updated.
type Enrollment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ActivacionID uint      `json:"activacion_id" gorm:"not null;uniqueIndex:uq_enrollment,priority:1"`
	UsuarioID    uint      `json:"usuario_id" gorm:"not null;uniqueIndex:uq_enrollment,priority:2;index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Enrollment) TableName() string {
	return "asesores_cursos"
}
