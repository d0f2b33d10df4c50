package models

import "time"

type Campaign struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Nombre    string    `json:"nombre" gorm:"not null;size:150"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campanias"
}

// Group belongs to a campaign; advisors reference it by name through User.GrupoNombre
type Group struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Nombre     string    `json:"nombre" gorm:"not null;size:150;index"`
	CampaniaID uint      `json:"campania_id" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Group) TableName() string {
	return "grupos"
}

// Course is read-only catalog content. DuracionMinutos is in progress units.
type Course struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Titulo          string    `json:"titulo" gorm:"not null;size:200"`
	Descripcion     string    `json:"descripcion" gorm:"type:text"`
	URLContenido    string    `json:"url_contenido" gorm:"column:url_contenido;size:500"`
	DuracionMinutos int       `json:"duracion_minutos" gorm:"not null;default:0"`
	Estado          string    `json:"estado" gorm:"size:20;default:Active"`
	GrupoID         *uint     `json:"grupo_id" gorm:"index"`
	CampaniaID      *uint     `json:"campania_id" gorm:"index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Course) TableName() string {
	return "cursos"
}
