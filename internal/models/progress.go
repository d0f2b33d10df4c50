package models

import "time"

type ProgressState string

const (
	// ProgressNotStarted is never stored; it describes the absence of a record
	ProgressNotStarted ProgressState = "No iniciado"
	ProgressInProgress ProgressState = "En curso"
	ProgressCompleted  ProgressState = "Completado"
)

// ProgressRecord tracks one advisor on one course. Progress is in minutes.
type ProgressRecord struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	UsuarioID   uint          `json:"usuario_id" gorm:"not null;uniqueIndex:uq_progress,priority:1"`
	CursoID     uint          `json:"curso_id" gorm:"not null;uniqueIndex:uq_progress,priority:2;index"`
	Estado      ProgressState `json:"estado" gorm:"not null;size:20;default:En curso"`
	Progreso    int           `json:"progreso" gorm:"not null;default:0"`
	FechaInicio time.Time     `json:"fecha_inicio"`
	FechaFin    *time.Time    `json:"fecha_fin"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (ProgressRecord) TableName() string {
	return "progreso_cursos"
}

func (p *ProgressRecord) IsCompleted() bool {
	return p.Estado == ProgressCompleted
}
