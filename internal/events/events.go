package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "training-service"
	EventVersion = "1.0"
)

// Topics
const (
	TopicCourseActivated    = "course.activated"
	TopicCourseDeactivated  = "course.deactivated"
	TopicEnrollmentRepaired = "enrollment.repaired"
	TopicProgressCompleted  = "progress.completed"
)

// AllTopics lists every topic the service publishes
var AllTopics = []string{
	TopicCourseActivated,
	TopicCourseDeactivated,
	TopicEnrollmentRepaired,
	TopicProgressCompleted,
}

// Event is the envelope of every domain event
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	ActorID   uint        `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, actorID uint, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher sends domain events to the bus. Publishing is best effort:
// callers log failures and never roll back the write that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== PAYLOADS =====

type CourseActivatedEvent struct {
	ActivationID uint   `json:"activation_id"`
	CursoID      uint   `json:"curso_id"`
	GrupoID      uint   `json:"grupo_id"`
	CampaniaID   uint   `json:"campania_id"`
	Fecha        string `json:"fecha"`
	Enrolled     int64  `json:"enrolled"`
	ZeroAdvisors bool   `json:"zero_advisors"`
}

type CourseDeactivatedEvent struct {
	ActivationID       uint  `json:"activation_id"`
	EnrollmentsRemoved int64 `json:"enrollments_removed"`
}

type EnrollmentRepairedEvent struct {
	ActivationID uint  `json:"activation_id"`
	Added        int64 `json:"added"`
}

type ProgressCompletedEvent struct {
	UsuarioID    uint      `json:"usuario_id"`
	CursoID      uint      `json:"curso_id"`
	ActivationID uint      `json:"activation_id"`
	Progreso     int       `json:"progreso"`
	FechaFin     time.Time `json:"fecha_fin"`
}
