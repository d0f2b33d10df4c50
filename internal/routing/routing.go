// Package routing maps portal roles to their landing views.
package routing

import "github.com/formacionweb360/training-service/internal/models"

const (
	ViewLogin   = "/"
	ViewAdmin   = "/admin"
	ViewTrainer = "/formador"
	ViewAdvisor = "/asesor"
)

// Resolve returns the view of a role. Unknown or empty roles land on the login view.
func Resolve(rol models.UserRole) string {
	switch rol {
	case models.RoleAdmin:
		return ViewAdmin
	case models.RoleTrainer:
		return ViewTrainer
	case models.RoleAdvisor:
		return ViewAdvisor
	default:
		return ViewLogin
	}
}
