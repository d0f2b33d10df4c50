package validator

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/formacionweb360/training-service/internal/models"
)

const dateLayout = "2006-01-02"

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateActivation checks an activation request. All three references are required.
func (bv *BusinessValidator) ValidateActivation(req *ActivationRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateAttendance checks an attendance marker. Future dates are rejected.
func (bv *BusinessValidator) ValidateAttendance(req *AttendanceRequest, today string) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)
	if len(errors) > 0 {
		return errors
	}

	if req.Fecha > today {
		errors = append(errors, ValidationError{
			Field:   "fecha",
			Message: "cannot be in the future",
			Value:   req.Fecha,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateStatusChange rejects self-deactivation
func (bv *BusinessValidator) ValidateStatusChange(req *UserStatusRequest, target *models.User, actorID uint) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	if len(errors) > 0 {
		return errors
	}

	if target.ID == actorID && req.Estado == models.UserInactive {
		errors = append(errors, ValidationError{
			Field:   "estado",
			Message: "cannot deactivate your own account",
			Value:   req.Estado,
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Calendar date, YYYY-MM-DD
	bv.validate.RegisterValidation("iso_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	})

	bv.validate.RegisterValidation("portal_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("user_status", func(fl validator.FieldLevel) bool {
		status := models.UserStatus(fl.Field().String())
		return status == models.UserActive || status == models.UserInactive
	})

	// Login names are trimmed and non-empty
	bv.validate.RegisterValidation("login_name", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		return len(name) >= 1 && len(name) <= 100 && name == fl.Field().String()
	})
}
