package repository

import (
	"athletix/tracker/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).IsValid()
	})
	mustRegister(v, "body_part", func(fl validator.FieldLevel) bool {
		return domain.BodyPart(fl.Field().String()).IsValid()
	})
	mustRegister(v, "health_status", func(fl validator.FieldLevel) bool {
		return domain.HealthStatus(fl.Field().String()).IsValid()
	})
	mustRegister(v, "injury_status", func(fl validator.FieldLevel) bool {
		return domain.InjuryStatus(fl.Field().String()).IsValid()
	})
	mustRegister(v, "activity_type", func(fl validator.FieldLevel) bool {
		return domain.ActivityType(fl.Field().String()).IsValid()
	})
	mustRegister(v, "progress", func(fl validator.FieldLevel) bool {
		return domain.Progress(fl.Field().String()).IsValid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}
