package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vectorprep/session-service/internal/models"
)

// Validator wraps struct-tag validation with the engine's custom tags.
type Validator struct {
	structValidator *validator.Validate
}

func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)
	return &Validator{structValidator: structValidator}
}

// Validate validates struct tags on s.
func (v *Validator) Validate(s interface{}) error {
	return v.structValidator.Struct(s)
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("subject", validateSubject)
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)

	// Report field names from json tags for readable error messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateSubject(fl validator.FieldLevel) bool {
	value := models.Subject(fl.Field().String())
	for _, subject := range models.SubjectOrder {
		if subject == value {
			return true
		}
	}
	return false
}

func validateDifficultyLevel(fl validator.FieldLevel) bool {
	value := models.DifficultyLevel(fl.Field().String())
	for _, level := range models.DifficultyOrder {
		if level == value {
			return true
		}
	}
	return false
}
