package validator

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
)

// Product categories accepted by the standard template.
var Categories = []string{"basic_basket", "produce", "meat_dairy", "groceries", "non_food"}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("half_step", validateHalfStep)
	v.RegisterValidation("category", validateCategory)
	v.RegisterValidation("notblank", validateNotBlank)

	return &Validator{validate: v}
}

// Validate checks i and returns an apperr validation error describing the
// first failing field.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.Validation(describe(verrs[0]))
	}
	return apperr.Validation(err.Error())
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "half_step":
		return field + " must be a multiple of 0.5"
	case "category":
		return field + " must be one of " + strings.Join(Categories, ", ")
	case "oneof":
		return field + " must be one of " + fe.Param()
	case "email":
		return field + " must be a valid email"
	default:
		return field + " is invalid"
	}
}

func validateHalfStep(fl validator.FieldLevel) bool {
	q := fl.Field().Float()
	return math.Mod(q*2, 1) == 0
}

func validateCategory(fl validator.FieldLevel) bool {
	c := fl.Field().String()
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
