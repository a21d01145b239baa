package shared

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateStruct runs struct validation and wraps failures in ErrValidation.
func ValidateStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// Invalid builds a validation error for a single field.
func Invalid(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, msg)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of [" + fe.Param() + "]"
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "max", "lte":
		return fe.Field() + " must be at most " + fe.Param()
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "email":
		return fe.Field() + " must be a valid email"
	default:
		return fe.Field() + " failed " + fe.Tag()
	}
}
