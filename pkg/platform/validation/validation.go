// Package validation wraps go-playground/validator so every package reports
// field failures the same way: a domain validation error naming the JSON
// fields that failed.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dErrors "cardiotrack/pkg/domain-errors"
)

const (
	// MaxPageSize caps list endpoints.
	MaxPageSize = 1000
	// DefaultPageSize is used when a list request omits limit.
	DefaultPageSize = 100
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator. Struct metadata is cached by
// the validator, so a single instance is shared.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		instance = v
	})
	return instance
}

// Struct validates v and converts failures into a single validation error
// listing every offending field in declaration order.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "validation failed")
	}
	fields := make([]string, 0, len(verrs))
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe)
		fields = append(fields, field)
		messages = append(messages, describe(field, fe))
	}
	return dErrors.Validation(fields, strings.Join(messages, "; "))
}

// fieldPath drops the top-level struct name so nested fields read as
// "profile_data.name" rather than "PredictRequest.profile_data.name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "datetime":
		return field + " must be a date formatted YYYY-MM-DD"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// StructAt validates v like Struct but reports fields under prefix, so a
// nested payload validated on its own still names "profile_data.phone".
func StructAt(prefix string, v any) error {
	err := Struct(v)
	if err == nil || prefix == "" {
		return err
	}
	de, ok := dErrors.As(err)
	if !ok || len(de.Fields) == 0 {
		return err
	}
	fields := make([]string, len(de.Fields))
	message := de.Message
	for i, f := range de.Fields {
		fields[i] = prefix + "." + f
		message = strings.ReplaceAll(message, f+" ", fields[i]+" ")
	}
	return dErrors.Validation(fields, message)
}
