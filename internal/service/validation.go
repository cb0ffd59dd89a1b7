package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"topic-catalog/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON names so messages match the request payload
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func normalizeDraft(draft *domain.TopicDraft) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Path = strings.TrimSpace(draft.Path)
}

func validateDraft(draft domain.TopicDraft) error {
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldError(fieldErrs[0])
	}
	return domain.Invalid("", err.Error())
}

func fieldError(fe validator.FieldError) error {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return domain.Invalid(field, "is required")
	case "max":
		if fe.Kind() == reflect.Slice {
			return domain.Invalid(field, fmt.Sprintf("must have at most %s entries", fe.Param()))
		}
		return domain.Invalid(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	case "startswith":
		return domain.Invalid(field, fmt.Sprintf("must start with %q", fe.Param()))
	default:
		return domain.Invalid(field, "is invalid")
	}
}

// canonicalID rejects identifiers that could not have been generated by the store
// and returns the lowercase hyphenated form the store compares against.
func canonicalID(field, id string) (string, error) {
	if id == "" {
		return "", domain.Invalid(field, "is required")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", domain.Invalid(field, "must be a valid id")
	}
	return parsed.String(), nil
}
