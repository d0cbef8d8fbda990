package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldErrorDTO describes one failed validation rule.
type FieldErrorDTO struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names (author.id) instead of Go names (Author.ID).
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationResponse maps validator errors to a 400 body.
func validationResponse(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ErrorResponse{Error: "Invalid input", Code: "validation_failed"}
	}

	fields := make([]FieldErrorDTO, 0, len(verrs))
	for _, e := range verrs {
		path := fieldPath(e.Namespace())
		fields = append(fields, FieldErrorDTO{
			Field:   path,
			Rule:    e.Tag(),
			Message: fieldMessage(path, e.Tag()),
		})
	}
	return ErrorResponse{
		Error:   fields[0].Message,
		Code:    "validation_failed",
		Details: fields,
	}
}

// fieldPath drops the root struct name: "WebhookRequest.author.id" -> "author.id".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(path, tag string) string {
	name := strings.NewReplacer(".", " ", "_", " ").Replace(path)
	name = cases.Title(language.English).String(name)
	switch tag {
	case "required":
		return name + " is required"
	default:
		return name + " is invalid"
	}
}
