package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ParseEnumError reports a status or priority value that names no variant.
type ParseEnumError struct {
	Field string
	Value string
}

func (e *ParseEnumError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every field that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(err)
	}
	return v
}

// notBlank rejects empty and whitespace-only strings.
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return false
		}
		field = field.Elem()
	}
	if field.Kind() == reflect.String {
		return strings.TrimSpace(field.String()) != ""
	}
	return field.IsValid() && !field.IsZero()
}

func (r CreateTaskRequest) Validate() error {
	return validateStruct(r, r.enumErrs)
}

func (r UpdateTaskRequest) Validate() error {
	return validateStruct(r, r.enumErrs)
}

func (r TagRequest) Validate() error {
	return validateStruct(r, nil)
}

// ValidateTag checks a single tag value outside of a request body.
func ValidateTag(tag string) error {
	return TagRequest{Tag: tag}.Validate()
}

// validateStruct runs the struct rules and merges enumErrs in. An enum field
// that failed to parse reports the parse failure instead of "is required".
func validateStruct(s interface{}, enumErrs map[string]string) error {
	var fields []FieldError
	reported := make(map[string]bool, len(enumErrs))

	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			message := messageFor(fe.Tag())
			if parseMsg, ok := enumErrs[fe.Field()]; ok {
				message = parseMsg
				reported[fe.Field()] = true
			}
			fields = append(fields, FieldError{Field: fe.Field(), Message: message})
		}
	}

	for _, name := range []string{"status", "priority"} {
		if parseMsg, ok := enumErrs[name]; ok && !reported[name] {
			fields = append(fields, FieldError{Field: name, Message: parseMsg})
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func messageFor(tag string) string {
	switch tag {
	case "notblank":
		return "must not be blank"
	case "required":
		return "is required"
	default:
		return "failed " + tag + " validation"
	}
}
