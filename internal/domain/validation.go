package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names, the names clients actually send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationResult is either ok (no errors) or the list of field errors in
// declaration order.
type ValidationResult struct {
	Errors []FieldError `json:"errors,omitempty"`
}

func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Message returns the first error message, the one reported to clients.
func (r ValidationResult) Message() string {
	if r.OK() {
		return ""
	}
	return r.Errors[0].Message
}

// Err converts the result into a *ValidationError, or nil.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Result: r}
}

// ValidationError carries the rejected fields. It matches ErrValidation and
// its text is the message shown to clients.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return e.Result.Message()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validate checks the required-field contract declared on input.
func Validate(input any) ValidationResult {
	err := validate.Struct(input)
	if err == nil {
		return ValidationResult{}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationResult{Errors: []FieldError{{Rule: "invalid", Message: err.Error()}}}
	}

	res := ValidationResult{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return res
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", fe.Field())
	case "required_without":
		return fmt.Sprintf("%q is required when %q is empty", fe.Field(), jsonName(fe.Param()))
	case "email":
		return fmt.Sprintf("%q must be a valid email", fe.Field())
	default:
		return fmt.Sprintf("%q failed on the %q rule", fe.Field(), fe.Tag())
	}
}

func jsonName(goField string) string {
	if goField == "" {
		return goField
	}
	return strings.ToLower(goField[:1]) + goField[1:]
}
