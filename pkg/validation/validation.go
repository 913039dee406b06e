package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "consents/pkg/domain-errors"
)

// MessageInvalidInput is the top-level message for every validation failure.
const MessageInvalidInput = "Invalid input"

var (
	userIDPattern    = regexp.MustCompile(`^user-\d+$`)
	consentIDPattern = regexp.MustCompile(`^consent-\d+$`)
	indexSuffix      = regexp.MustCompile(`\[\d+\]$`)
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("userid", func(fl validator.FieldLevel) bool {
		return userIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("consentid", func(fl validator.FieldLevel) bool {
		return consentIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate validates a struct using the default validator and returns a domain
// error carrying one message per failed field.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.WithDetails(dErrors.CodeValidation, MessageInvalidInput, ErrorMessages(err)...)
	}
	return nil
}

// ErrorMessages converts a validator error into human-readable messages.
func ErrorMessages(err error) []string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return []string{"invalid request body"}
	}

	messages := make([]string, 0, len(validationErrs))
	seen := make(map[string]bool, len(validationErrs))
	for _, fe := range validationErrs {
		msg := fieldMessage(fe)
		if seen[msg] {
			continue
		}
		seen[msg] = true
		messages = append(messages, msg)
	}
	return messages
}

func fieldMessage(fe validator.FieldError) string {
	field := indexSuffix.ReplaceAllString(fe.Field(), "")
	if field == "" {
		field = fe.StructField()
	}

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("Field %s is required", field)
	case "min":
		return fmt.Sprintf("Field %s must have at least %s in the list", field, count(fe.Param(), field))
	case "max":
		return fmt.Sprintf("Field %s must have at most %s in the list", field, count(fe.Param(), field))
	case "oneof":
		return fmt.Sprintf("Field %s must be one of the values in the list [%s]",
			field, strings.Join(strings.Fields(fe.Param()), ", "))
	case "userid":
		return fmt.Sprintf("Field %s must have the pattern 'user-N' (N = number)", field)
	case "consentid":
		return fmt.Sprintf("Field %s must have the pattern 'consent-N' (N = number)", field)
	case "unique":
		return fmt.Sprintf("Duplicate %s detected", field)
	default:
		return fmt.Sprintf("Field %s is invalid", field)
	}
}

var numberWords = map[string]string{"1": "one", "2": "two", "3": "three"}

// count renders a list bound in words using the field name as the noun:
// ("1", "permissions") -> "one permission", ("3", "permissions") -> "three permissions".
func count(param, field string) string {
	word, ok := numberWords[param]
	if !ok {
		word = param
	}
	if param == "1" {
		return word + " " + strings.TrimSuffix(field, "s")
	}
	return word + " " + field
}
