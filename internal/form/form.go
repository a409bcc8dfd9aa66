// Package form validates submitted HTML forms and turns validation failures
// into per-field messages for re-rendering.
package form

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// reservedUsernames collide with fixed routes under /accounts/profile/.
var reservedUsernames = map[string]struct{}{
	"edit": {},
}

// Errors maps a form field name to its message. The empty key holds
// errors that do not belong to a single field.
type Errors map[string]string

func (e Errors) Add(field, message string) {
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

func (e Errors) Any() bool {
	return len(e) > 0
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notreserved", func(fl validator.FieldLevel) bool {
		_, reserved := reservedUsernames[strings.ToLower(fl.Field().String())]
		return !reserved
	})
	// maxbytes=N limits the UTF-8 byte length, not the rune count.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})

	return &Validator{validate: v}
}

// Struct validates a tagged form struct.
func (v *Validator) Struct(s any) Errors {
	errs := Errors{}

	err := v.validate.Struct(s)
	if err == nil {
		return errs
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs.Add("", err.Error())
		return errs
	}

	for _, fe := range validationErrors {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url", "http_url":
		return "Enter a valid URL."
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("Ensure this value is at most %s bytes long.", fe.Param())
	case "eqfield":
		return "The two password fields didn't match."
	case "oneof":
		return "Select a valid choice."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers and @/./+/-/_ characters."
	case "notreserved":
		return "This username is reserved."
	}
	return "Enter a valid value."
}
