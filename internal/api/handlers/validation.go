package handlers

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// fieldMessages maps "<json field>.<tag>" to the message returned to clients
var fieldMessages = map[string]string{
	"fullName.required": "Full name is required",
	"fullName.min":      "Full name must be at least 2 characters",
	"fullName.max":      "Full name must be at most 50 characters",
	"email.required":    "Email is required",
	"email.email":       "Please provide a valid email address",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 8 characters",
	"password.max":      "Password must be at most 72 characters",
	"password.strong":   "Password must contain uppercase, lowercase, and number",
}

// Validator checks request bodies against their validate tags
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator that reports json field names and
// understands the "strong" password tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("strong", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate returns the message for the first failing field, or "" if s is valid
func (val *Validator) Validate(s any) string {
	err := val.v.Struct(s)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation failed"
	}

	first := verrs[0]
	if msg, ok := fieldMessages[first.Field()+"."+first.Tag()]; ok {
		return msg
	}
	return first.Field() + " is invalid"
}

// strongPassword requires at least one upper case letter, one lower case
// letter and one digit.
func strongPassword(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
