package util

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Validate checks request bodies. Custom tags:
//
//	queue_key  tracker queue key, upper-case latin letters and digits
var Validate = newValidator()

var queueKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("queue_key", func(fl validator.FieldLevel) bool {
		return queueKeyRe.MatchString(fl.Field().String())
	})
	return v
}
