package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator. Validation rules live on the request
// struct tags; nothing cross-field is needed for user payloads.
func New() *validatorv10.Validate {
	return validatorv10.New()
}
