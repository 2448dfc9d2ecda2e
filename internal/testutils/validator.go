package testutils

import (
	"github.com/go-playground/validator/v10"
)

// NewTestValidator returns the validator the cycle catalog and config
// tests share. Struct tags are read as they are in production; required
// on nested struct values is enforced as well.
func NewTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
