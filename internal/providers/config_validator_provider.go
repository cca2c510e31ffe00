package providers

import (
	"pixeld/internal/structures"

	"github.com/gookit/validate"
)

// CnfValidator checks the daemon's own configuration. This is strict on
// purpose: a broken daemon config aborts startup, unlike the per-publisher
// module config which always falls back to defaults.
type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors
	}
	return nil
}
