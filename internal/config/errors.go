package config

import "errors"

// Validation errors wrap ErrInvalidConfig. A timezone the runtime cannot
// load also wraps ErrUnknownTimezone.
var (
	ErrInvalidConfig   = errors.New("invalid config")
	ErrUnknownTimezone = errors.New("unknown timezone")
	ErrLoadConfig      = errors.New("load config failed")
)
