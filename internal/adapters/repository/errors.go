package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInvalidKey      = errors.New("invalid user/agent key")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
