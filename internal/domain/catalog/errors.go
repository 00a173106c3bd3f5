package catalog

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidCatalog = errors.New("invalid catalog")
	ErrInvalidTrigger = errors.New("invalid trigger")
	ErrTransform      = errors.New("transform failed")
	ErrIncomparable   = errors.New("values are not comparable")
)
