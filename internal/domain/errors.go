package domain

import "errors"

// ErrNotFound is returned by repositories when no entity matches the
// requested identifier. Callers must not treat it as a systemic failure.
var ErrNotFound = errors.New("entity not found")

// ErrValidation wraps domain rule violations raised by entity constructors.
var ErrValidation = errors.New("domain validation failed")
