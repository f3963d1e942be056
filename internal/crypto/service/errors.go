package service

import (
	"github.com/allisson/tenantcrypt/internal/errors"
)

// ErrUnsupportedAlgorithm indicates the requested algorithm has no cipher implementation.
var ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")
