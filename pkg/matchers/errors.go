package matchers

import (
	"github.com/tansive/restspec/internal/common/apperrors"
)

var (
	// ErrMatchers is the base error for this package.
	ErrMatchers apperrors.Error = apperrors.New("assertion error")

	// ErrAssertionFailure is returned when one or more checks do not hold.
	ErrAssertionFailure apperrors.Error = ErrMatchers.New("assertion failed")

	// ErrSchemaValidation is returned when a document does not conform to a JSON schema
	// or the schema itself cannot be compiled.
	ErrSchemaValidation apperrors.Error = ErrMatchers.New("schema validation failed")

	// ErrInvalidMatcher is returned for a nil matcher.
	ErrInvalidMatcher apperrors.Error = ErrMatchers.New("invalid matcher")
)
