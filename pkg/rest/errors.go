package rest

import (
	"github.com/tansive/restspec/internal/common/apperrors"
	"github.com/tansive/restspec/pkg/jsonpath"
	"github.com/tansive/restspec/pkg/matchers"
)

var (
	// ErrRest is the base error for request building and execution.
	ErrRest apperrors.Error = apperrors.New("rest request failed")

	// ErrInvalidConfiguration is recorded by builder methods given bad input, and returned
	// when a specification cannot be resolved into a valid request.
	ErrInvalidConfiguration apperrors.Error = ErrRest.New("invalid configuration")

	// ErrUnresolvedPathParameter is returned when a {name} placeholder has no value.
	ErrUnresolvedPathParameter apperrors.Error = ErrRest.New("unresolved path parameter")

	// ErrNetwork is returned for transport failures. Requests are never retried.
	ErrNetwork apperrors.Error = ErrRest.New("network error")

	// ErrSerialization is returned when a body cannot be converted to or from its wire
	// format.
	ErrSerialization apperrors.Error = ErrRest.New("serialization error")
)

// Errors from the extraction and assertion packages, re-exported so callers of this
// package can match them without importing those packages.
var (
	ErrPathNotFound     = jsonpath.ErrPathNotFound
	ErrInvalidPath      = jsonpath.ErrInvalidPath
	ErrInvalidDocument  = jsonpath.ErrInvalidDocument
	ErrAssertionFailure = matchers.ErrAssertionFailure
	ErrSchemaValidation = matchers.ErrSchemaValidation
)
