package jsonpath

import (
	"github.com/tansive/restspec/internal/common/apperrors"
)

var (
	// ErrJSONPath is the base error for all extraction errors.
	ErrJSONPath apperrors.Error = apperrors.New("path extraction failed")

	// ErrInvalidPath is returned when an expression cannot be compiled.
	ErrInvalidPath apperrors.Error = ErrJSONPath.New("invalid path expression")

	// ErrPathNotFound is returned when a traversed segment is absent. Absent elements of a
	// wildcard projection are skipped and never produce this error.
	ErrPathNotFound apperrors.Error = ErrJSONPath.New("path not found")

	// ErrInvalidDocument is returned when a body cannot be parsed as JSON or XML.
	ErrInvalidDocument apperrors.Error = ErrJSONPath.New("body is not a structured document")
)
