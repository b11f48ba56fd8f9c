// Package apperrors provides the chained error type shared by every restspec package.
// An Error carries a message, the error it was derived from (so errors.Is walks the
// taxonomy), any number of attached errors, and an optional HTTP status code used by
// the mock server when an error has to be written to a client.
package apperrors

// Error is the application error interface. All methods that modify an error return a
// new value; an Error is never mutated after creation.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // child error in the same family
	Msg(msg string) Error                  // new message, wraps the current error
	Msgf(format string, args ...any) Error // Msg with fmt formatting
	MsgErr(msg string, err ...error) Error // new message, wraps current and extra errors
	Err(err ...error) Error                // same message, attaches extra errors
	SetExpandError(bool) Error             // ErrorAll lists attached errors when set
	SetStatusCode(int) Error               // HTTP status code for this error
	StatusCode() int                       // 0 when unset
	ErrorAll() string                      // message plus attached errors if expanded
	UnwrapAll() []error                    // attached errors in order
}
