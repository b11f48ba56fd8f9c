package matchers

import (
	"errors"
	"strings"

	"github.com/onsi/gomega/types"
)

// Failure is one check that did not hold.
type Failure struct {
	Label   string
	Message string
}

func (f Failure) String() string {
	if f.Label == "" {
		return f.Message
	}
	return f.Label + ": " + f.Message
}

// AssertMatches checks actual against m. It returns nil on success and an
// ErrAssertionFailure carrying the matcher's failure message otherwise.
func AssertMatches(actual any, m types.GomegaMatcher) error {
	var a Assertions
	a.That("", actual, m)
	return a.Err()
}

// Assertions collects the outcome of several checks so that all failures can be
// reported together. The zero value is ready to use.
type Assertions struct {
	failures []Failure
}

// That checks actual against m under label and records a failure if it does not match.
// It reports whether the check passed.
func (a *Assertions) That(label string, actual any, m types.GomegaMatcher) bool {
	if m == nil {
		a.Fail(label, ErrInvalidMatcher.Msg("nil matcher"))
		return false
	}
	ok, err := m.Match(actual)
	if err != nil {
		a.Fail(label, err)
		return false
	}
	if !ok {
		a.failures = append(a.failures, Failure{Label: label, Message: m.FailureMessage(actual)})
	}
	return ok
}

// Fail records err as a failure under label. A nil err is ignored.
func (a *Assertions) Fail(label string, err error) {
	if err == nil {
		return
	}
	a.failures = append(a.failures, Failure{Label: label, Message: err.Error()})
}

// Failures returns the failures recorded so far.
func (a *Assertions) Failures() []Failure {
	return a.failures
}

// Err returns nil when every check passed, and otherwise a single error matching
// ErrAssertionFailure whose message lists every failure.
func (a *Assertions) Err() error {
	if len(a.failures) == 0 {
		return nil
	}
	failures := make([]Failure, len(a.failures))
	copy(failures, a.failures)
	return &FailureError{failures: failures}
}

// FailureError is the error returned by Assertions.Err.
type FailureError struct {
	failures []Failure
}

func (e *FailureError) Error() string {
	if len(e.failures) == 1 {
		return "assertion failed: " + e.failures[0].String()
	}
	var b strings.Builder
	b.WriteString("assertion failed:")
	for _, f := range e.failures {
		b.WriteString("\n  - ")
		b.WriteString(strings.ReplaceAll(f.String(), "\n", "\n    "))
	}
	return b.String()
}

func (e *FailureError) Unwrap() error {
	return ErrAssertionFailure
}

// Failures returns the individual failures carried by err, or nil if err does not come
// from an assertion.
func Failures(err error) []Failure {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.failures
	}
	return nil
}
