package matchers

import (
	"bytes"
	"fmt"

	"github.com/anand-gl/jsoncanonicalizer"
)

// EqualToJSON matches a JSON document (string, []byte or any marshalable value) that is
// semantically equal to expected: key order and whitespace are ignored.
func EqualToJSON(expected string) Matcher {
	return &jsonMatcher{expected: expected}
}

type jsonMatcher struct {
	expected string
}

func (m *jsonMatcher) Description() string {
	return "equal to JSON " + m.expected
}

func (m *jsonMatcher) Match(actual any) (bool, error) {
	want, err := jsoncanonicalizer.Transform([]byte(m.expected))
	if err != nil {
		return false, ErrInvalidMatcher.MsgErr("expected value is not valid JSON", err)
	}
	got, err := canonical(actual)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}

func (m *jsonMatcher) FailureMessage(actual any) string {
	got, err := canonical(actual)
	if err != nil {
		return err.Error()
	}
	want, _ := jsoncanonicalizer.Transform([]byte(m.expected))
	return fmt.Sprintf("Expected\n    %s\nto equal JSON\n    %s", got, want)
}

func (m *jsonMatcher) NegatedFailureMessage(actual any) string {
	got, _ := canonical(actual)
	return fmt.Sprintf("Expected\n    %s\nnot to equal JSON\n    %s", got, m.expected)
}

func canonical(v any) ([]byte, error) {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, ErrAssertionFailure.MsgErr("value cannot be encoded as JSON", err)
		}
		raw = b
	}
	out, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, ErrAssertionFailure.MsgErr("value is not valid JSON", err)
	}
	return out, nil
}
