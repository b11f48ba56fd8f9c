// Package matchers adapts gomega matchers to response assertions. Every constructor
// returns a Matcher whose expected value and whose actual value are both brought into
// the decoded JSON value domain before comparison, so 4 equals 4.0 and a []string equals
// the []any extracted from a response body. Integers keep their full int64 precision.
package matchers

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"math"

	"github.com/google/go-cmp/cmp"
	jsoniter "github.com/json-iterator/go"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"

	"github.com/tansive/restspec/pkg/jsonpath"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Matcher is a gomega matcher with a human readable description, used in assertion
// reports.
type Matcher interface {
	types.GomegaMatcher
	Description() string
}

type matcher struct {
	desc  string
	inner types.GomegaMatcher
}

func (m *matcher) Match(actual any) (bool, error) {
	return m.inner.Match(Normalize(actual))
}

func (m *matcher) FailureMessage(actual any) string {
	return m.inner.FailureMessage(Normalize(actual))
}

func (m *matcher) NegatedFailureMessage(actual any) string {
	return m.inner.NegatedFailureMessage(Normalize(actual))
}

func (m *matcher) Description() string {
	return m.desc
}

func wrap(desc string, inner types.GomegaMatcher) Matcher {
	return &matcher{desc: desc, inner: inner}
}

// Normalize converts v into the value domain produced by extracting from a JSON body:
// integral numbers become int64 (json.Number past the int64 range), other numbers
// float64, slices []any, structs and maps map[string]any. Values that cannot be
// marshaled, and gomega matchers, are returned unchanged.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, types.GomegaMatcher:
		return v
	case float64:
		return normalizeFloat(t)
	case stdjson.Number:
		return normalizeNumber(t)
	case []byte:
		return string(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return v
	}
	return normalizeNumbers(out)
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case stdjson.Number:
		return normalizeNumber(t)
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	}
	return v
}

func normalizeNumber(n stdjson.Number) any {
	if f, ok := jsonpath.Number(string(n)).(float64); ok {
		return normalizeFloat(f)
	}
	return jsonpath.Number(string(n))
}

// normalizeFloat turns integral floats into int64 so 4.0 and 4 compare equal.
func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

func normalizeAll(elems []any) []any {
	out := make([]any, len(elems))
	for i, e := range elems {
		out[i] = Normalize(e)
	}
	return out
}

// EqualTo matches a value deeply equal to expected. Failure messages include a diff.
func EqualTo(expected any) Matcher {
	want := Normalize(expected)
	inner := gomega.Equal(want)
	if want == nil {
		// gomega refuses to compare nil with Equal
		inner = gomega.BeNil()
	}
	return &equalMatcher{
		matcher: matcher{desc: "equal to " + format.Object(want, 0), inner: inner},
		want:    want,
	}
}

type equalMatcher struct {
	matcher
	want any
}

func (m *equalMatcher) FailureMessage(actual any) string {
	got := Normalize(actual)
	msg := m.inner.FailureMessage(got)
	if diff := cmp.Diff(m.want, got); diff != "" {
		msg += "\n(-want +got):\n" + diff
	}
	return msg
}

// Is passes a matcher through unchanged and treats any other value as EqualTo.
func Is(v any) Matcher {
	switch t := v.(type) {
	case Matcher:
		return t
	case types.GomegaMatcher:
		return wrap(fmt.Sprintf("%T", t), t)
	}
	return EqualTo(v)
}

// MatchesPattern matches a string when the whole string matches the regular expression.
func MatchesPattern(pattern string) Matcher {
	return wrap("matches pattern "+pattern, gomega.MatchRegexp("^(?:"+pattern+")$"))
}

// Contains matches a collection holding exactly elems in that order. Elements may be
// matchers.
func Contains(elems ...any) Matcher {
	want := normalizeAll(elems)
	return wrap("contains exactly "+format.Object(want, 0), gomega.HaveExactElements(want...))
}

// ContainsInAnyOrder matches a collection holding exactly elems in any order.
func ContainsInAnyOrder(elems ...any) Matcher {
	want := normalizeAll(elems)
	return wrap("contains in any order "+format.Object(want, 0), gomega.ConsistOf(want...))
}

// HasItems matches a collection that contains every one of elems.
func HasItems(elems ...any) Matcher {
	want := normalizeAll(elems)
	return wrap("has items "+format.Object(want, 0), gomega.ContainElements(want...))
}

// HasItem matches a collection that contains elem.
func HasItem(elem any) Matcher {
	want := Normalize(elem)
	return wrap("has item "+format.Object(want, 0), gomega.ContainElement(want))
}

// HasSize matches a collection, map or string of length n.
func HasSize(n int) Matcher {
	return wrap(fmt.Sprintf("has size %d", n), gomega.HaveLen(n))
}

func Empty() Matcher {
	return wrap("is empty", gomega.BeEmpty())
}

func NotEmpty() Matcher {
	return wrap("is not empty", gomega.Not(gomega.BeEmpty()))
}

// HasKey matches a map containing key.
func HasKey(key string) Matcher {
	return wrap("has key "+key, gomega.HaveKey(key))
}

// NilValue matches JSON null.
func NilValue() Matcher {
	return wrap("is null", gomega.BeNil())
}

// GreaterThan matches a number greater than n.
func GreaterThan(n any) Matcher {
	return wrap(fmt.Sprintf("greater than %v", n), gomega.BeNumerically(">", Normalize(n)))
}

// LessThan matches a number less than n.
func LessThan(n any) Matcher {
	return wrap(fmt.Sprintf("less than %v", n), gomega.BeNumerically("<", Normalize(n)))
}

// AllOf matches when every matcher matches.
func AllOf(ms ...types.GomegaMatcher) Matcher {
	return wrap("all of "+describeAll(ms), gomega.And(ms...))
}

// AnyOf matches when at least one matcher matches.
func AnyOf(ms ...types.GomegaMatcher) Matcher {
	return wrap("any of "+describeAll(ms), gomega.Or(ms...))
}

// Not inverts m.
func Not(m types.GomegaMatcher) Matcher {
	return wrap("not "+describe(m), gomega.Not(m))
}

func describe(m types.GomegaMatcher) string {
	if d, ok := m.(Matcher); ok {
		return d.Description()
	}
	return fmt.Sprintf("%T", m)
}

func describeAll(ms []types.GomegaMatcher) string {
	s := "("
	for i, m := range ms {
		if i > 0 {
			s += ", "
		}
		s += describe(m)
	}
	return s + ")"
}
