package matchers

import (
	stdjson "encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchers(t *testing.T) {
	tests := []struct {
		name    string
		actual  any
		matcher Matcher
		want    bool
	}{
		{"equal int to float", float64(4), EqualTo(4), true},
		{"equal string slice to any slice", []any{"a", "b"}, EqualTo([]string{"a", "b"}), true},
		{"equal struct to map", map[string]any{"name": "A"}, EqualTo(struct {
			Name string `json:"name"`
		}{"A"}), true},
		{"equal nil", nil, EqualTo(nil), true},
		{"not equal", "a", EqualTo("b"), false},
		{"is passes matchers through", []any{"x"}, Is(HasSize(1)), true},
		{"is falls back to equality", "x", Is("x"), true},
		{"pattern full match", "ws-123", MatchesPattern(`ws-\d+`), true},
		{"pattern partial match fails", "my-ws-123", MatchesPattern(`ws-\d+`), false},
		{"contains exact order", []any{"A", "B"}, Contains("A", "B"), true},
		{"contains wrong order", []any{"A", "B"}, Contains("B", "A"), false},
		{"contains in any order", []any{"A", "B"}, ContainsInAnyOrder("B", "A"), true},
		{"contains in any order missing element", []any{"A", "B"}, ContainsInAnyOrder("A"), false},
		{"contains in any order extra element", []any{"A"}, ContainsInAnyOrder("A", "B"), false},
		{"has items subset", []any{"A", "B", "C"}, HasItems("C", "A"), true},
		{"has item", []any{float64(1), float64(2)}, HasItem(2), true},
		{"has size", []any{1, 2, 3}, HasSize(3), true},
		{"has size of map", map[string]any{"a": 1}, HasSize(1), true},
		{"empty", []any{}, Empty(), true},
		{"not empty", "x", NotEmpty(), true},
		{"has key", map[string]any{"id": "1"}, HasKey("id"), true},
		{"null", nil, NilValue(), true},
		{"greater than", float64(5), GreaterThan(4), true},
		{"less than", float64(5), LessThan(4), false},
		{"all of", "abc", AllOf(NotEmpty(), MatchesPattern("a.c")), true},
		{"any of", "abc", AnyOf(EqualTo("x"), EqualTo("abc")), true},
		{"not", "abc", Not(EqualTo("x")), true},
		{"json ignores key order", `{"b":1,"a":[1,2]}`, EqualToJSON(`{"a":[1,2],"b":1}`), true},
		{"json of decoded value", map[string]any{"a": 1}, EqualToJSON(`{"a": 1}`), true},
		{"json differs", `{"a":2}`, EqualToJSON(`{"a":1}`), false},
		{"large integers keep precision", int64(9007199254740993), EqualTo(int64(9007199254740993)), true},
		{"large integers differ by one", int64(9007199254740993), EqualTo(int64(9007199254740992)), false},
		{"greater than int64", int64(9007199254740993), GreaterThan(int64(9007199254740992)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.matcher.Match(tt.actual)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NotEmpty(t, tt.matcher.Description())
		})
	}
}

func TestEqualToFailureHasDiff(t *testing.T) {
	err := AssertMatches(map[string]any{"name": "B"}, EqualTo(map[string]any{"name": "A"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionFailure)
	assert.Contains(t, err.Error(), "-want +got")
}

func TestAssertMatches(t *testing.T) {
	assert.NoError(t, AssertMatches([]any{"A", "B"}, ContainsInAnyOrder("B", "A")))

	err := AssertMatches([]any{"A", "B"}, ContainsInAnyOrder("A"))
	assert.ErrorIs(t, err, ErrAssertionFailure)
	assert.ErrorIs(t, err, ErrMatchers)

	err = AssertMatches("x", nil)
	assert.ErrorIs(t, err, ErrAssertionFailure)
	require.Len(t, Failures(err), 1)
	assert.Contains(t, Failures(err)[0].Message, "nil matcher")
}

func TestAssertionsCollectsEveryFailure(t *testing.T) {
	var a Assertions
	assert.True(t, a.That("status", float64(200), EqualTo(200)))
	assert.False(t, a.That("name", "B", EqualTo("A")))
	assert.False(t, a.That("ids", []any{"1"}, HasSize(2)))
	a.Fail("header", assert.AnError)
	a.Fail("ignored", nil)

	err := a.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionFailure)

	failures := Failures(err)
	require.Len(t, failures, 3)
	assert.Equal(t, "name", failures[0].Label)
	assert.Equal(t, "ids", failures[1].Label)
	assert.Equal(t, "header", failures[2].Label)
	assert.Contains(t, err.Error(), "name:")
	assert.Contains(t, err.Error(), "ids:")

	var empty Assertions
	assert.NoError(t, empty.Err())
	assert.Nil(t, Failures(nil))
}

func TestAssertionsTypeMismatchIsAFailure(t *testing.T) {
	var a Assertions
	assert.False(t, a.That("size", float64(3), HasSize(3)))
	assert.Len(t, a.Failures(), 1)
}

const userSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["id", "name"],
	"properties": {
		"id": {"type": "integer"},
		"name": {"type": "string"}
	}
}`

func TestJSONSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(path, []byte(userSchema), 0o600))

	assert.NoError(t, ValidateJSONSchema(`{"id": 1, "name": "Leanne"}`, path))
	assert.NoError(t, ValidateJSONSchema(map[string]any{"id": 1, "name": "Leanne"}, path))

	err := ValidateJSONSchema(`{"id": "1"}`, path)
	assert.ErrorIs(t, err, ErrSchemaValidation)

	err = ValidateJSONSchema(`{"id":`, path)
	assert.ErrorIs(t, err, ErrSchemaValidation)

	err = ValidateJSONSchema(`{}`, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrSchemaValidation)

	m := MatchesJSONSchemaInFile(path)
	ok, err := m.Match([]byte(`{"id": 2, "name": "Ervin"}`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Match(`{"name": 2}`)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, m.FailureMessage(`{"name": 2}`), path)
	assert.Contains(t, m.FailureMessage(`{"name": 2}`), "id")
}

func TestJSONSchemaMatcherIsShareable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(path, []byte(userSchema), 0o600))
	m := MatchesJSONSchemaInFile(path)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(valid bool) {
			defer wg.Done()
			doc := `{"name": 2}`
			if valid {
				doc = `{"id": 9007199254740993, "name": "Ervin"}`
			}
			ok, err := m.Match(doc)
			assert.NoError(t, err)
			assert.Equal(t, valid, ok)
			if !valid {
				assert.Contains(t, m.FailureMessage(doc), path)
			}
		}(i%2 == 0)
	}
	wg.Wait()
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 4, int64(4)},
		{"integral float", 4.0, int64(4)},
		{"fraction", 2.5, 2.5},
		{"int64 past float precision", int64(9007199254740993), int64(9007199254740993)},
		{"uint64 past int64", uint64(18446744073709551615), stdjson.Number("18446744073709551615")},
		{"json number", stdjson.Number("12"), int64(12)},
		{"nested", map[string]any{"ids": []int{1, 2}, "r": 0.5}, map[string]any{"ids": []any{int64(1), int64(2)}, "r": 0.5}},
		{"bytes", []byte("x"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
