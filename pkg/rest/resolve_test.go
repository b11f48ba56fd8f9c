package rest

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/restspec/pkg/entities"
)

type xmlWorkspace struct {
	XMLName xml.Name `xml:"workspace"`
	Name    string   `xml:"name"`
}

func TestHeadersKeepOrder(t *testing.T) {
	spec := New().
		WithBaseURL("https://api.example.com").
		WithHeader("A", "1").
		WithHeader("B", "2").
		WithHeader("A", "3")

	pr, err := Resolve("GET", spec)
	require.NoError(t, err)
	assert.Equal(t, []Header{{"A", "1"}, {"B", "2"}, {"A", "3"}}, pr.Headers)

	req, err := pr.newRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, req.Header.Values("A"))
}

func TestSpecificationIsImmutable(t *testing.T) {
	base := New().WithBaseURL("https://api.example.com").WithHeader("X-Base", "1")
	a := base.WithHeader("X-A", "a")
	b := base.WithHeader("X-B", "b")

	assert.Len(t, base.Headers(), 1)
	assert.Equal(t, []Header{{"X-Base", "1"}, {"X-A", "a"}}, a.Headers())
	assert.Equal(t, []Header{{"X-Base", "1"}, {"X-B", "b"}}, b.Headers())
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		spec Specification
		want string
	}{
		{
			name: "path parameter",
			spec: New().WithBaseURL("https://api.getpostman.com").WithPath("/workspaces/{id}").WithPathParam("id", "abc"),
			want: "https://api.getpostman.com/workspaces/abc",
		},
		{
			name: "base path and path",
			spec: New().WithBaseURL("https://api.example.com/").WithBasePath("/v1/").WithPath("users/{id}").WithPathParam("id", 7),
			want: "https://api.example.com/v1/users/7",
		},
		{
			name: "unused parameters are ignored",
			spec: New().WithBaseURL("https://api.example.com").WithPath("/users").WithPathParam("id", "1"),
			want: "https://api.example.com/users",
		},
		{
			name: "values are escaped",
			spec: New().WithBaseURL("https://api.example.com").WithPath("/files/{name}").WithPathParam("name", "a b/c"),
			want: "https://api.example.com/files/a%20b%2Fc",
		},
		{
			name: "later path parameter wins",
			spec: New().WithBaseURL("https://api.example.com").WithPath("/w/{id}").WithPathParam("id", "1").WithPathParam("id", "2"),
			want: "https://api.example.com/w/2",
		},
		{
			name: "query in order with repeats",
			spec: New().WithBaseURL("https://postman-echo.com").WithPath("/get").
				WithQueryParam("foo1", "bar1").WithQueryParam("foo2", "bar 2").WithQueryParam("foo1", "again"),
			want: "https://postman-echo.com/get?foo1=bar1&foo2=bar+2&foo1=again",
		},
		{
			name: "existing query kept",
			spec: New().WithBaseURL("https://postman-echo.com/get?x=1").WithQueryParam("y", 2),
			want: "https://postman-echo.com/get?x=1&y=2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr, err := Resolve("get", tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pr.URL)
			assert.Equal(t, "GET", pr.Method)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		spec    Specification
		wantErr error
	}{
		{"missing path parameter", New().WithBaseURL("https://a.io").WithPath("/workspaces/{id}"), ErrUnresolvedPathParameter},
		{"missing base path parameter", New().WithBaseURL("https://a.io").WithBasePath("/{version}").WithPath("/x"), ErrUnresolvedPathParameter},
		{"relative URL", New().WithPath("/workspaces"), ErrInvalidConfiguration},
		{"no host", New().WithBaseURL("https://"), ErrInvalidConfiguration},
		{"empty header key", New().WithBaseURL("https://a.io").WithHeader("", "v"), ErrInvalidConfiguration},
		{"empty path parameter key", New().WithBaseURL("https://a.io").WithPathParam("", "v"), ErrInvalidConfiguration},
		{"nil body", New().WithBaseURL("https://a.io").WithBody(nil), ErrInvalidConfiguration},
		{"body and form", New().WithBaseURL("https://a.io").WithBody("x").WithFormParam("a", "b"), ErrInvalidConfiguration},
		{"unsupported object encoding", New().WithBaseURL("https://a.io").WithContentType("text/csv").WithBody(map[string]int{"a": 1}), ErrSerialization},
		{"form encoding of a struct", New().WithBaseURL("https://a.io").WithContentType(contentTypeForm).WithBody(entities.Geo{}), ErrSerialization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve("GET", tt.spec)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrRest)
		})
	}
}

func TestStickyError(t *testing.T) {
	spec := New().WithHeader("", "x").WithPathParam("", "y").WithBaseURL("https://a.io")
	require.Error(t, spec.Err())
	assert.Contains(t, spec.Err().Error(), "header key")

	_, err := Execute(context.Background(), "GET", spec)
	assert.Equal(t, spec.Err(), err)

	_, err = Resolve("GET", New().WithBaseURL("https://a.io").WithTimeout(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestBodyEncoding(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "payload.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"from":"file"}`), 0o600))

	base := New().WithBaseURL("https://postman-echo.com/post")
	tests := []struct {
		name     string
		spec     Specification
		wantType string
		wantBody string
	}{
		{
			name:     "object defaults to json",
			spec:     base.WithBody(entities.WorkspaceRoot{Workspace: entities.Workspace{ID: "x", Name: "W", Type: "personal", Description: "d"}}),
			wantType: "application/json",
			wantBody: `{"workspace":{"name":"W","type":"personal","description":"d"}}`,
		},
		{
			name:     "object as xml",
			spec:     base.WithContentType("application/xml").WithBody(xmlWorkspace{Name: "W"}),
			wantType: "application/xml",
			wantBody: `<workspace><name>W</name></workspace>`,
		},
		{
			name:     "map as form",
			spec:     base.WithContentType("application/x-www-form-urlencoded; charset=utf-8").WithBody(map[string]any{"b": 2, "a": "x y"}),
			wantType: "application/x-www-form-urlencoded; charset=utf-8",
			wantBody: "a=x+y&b=2",
		},
		{
			name:     "raw string unchanged",
			spec:     base.WithContentType("application/json").WithBody(`{"a" : 1}`),
			wantType: "application/json",
			wantBody: `{"a" : 1}`,
		},
		{
			name:     "raw string defaults to text",
			spec:     base.WithBody("hello"),
			wantType: contentTypeText,
			wantBody: "hello",
		},
		{
			name:     "bytes",
			spec:     base.WithBody([]byte{1, 2, 3}),
			wantType: contentTypeOctet,
			wantBody: "\x01\x02\x03",
		},
		{
			name:     "form params in order",
			spec:     base.WithFormParam("key1", "value1").WithFormParam("key 2", "välue"),
			wantType: contentTypeForm,
			wantBody: "key1=value1&key+2=v%C3%A4lue",
		},
		{
			name:     "content type header counts as content type",
			spec:     base.WithHeader("Content-Type", "application/vnd.api+json").WithBody(map[string]int{"a": 1}),
			wantType: "application/vnd.api+json",
			wantBody: `{"a":1}`,
		},
		{
			name:     "body field on empty body",
			spec:     base.WithBodyField("workspace.name", "W").WithBodyField("workspace.type", "team"),
			wantType: "application/json",
			wantBody: `{"workspace":{"name":"W","type":"team"}}`,
		},
		{
			name:     "body field on object",
			spec:     base.WithBody(map[string]any{"a": 1}).WithBodyField("b", true),
			wantType: "application/json",
			wantBody: `{"a":1,"b":true}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr, err := Resolve("POST", tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, pr.ContentType)
			assert.Equal(t, tt.wantBody, string(pr.Body))
			assert.Equal(t, Header{"Content-Type", tt.wantType}, pr.Headers[len(pr.Headers)-1])
		})
	}

	t.Run("file streams at send time", func(t *testing.T) {
		pr, err := Resolve("POST", base.WithContentType("application/json").WithBody(FileBody(file)))
		require.NoError(t, err)
		assert.Nil(t, pr.Body)
		assert.Contains(t, pr.BodyDescription, file)

		req, err := pr.newRequest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(15), req.ContentLength)
		b, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, req.Body.Close())
		assert.Equal(t, `{"from":"file"}`, string(b))
	})

	t.Run("missing file fails at send time", func(t *testing.T) {
		pr, err := Resolve("POST", base.WithBody(FileBody(filepath.Join(dir, "missing"))))
		require.NoError(t, err)
		_, err = pr.newRequest(context.Background())
		assert.ErrorIs(t, err, ErrSerialization)
	})

	t.Run("multipart content type carries boundary", func(t *testing.T) {
		pr, err := Resolve("POST", base.WithMultiPart("foo", "bar"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(pr.ContentType, "multipart/form-data; boundary="))

		pr, err = Resolve("POST", base.WithContentType("multipart/mixed").WithMultiPart("foo", "bar"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(pr.ContentType, "multipart/mixed; boundary="))
		assert.Contains(t, pr.BodyDescription, `name="foo"`)
	})
}

func TestMerge(t *testing.T) {
	base := New().WithBaseURL("https://a.io").WithHeader("X-Api-Key", "k").WithTimeout(time.Second)
	call := New().WithPath("/workspaces").WithHeader("X-Trace", "1")
	merged := base.Merge(call)

	pr, err := Resolve("GET", merged)
	require.NoError(t, err)
	assert.Equal(t, "https://a.io/workspaces", pr.URL)
	assert.Equal(t, []Header{{"X-Api-Key", "k"}, {"X-Trace", "1"}}, pr.Headers)
	assert.Equal(t, time.Second, merged.timeout)
}

func TestParseLogDetail(t *testing.T) {
	for _, d := range []LogDetail{LogNone, LogAll, LogBody, LogHeaders, LogStatus, LogIfError, LogIfValidationFails} {
		got, err := ParseLogDetail(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	got, err := ParseLogDetail("If-Error")
	require.NoError(t, err)
	assert.Equal(t, LogIfError, got)

	_, err = ParseLogDetail("verbose")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
