package rest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/restspec/internal/echoserver"
	"github.com/tansive/restspec/pkg/entities"
	"github.com/tansive/restspec/pkg/matchers"
)

const testAPIKey = "PMAK-test"

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type testEnv struct {
	url    string
	base   Specification
	logBuf *bytes.Buffer
	dir    string
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), pngHeader, 0o600))

	srv, err := echoserver.New(echoserver.Options{APIKey: testAPIKey, DownloadDir: dir})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	buf := &bytes.Buffer{}
	return &testEnv{
		url:    ts.URL,
		base:   New().WithBaseURL(ts.URL).WithLogSink(NewWriterSink(buf)),
		logBuf: buf,
		dir:    dir,
	}
}

func TestExecuteEcho(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	t.Run("get with query and headers", func(t *testing.T) {
		rsp, err := Get(ctx, env.base.WithPath("/get").
			WithQueryParam("foo1", "bar1").
			WithQueryParam("foo1", "bar2").
			WithHeader("X-Multi", "a").
			WithHeader("X-Other", "b").
			WithHeader("X-Multi", "c"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rsp.StatusCode)
		assert.NotEmpty(t, rsp.RequestID)

		args, err := rsp.Path("args.foo1")
		require.NoError(t, err)
		assert.Equal(t, []any{"bar1", "bar2"}, args)

		multi, err := rsp.PathString("headers.x-multi")
		require.NoError(t, err)
		assert.Equal(t, "a, c", multi)
	})

	t.Run("post object", func(t *testing.T) {
		ws := entities.WorkspaceRoot{Workspace: entities.Workspace{ID: "ignored", Name: "W", Type: "personal", Description: "d"}}
		rsp, err := Post(ctx, env.base.WithPath("/post").WithBody(ws))
		require.NoError(t, err)

		var echoed struct {
			JSON entities.WorkspaceRoot `json:"json"`
		}
		require.NoError(t, rsp.As(&echoed))
		assert.Equal(t, "W", echoed.JSON.Workspace.Name)
		assert.Empty(t, echoed.JSON.Workspace.ID)

		var got entities.Workspace
		require.NoError(t, rsp.ExtractAs("json.workspace", &got))
		assert.Equal(t, "personal", got.Type)

		_, err = rsp.Path("json.workspace.id")
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("put and patch and delete", func(t *testing.T) {
		for method, path := range map[string]string{"PUT": "/put", "PATCH": "/patch", "DELETE": "/delete"} {
			rsp, err := Execute(ctx, method, env.base.WithPath(path).WithContentType("application/json").WithBody(`{"m":"`+method+`"}`))
			require.NoError(t, err, method)
			m, err := rsp.PathString("json.m")
			require.NoError(t, err)
			assert.Equal(t, method, m)
		}
	})

	t.Run("form", func(t *testing.T) {
		rsp, err := Post(ctx, env.base.WithPath("/post").WithFormParam("key1", "value1").WithFormParam("key 2", "value 2"))
		require.NoError(t, err)
		v, err := rsp.Path("form")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"key1": "value1", "key 2": "value 2"}, v)
	})

	t.Run("multipart", func(t *testing.T) {
		file := filepath.Join(env.dir, "temp.txt")
		require.NoError(t, os.WriteFile(file, []byte("temp"), 0o600))
		rsp, err := Post(ctx, env.base.WithPath("/post").
			WithFormParam("foo1", "bar1").
			WithMultiPartWithType("json", `{"a":1}`, "application/json").
			WithMultiPartFile("file", file))
		require.NoError(t, err)

		require.NoError(t, matchers.AssertMatches(mustPath(t, rsp, "form.foo1"), matchers.EqualTo("bar1")))
		require.NoError(t, matchers.AssertMatches(mustPath(t, rsp, "form.json"), matchers.EqualToJSON(`{"a": 1}`)))
		files := mustPath(t, rsp, "files")
		assert.Equal(t, map[string]any{"temp.txt": "data:application/octet-stream;base64,dGVtcA=="}, files)
	})

	t.Run("multipart file type detection", func(t *testing.T) {
		rsp, err := Post(ctx, env.base.WithPath("/post").WithMultiPartFile("image", filepath.Join(env.dir, "image.png")))
		require.NoError(t, err)
		v, err := rsp.PathString("files.'image.png'")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(v, "data:image/png;base64,"), v)
	})

	t.Run("file body", func(t *testing.T) {
		file := filepath.Join(env.dir, "payload.json")
		require.NoError(t, os.WriteFile(file, []byte(`{"workspace":{"name":"fromFile"}}`), 0o600))
		f, err := os.Open(file)
		require.NoError(t, err)
		defer f.Close()

		rsp, err := Post(ctx, env.base.WithPath("/post").WithContentType("application/json").WithBody(f))
		require.NoError(t, err)
		name, err := rsp.PathString("json.workspace.name")
		require.NoError(t, err)
		assert.Equal(t, "fromFile", name)
	})
}

func mustPath(t *testing.T, rsp *Response, expr string) any {
	t.Helper()
	v, err := rsp.Path(expr)
	require.NoError(t, err)
	return v
}

func TestExecuteWorkspaceAPI(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	api := env.base.WithHeader(echoserver.APIKeyHeader, testAPIKey).WithContentType("application/json")

	rsp, err := Post(ctx, api.WithPath("/workspaces").WithBody(entities.WorkspaceRoot{
		Workspace: entities.Workspace{Name: "myFirstWorkspace", Type: "personal", Description: "created"},
	}))
	require.NoError(t, err)
	id, err := rsp.PathString("workspace.id")
	require.NoError(t, err)

	rsp, err = Get(ctx, api.WithPath("/workspaces/{workspaceId}").WithPathParam("workspaceId", id))
	require.NoError(t, err)
	err = rsp.Validate(NewResponseSpec().
		ExpectStatusCode(http.StatusOK).
		ExpectContentType("application/json").
		ExpectHeader("X-Request-ID", matchers.NotEmpty()).
		ExpectBody("workspace.name", matchers.EqualTo("myFirstWorkspace")).
		ExpectBody("workspace.id", matchers.MatchesPattern(`[0-9a-f-]{36}`)))
	assert.NoError(t, err)

	rsp, err = Get(ctx, api.WithPath("/workspaces"))
	require.NoError(t, err)
	names, err := rsp.Path("workspaces.name")
	require.NoError(t, err)
	assert.NoError(t, matchers.AssertMatches(names, matchers.ContainsInAnyOrder("myFirstWorkspace", "My Workspace")))

	rsp, err = Get(ctx, api.WithPath("/workspaces").WithHeader("Accept", "application/xml"))
	require.NoError(t, err)
	xmlNames, err := rsp.Path("workspaces.workspace.name")
	require.NoError(t, err)
	assert.NoError(t, matchers.AssertMatches(xmlNames, matchers.ContainsInAnyOrder("myFirstWorkspace", "My Workspace")))

	rsp, err = Get(ctx, env.base.WithPath("/workspaces"))
	require.NoError(t, err, "error statuses are not errors")
	assert.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
}

func TestValidateCollectsAllFailures(t *testing.T) {
	env := setupTest(t)
	rsp, err := Get(context.Background(), env.base.WithPath("/users/1"))
	require.NoError(t, err)

	err = rsp.Validate(NewResponseSpec().
		ExpectStatusCode(http.StatusCreated).
		ExpectBody("username", matchers.EqualTo("Bret")).
		ExpectBody("name", matchers.EqualTo("Someone Else")).
		ExpectBody("missing.field", matchers.NotEmpty()).
		ExpectContentType("application/xml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionFailure)

	failures := matchers.Failures(err)
	require.Len(t, failures, 4)
	assert.Equal(t, "status code", failures[0].Label)
	assert.Equal(t, "content type", failures[1].Label)
	assert.Equal(t, "body name", failures[2].Label)
	assert.Equal(t, "body missing.field", failures[3].Label)
}

func TestSchemaValidation(t *testing.T) {
	env := setupTest(t)
	schema := filepath.Join(env.dir, "user.json")
	require.NoError(t, os.WriteFile(schema, []byte(`{
		"type": "object",
		"required": ["id", "name", "email", "address"],
		"properties": {"id": {"type": "integer"}, "address": {"type": "object", "required": ["geo"]}}
	}`), 0o600))

	rsp, err := Get(context.Background(), env.base.WithPath("/users/2"))
	require.NoError(t, err)
	assert.NoError(t, rsp.ValidateSchema(schema))
	assert.NoError(t, rsp.Validate(NewResponseSpec().ExpectSchema(schema)))

	rsp, err = Get(context.Background(), env.base.WithPath("/status/404"))
	require.NoError(t, err)
	assert.ErrorIs(t, rsp.ValidateSchema(schema), ErrSchemaValidation)
	assert.ErrorIs(t, rsp.Validate(NewResponseSpec().ExpectSchema(schema)), ErrAssertionFailure)
}

func TestLogging(t *testing.T) {
	t.Run("all dumps request before response", func(t *testing.T) {
		env := setupTest(t)
		_, err := Post(context.Background(), env.base.WithPath("/post").WithLogDetail(LogAll).WithBody(map[string]string{"k": "v"}))
		require.NoError(t, err)
		out := env.logBuf.String()
		reqAt := strings.Index(out, "Request method:\tPOST")
		rspAt := strings.Index(out, "200 OK")
		require.GreaterOrEqual(t, reqAt, 0, out)
		require.Greater(t, rspAt, reqAt, out)
		assert.Contains(t, out, "Content-Type=application/json")
		assert.Contains(t, out, `"k": "v"`)
	})

	t.Run("filters log request body and response status", func(t *testing.T) {
		env := setupTest(t)
		_, err := Post(context.Background(), env.base.WithPath("/post").
			WithRequestLogDetail(LogBody).
			WithResponseLogDetail(LogStatus).
			WithBody("plain"))
		require.NoError(t, err)
		out := env.logBuf.String()
		assert.Contains(t, out, "Body:\nplain")
		assert.Contains(t, out, "HTTP/1.1 200 OK")
		assert.NotContains(t, out, "Request URI")
	})

	t.Run("if error skips success", func(t *testing.T) {
		env := setupTest(t)
		_, err := Get(context.Background(), env.base.WithPath("/status/200").WithLogDetail(LogIfError))
		require.NoError(t, err)
		assert.Empty(t, env.logBuf.String())

		_, err = Get(context.Background(), env.base.WithPath("/status/500").WithLogDetail(LogIfError))
		require.NoError(t, err)
		out := env.logBuf.String()
		assert.Contains(t, out, "Request URI:")
		assert.Contains(t, out, "500 Internal Server Error")
	})

	t.Run("request if error with immediate response detail", func(t *testing.T) {
		env := setupTest(t)
		_, err := Get(context.Background(), env.base.WithPath("/status/500").
			WithRequestLogDetail(LogIfError).
			WithResponseLogDetail(LogAll))
		require.NoError(t, err)
		out := env.logBuf.String()
		reqAt := strings.Index(out, "Request URI:")
		rspAt := strings.Index(out, "500 Internal Server Error")
		require.GreaterOrEqual(t, reqAt, 0, out)
		require.Greater(t, rspAt, reqAt, out)
		assert.Equal(t, 1, strings.Count(out, "500 Internal Server Error"), out)
	})

	t.Run("if validation fails dumps before returning the failure", func(t *testing.T) {
		env := setupTest(t)
		rsp, err := Get(context.Background(), env.base.WithPath("/users/1").WithLogDetail(LogIfValidationFails))
		require.NoError(t, err)
		assert.Empty(t, env.logBuf.String())

		require.NoError(t, rsp.Validate(NewResponseSpec().ExpectStatusCode(200)))
		assert.Empty(t, env.logBuf.String())

		err = rsp.Validate(NewResponseSpec().ExpectStatusCode(201))
		require.Error(t, err)
		assert.Contains(t, env.logBuf.String(), "Leanne Graham")
	})

	t.Run("file sink", func(t *testing.T) {
		env := setupTest(t)
		path := filepath.Join(t.TempDir(), "rest.log")
		sink, err := NewFileSink(path)
		require.NoError(t, err)
		_, err = Get(context.Background(), env.base.WithPath("/get").WithLogSink(sink).WithLogDetail(LogHeaders))
		require.NoError(t, err)
		require.NoError(t, sink.Close())

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(b), "X-Request-Id: ")
	})

	t.Run("unwritable file sink fails at build time", func(t *testing.T) {
		_, err := NewFileSink(filepath.Join(t.TempDir(), "missing", "rest.log"))
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestNetworkErrors(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := Get(context.Background(), New().WithBaseURL(url).WithPath("/get"))
	assert.ErrorIs(t, err, ErrNetwork)

	env := setupTest(t)
	start := time.Now()
	_, err = Get(context.Background(), env.base.WithPath("/delay/2").WithTimeout(50*time.Millisecond))
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Less(t, time.Since(start), 2*time.Second)

	client := NewClient(ClientOptions{Timeout: 50 * time.Millisecond})
	_, err = client.Execute(context.Background(), http.MethodGet, env.base.WithPath("/delay/2"))
	assert.ErrorIs(t, err, ErrNetwork)

	t.Run("specification timeout overrides a shorter client default", func(t *testing.T) {
		client := NewClient(ClientOptions{Timeout: 100 * time.Millisecond})
		rsp, err := client.Execute(context.Background(), http.MethodGet,
			env.base.WithPath("/delay/0.3").WithTimeout(2*time.Second))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rsp.StatusCode)
	})
}

func TestMissingFilesAreSerializationErrors(t *testing.T) {
	env := setupTest(t)
	missing := filepath.Join(t.TempDir(), "missing.png")

	tests := []struct {
		name string
		spec Specification
	}{
		{"file body", env.base.WithPath("/post").WithBody(FileBody(missing))},
		{"multipart file", env.base.WithPath("/post").WithMultiPartFile("f", missing)},
		{"multipart file after a present one", env.base.WithPath("/post").
			WithMultiPartFile("ok", filepath.Join(env.dir, "image.png")).
			WithMultiPartFile("f", missing)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Post(context.Background(), tt.spec)
			assert.ErrorIs(t, err, ErrSerialization)
			assert.NotErrorIs(t, err, ErrNetwork)
		})
	}
}

func TestExtractLargeIntegers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 9007199254740993, "ratio": 2.50, "items": [{"n": 1}]}`))
	}))
	t.Cleanup(ts.Close)

	rsp, err := Get(context.Background(), New().WithBaseURL(ts.URL))
	require.NoError(t, err)

	id, err := rsp.PathString("id")
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", id)
	assert.Equal(t, int64(9007199254740993), mustPath(t, rsp, "id"))

	ratio, err := rsp.PathString("ratio")
	require.NoError(t, err)
	assert.Equal(t, "2.5", ratio)

	var out struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, rsp.ExtractAs("", &out))
	assert.Equal(t, int64(9007199254740993), out.ID)

	require.NoError(t, rsp.Validate(NewResponseSpec().
		ExpectBody("id", matchers.EqualTo(int64(9007199254740993))).
		ExpectBody("items.n", matchers.Contains(1))))
}

func TestDownload(t *testing.T) {
	env := setupTest(t)
	rsp, err := Get(context.Background(), env.base.WithPath("/download/{name}").WithPathParam("name", "image.png"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", rsp.FileType())
	assert.Equal(t, "image/png", rsp.ContentType)

	out := filepath.Join(t.TempDir(), "downloaded.png")
	require.NoError(t, rsp.SaveTo(out))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, b)

	assert.ErrorIs(t, rsp.SaveTo(filepath.Join(t.TempDir(), "no", "such", "dir")), ErrSerialization)
	_, err = rsp.Path("anything")
	assert.ErrorIs(t, err, ErrInvalidDocument)
}
