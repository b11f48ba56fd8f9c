// Package rest builds and executes declarative HTTP request specifications.
//
// A Specification is an immutable value: every With method returns an updated copy, so a
// base specification can be shared across tests and goroutines and refined per call.
//
//	base := rest.New().
//		WithBaseURL("https://api.example.com").
//		WithHeader("X-Api-Key", key).
//		WithContentType("application/json")
//
//	rsp, err := rest.Get(ctx, base.WithPath("/workspaces/{id}").WithPathParam("id", id))
//	if err != nil {
//		return err
//	}
//	name, err := rsp.PathString("workspace.name")
//
// Builder methods never perform I/O. Invalid input is recorded in a sticky error that
// Execute returns before sending anything; the first error wins.
package rest

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/sjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Header is a single request header. Specifications keep headers in insertion order and
// never collapse repeated keys.
type Header struct {
	Key   string
	Value string
}

// Param is an ordered key/value pair used for query, path and form parameters.
type Param struct {
	Key   string
	Value string
}

// Specification describes an HTTP request.
type Specification struct {
	baseURL     string
	basePath    string
	path        string
	headers     []Header
	query       []Param
	pathParams  []Param
	form        []Param
	parts       []Part
	contentType string
	body        Body
	reqLog      LogDetail
	rspLog      LogDetail
	sink        *Sink
	timeout     time.Duration
	err         error
}

// New returns an empty specification.
func New() Specification {
	return Specification{}
}

// Err returns the first configuration error recorded by a builder method.
func (s Specification) Err() error {
	return s.err
}

func (s Specification) fail(err error) Specification {
	if s.err == nil {
		s.err = err
	}
	return s
}

func (s Specification) WithBaseURL(u string) Specification {
	s.baseURL = u
	return s
}

// WithBasePath sets a path prefix appended to the base URL. It may contain {name}
// placeholders.
func (s Specification) WithBasePath(p string) Specification {
	s.basePath = p
	return s
}

// WithPath sets the per-call path appended after the base path. It may contain {name}
// placeholders.
func (s Specification) WithPath(p string) Specification {
	s.path = p
	return s
}

// WithHeader appends a header. Existing headers with the same key are kept.
func (s Specification) WithHeader(key, value string) Specification {
	if key == "" {
		return s.fail(ErrInvalidConfiguration.Msg("header key must not be empty"))
	}
	s.headers = append(slices.Clone(s.headers), Header{Key: key, Value: value})
	return s
}

// WithHeaders appends every header in h in sorted key order.
func (s Specification) WithHeaders(h map[string]string) Specification {
	for _, k := range sortedKeys(h) {
		s = s.WithHeader(k, h[k])
	}
	return s
}

// WithContentType sets the request media type. It overrides any Content-Type header and
// selects the serializer for object bodies.
func (s Specification) WithContentType(ct string) Specification {
	s.contentType = ct
	return s
}

// WithBody sets the request body. Strings and byte slices are sent unchanged, a Body is
// used as is, an *os.File is streamed from its path, and anything else is serialized
// according to the content type.
func (s Specification) WithBody(v any) Specification {
	switch t := v.(type) {
	case nil:
		return s.fail(ErrInvalidConfiguration.Msg("body must not be nil"))
	case string:
		s.body = RawBody(t)
	case []byte:
		s.body = BytesBody(t)
	case Body:
		s.body = t
	case *os.File:
		s.body = FileBody(t.Name())
	default:
		s.body = ObjectBody(t)
	}
	return s
}

// WithBodyField sets the field at path inside a JSON body, creating the body when none
// is set. Paths use sjson syntax, for example "workspace.name" or "items.-1".
func (s Specification) WithBodyField(path string, value any) Specification {
	var raw []byte
	switch s.body.kind {
	case BodyNone:
		raw = []byte("{}")
	case BodyRaw:
		raw = []byte(s.body.raw)
	case BodyBytes:
		raw = s.body.data
	case BodyObject:
		b, err := json.Marshal(s.body.object)
		if err != nil {
			return s.fail(ErrInvalidConfiguration.MsgErr("unable to encode body", err))
		}
		raw = b
	default:
		return s.fail(ErrInvalidConfiguration.Msgf("cannot set a field on a %s body", s.body.kind))
	}
	out, err := sjson.SetBytes(raw, path, value)
	if err != nil {
		return s.fail(ErrInvalidConfiguration.MsgErr(fmt.Sprintf("unable to set body field %q", path), err))
	}
	s.body = RawBody(string(out))
	if s.contentType == "" {
		s.contentType = contentTypeJSON
	}
	return s
}

// WithQueryParam appends a query parameter. Repeated keys are sent in order.
func (s Specification) WithQueryParam(key string, value any) Specification {
	if key == "" {
		return s.fail(ErrInvalidConfiguration.Msg("query parameter name must not be empty"))
	}
	s.query = append(slices.Clone(s.query), Param{Key: key, Value: toString(value)})
	return s
}

// WithQueryParams appends every parameter in q in sorted key order.
func (s Specification) WithQueryParams(q map[string]string) Specification {
	for _, k := range sortedKeys(q) {
		s = s.WithQueryParam(k, q[k])
	}
	return s
}

// WithPathParam sets the value substituted for {key}. A later value for the same key
// replaces an earlier one.
func (s Specification) WithPathParam(key string, value any) Specification {
	if key == "" {
		return s.fail(ErrInvalidConfiguration.Msg("path parameter name must not be empty"))
	}
	s.pathParams = append(slices.Clone(s.pathParams), Param{Key: key, Value: toString(value)})
	return s
}

// WithPathParams sets every parameter in p.
func (s Specification) WithPathParams(p map[string]string) Specification {
	for _, k := range sortedKeys(p) {
		s = s.WithPathParam(k, p[k])
	}
	return s
}

// WithFormParam appends a form field. Without multipart parts the fields are sent
// form-urlencoded, otherwise as multipart fields.
func (s Specification) WithFormParam(key string, value any) Specification {
	if key == "" {
		return s.fail(ErrInvalidConfiguration.Msg("form parameter name must not be empty"))
	}
	s.form = append(slices.Clone(s.form), Param{Key: key, Value: toString(value)})
	return s
}

// WithMultiPart appends a text part.
func (s Specification) WithMultiPart(name, value string) Specification {
	return s.withPart(Part{Name: name, Value: value})
}

// WithMultiPartWithType appends a text part with its own content type.
func (s Specification) WithMultiPartWithType(name, value, contentType string) Specification {
	return s.withPart(Part{Name: name, Value: value, ContentType: contentType})
}

// WithMultiPartFile appends a file part. The file is opened when the request is sent and
// its content type is detected from its contents.
func (s Specification) WithMultiPartFile(name, path string) Specification {
	if path == "" {
		return s.fail(ErrInvalidConfiguration.Msgf("multipart file %q has no path", name))
	}
	return s.withPart(Part{Name: name, FilePath: path})
}

func (s Specification) withPart(p Part) Specification {
	if p.Name == "" {
		return s.fail(ErrInvalidConfiguration.Msg("multipart name must not be empty"))
	}
	s.parts = append(slices.Clone(s.parts), p)
	return s
}

// WithLogDetail sets what is logged for both the request and the response.
func (s Specification) WithLogDetail(d LogDetail) Specification {
	s.reqLog, s.rspLog = d, d
	return s
}

// WithRequestLogDetail sets what is logged for the request only.
func (s Specification) WithRequestLogDetail(d LogDetail) Specification {
	s.reqLog = d
	return s
}

// WithResponseLogDetail sets what is logged for the response only.
func (s Specification) WithResponseLogDetail(d LogDetail) Specification {
	s.rspLog = d
	return s
}

// WithLogSink sets where dumps are written. The console is used when no sink is set.
func (s Specification) WithLogSink(sink *Sink) Specification {
	if sink == nil {
		return s.fail(ErrInvalidConfiguration.Msg("log sink must not be nil"))
	}
	s.sink = sink
	return s
}

// WithTimeout bounds the whole exchange, including reading the response body. Zero
// leaves the client default in place.
func (s Specification) WithTimeout(d time.Duration) Specification {
	if d < 0 {
		return s.fail(ErrInvalidConfiguration.Msgf("negative timeout %s", d))
	}
	s.timeout = d
	return s
}

// Merge returns s refined by o: scalar settings set in o replace those of s and ordered
// lists are concatenated.
func (s Specification) Merge(o Specification) Specification {
	if o.baseURL != "" {
		s.baseURL = o.baseURL
	}
	if o.basePath != "" {
		s.basePath = o.basePath
	}
	if o.path != "" {
		s.path = o.path
	}
	s.headers = append(slices.Clone(s.headers), o.headers...)
	s.query = append(slices.Clone(s.query), o.query...)
	s.pathParams = append(slices.Clone(s.pathParams), o.pathParams...)
	s.form = append(slices.Clone(s.form), o.form...)
	s.parts = append(slices.Clone(s.parts), o.parts...)
	if o.contentType != "" {
		s.contentType = o.contentType
	}
	if o.body.kind != BodyNone {
		s.body = o.body
	}
	if o.reqLog != LogNone {
		s.reqLog = o.reqLog
	}
	if o.rspLog != LogNone {
		s.rspLog = o.rspLog
	}
	if o.sink != nil {
		s.sink = o.sink
	}
	if o.timeout != 0 {
		s.timeout = o.timeout
	}
	if s.err == nil {
		s.err = o.err
	}
	return s
}

// Headers returns a copy of the configured headers in order.
func (s Specification) Headers() []Header {
	return slices.Clone(s.headers)
}

func (s Specification) pathParam(key string) (string, bool) {
	for i := len(s.pathParams) - 1; i >= 0; i-- {
		if s.pathParams[i].Key == key {
			return s.pathParams[i].Value, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case fmt.Stringer:
		return t.String()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
