package rest

import (
	"bytes"
	stdjson "encoding/json"
	"encoding/xml"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/pretty"

	"github.com/tansive/restspec/pkg/jsonpath"
	"github.com/tansive/restspec/pkg/matchers"
)

// Response is a read-only snapshot of an HTTP response. The body is parsed into a
// structured tree on the first Path call.
type Response struct {
	StatusCode  int
	Status      string // e.g. "200 OK"
	Proto       string // e.g. "HTTP/1.1"
	Header      http.Header
	ContentType string
	Duration    time.Duration
	RequestID   string
	Request     *PreparedRequest

	body   []byte
	sink   *Sink
	reqLog LogDetail
	rspLog LogDetail

	docOnce sync.Once
	doc     *jsonpath.Document
	docErr  error
}

// Body returns a copy of the response body.
func (r *Response) Body() []byte {
	return bytes.Clone(r.body)
}

func (r *Response) String() string {
	return string(r.body)
}

// PrettyString returns the body indented when it is JSON, and unchanged otherwise.
func (r *Response) PrettyString() string {
	if len(r.body) == 0 {
		return ""
	}
	if _, err := r.document(); err == nil && !isXMLType(r.ContentType) {
		return string(pretty.Pretty(r.body))
	}
	return string(r.body)
}

// HeaderKeys returns the canonical header names in sorted order.
func (r *Response) HeaderKeys() []string {
	return sortedHeaderKeys(r.Header)
}

// HeaderValues returns all values of header key.
func (r *Response) HeaderValues(key string) []string {
	return r.Header.Values(key)
}

// HeaderValue returns the first value of header key.
func (r *Response) HeaderValue(key string) string {
	return r.Header.Get(key)
}

func (r *Response) document() (*jsonpath.Document, error) {
	r.docOnce.Do(func() {
		r.doc, r.docErr = jsonpath.Parse(r.body, r.ContentType)
	})
	return r.doc, r.docErr
}

// Path extracts a value from the body, see jsonpath.Compile for the expression syntax.
func (r *Response) Path(expr string) (any, error) {
	doc, err := r.document()
	if err != nil {
		return nil, err
	}
	return doc.Get(expr)
}

// PathString extracts a value and formats scalars as text. Whole numbers have no
// fractional part.
func (r *Response) PathString(expr string) (string, error) {
	v, err := r.Path(expr)
	if err != nil {
		return "", err
	}
	return formatScalar(v)
}

// ExtractAs decodes the value at expr into out using the json field tags of out.
func (r *Response) ExtractAs(expr string, out any) error {
	v, err := r.Path(expr)
	if err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return ErrSerialization.MsgErr("invalid extraction target", err)
	}
	if err := dec.Decode(v); err != nil {
		return ErrSerialization.MsgErr("unable to decode "+expr, err)
	}
	return nil
}

// As decodes the whole body into out, as XML for XML content types and JSON otherwise.
func (r *Response) As(out any) error {
	if isXMLType(r.ContentType) {
		if err := xml.Unmarshal(r.body, out); err != nil {
			return ErrSerialization.MsgErr("unable to decode XML body", err)
		}
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return ErrSerialization.MsgErr("unable to decode JSON body", err)
	}
	return nil
}

// SaveTo writes the body to path, replacing any existing file.
func (r *Response) SaveTo(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return ErrSerialization.MsgErr("unable to create "+path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ErrSerialization.MsgErr("unable to close "+path, cerr)
		}
	}()
	if _, err := f.Write(r.body); err != nil {
		return ErrSerialization.MsgErr("unable to write "+path, err)
	}
	return nil
}

// FileType detects the media type of the body from its contents. It returns an empty
// string when the type is unknown.
func (r *Response) FileType() string {
	kind, err := filetype.Match(r.body)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// ValidateSchema checks the body against the JSON schema in the file at path.
func (r *Response) ValidateSchema(path string) error {
	if err := matchers.ValidateJSONSchema(r.body, path); err != nil {
		r.dumpOnValidationFailure(LogNone)
		return err
	}
	return nil
}

func (r *Response) dumpOnValidationFailure(extra LogDetail) {
	if r.sink == nil {
		return
	}
	if r.reqLog != LogIfValidationFails && r.rspLog != LogIfValidationFails && extra != LogIfValidationFails {
		return
	}
	// immediate details were already dumped by Execute
	if !r.reqLog.immediate() {
		r.sink.dumpRequest(r.Request, LogIfValidationFails)
	}
	if !r.rspLog.immediate() {
		r.sink.dumpResponse(r, LogIfValidationFails)
	}
}

func formatScalar(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case stdjson.Number:
		return t.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", ErrSerialization.MsgErr("unable to format value", err)
	}
	return string(b), nil
}
