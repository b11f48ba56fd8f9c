package rest

import (
	"bytes"
	"encoding/xml"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/h2non/filetype"
)

// BodyKind identifies what a Body holds.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyRaw
	BodyObject
	BodyFile
	BodyBytes
)

func (k BodyKind) String() string {
	switch k {
	case BodyRaw:
		return "raw"
	case BodyObject:
		return "object"
	case BodyFile:
		return "file"
	case BodyBytes:
		return "bytes"
	default:
		return "none"
	}
}

// Body is a request body. Objects are serialized according to the content type when the
// request is executed; files are opened and streamed at that point.
type Body struct {
	kind   BodyKind
	raw    string
	data   []byte
	object any
	path   string
}

// RawBody is sent unchanged.
func RawBody(s string) Body {
	return Body{kind: BodyRaw, raw: s}
}

// BytesBody is sent unchanged.
func BytesBody(b []byte) Body {
	return Body{kind: BodyBytes, data: bytes.Clone(b)}
}

// ObjectBody is serialized according to the request content type.
func ObjectBody(v any) Body {
	return Body{kind: BodyObject, object: v}
}

// FileBody streams the file at path.
func FileBody(path string) Body {
	return Body{kind: BodyFile, path: path}
}

func (b Body) Kind() BodyKind {
	return b.kind
}

// Part is one part of a multipart/form-data body. A part holds either a value or a file.
type Part struct {
	Name        string
	Value       string
	FilePath    string
	ContentType string
}

func (p Part) isFile() bool {
	return p.FilePath != ""
}

const (
	contentTypeJSON      = "application/json"
	contentTypeForm      = "application/x-www-form-urlencoded"
	contentTypeMultipart = "multipart/form-data"
	contentTypeText      = "text/plain; charset=utf-8"
	contentTypeOctet     = "application/octet-stream"
)

func isJSONType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "json")
}

func isXMLType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "xml")
}

func isFormType(ct string) bool {
	return strings.HasPrefix(strings.ToLower(ct), contentTypeForm)
}

// encodeObject serializes a structured body for the given content type.
func encodeObject(v any, ct string) ([]byte, error) {
	switch {
	case ct == "" || isJSONType(ct):
		b, err := json.Marshal(v)
		if err != nil {
			return nil, ErrSerialization.MsgErr("unable to encode body as JSON", err)
		}
		return b, nil
	case isXMLType(ct):
		b, err := xml.Marshal(v)
		if err != nil {
			return nil, ErrSerialization.MsgErr("unable to encode body as XML", err)
		}
		return b, nil
	case isFormType(ct):
		pairs, ok := mapPairs(v)
		if !ok {
			return nil, ErrSerialization.Msgf("form encoding requires a map, got %T", v)
		}
		return []byte(encodeForm(pairs)), nil
	}
	return nil, ErrSerialization.Msgf("no encoder for content type %q", ct)
}

// mapPairs converts a string-keyed map to pairs sorted by key.
func mapPairs(v any) ([]Param, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	pairs := make([]Param, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, Param{Key: iter.Key().String(), Value: toString(iter.Value().Interface())})
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, true
}

// encodeForm writes pairs as key=value&key2=value2 in order, UTF-8 and form escaped.
func encodeForm(pairs []Param) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// detectContentType guesses a file's media type from its first bytes.
func detectContentType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return contentTypeOctet
	}
	defer f.Close()
	head := make([]byte, 261)
	n, _ := io.ReadFull(f, head)
	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return contentTypeOctet
	}
	return kind.MIME.Value
}

// writeMultipart writes form fields and parts to w using boundary. Files are opened one
// at a time and closed before the next part is written.
func writeMultipart(w io.Writer, boundary string, form []Param, parts []Part) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(boundary); err != nil {
		return err
	}
	for _, p := range form {
		if err := mw.WriteField(p.Key, p.Value); err != nil {
			return err
		}
	}
	for _, p := range parts {
		if err := writePart(mw, p); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writePart(mw *multipart.Writer, p Part) error {
	h := make(textproto.MIMEHeader)
	if !p.isFile() {
		h.Set("Content-Disposition", `form-data; name="`+escapeQuotes(p.Name)+`"`)
		if p.ContentType != "" {
			h.Set("Content-Type", p.ContentType)
		}
		pw, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		_, err = io.WriteString(pw, p.Value)
		return err
	}

	ct := p.ContentType
	if ct == "" {
		ct = detectContentType(p.FilePath)
	}
	h.Set("Content-Disposition",
		`form-data; name="`+escapeQuotes(p.Name)+`"; filename="`+escapeQuotes(filepath.Base(p.FilePath))+`"`)
	h.Set("Content-Type", ct)
	f, err := os.Open(p.FilePath)
	if err != nil {
		return err
	}
	defer f.Close()
	pw, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(pw, f)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
