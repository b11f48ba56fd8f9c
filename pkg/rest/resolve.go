package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// PreparedRequest is a Specification resolved for one method: final URL, ordered headers
// and encoded body. File and multipart bodies are described rather than read; they are
// streamed when the request is sent.
type PreparedRequest struct {
	Method          string
	URL             string
	Headers         []Header
	ContentType     string
	Body            []byte
	BodyDescription string

	open func() (io.ReadCloser, int64, error)
}

var placeholder = regexp.MustCompile(`\{([^{}/]+)\}`)

// Resolve applies path parameters, query parameters, headers and body encoding without
// sending anything.
func Resolve(method string, spec Specification) (*PreparedRequest, error) {
	if spec.err != nil {
		return nil, spec.err
	}
	if method == "" {
		return nil, ErrInvalidConfiguration.Msg("method must not be empty")
	}
	u, err := spec.resolveURL()
	if err != nil {
		return nil, err
	}

	pr := &PreparedRequest{Method: strings.ToUpper(method), URL: u}
	ct := spec.contentType
	for _, h := range spec.headers {
		if strings.EqualFold(h.Key, "Content-Type") {
			if ct == "" {
				ct = h.Value
			}
			continue
		}
		pr.Headers = append(pr.Headers, h)
	}

	ct, err = spec.prepareBody(pr, ct)
	if err != nil {
		return nil, err
	}
	if ct != "" {
		pr.ContentType = ct
		pr.Headers = append(pr.Headers, Header{Key: "Content-Type", Value: ct})
	}
	return pr, nil
}

func (s Specification) resolveURL() (string, error) {
	full := s.baseURL
	for _, p := range []string{s.basePath, s.path} {
		if p == "" {
			continue
		}
		resolved, err := s.substitute(p)
		if err != nil {
			return "", err
		}
		full = joinURLPath(full, resolved)
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", ErrInvalidConfiguration.MsgErr(fmt.Sprintf("invalid URL %q", full), err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidConfiguration.Msgf("URL %q must be absolute", full)
	}
	if len(s.query) > 0 {
		q := encodeQuery(s.query)
		if u.RawQuery != "" {
			u.RawQuery += "&" + q
		} else {
			u.RawQuery = q
		}
	}
	return u.String(), nil
}

// substitute replaces every {name} in p with its path-escaped value.
func (s Specification) substitute(p string) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(p, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := s.pathParam(name)
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return url.PathEscape(v)
	})
	if missing != "" {
		return "", ErrUnresolvedPathParameter.Msgf("no value for path parameter %q in %q", missing, p)
	}
	return out, nil
}

func joinURLPath(base, p string) string {
	if base == "" {
		return p
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

func encodeQuery(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// prepareBody encodes the body into pr and returns the effective content type.
func (s Specification) prepareBody(pr *PreparedRequest, ct string) (string, error) {
	switch {
	case len(s.parts) > 0:
		if s.body.kind != BodyNone {
			return "", ErrInvalidConfiguration.Msg("a request cannot have both a body and multipart parts")
		}
		boundary := strings.ReplaceAll(uuid.NewString(), "-", "")
		if !strings.HasPrefix(strings.ToLower(ct), "multipart/") {
			ct = contentTypeMultipart
		}
		if !strings.Contains(ct, "boundary=") {
			ct += "; boundary=" + boundary
		} else {
			boundary = ct[strings.Index(ct, "boundary=")+len("boundary="):]
		}
		form, parts := s.form, s.parts
		pr.BodyDescription = describeParts(form, parts)
		pr.open = func() (io.ReadCloser, int64, error) {
			for _, p := range parts {
				if !p.isFile() {
					continue
				}
				f, err := os.Open(p.FilePath)
				if err != nil {
					return nil, 0, ErrSerialization.MsgErr("unable to open multipart file "+p.FilePath, err)
				}
				f.Close()
			}
			r, w := io.Pipe()
			go func() {
				w.CloseWithError(writeMultipart(w, boundary, form, parts))
			}()
			return r, -1, nil
		}
		return ct, nil

	case len(s.form) > 0:
		if s.body.kind != BodyNone {
			return "", ErrInvalidConfiguration.Msg("a request cannot have both a body and form parameters")
		}
		if ct == "" {
			ct = contentTypeForm
		}
		pr.Body = []byte(encodeForm(s.form))

	case s.body.kind == BodyRaw:
		if ct == "" {
			ct = contentTypeText
		}
		pr.Body = []byte(s.body.raw)

	case s.body.kind == BodyBytes:
		if ct == "" {
			ct = contentTypeOctet
		}
		pr.Body = s.body.data

	case s.body.kind == BodyObject:
		b, err := encodeObject(s.body.object, ct)
		if err != nil {
			return "", err
		}
		if ct == "" {
			ct = contentTypeJSON
		}
		pr.Body = b

	case s.body.kind == BodyFile:
		path := s.body.path
		if ct == "" {
			ct = detectContentType(path)
		}
		pr.BodyDescription = "<file " + path + ">"
		pr.open = func() (io.ReadCloser, int64, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, 0, ErrSerialization.MsgErr("unable to open body file "+path, err)
			}
			fi, err := f.Stat()
			if err != nil {
				f.Close()
				return nil, 0, ErrSerialization.MsgErr("unable to stat body file "+path, err)
			}
			return f, fi.Size(), nil
		}
	}
	return ct, nil
}

func describeParts(form []Param, parts []Part) string {
	var b strings.Builder
	for _, p := range form {
		fmt.Fprintf(&b, "------------\nContent-Disposition: form-data; name=%q\n\n%s\n", p.Key, p.Value)
	}
	for _, p := range parts {
		b.WriteString("------------\n")
		if p.isFile() {
			fmt.Fprintf(&b, "Content-Disposition: form-data; name=%q; filename=%q\n\n<file %s>\n", p.Name, filepath.Base(p.FilePath), p.FilePath)
			continue
		}
		fmt.Fprintf(&b, "Content-Disposition: form-data; name=%q\n", p.Name)
		if p.ContentType != "" {
			fmt.Fprintf(&b, "Content-Type: %s\n", p.ContentType)
		}
		fmt.Fprintf(&b, "\n%s\n", p.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

// newRequest builds the http.Request, opening any streamed body. The body is closed by
// the transport, or here if building the request fails.
func (pr *PreparedRequest) newRequest(ctx context.Context) (*http.Request, error) {
	var (
		body   io.ReadCloser
		length int64
	)
	switch {
	case pr.open != nil:
		rc, n, err := pr.open()
		if err != nil {
			return nil, err
		}
		body, length = rc, n
	case len(pr.Body) > 0:
		body, length = io.NopCloser(bytes.NewReader(pr.Body)), int64(len(pr.Body))
	case pr.Body != nil:
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, pr.Method, pr.URL, body)
	if err != nil {
		if body != nil {
			body.Close()
		}
		return nil, ErrInvalidConfiguration.MsgErr("unable to create request", err)
	}
	if body != nil {
		req.ContentLength = length
		if pr.Body != nil {
			data := pr.Body
			req.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			}
		}
	}
	for _, h := range pr.Headers {
		if strings.EqualFold(h.Key, "Host") {
			req.Host = h.Value
			continue
		}
		req.Header.Add(h.Key, h.Value)
	}
	return req, nil
}
