package echoserver

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/h2non/filetype"
	jsoniter "github.com/json-iterator/go"

	"github.com/tansive/restspec/internal/common/httpx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// echoRsp mirrors what the echo service reports about a request.
type echoRsp struct {
	Args    map[string]any    `json:"args"`
	Data    any               `json:"data"`
	Files   map[string]string `json:"files"`
	Form    map[string]any    `json:"form"`
	Headers map[string]string `json:"headers"`
	JSON    any               `json:"json"`
	URL     string            `json:"url"`
}

func (s *Server) mountEchoHandlers(r chi.Router) {
	r.Get("/get", httpx.WrapHttpRsp(s.echo))
	r.Post("/post", httpx.WrapHttpRsp(s.echo))
	r.Put("/put", httpx.WrapHttpRsp(s.echo))
	r.Patch("/patch", httpx.WrapHttpRsp(s.echo))
	r.Delete("/delete", httpx.WrapHttpRsp(s.echo))
	r.Get("/status/{code}", httpx.WrapHttpRsp(s.status))
	r.Get("/response-headers", httpx.WrapHttpRsp(s.responseHeaders))
	r.Get("/download/{name}", httpx.WrapHttpRsp(s.download))
	r.Get("/delay/{seconds}", httpx.WrapHttpRsp(s.delay))
	r.Get("/stream/{n}", httpx.WrapStreamHandler(s.stream))
}

func (s *Server) echo(r *http.Request) (*httpx.Response, error) {
	rsp := &echoRsp{
		Args:    multiMap(r.URL.Query()),
		Data:    "",
		Files:   map[string]string{},
		Form:    map[string]any{},
		Headers: map[string]string{},
		URL:     requestURL(r),
	}
	for k, v := range r.Header {
		rsp.Headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	if r.Host != "" {
		rsp.Headers["host"] = r.Host
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		return nil, httpx.ErrRequestTooLarge(s.opts.MaxBodyBytes)
	}
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, httpx.ErrInvalidRequest("invalid form body")
		}
		rsp.Form = multiMap(values)
		rsp.JSON = rsp.Form
	case strings.HasPrefix(mediaType, "multipart/"):
		if err := readMultipart(body, params["boundary"], rsp); err != nil {
			return nil, httpx.ErrInvalidRequest("invalid multipart body: " + err.Error())
		}
	case len(body) == 0:
		rsp.JSON = nil
	case strings.Contains(mediaType, "json") && json.Valid(body):
		var v any
		_ = json.Unmarshal(body, &v)
		rsp.Data = v
		rsp.JSON = v
	default:
		rsp.Data = string(body)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func readMultipart(body []byte, boundary string, rsp *echoRsp) error {
	if boundary == "" {
		return fmt.Errorf("missing boundary")
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := io.ReadAll(p)
		if err != nil {
			return err
		}
		if p.FileName() != "" {
			ct := p.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			rsp.Files[p.FileName()] = "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)
			continue
		}
		addValue(rsp.Form, p.FormName(), string(data))
	}
}

// multiMap flattens single values and keeps repeated keys as arrays.
func multiMap(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func addValue(m map[string]any, k, v string) {
	switch cur := m[k].(type) {
	case nil:
		m[k] = v
	case string:
		m[k] = []string{cur, v}
	case []string:
		m[k] = append(cur, v)
	}
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func (s *Server) status(r *http.Request) (*httpx.Response, error) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 100 || code > 599 {
		return nil, httpx.ErrInvalidRequest("invalid status code")
	}
	return &httpx.Response{StatusCode: code, Response: map[string]int{"status": code}}, nil
}

// responseHeaders sets every query parameter as a response header and echoes them.
func (s *Server) responseHeaders(r *http.Request) (*httpx.Response, error) {
	h := http.Header{}
	q := r.URL.Query()
	for k, vs := range q {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Headers: h, Response: multiMap(q)}, nil
}

func (s *Server) download(r *http.Request) (*httpx.Response, error) {
	name := chi.URLParam(r, "name")
	if s.opts.DownloadDir == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, httpx.ErrNotFound("file " + name)
	}
	data, err := os.ReadFile(filepath.Join(s.opts.DownloadDir, name))
	if err != nil {
		return nil, httpx.ErrNotFound("file " + name)
	}
	ct := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		ct = kind.MIME.Value
	} else if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		ct = byExt
	}
	h := http.Header{}
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	return &httpx.Response{StatusCode: http.StatusOK, ContentType: ct, Headers: h, Response: data}, nil
}

const maxDelay = 10 * time.Second

func (s *Server) delay(r *http.Request) (*httpx.Response, error) {
	secs, err := strconv.ParseFloat(chi.URLParam(r, "seconds"), 64)
	if err != nil || secs < 0 {
		return nil, httpx.ErrInvalidRequest("invalid delay")
	}
	d := time.Duration(secs * float64(time.Second))
	if d > maxDelay {
		d = maxDelay
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-r.Context().Done():
		return nil, httpx.ErrRequestTimeout()
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: map[string]float64{"delay": secs}}, nil
}

// stream writes n JSON lines, one per chunk.
func (s *Server) stream(r *http.Request) (*httpx.StreamResponse, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 || n > 100 {
		return nil, httpx.ErrInvalidRequest("invalid chunk count")
	}
	u := requestURL(r)
	i := 0
	return &httpx.StreamResponse{
		StatusCode:  http.StatusOK,
		ContentType: "application/x-ndjson",
		WriteChunk: func(w http.ResponseWriter) error {
			if i >= n {
				return io.EOF
			}
			line, err := json.Marshal(map[string]any{"id": i, "url": u})
			if err != nil {
				return err
			}
			i++
			_, err = w.Write(append(line, '\n'))
			return err
		},
	}, nil
}
