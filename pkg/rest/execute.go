package rest

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tansive/restspec/internal/common/uuid"
)

// DefaultTimeout applies to clients created without an explicit timeout.
const DefaultTimeout = 30 * time.Second

// ClientOptions configures a Client.
type ClientOptions struct {
	Timeout               time.Duration     // default whole-exchange timeout; DefaultTimeout when zero
	DisableCertValidation bool              // skip TLS certificate verification
	Transport             http.RoundTripper // optional; overrides DisableCertValidation
}

// Client executes specifications. A failed exchange is never retried.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a client. Only the first options value is used.
func NewClient(opts ...ClientOptions) *Client {
	var o ClientOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	// the timeout is applied per request as a context deadline, so a specification
	// may ask for a longer one
	hc := &http.Client{}
	switch {
	case o.Transport != nil:
		hc.Transport = o.Transport
	case o.DisableCertValidation:
		hc.Transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}
	return &Client{httpClient: hc, timeout: o.Timeout}
}

var defaultClient = NewClient()

// Execute sends the request described by spec with the default client.
func Execute(ctx context.Context, method string, spec Specification) (*Response, error) {
	return defaultClient.Execute(ctx, method, spec)
}

func Get(ctx context.Context, spec Specification) (*Response, error) {
	return Execute(ctx, http.MethodGet, spec)
}

func Post(ctx context.Context, spec Specification) (*Response, error) {
	return Execute(ctx, http.MethodPost, spec)
}

func Put(ctx context.Context, spec Specification) (*Response, error) {
	return Execute(ctx, http.MethodPut, spec)
}

func Patch(ctx context.Context, spec Specification) (*Response, error) {
	return Execute(ctx, http.MethodPatch, spec)
}

func Delete(ctx context.Context, spec Specification) (*Response, error) {
	return Execute(ctx, http.MethodDelete, spec)
}

// Execute resolves spec, dumps the request if configured, sends it and reads the whole
// response. The response dump is written before Execute returns, so it is never skipped
// by a failing assertion afterwards. Non-2xx statuses are not errors.
func (c *Client) Execute(ctx context.Context, method string, spec Specification) (*Response, error) {
	if spec.err != nil {
		return nil, spec.err
	}
	pr, err := Resolve(method, spec)
	if err != nil {
		return nil, err
	}
	sink := spec.sink
	if sink == nil {
		sink = ConsoleSink()
	}

	timeout := spec.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := pr.newRequest(ctx)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	logger := ctxLogger(ctx).With().
		Str("request_id", requestID).
		Str("method", pr.Method).
		Str("url", pr.URL).
		Logger()

	if spec.reqLog.immediate() {
		sink.dumpRequest(pr, spec.reqLog)
	}

	start := time.Now()
	rsp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("request failed")
		return nil, ErrNetwork.MsgErr(pr.Method+" "+pr.URL+" failed", err)
	}
	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		logger.Debug().Err(err).Msg("reading response body failed")
		return nil, ErrNetwork.MsgErr("unable to read response body from "+pr.URL, err)
	}

	r := &Response{
		StatusCode:  rsp.StatusCode,
		Status:      rsp.Status,
		Proto:       rsp.Proto,
		Header:      rsp.Header,
		ContentType: rsp.Header.Get("Content-Type"),
		Duration:    time.Since(start),
		RequestID:   requestID,
		Request:     pr,
		body:        body,
		sink:        sink,
		reqLog:      spec.reqLog,
		rspLog:      spec.rspLog,
	}

	failed := r.StatusCode >= 400 && (spec.reqLog == LogIfError || spec.rspLog == LogIfError)
	if failed && !spec.reqLog.immediate() {
		sink.dumpRequest(pr, LogIfError)
	}
	switch {
	case spec.rspLog.immediate():
		sink.dumpResponse(r, spec.rspLog)
	case failed:
		sink.dumpResponse(r, LogIfError)
	}

	logger.Debug().
		Int("status", r.StatusCode).
		Dur("duration", r.Duration).
		Int("bytes", len(body)).
		Msg("request completed")
	return r, nil
}

// ctxLogger returns the logger carried by ctx, or the global logger.
func ctxLogger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return log.Logger
}
