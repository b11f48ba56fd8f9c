// Package httpx provides the response helpers shared by the mock server's handlers:
// handler wrapping with uniform error rendering, JSON responses and streamed responses.
package httpx

import (
	"errors"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/tansive/restspec/internal/common/apperrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GetRequestData parses a JSON request body into data. Only POST, PUT and PATCH
// requests carry data.
func GetRequestData(r *http.Request, data any) error {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil || r.Body == http.NoBody {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response is what a RequestHandler produces. Response is JSON-encoded for
// application/json; for any other content type it must be a string or []byte and is
// written as is.
type Response struct {
	StatusCode  int
	Location    string
	Headers     http.Header
	Response    any
	ContentType string
}

// RequestHandler handles a request and returns a response or an error.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler to http.HandlerFunc. Errors are rendered with
// their status code: *Error as is, apperrors.Error via StatusCode (500 when unset), and
// anything else as 500.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			sendAnyError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.StatusCode == 0 {
			rsp.StatusCode = http.StatusOK
		}
		for k, vs := range rsp.Headers {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		if rsp.ContentType == "" {
			rsp.ContentType = "application/json"
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		if rsp.ContentType == "application/json" {
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
			return
		}

		var body []byte
		switch v := rsp.Response.(type) {
		case string:
			body = []byte(v)
		case []byte:
			body = v
		case nil:
		default:
			ErrApplicationError("unsupported response type").Send(w)
			return
		}
		w.Header().Set("Content-Type", rsp.ContentType)
		if len(location) > 0 {
			w.Header().Set("Location", location[0])
		}
		w.WriteHeader(rsp.StatusCode)
		w.Write(body)
	})
}

func sendAnyError(w http.ResponseWriter, err error) {
	var httperror *Error
	if errors.As(err, &httperror) {
		httperror.Send(w)
		return
	}
	if appErr, ok := err.(apperrors.Error); ok {
		SendError(w, appErr)
		return
	}
	ErrApplicationError(err.Error()).Send(w)
}

// StreamResponse describes a chunked response. WriteChunk is called until it returns
// an error; io.EOF ends the stream normally.
type StreamResponse struct {
	StatusCode  int
	ContentType string
	WriteChunk  func(w http.ResponseWriter) error
}

// StreamHandler handles a request with a streamed response.
type StreamHandler func(r *http.Request) (*StreamResponse, error)

// WrapStreamHandler adapts a StreamHandler to http.HandlerFunc, flushing after every
// chunk.
func WrapStreamHandler(handler StreamHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			sendAnyError(w, err)
			return
		}
		if rsp == nil || rsp.WriteChunk == nil {
			ErrApplicationError().Send(w)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			ErrApplicationError("streaming not supported").Send(w)
			return
		}

		w.Header().Set("Content-Type", rsp.ContentType)
		w.WriteHeader(rsp.StatusCode)
		for {
			if err := rsp.WriteChunk(w); err != nil {
				if !errors.Is(err, io.EOF) {
					log.Ctx(r.Context()).Error().Err(err).Msg("error writing chunk")
				}
				return
			}
			flusher.Flush()
		}
	})
}
