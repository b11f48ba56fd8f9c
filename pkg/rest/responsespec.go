package rest

import (
	"fmt"
	"strings"

	"github.com/onsi/gomega/types"

	"github.com/tansive/restspec/pkg/matchers"
)

// ResponseSpec describes the expected response. Like Specification it is an immutable
// value and can be shared.
type ResponseSpec struct {
	status      *int
	contentType string
	headers     []expectation
	body        []expectation
	schemas     []string
	logDetail   LogDetail
}

type expectation struct {
	key     string
	matcher types.GomegaMatcher
}

// NewResponseSpec returns a specification with no expectations.
func NewResponseSpec() ResponseSpec {
	return ResponseSpec{}
}

func (rs ResponseSpec) ExpectStatusCode(code int) ResponseSpec {
	rs.status = &code
	return rs
}

// ExpectContentType expects the response media type to start with ct, so
// "application/json" accepts "application/json; charset=utf-8".
func (rs ResponseSpec) ExpectContentType(ct string) ResponseSpec {
	rs.contentType = ct
	return rs
}

// ExpectHeader checks the first value of header name. A missing header is matched as
// the empty string.
func (rs ResponseSpec) ExpectHeader(name string, m types.GomegaMatcher) ResponseSpec {
	rs.headers = append(append([]expectation(nil), rs.headers...), expectation{key: name, matcher: m})
	return rs
}

// ExpectBody checks the value at path. A path that does not resolve is reported as a
// failure like any mismatch.
func (rs ResponseSpec) ExpectBody(path string, m types.GomegaMatcher) ResponseSpec {
	rs.body = append(append([]expectation(nil), rs.body...), expectation{key: path, matcher: m})
	return rs
}

// ExpectSchema checks the body against the JSON schema stored in the file at path.
func (rs ResponseSpec) ExpectSchema(path string) ResponseSpec {
	rs.schemas = append(append([]string(nil), rs.schemas...), path)
	return rs
}

// WithLogDetail set to LogIfValidationFails dumps the exchange when validation fails.
func (rs ResponseSpec) WithLogDetail(d LogDetail) ResponseSpec {
	rs.logDetail = d
	return rs
}

// Validate evaluates every expectation of rs and returns a single error matching
// ErrAssertionFailure that lists all failures. matchers.Failures returns them
// individually.
func (r *Response) Validate(rs ResponseSpec) error {
	var a matchers.Assertions
	if rs.status != nil {
		a.That("status code", r.StatusCode, matchers.EqualTo(*rs.status))
	}
	if rs.contentType != "" {
		if !strings.HasPrefix(strings.ToLower(r.ContentType), strings.ToLower(rs.contentType)) {
			a.Fail("content type", fmt.Errorf("expected %q, got %q", rs.contentType, r.ContentType))
		}
	}
	for _, h := range rs.headers {
		a.That("header "+h.key, r.Header.Get(h.key), h.matcher)
	}
	for _, b := range rs.body {
		v, err := r.Path(b.key)
		if err != nil {
			a.Fail("body "+b.key, err)
			continue
		}
		a.That("body "+b.key, v, b.matcher)
	}
	for _, p := range rs.schemas {
		a.Fail("schema "+p, matchers.ValidateJSONSchema(r.body, p))
	}

	err := a.Err()
	if err != nil {
		r.dumpOnValidationFailure(rs.logDetail)
	}
	return err
}
