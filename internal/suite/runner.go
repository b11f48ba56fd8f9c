package suite

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/restspec/internal/common/fileutil"
	"github.com/tansive/restspec/pkg/matchers"
	"github.com/tansive/restspec/pkg/rest"
)

// Result is the outcome of one case.
type Result struct {
	Name     string
	Method   string
	URL      string
	Status   int
	Duration time.Duration
	Err      error // request or setup error; nil when the exchange happened
	Failures []matchers.Failure
}

func (r Result) Passed() bool {
	return r.Err == nil && len(r.Failures) == 0
}

// Report is the outcome of a suite run.
type Report struct {
	Suite   string
	Results []Result
}

func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed() {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int {
	return len(r.Results) - r.Passed()
}

// Runner executes suites. Cases run in order, and values extracted by a case are
// visible to the cases after it.
type Runner struct {
	client *rest.Client
	base   rest.Specification
}

// NewRunner returns a runner that refines base for every case. A nil client uses the
// default client.
func NewRunner(base rest.Specification, client *rest.Client) *Runner {
	if client == nil {
		client = rest.NewClient()
	}
	return &Runner{client: client, base: base}
}

// Run executes every case of s. A failing case does not stop the run; cases that
// reference a value it should have extracted fail with an undefined variable.
func (r *Runner) Run(ctx context.Context, s *Suite) *Report {
	vars := Vars{}
	for k, v := range s.Vars {
		vars[k] = v
	}
	report := &Report{Suite: s.Name}
	for _, c := range s.Cases {
		if ctx.Err() != nil {
			report.Results = append(report.Results, Result{Name: c.Name, Method: c.Method, Err: ctx.Err()})
			continue
		}
		res := r.runCase(ctx, s, c, vars)
		log.Ctx(ctx).Debug().
			Str("case", c.Name).
			Int("status", res.Status).
			Bool("passed", res.Passed()).
			Msg("case completed")
		report.Results = append(report.Results, res)
	}
	return report
}

func (r *Runner) runCase(ctx context.Context, s *Suite, c Case, vars Vars) Result {
	res := Result{Name: c.Name, Method: c.Method}
	spec, err := r.specFor(s, c, vars)
	if err != nil {
		res.Err = err
		return res
	}
	if pr, err := rest.Resolve(c.Method, spec); err == nil {
		res.URL = pr.URL
	}

	rsp, err := r.client.Execute(ctx, c.Method, spec)
	if err != nil {
		res.Err = err
		return res
	}
	res.Status = rsp.StatusCode
	res.Duration = rsp.Duration

	rs, err := expectations(s, c, vars)
	if err != nil {
		res.Err = err
		return res
	}
	res.Failures = matchers.Failures(rsp.Validate(rs))

	for name, path := range c.Extract {
		v, err := rsp.PathString(path)
		if err != nil {
			res.Failures = append(res.Failures, matchers.Failure{Label: "extract " + name, Message: err.Error()})
			continue
		}
		vars[name] = v
	}
	return res
}

func (r *Runner) specFor(s *Suite, c Case, vars Vars) (rest.Specification, error) {
	spec := r.base
	for _, base := range []string{s.BaseURL, c.BaseURL} {
		if base == "" {
			continue
		}
		u, err := vars.Expand(base)
		if err != nil {
			return spec, fmt.Errorf("base_url: %w", err)
		}
		spec = spec.WithBaseURL(u)
	}
	path, err := vars.Expand(c.Path)
	if err != nil {
		return spec, fmt.Errorf("path: %w", err)
	}
	spec = spec.WithPath(path)

	for _, m := range []struct {
		name  string
		src   map[string]string
		apply func(rest.Specification, map[string]string) rest.Specification
	}{
		{"headers", s.Headers, rest.Specification.WithHeaders},
		{"headers", c.Headers, rest.Specification.WithHeaders},
		{"query", c.Query, rest.Specification.WithQueryParams},
		{"path_params", c.PathParams, rest.Specification.WithPathParams},
	} {
		vals, err := vars.expandMap(m.src)
		if err != nil {
			return spec, fmt.Errorf("%s: %w", m.name, err)
		}
		spec = m.apply(spec, vals)
	}

	form, err := vars.expandMap(c.Form)
	if err != nil {
		return spec, fmt.Errorf("form: %w", err)
	}
	for _, k := range sortedKeys(form) {
		spec = spec.WithFormParam(k, form[k])
	}
	for _, p := range c.Multipart {
		if p.File != "" {
			file, err := fileutil.Resolve(s.dir, p.File)
			if err != nil {
				return spec, fmt.Errorf("multipart %s: %w", p.Name, err)
			}
			spec = spec.WithMultiPartFile(p.Name, file)
			continue
		}
		v, err := vars.Expand(p.Value)
		if err != nil {
			return spec, fmt.Errorf("multipart %s: %w", p.Name, err)
		}
		spec = spec.WithMultiPartWithType(p.Name, v, p.ContentType)
	}

	if c.ContentType != "" {
		spec = spec.WithContentType(c.ContentType)
	}
	switch {
	case c.BodyFile != "":
		file, err := fileutil.Resolve(s.dir, c.BodyFile)
		if err != nil {
			return spec, fmt.Errorf("body_file: %w", err)
		}
		spec = spec.WithBody(rest.FileBody(file))
	case c.Body != nil:
		body, err := expandValue(c.Body, vars.Expand)
		if err != nil {
			return spec, fmt.Errorf("body: %w", err)
		}
		spec = spec.WithBody(body)
	}

	if c.Log != "" {
		d, err := rest.ParseLogDetail(c.Log)
		if err != nil {
			return spec, err
		}
		spec = spec.WithLogDetail(d)
	}
	return spec, spec.Err()
}

func expectations(s *Suite, c Case, vars Vars) (rest.ResponseSpec, error) {
	rs := rest.NewResponseSpec()
	e := c.Expect
	if e.Status != 0 {
		rs = rs.ExpectStatusCode(e.Status)
	}
	if e.ContentType != "" {
		rs = rs.ExpectContentType(e.ContentType)
	}
	headers, err := vars.expandMap(e.Headers)
	if err != nil {
		return rs, fmt.Errorf("expect.headers: %w", err)
	}
	for _, k := range sortedKeys(headers) {
		rs = rs.ExpectHeader(k, matchers.EqualTo(headers[k]))
	}
	for _, chk := range e.Body {
		m, err := chk.matcher(vars.Expand)
		if err != nil {
			return rs, fmt.Errorf("expect.body: %w", err)
		}
		rs = rs.ExpectBody(chk.Path, m)
	}
	if e.Schema != "" {
		path, err := fileutil.Resolve(s.dir, e.Schema)
		if err != nil {
			return rs, fmt.Errorf("expect.schema: %w", err)
		}
		rs = rs.ExpectSchema(path)
	}
	if strings.EqualFold(c.Log, rest.LogIfValidationFails.String()) {
		rs = rs.WithLogDetail(rest.LogIfValidationFails)
	}
	return rs, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
