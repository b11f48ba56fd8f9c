package rest

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// LogDetail selects what part of an exchange is dumped to the log sink.
type LogDetail int

const (
	LogNone LogDetail = iota
	LogAll
	LogBody
	LogHeaders
	LogStatus
	// LogIfError dumps the request and the response when the status code is 400 or above.
	LogIfError
	// LogIfValidationFails dumps the request and the response when Response.Validate fails.
	LogIfValidationFails
)

var logDetailNames = map[LogDetail]string{
	LogNone:              "none",
	LogAll:               "all",
	LogBody:              "body",
	LogHeaders:           "headers",
	LogStatus:            "status",
	LogIfError:           "if_error",
	LogIfValidationFails: "if_validation_fails",
}

func (d LogDetail) String() string {
	if s, ok := logDetailNames[d]; ok {
		return s
	}
	return fmt.Sprintf("LogDetail(%d)", int(d))
}

// ParseLogDetail parses the names returned by LogDetail.String. Matching ignores case
// and accepts '-' in place of '_'.
func ParseLogDetail(s string) (LogDetail, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if norm == "" {
		return LogNone, nil
	}
	for d, name := range logDetailNames {
		if name == norm {
			return d, nil
		}
	}
	return LogNone, ErrInvalidConfiguration.Msgf("unknown log detail %q", s)
}

// immediate reports whether d dumps unconditionally.
func (d LogDetail) immediate() bool {
	switch d {
	case LogAll, LogBody, LogHeaders, LogStatus:
		return true
	}
	return false
}

// Sink receives request and response dumps. Writes are serialized, so a sink may be
// shared by concurrent executions.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	color  bool
}

var (
	consoleOnce sync.Once
	console     *Sink
)

// ConsoleSink returns the sink writing to standard output, colored when standard output
// is a terminal.
func ConsoleSink() *Sink {
	consoleOnce.Do(func() {
		console = &Sink{w: color.Output, color: !color.NoColor}
	})
	return console
}

// NewFileSink opens path for appending, creating it if needed. The file is opened here
// so an unwritable path fails while the specification is being built.
func NewFileSink(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, ErrInvalidConfiguration.MsgErr("unable to open log file "+path, err)
	}
	return &Sink{w: f, closer: f}, nil
}

// NewWriterSink writes uncolored dumps to w.
func NewWriterSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Close closes the underlying file, if any.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Sink) write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, text)
}

func (s *Sink) paint(attr color.Attribute, text string) string {
	if !s.color {
		return text
	}
	return color.New(attr).Sprint(text)
}

// dumpRequest renders the parts of r selected by d.
func (s *Sink) dumpRequest(r *PreparedRequest, d LogDetail) {
	var b strings.Builder
	all := d == LogAll || d == LogIfError || d == LogIfValidationFails
	if all || d == LogStatus {
		fmt.Fprintf(&b, "%s\t%s\n", s.paint(color.FgCyan, "Request method:"), r.Method)
		fmt.Fprintf(&b, "%s\t%s\n", s.paint(color.FgCyan, "Request URI:"), r.URL)
	}
	if all || d == LogHeaders {
		b.WriteString(s.paint(color.FgCyan, "Headers:"))
		if len(r.Headers) == 0 {
			b.WriteString("\t\t<none>\n")
		}
		for i, h := range r.Headers {
			if i == 0 {
				b.WriteString("\t\t")
			} else {
				b.WriteString("\t\t\t\t")
			}
			fmt.Fprintf(&b, "%s=%s\n", h.Key, h.Value)
		}
	}
	if all || d == LogBody {
		b.WriteString(s.paint(color.FgCyan, "Body:"))
		b.WriteByte('\n')
		switch {
		case r.Body != nil:
			b.WriteString(prettyBody(r.Body))
		case r.BodyDescription != "":
			b.WriteString(r.BodyDescription)
		default:
			b.WriteString("<none>")
		}
		b.WriteByte('\n')
	}
	if b.Len() > 0 {
		s.write(b.String())
	}
}

// dumpResponse renders the parts of r selected by d.
func (s *Sink) dumpResponse(r *Response, d LogDetail) {
	var b strings.Builder
	all := d == LogAll || d == LogIfError || d == LogIfValidationFails
	if all || d == LogStatus {
		attr := color.FgGreen
		if r.StatusCode >= 400 {
			attr = color.FgRed
		}
		b.WriteString(s.paint(attr, r.Proto+" "+r.Status))
		b.WriteByte('\n')
	}
	if all || d == LogHeaders {
		for _, k := range r.HeaderKeys() {
			for _, v := range r.Header[k] {
				fmt.Fprintf(&b, "%s: %s\n", k, v)
			}
		}
	}
	if all || d == LogBody {
		if all {
			b.WriteByte('\n')
		}
		b.WriteString(prettyBody(r.body))
		b.WriteByte('\n')
	}
	if b.Len() > 0 {
		s.write(b.String())
	}
}

func prettyBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if gjson.ValidBytes(body) {
		return strings.TrimRight(string(pretty.Pretty(body)), "\n")
	}
	return string(body)
}

func sortedHeaderKeys(h map[string][]string) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
