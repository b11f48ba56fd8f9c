// Package suite loads YAML test suites and runs them with pkg/rest. A suite is a list of
// cases; each case describes one request, the expected response and the values to
// extract for later cases.
package suite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Suite is the top-level document of a suite file.
type Suite struct {
	Name    string            `yaml:"name"`
	BaseURL string            `yaml:"base_url"`
	Headers map[string]string `yaml:"headers"`
	Vars    map[string]string `yaml:"vars"`
	Cases   []Case            `yaml:"cases"`

	dir string
}

// Case is one request and its expectations.
type Case struct {
	Name        string            `yaml:"name"`
	Method      string            `yaml:"method"`
	BaseURL     string            `yaml:"base_url"`
	Path        string            `yaml:"path"`
	Headers     map[string]string `yaml:"headers"`
	Query       map[string]string `yaml:"query"`
	PathParams  map[string]string `yaml:"path_params"`
	Form        map[string]string `yaml:"form"`
	Multipart   []Part            `yaml:"multipart"`
	ContentType string            `yaml:"content_type"`
	Body        any               `yaml:"body"`      // string bodies are sent as is, anything else is encoded
	BodyFile    string            `yaml:"body_file"` // relative to the suite file
	Log         string            `yaml:"log"`
	Expect      Expect            `yaml:"expect"`
	Extract     map[string]string `yaml:"extract"` // variable name to path expression
}

// Part is a multipart field. Exactly one of Value and File is set.
type Part struct {
	Name        string `yaml:"name"`
	Value       string `yaml:"value"`
	File        string `yaml:"file"`
	ContentType string `yaml:"content_type"`
}

// Expect lists what the response must satisfy.
type Expect struct {
	Status      int               `yaml:"status"`
	ContentType string            `yaml:"content_type"`
	Headers     map[string]string `yaml:"headers"` // exact first values
	Body        []Check           `yaml:"body"`
	Schema      string            `yaml:"schema"`
}

// Load reads and validates a suite file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	s.dir = abs
	return s, nil
}

// Parse decodes a suite document. Unknown keys are rejected.
func Parse(data []byte) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	s := &Suite{}
	if err := dec.Decode(s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty suite")
		}
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

var methods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true, "HEAD": true, "OPTIONS": true,
}

func (s *Suite) validate() error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite has no cases")
	}
	for i := range s.Cases {
		c := &s.Cases[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("case %d", i+1)
		}
		c.Method = strings.ToUpper(c.Method)
		if c.Method == "" {
			c.Method = "GET"
		}
		if !methods[c.Method] {
			return fmt.Errorf("%s: unsupported method %q", c.Name, c.Method)
		}
		if c.Body != nil && c.BodyFile != "" {
			return fmt.Errorf("%s: body and body_file are exclusive", c.Name)
		}
		for _, p := range c.Multipart {
			if p.Name == "" || (p.Value != "" && p.File != "") {
				return fmt.Errorf("%s: multipart fields need a name and one of value or file", c.Name)
			}
		}
		for _, chk := range c.Expect.Body {
			if _, err := chk.matcher(func(s string) (string, error) { return s, nil }); err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
		}
	}
	return nil
}
