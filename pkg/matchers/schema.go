package matchers

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*jsonschema.Schema{}
)

// compileSchemaFile compiles the schema at path once and caches it by absolute path.
func compileSchemaFile(path string) (*jsonschema.Schema, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ErrSchemaValidation.MsgErr("invalid schema path "+path, err)
	}
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[abs]; ok {
		return s, nil
	}
	compiler := jsonschema.NewCompiler()
	s, err := compiler.Compile(abs)
	if err != nil {
		return nil, ErrSchemaValidation.MsgErr("unable to compile schema "+path, err)
	}
	schemaCache[abs] = s
	return s, nil
}

// ValidateJSONSchema validates doc against the JSON schema in the file at path. doc may
// be raw JSON (string or []byte) or an already decoded value.
func ValidateJSONSchema(doc any, path string) error {
	s, err := compileSchemaFile(path)
	if err != nil {
		return err
	}
	v, err := schemaInput(doc)
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return ErrSchemaValidation.MsgErr(err.Error(), err)
	}
	return nil
}

func schemaInput(doc any) (any, error) {
	var raw []byte
	switch t := doc.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		return Normalize(doc), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, ErrSchemaValidation.MsgErr("document is not valid JSON", err)
	}
	return v, nil
}

// MatchesJSONSchemaInFile matches a document that conforms to the JSON schema stored in
// the file at path.
func MatchesJSONSchemaInFile(path string) Matcher {
	return &schemaMatcher{path: path}
}

type schemaMatcher struct {
	path string
}

func (m *schemaMatcher) Description() string {
	return "matches JSON schema in " + m.path
}

// validate returns the schema violation, if any, and a non-nil err only when the schema
// or the document cannot be processed.
func (m *schemaMatcher) validate(actual any) (violation, err error) {
	s, err := compileSchemaFile(m.path)
	if err != nil {
		return nil, err
	}
	v, err := schemaInput(actual)
	if err != nil {
		return nil, err
	}
	return s.Validate(v), nil
}

func (m *schemaMatcher) Match(actual any) (bool, error) {
	violation, err := m.validate(actual)
	if err != nil {
		return false, err
	}
	return violation == nil, nil
}

func (m *schemaMatcher) FailureMessage(actual any) string {
	violation, err := m.validate(actual)
	if err == nil {
		err = violation
	}
	if err != nil {
		return fmt.Sprintf("document does not match schema %s: %v", m.path, err)
	}
	return "document does not match schema " + m.path
}

func (m *schemaMatcher) NegatedFailureMessage(actual any) string {
	return "document unexpectedly matches schema " + m.path
}
