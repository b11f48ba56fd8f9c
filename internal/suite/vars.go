package suite

import (
	"fmt"
	"os"
	"regexp"
)

var varRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)

// Vars holds suite variables and values extracted by earlier cases.
type Vars map[string]string

// Expand replaces ${name} references with variables, falling back to the environment.
// An unknown name is an error.
func (v Vars) Expand(s string) (string, error) {
	var missing string
	out := varRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := varRef.FindStringSubmatch(ref)[1]
		if val, ok := v[name]; ok {
			return val
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if missing == "" {
			missing = name
		}
		return ref
	})
	if missing != "" {
		return "", fmt.Errorf("undefined variable %q", missing)
	}
	return out, nil
}

func (v Vars) expandMap(m map[string]string) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, s := range m {
		x, err := v.Expand(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = x
	}
	return out, nil
}
