// Package fileutil reads fixture files (payloads, schemas, suites) relative to a base
// directory or to the project root.
package fileutil

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ReadText returns the contents of path as a string.
func ReadText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to read %s", path)
	}
	return string(b), nil
}

// ProjectRoot walks up from dir to the nearest directory containing a go.mod file or a
// restspec.toml file.
func ProjectRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(err, "invalid directory %s", dir)
	}
	for d := abs; ; {
		for _, marker := range []string{"go.mod", "restspec.toml"} {
			if _, err := os.Stat(filepath.Join(d, marker)); err == nil {
				return d, nil
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", errors.Errorf("no project root above %s", abs)
		}
		d = parent
	}
}

// Resolve makes path absolute against base unless it already is absolute. A leading
// "~/" is expanded to the user's home directory.
func Resolve(base, path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "unable to resolve home directory")
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Abs(filepath.Join(base, path))
}
