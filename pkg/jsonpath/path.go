package jsonpath

import (
	"strconv"
	"strings"
)

type segmentKind int

const (
	segKey segmentKind = iota
	segIndex
	segSize
)

type segment struct {
	kind  segmentKind
	key   string
	index int
}

func (s segment) String() string {
	switch s.kind {
	case segIndex:
		return "[" + strconv.Itoa(s.index) + "]"
	case segSize:
		return "size()"
	default:
		return s.key
	}
}

// Path is a compiled path expression.
type Path struct {
	expr     string
	segments []segment
}

// String returns the expression the path was compiled from.
func (p Path) String() string {
	return p.expr
}

// Compile parses a dotted/bracketed path expression such as `workspaces[0].name`,
// `workspaces.name`, `'key.with.dots'.value` or `workspaces.size()`. An empty
// expression or `$` selects the whole document.
func Compile(expr string) (Path, error) {
	p := Path{expr: expr}
	s := strings.TrimSpace(expr)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, ".")

	needSep := false
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return Path{}, ErrInvalidPath.Msgf("%q: unterminated index", expr)
			}
			n, err := strconv.Atoi(strings.TrimSpace(s[i+1 : i+end]))
			if err != nil {
				return Path{}, ErrInvalidPath.Msgf("%q: index %q is not an integer", expr, s[i+1:i+end])
			}
			p.segments = append(p.segments, segment{kind: segIndex, index: n})
			i += end + 1
			needSep = true
		case c == '.':
			if !needSep || i == len(s)-1 {
				return Path{}, ErrInvalidPath.Msgf("%q: empty segment", expr)
			}
			needSep = false
			i++
		case needSep:
			return Path{}, ErrInvalidPath.Msgf("%q: unexpected %q at offset %d", expr, c, i)
		case c == '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return Path{}, ErrInvalidPath.Msgf("%q: unterminated quoted key", expr)
			}
			p.segments = append(p.segments, segment{kind: segKey, key: s[i+1 : i+1+end]})
			i += end + 2
			needSep = true
		default:
			j := i
			for j < len(s) && s[j] != '.' && s[j] != '[' {
				j++
			}
			name := s[i:j]
			switch {
			case name == "size()":
				if j != len(s) {
					return Path{}, ErrInvalidPath.Msgf("%q: size() must be the last segment", expr)
				}
				p.segments = append(p.segments, segment{kind: segSize})
			case strings.ContainsAny(name, "()"):
				return Path{}, ErrInvalidPath.Msgf("%q: unsupported function %q", expr, name)
			default:
				p.segments = append(p.segments, segment{kind: segKey, key: name})
			}
			i = j
			needSep = true
		}
	}
	return p, nil
}

// MustCompile is Compile that panics on error. Intended for package-level paths.
func MustCompile(expr string) Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}
