// Package jsonpath extracts values from JSON and XML response bodies with GPath-style
// expressions. Traversal runs directly over github.com/tidwall/gjson results, so only the
// parts of a document a path touches are ever decoded.
package jsonpath

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Document is a parsed response body.
type Document struct {
	root gjson.Result
}

// Parse parses body as XML when contentType names an XML media type (or, with no content
// type, when the body starts with '<'), and as JSON otherwise.
func Parse(body []byte, contentType string) (*Document, error) {
	trimmed := bytes.TrimSpace(body)
	if isXML(contentType, trimmed) {
		jsonBody, err := xmlToJSON(trimmed)
		if err != nil {
			return nil, err
		}
		return &Document{root: gjson.ParseBytes(jsonBody)}, nil
	}
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return nil, ErrInvalidDocument.Msg("body is not valid JSON")
	}
	return &Document{root: gjson.ParseBytes(trimmed)}, nil
}

func isXML(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "xml") {
		return true
	}
	return ct == "" && len(body) > 0 && body[0] == '<'
}

// Get extracts expr from a JSON body.
func Get(body []byte, expr string) (any, error) {
	doc, err := Parse(body, "application/json")
	if err != nil {
		return nil, err
	}
	return doc.Get(expr)
}

// Raw returns the JSON text of the document.
func (d *Document) Raw() string {
	return d.root.Raw
}

// Value returns the whole document as decoded JSON values.
func (d *Document) Value() any {
	return decode(d.root)
}

// Get compiles expr and evaluates it.
func (d *Document) Get(expr string) (any, error) {
	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return d.Eval(p)
}

// Exists reports whether expr selects a value.
func (d *Document) Exists(expr string) bool {
	_, err := d.Get(expr)
	return err == nil
}

// Eval evaluates a compiled path. Integers are returned as int64 (json.Number past the
// int64 range), other numbers as float64, objects as map[string]any and arrays
// (including projections) as []any.
func (d *Document) Eval(p Path) (any, error) {
	cur := node{res: d.root}
	for i, seg := range p.segments {
		var (
			next node
			ok   bool
		)
		switch seg.kind {
		case segKey:
			next, ok = applyKey(cur, seg.key)
		case segIndex:
			next, ok = applyIndex(cur, seg.index)
		case segSize:
			next, ok = applySize(cur)
		}
		if !ok {
			return nil, ErrPathNotFound.Msgf("%q: segment %q not found", p.expr, at(p.segments, i))
		}
		cur = next
	}
	return cur.value(), nil
}

func at(segs []segment, i int) string {
	var b strings.Builder
	for j := 0; j <= i; j++ {
		if j > 0 && segs[j].kind != segIndex {
			b.WriteByte('.')
		}
		b.WriteString(segs[j].String())
	}
	return b.String()
}

// node is either a gjson result or a list produced by a projection.
type node struct {
	res    gjson.Result
	list   []node
	isList bool
	num    *int64
}

func (n node) value() any {
	if n.num != nil {
		return *n.num
	}
	if n.isList {
		out := make([]any, 0, len(n.list))
		for _, item := range n.list {
			out = append(out, item.value())
		}
		return out
	}
	return decode(n.res)
}

func (n node) elements() ([]node, bool) {
	if n.isList {
		return n.list, true
	}
	if n.res.IsArray() {
		arr := n.res.Array()
		out := make([]node, len(arr))
		for i, r := range arr {
			out[i] = node{res: r}
		}
		return out, true
	}
	return nil, false
}

// applyKey selects key from an object, or projects it over every element of an array,
// skipping elements that lack it.
func applyKey(n node, key string) (node, bool) {
	if elems, ok := n.elements(); ok {
		out := node{isList: true, list: make([]node, 0, len(elems))}
		for _, e := range elems {
			if v, ok := applyKey(e, key); ok {
				out.list = append(out.list, v)
			}
		}
		return out, true
	}
	if n.num == nil && n.res.IsObject() {
		var (
			found node
			ok    bool
		)
		n.res.ForEach(func(k, v gjson.Result) bool {
			if k.String() == key {
				found, ok = node{res: v}, true
				return false
			}
			return true
		})
		return found, ok
	}
	return node{}, false
}

func applyIndex(n node, index int) (node, bool) {
	elems, ok := n.elements()
	if !ok {
		return node{}, false
	}
	if index < 0 {
		index += len(elems)
	}
	if index < 0 || index >= len(elems) {
		return node{}, false
	}
	return elems[index], true
}

func applySize(n node) (node, bool) {
	var size int
	switch {
	case n.num != nil:
		return node{}, false
	case n.isList || n.res.IsArray():
		elems, _ := n.elements()
		size = len(elems)
	case n.res.IsObject():
		n.res.ForEach(func(_, _ gjson.Result) bool {
			size++
			return true
		})
	case n.res.Type == gjson.String:
		size = utf8.RuneCountInString(n.res.String())
	default:
		return node{}, false
	}
	n64 := int64(size)
	return node{num: &n64}, true
}
