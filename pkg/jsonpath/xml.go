package jsonpath

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type xmlElement struct {
	name     string
	attrs    []xml.Attr
	children []*xmlElement
	text     strings.Builder
}

// xmlToJSON converts an XML document into the JSON tree paths are evaluated against:
// {"root": {...}} with attributes as "@name", repeated children as arrays and text-only
// elements as strings. Text mixed with child elements is kept under "#text".
func xmlToJSON(body []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		stack []*xmlElement
		root  *xmlElement
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ErrInvalidDocument.MsgErr("body is not valid XML", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &xmlElement{name: t.Name.Local, attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, ErrInvalidDocument.Msg("XML body has no root element")
	}
	return json.Marshal(map[string]any{root.name: root.value()})
}

func (e *xmlElement) value() any {
	text := strings.TrimSpace(e.text.String())
	if len(e.attrs) == 0 && len(e.children) == 0 {
		return text
	}
	out := make(map[string]any, len(e.attrs)+len(e.children))
	for _, a := range e.attrs {
		out["@"+a.Name.Local] = a.Value
	}
	for _, c := range e.children {
		v := c.value()
		switch existing := out[c.name].(type) {
		case nil:
			out[c.name] = v
		case xmlList:
			out[c.name] = append(existing, v)
		default:
			out[c.name] = xmlList{existing, v}
		}
	}
	if text != "" {
		out["#text"] = text
	}
	return out
}

// xmlList marks arrays built from repeated elements so a repeated element whose own
// value is an array is not flattened into it.
type xmlList []any
