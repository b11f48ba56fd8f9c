package jsonpath

import (
	stdjson "encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Number converts a JSON number literal. Integral literals become int64, or json.Number
// when they do not fit; everything else becomes float64.
func Number(raw string) any {
	if !strings.ContainsAny(raw, ".eE") {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
		return stdjson.Number(raw)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return stdjson.Number(raw)
	}
	return f
}

func decode(res gjson.Result) any {
	switch {
	case res.Type == gjson.Number:
		return Number(res.Raw)
	case res.IsArray():
		out := []any{}
		res.ForEach(func(_, v gjson.Result) bool {
			out = append(out, decode(v))
			return true
		})
		return out
	case res.IsObject():
		out := map[string]any{}
		res.ForEach(func(k, v gjson.Result) bool {
			out[k.String()] = decode(v)
			return true
		})
		return out
	}
	return res.Value()
}
