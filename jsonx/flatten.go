package jsonx

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Flatten turns a JSON object into a map of sjson paths to leaf values.
// Arrays are kept whole so that a later write replaces them instead of
// merging them index by index.
func Flatten(raw json.RawMessage) map[string]interface{} {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return nil
	}

	flattened := map[string]interface{}{}
	flatten(parsed, nil, flattened)
	return flattened
}

func flatten(parsed gjson.Result, parents []string, flattened map[string]interface{}) {
	if !parsed.IsObject() {
		flattened[strings.Join(parents, ".")] = parsed.Value()
		return
	}

	if len(parents) > 0 && len(parsed.Map()) == 0 {
		flattened[strings.Join(parents, ".")] = map[string]interface{}{}
		return
	}

	parsed.ForEach(func(k, v gjson.Result) bool {
		path := make([]string, len(parents), len(parents)+1)
		copy(path, parents)
		flatten(v, append(path, escapePathSegment(k.String())), flattened)
		return true
	})
}

func escapePathSegment(s string) string {
	return strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`).Replace(s)
}
