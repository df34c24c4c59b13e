package placeholder

import (
	"strings"
)

// Value is a typed substitution value. Text values are escaped before insertion;
// JSON values are inserted raw at bare occurrences and as an escaped string at
// quoted occurrences ("{tool_parameters}").
type Value struct {
	S    string
	JSON bool
}

// Text returns a Value holding plain text.
func Text(s string) Value { return Value{S: s} }

// RawJSON returns a Value holding an encoded JSON document.
func RawJSON(s string) Value { return Value{S: s, JSON: true} }

// Values maps tokens to typed values.
type Values map[Placeholder]Value

// Render substitutes typed values into template in one pass.
func Render(template string, values Values) string {
	if template == "" || len(values) == 0 {
		return template
	}
	pairs := make([]string, 0, len(values)*4)
	// Quoted forms first: strings.Replacer prefers the earliest listed match at a
	// position, so `"{tok}"` wins over the bare `{tok}` it starts with.
	for _, p := range All {
		v, ok := values[p]
		if !ok || !v.JSON {
			continue
		}
		pairs = append(pairs, `"`+string(p)+`"`, `"`+EscapeString(v.S)+`"`)
	}
	for _, p := range All {
		v, ok := values[p]
		if !ok {
			continue
		}
		if v.JSON {
			raw := strings.TrimSpace(v.S)
			if raw == "" {
				raw = "{}"
			}
			pairs = append(pairs, string(p), raw)
			continue
		}
		pairs = append(pairs, string(p), EscapeString(v.S))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
