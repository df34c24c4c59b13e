// Package placeholder implements the fixed token vocabulary used by provider body
// templates and the byte-level substitution over it.
//
// Substitution knows nothing about JSON structure. Values headed for a JSON string
// position must be escaped with EscapeString first; Render does that for callers
// that hold typed values.
package placeholder

import (
	"strings"
)

// Placeholder is one bit-exact token recognised inside templates.
type Placeholder string

const (
	Model           Placeholder = "{model}"
	Key             Placeholder = "{key}"
	System          Placeholder = "{system}"
	Prompt          Placeholder = "{prompt}"
	Assistant       Placeholder = "{assistant}"
	ToolName        Placeholder = "{tool_name}"
	ToolDescription Placeholder = "{tool_description}"
	ToolParameters  Placeholder = "{tool_parameters}"
	ToolID          Placeholder = "{tool_id}"
	ToolResponse    Placeholder = "{tool_response}"
)

// All lists the vocabulary in a stable order.
var All = []Placeholder{
	Model, Key, System, Prompt, Assistant,
	ToolName, ToolDescription, ToolParameters, ToolID, ToolResponse,
}

// Known reports whether p is part of the vocabulary.
func Known(p Placeholder) bool {
	for _, k := range All {
		if k == p {
			return true
		}
	}
	return false
}

// Substitute replaces every vocabulary token present in values with its value.
// Tokens missing from values stay verbatim. Replacement is a single left-to-right
// pass, so a value containing a token is never expanded again.
func Substitute(template string, values map[Placeholder]string) string {
	if template == "" || len(values) == 0 {
		return template
	}
	pairs := make([]string, 0, len(values)*2)
	for _, p := range All {
		if v, ok := values[p]; ok {
			pairs = append(pairs, string(p), v)
		}
	}
	if len(pairs) == 0 {
		return template
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Tokens returns the vocabulary tokens referenced by template, in vocabulary order.
func Tokens(template string) []Placeholder {
	var out []Placeholder
	for _, p := range All {
		if strings.Contains(template, string(p)) {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports whether template references p.
func Contains(template string, p Placeholder) bool {
	return strings.Contains(template, string(p))
}
