package body

import (
	"fmt"
	"strings"

	"github.com/nghyane/llm-wire/internal/json"
	"github.com/nghyane/llm-wire/internal/wire/placeholder"
	"github.com/tidwall/gjson"
)

// Preview is a tolerant rendering for display. On an invalid template Body is
// the template text unchanged and Err says why.
type Preview struct {
	Body    string              `json:"body"`
	Skipped []*FieldRenderError `json:"-"`
	Err     error               `json:"-"`
}

// Notes renders Err and Skipped as display lines.
func (p Preview) Notes() []string {
	var notes []string
	if p.Err != nil {
		notes = append(notes, p.Err.Error())
	}
	for _, s := range p.Skipped {
		notes = append(notes, s.Error())
	}
	return notes
}

// RenderPreview builds in ModePreview and pretty-prints the result.
func RenderPreview(template string, fields *FieldsConfig, conv Conversation, rt RuntimeValues) Preview {
	res, err := Build(template, fields, conv, rt, ModePreview)
	if err != nil {
		return Preview{Body: template, Err: err}
	}
	return Preview{Body: string(json.Pretty(res.Body)), Skipped: res.Skipped}
}

// SampleRuntime and SampleConversation feed validation and previews.
func SampleRuntime() RuntimeValues {
	return RuntimeValues{Model: "sample-model", APIKey: "sample-key"}
}

func SampleConversation() Conversation {
	return Conversation{
		Tools: []Tool{{
			Name:        "get_weather",
			Description: "Look up the current weather",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
		}},
		Turns: []Turn{
			{Role: RoleSystem, Content: "You are a helpful assistant."},
			{Role: RoleUser, Content: "What is the weather in \"Paris\"?"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Paris"}`}}},
			{Role: RoleTool, ToolResult: &ToolResult{ID: "call_1", Name: "get_weather", Content: "18C and sunny"}},
			{Role: RoleAssistant, Content: "It is 18C and sunny in Paris."},
		},
	}
}

func sampleValues() placeholder.Values {
	return placeholder.Values{
		placeholder.Model:           placeholder.Text("sample-model"),
		placeholder.Key:             placeholder.Text("sample-key"),
		placeholder.System:          placeholder.Text("sample system"),
		placeholder.Prompt:          placeholder.Text("sample prompt"),
		placeholder.Assistant:       placeholder.Text("sample reply"),
		placeholder.ToolName:        placeholder.Text("sample_tool"),
		placeholder.ToolDescription: placeholder.Text("sample description"),
		placeholder.ToolParameters:  placeholder.RawJSON(`{"type":"object"}`),
		placeholder.ToolID:          placeholder.Text("sample-id"),
		placeholder.ToolResponse:    placeholder.Text("sample result"),
	}
}

// CheckTemplate reports whether template is a JSON object once every
// placeholder is replaced by a sample value.
func CheckTemplate(template string) error {
	_, err := parseTemplate(placeholder.Render(template, sampleValues()))
	return err
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Problem is one finding of Check.
type Problem struct {
	Field    FieldRole `json:"field,omitempty"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

func (p Problem) String() string {
	if p.Field == "" {
		return fmt.Sprintf("%s: %s", p.Severity, p.Message)
	}
	return fmt.Sprintf("%s: %s: %s", p.Severity, p.Field, p.Message)
}

// Check validates every enabled slot: the template must render to JSON with
// sample values, should reference its role's placeholders, and slots sharing a
// path should agree on shape.
func (c *FieldsConfig) Check() []Problem {
	var problems []Problem
	shapes := map[string]FieldRole{}
	c.Each(func(role FieldRole, f *FieldConfig) {
		rendered := placeholder.Render(f.Template, sampleValues())
		if !gjson.Valid(rendered) {
			problems = append(problems, Problem{
				Field: role, Severity: SeverityError,
				Message: "template does not render to valid JSON",
			})
		}
		var missing []string
		for _, p := range RequiredPlaceholders(role) {
			if !placeholder.Contains(f.Template, p) {
				missing = append(missing, string(p))
			}
		}
		if len(missing) > 0 {
			problems = append(problems, Problem{
				Field: role, Severity: SeverityWarning,
				Message: "template does not reference " + strings.Join(missing, ", "),
			})
		}
		if f.Shape != "" && f.Shape.Normalize() != f.Shape {
			problems = append(problems, Problem{
				Field: role, Severity: SeverityWarning,
				Message: fmt.Sprintf("unknown shape %q, using array", f.Shape),
			})
		}
		path := strings.TrimSpace(f.Path)
		if other, ok := shapes[path]; ok && c.Field(other).Shape.Normalize() != f.Shape.Normalize() {
			problems = append(problems, Problem{
				Field: role, Severity: SeverityWarning,
				Message: fmt.Sprintf("path %q shared with %s under a different shape, array wins", path, other),
			})
		} else if !ok {
			shapes[path] = role
		}
	})
	return problems
}
