package body

import (
	"errors"
	"strings"

	"github.com/nghyane/llm-wire/internal/json"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/wire/jsonpath"
	"github.com/nghyane/llm-wire/internal/wire/placeholder"
	"github.com/tidwall/gjson"
)

// Mode selects how fragment render failures are handled.
type Mode int

const (
	// ModeSend aborts on the first fragment that fails to render.
	ModeSend Mode = iota
	// ModePreview skips failing fragments and reports them in Result.Skipped.
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "send"
}

// Result is a built request body.
type Result struct {
	Body    []byte
	Skipped []*FieldRenderError
}

// Build renders conv into template.
//
// With no enabled system/user/assistant slot the template is treated as a flat
// legacy body and {system}, {prompt} and {assistant} are substituted in place.
// Otherwise each turn renders its slot's template and the fragments are injected
// by path, grouped so repeated roles at one path become one array.
func Build(template string, fields *FieldsConfig, conv Conversation, rt RuntimeValues, mode Mode) (*Result, error) {
	values := map[placeholder.Placeholder]string{
		placeholder.Model: placeholder.EscapeString(rt.Model),
		placeholder.Key:   placeholder.EscapeString(rt.APIKey),
	}

	if !fields.HasAnyField() {
		if fields.HasToolFields() {
			log.Debug("body: tool fields ignored without a system/user/assistant field")
		}
		// One pass, so text inserted for one placeholder is never rescanned.
		for p, v := range flatValues(conv) {
			values[p] = v
		}
		doc, err := parseTemplate(placeholder.Substitute(template, values))
		if err != nil {
			return nil, err
		}
		return &Result{Body: compact(doc)}, nil
	}

	doc, err := parseTemplate(placeholder.Substitute(template, values))
	if err != nil {
		return nil, err
	}

	r := renderer{fields: fields, rt: rt, mode: mode}
	if err := r.renderConversation(conv); err != nil {
		return nil, err
	}

	out, err := jsonpath.Apply(doc, r.injections)
	if err != nil {
		return nil, err
	}
	return &Result{Body: compact(out), Skipped: r.skipped}, nil
}

func parseTemplate(text string) ([]byte, error) {
	doc := []byte(text)
	if !json.Valid(doc) {
		var v any
		err := json.Unmarshal(doc, &v)
		if err == nil {
			err = errors.New("malformed JSON")
		}
		return nil, &InvalidTemplateError{Err: err}
	}
	if !gjson.ParseBytes(doc).IsObject() {
		return nil, &InvalidTemplateError{Err: errors.New("template root must be a JSON object")}
	}
	return doc, nil
}

func compact(doc []byte) []byte {
	var out []byte
	if err := json.Compact(&out, doc); err != nil {
		return doc
	}
	return out
}

func flatValues(conv Conversation) map[placeholder.Placeholder]string {
	var systems []string
	var prompt, assistant string
	for _, t := range conv.Turns {
		switch t.Role {
		case RoleSystem:
			if t.Content != "" {
				systems = append(systems, t.Content)
			}
		case RoleUser:
			prompt = t.Content
		case RoleAssistant:
			assistant = t.Content
		}
	}
	return map[placeholder.Placeholder]string{
		placeholder.System:    placeholder.EscapeString(strings.Join(systems, "\n\n")),
		placeholder.Prompt:    placeholder.EscapeString(prompt),
		placeholder.Assistant: placeholder.EscapeString(assistant),
	}
}

type renderer struct {
	fields     *FieldsConfig
	rt         RuntimeValues
	mode       Mode
	injections []jsonpath.Injection
	skipped    []*FieldRenderError
}

func (r *renderer) renderConversation(conv Conversation) error {
	if def := r.fields.ToolDefinition; def.Enabled() {
		for i, tool := range conv.Tools {
			err := r.add(FieldToolDefinition, i, def, placeholder.Values{
				placeholder.ToolName:        placeholder.Text(tool.Name),
				placeholder.ToolDescription: placeholder.Text(tool.Description),
				placeholder.ToolParameters:  placeholder.RawJSON(string(tool.Parameters)),
			})
			if err != nil {
				return err
			}
		}
	}

	for i, turn := range conv.Turns {
		if err := r.renderTurn(i, turn); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderTurn(i int, turn Turn) error {
	switch turn.Role {
	case RoleSystem:
		return r.addText(FieldSystem, i, placeholder.System, turn.Content)
	case RoleUser:
		return r.addText(FieldUser, i, placeholder.Prompt, turn.Content)
	case RoleAssistant:
		if turn.Content != "" || len(turn.ToolCalls) == 0 {
			if err := r.addText(FieldAssistant, i, placeholder.Assistant, turn.Content); err != nil {
				return err
			}
		}
		f := r.fields.ToolCall
		if !f.Enabled() {
			if len(turn.ToolCalls) > 0 {
				log.WithField("turn", i).Debug("body: tool calls dropped, no tool_call field")
			}
			return nil
		}
		for _, call := range turn.ToolCalls {
			err := r.add(FieldToolCall, i, f, placeholder.Values{
				placeholder.ToolID:         placeholder.Text(call.ID),
				placeholder.ToolName:       placeholder.Text(call.Name),
				placeholder.ToolParameters: placeholder.RawJSON(call.Arguments),
			})
			if err != nil {
				return err
			}
		}
		return nil
	case RoleTool:
		f := r.fields.ToolResponse
		if !f.Enabled() {
			log.WithField("turn", i).Debug("body: tool result dropped, no tool_response field")
			return nil
		}
		res := ToolResult{Content: turn.Content}
		if turn.ToolResult != nil {
			res = *turn.ToolResult
		}
		return r.add(FieldToolResponse, i, f, placeholder.Values{
			placeholder.ToolID:       placeholder.Text(res.ID),
			placeholder.ToolName:     placeholder.Text(res.Name),
			placeholder.ToolResponse: placeholder.Text(res.Content),
		})
	default:
		log.WithField("role", turn.Role).Debug("body: unknown turn role skipped")
		return nil
	}
}

func (r *renderer) addText(role FieldRole, i int, p placeholder.Placeholder, content string) error {
	f := r.fields.Field(role)
	if !f.Enabled() {
		return nil
	}
	return r.add(role, i, f, placeholder.Values{p: placeholder.Text(content)})
}

func (r *renderer) add(role FieldRole, i int, f *FieldConfig, values placeholder.Values) error {
	values[placeholder.Model] = placeholder.Text(r.rt.Model)
	values[placeholder.Key] = placeholder.Text(r.rt.APIKey)

	fragment := []byte(placeholder.Render(f.Template, values))
	if !gjson.ValidBytes(fragment) {
		ferr := &FieldRenderError{Role: role, Index: i, Err: ErrFragmentInvalid}
		if r.mode == ModeSend {
			return ferr
		}
		log.WithField("field", role).WithField("index", i).Warn("body: fragment skipped in preview")
		r.skipped = append(r.skipped, ferr)
		return nil
	}
	r.injections = append(r.injections, jsonpath.Injection{
		Path:  f.Path,
		Shape: f.Shape,
		Value: fragment,
	})
	return nil
}
