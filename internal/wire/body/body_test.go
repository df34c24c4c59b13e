package body

import (
	"errors"
	"strings"
	"testing"

	"github.com/nghyane/llm-wire/internal/wire/jsonpath"
	"github.com/tidwall/gjson"
)

func userOnly(path, template string) *FieldsConfig {
	return &FieldsConfig{User: &FieldConfig{Path: path, Template: template}}
}

// ==================== Build Tests ====================

func TestBuild_UserTurnScenario(t *testing.T) {
	fields := userOnly("messages", `{"role":"user","content":"{prompt}"}`)
	conv := Conversation{Turns: []Turn{{Role: RoleUser, Content: "Hi"}}}

	res, err := Build(`{"model":"{model}","messages":[]}`, fields, conv, RuntimeValues{Model: "gpt-4o-mini"}, ModeSend)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := `{"model":"gpt-4o-mini","messages":[{"role":"user","content":"Hi"}]}`
	if string(res.Body) != want {
		t.Errorf("Body = %s, want %s", res.Body, want)
	}
}

func TestBuild_FlatLegacy(t *testing.T) {
	conv := Conversation{Turns: []Turn{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "last"},
	}}
	tmpl := `{"model": "{model}", "system": "{system}", "prompt": "{prompt}", "prev": "{assistant}"}`

	res, err := Build(tmpl, nil, conv, RuntimeValues{Model: "m"}, ModeSend)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := `{"model":"m","system":"a\n\nb","prompt":"last","prev":"reply"}`
	if string(res.Body) != want {
		t.Errorf("Body = %s, want %s", res.Body, want)
	}
}

func TestBuild_EscapesRuntimeValues(t *testing.T) {
	res, err := Build(`{"model":"{model}","auth":"Bearer {key}"}`, nil, Conversation{}, RuntimeValues{
		Model:  `weird"model\name`,
		APIKey: "sk\n1",
	}, ModeSend)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := gjson.GetBytes(res.Body, "model").String(); got != `weird"model\name` {
		t.Errorf("model = %q", got)
	}
	if got := gjson.GetBytes(res.Body, "auth").String(); got != "Bearer sk\n1" {
		t.Errorf("auth = %q", got)
	}
}

func TestBuild_InvalidTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{"truncated", `{"model":"{model}"`},
		{"array root", `[{"model":"{model}"}]`},
		{"bare placeholder", `{"n":{prompt}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, mode := range []Mode{ModeSend, ModePreview} {
				_, err := Build(tt.template, userOnly("messages", `{"c":"{prompt}"}`), Conversation{}, RuntimeValues{}, mode)
				var te *InvalidTemplateError
				if !errors.As(err, &te) {
					t.Errorf("%s: err = %v, want *InvalidTemplateError", mode, err)
				}
			}
		})
	}
}

func TestBuild_FieldRenderFailure(t *testing.T) {
	fields := userOnly("messages", `{"content":{prompt}}`)
	conv := Conversation{Turns: []Turn{{Role: RoleUser, Content: "Hi"}}}

	_, err := Build(`{"messages":[]}`, fields, conv, RuntimeValues{}, ModeSend)
	var fe *FieldRenderError
	if !errors.As(err, &fe) {
		t.Fatalf("send err = %v, want *FieldRenderError", err)
	}
	if fe.Role != FieldUser || fe.Index != 0 || !errors.Is(err, ErrFragmentInvalid) {
		t.Errorf("FieldRenderError = %+v", fe)
	}

	res, err := Build(`{"messages":[]}`, fields, conv, RuntimeValues{}, ModePreview)
	if err != nil {
		t.Fatalf("preview err = %v", err)
	}
	if string(res.Body) != `{"messages":[]}` {
		t.Errorf("preview Body = %s", res.Body)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Role != FieldUser {
		t.Errorf("Skipped = %v", res.Skipped)
	}
}

func TestBuild_ToolRoundTrip(t *testing.T) {
	fields := &FieldsConfig{
		System: &FieldConfig{Path: "system", Template: `"{system}"`, Shape: jsonpath.ShapeSingle},
		User:   &FieldConfig{Path: "messages", Template: `{"role":"user","content":"{prompt}"}`},
		Assistant: &FieldConfig{Path: "messages",
			Template: `{"role":"assistant","content":"{assistant}"}`},
		ToolDefinition: &FieldConfig{Path: "tools",
			Template: `{"name":"{tool_name}","description":"{tool_description}","input_schema":{tool_parameters}}`},
		ToolCall: &FieldConfig{Path: "messages",
			Template: `{"role":"assistant","content":[{"type":"tool_use","id":"{tool_id}","name":"{tool_name}","input":{tool_parameters}}]}`},
		ToolResponse: &FieldConfig{Path: "messages",
			Template: `{"role":"user","content":[{"type":"tool_result","tool_use_id":"{tool_id}","content":"{tool_response}"}]}`},
	}

	res, err := Build(`{"model":"{model}","max_tokens":1024}`, fields, SampleConversation(), SampleRuntime(), ModeSend)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	body := res.Body

	checks := map[string]string{
		"model":                            "sample-model",
		"system":                           "You are a helpful assistant.",
		"tools.0.name":                     "get_weather",
		"tools.0.input_schema.type":        "object",
		"messages.0.content":               `What is the weather in "Paris"?`,
		"messages.1.content.0.type":        "tool_use",
		"messages.1.content.0.input.city":  "Paris",
		"messages.2.content.0.tool_use_id": "call_1",
		"messages.2.content.0.content":     "18C and sunny",
		"messages.3.content":               "It is 18C and sunny in Paris.",
	}
	for path, want := range checks {
		if got := gjson.GetBytes(body, path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
	if n := gjson.GetBytes(body, "messages.#").Int(); n != 4 {
		t.Errorf("messages.# = %d, want 4 (%s)", n, body)
	}
	if !strings.HasPrefix(string(body), `{"model":"sample-model","max_tokens":1024,`) {
		t.Errorf("template keys reordered: %s", body)
	}
}

func TestBuild_SingleShapeKeepsRepeatedSystemTurns(t *testing.T) {
	fields := &FieldsConfig{
		System: &FieldConfig{Path: "system_instruction", Template: `{"parts":[{"text":"{system}"}]}`, Shape: jsonpath.ShapeSingle},
		User:   &FieldConfig{Path: "contents", Template: `{"role":"user","parts":[{"text":"{prompt}"}]}`},
	}
	conv := Conversation{Turns: []Turn{
		{Role: RoleSystem, Content: "first"},
		{Role: RoleSystem, Content: "second"},
		{Role: RoleUser, Content: "hello"},
	}}

	res, err := Build(`{}`, fields, conv, RuntimeValues{}, ModeSend)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := gjson.GetBytes(res.Body, "system_instruction.0.parts.0.text").String(); got != "first" {
		t.Errorf("first system text = %q (%s)", got, res.Body)
	}
	if got := gjson.GetBytes(res.Body, "system_instruction.1.parts.0.text").String(); got != "second" {
		t.Errorf("second system text = %q (%s)", got, res.Body)
	}
	if !gjson.GetBytes(res.Body, "contents").IsArray() {
		t.Errorf("contents should be an array even with one turn: %s", res.Body)
	}
}

func TestBuild_FlatSubstitutesOnce(t *testing.T) {
	conv := Conversation{Turns: []Turn{{Role: RoleUser, Content: "SECRET-PROMPT"}}}

	res, err := Build(`{"model":"{model}","prompt":"{prompt}"}`, nil, conv, RuntimeValues{Model: "x{prompt}"}, ModeSend)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := gjson.GetBytes(res.Body, "model").String(); got != "x{prompt}" {
		t.Errorf("model = %q, want literal x{prompt} (%s)", got, res.Body)
	}
	if got := gjson.GetBytes(res.Body, "prompt").String(); got != "SECRET-PROMPT" {
		t.Errorf("prompt = %q", got)
	}
}

func TestBuild_ToolCallsDroppedWithoutField(t *testing.T) {
	fields := userOnly("messages", `{"role":"user","content":"{prompt}"}`)
	fields.Assistant = &FieldConfig{Path: "messages", Template: `{"role":"assistant","content":"{assistant}"}`}
	conv := Conversation{Turns: []Turn{
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "f", Arguments: `{}`}}},
		{Role: RoleTool, Content: "r"},
	}}

	res, err := Build(`{}`, fields, conv, RuntimeValues{}, ModeSend)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := string(res.Body); got != `{"messages":[{"role":"user","content":"q"}]}` {
		t.Errorf("Body = %s", got)
	}
}

// ==================== Preview Tests ====================

func TestRenderPreview_InvalidTemplateKeepsText(t *testing.T) {
	tmpl := `{"model": {model}`
	p := RenderPreview(tmpl, nil, Conversation{}, SampleRuntime())
	if p.Body != tmpl {
		t.Errorf("Body = %q, want original template", p.Body)
	}
	if p.Err == nil || len(p.Notes()) != 1 {
		t.Errorf("Err = %v, Notes = %v", p.Err, p.Notes())
	}
}

func TestRenderPreview_PrettyPrints(t *testing.T) {
	p := RenderPreview(`{"model":"{model}"}`, nil, Conversation{}, SampleRuntime())
	if p.Err != nil {
		t.Fatalf("Err = %v", p.Err)
	}
	if p.Body != "{\n  \"model\": \"sample-model\"\n}" {
		t.Errorf("Body = %q", p.Body)
	}
}

// ==================== Check Tests ====================

func TestCheckTemplate(t *testing.T) {
	if err := CheckTemplate(`{"model":"{model}","tools":[{tool_parameters}]}`); err != nil {
		t.Errorf("CheckTemplate valid = %v", err)
	}
	if err := CheckTemplate(`{"model":"{model}",}`); err == nil {
		t.Error("CheckTemplate should reject trailing comma")
	}
}

func TestFieldsConfig_Check(t *testing.T) {
	c := &FieldsConfig{
		System:         &FieldConfig{Path: "messages", Template: `{"role":"system","content":"fixed"}`, Shape: jsonpath.ShapeSingle},
		User:           &FieldConfig{Path: "messages", Template: `{"role":"user","content":{prompt}}`},
		ToolDefinition: &FieldConfig{Path: "tools", Template: `{"name":"{tool_name}","parameters":{tool_parameters}}`},
	}
	problems := c.Check()

	has := func(field FieldRole, sev Severity, substr string) bool {
		for _, p := range problems {
			if p.Field == field && p.Severity == sev && strings.Contains(p.Message, substr) {
				return true
			}
		}
		return false
	}
	if !has(FieldSystem, SeverityWarning, "{system}") {
		t.Errorf("missing system placeholder warning: %v", problems)
	}
	if !has(FieldUser, SeverityError, "valid JSON") {
		t.Errorf("missing user render error: %v", problems)
	}
	if !has(FieldUser, SeverityWarning, "different shape") {
		t.Errorf("missing shape conflict warning: %v", problems)
	}
	if !has(FieldToolDefinition, SeverityWarning, "{tool_description}") {
		t.Errorf("missing tool description warning: %v", problems)
	}
}

func TestFieldsConfig_Predicates(t *testing.T) {
	var nilCfg *FieldsConfig
	if nilCfg.HasAnyField() || nilCfg.HasToolFields() {
		t.Error("nil config should have no fields")
	}
	c := &FieldsConfig{
		User:     &FieldConfig{Path: "  ", Template: `{}`},
		ToolCall: &FieldConfig{Path: "messages", Template: `{}`},
	}
	if c.HasAnyField() {
		t.Error("blank path should disable the user field")
	}
	if !c.HasToolFields() {
		t.Error("tool_call field should count as a tool field")
	}
}
