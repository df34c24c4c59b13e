// Package body builds provider request bodies from a static template plus
// per-role message field configuration.
package body

import (
	"strings"

	"github.com/nghyane/llm-wire/internal/json"
	"github.com/nghyane/llm-wire/internal/wire/jsonpath"
	"github.com/nghyane/llm-wire/internal/wire/placeholder"
)

// Role is the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a call made by the assistant. Arguments holds raw JSON text.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// ToolResult answers a ToolCall.
type ToolResult struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

type Turn struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// Tool is a declared tool. Parameters is a JSON schema.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type Conversation struct {
	Turns []Turn `json:"turns"`
	Tools []Tool `json:"tools,omitempty"`
}

// RuntimeValues are the per-request static substitutions.
type RuntimeValues struct {
	Model  string
	APIKey string
}

// FieldRole names one of the six message field slots.
type FieldRole string

const (
	FieldSystem         FieldRole = "system"
	FieldUser           FieldRole = "user"
	FieldAssistant      FieldRole = "assistant"
	FieldToolDefinition FieldRole = "tool_definition"
	FieldToolCall       FieldRole = "tool_call"
	FieldToolResponse   FieldRole = "tool_response"
)

// FieldRoles lists the slots in rendering order.
var FieldRoles = []FieldRole{
	FieldSystem, FieldUser, FieldAssistant,
	FieldToolDefinition, FieldToolCall, FieldToolResponse,
}

// FieldConfig places a rendered JSON fragment at Path. A blank Path disables it.
type FieldConfig struct {
	Path     string         `yaml:"path" json:"path"`
	Template string         `yaml:"template" json:"template"`
	Shape    jsonpath.Shape `yaml:"shape,omitempty" json:"shape,omitempty"`
}

func (f *FieldConfig) Enabled() bool {
	return f != nil && jsonpath.Enabled(f.Path) && strings.TrimSpace(f.Template) != ""
}

// FieldsConfig is the per-role field configuration of one provider. Every slot is optional.
type FieldsConfig struct {
	System         *FieldConfig `yaml:"system,omitempty" json:"system,omitempty"`
	User           *FieldConfig `yaml:"user,omitempty" json:"user,omitempty"`
	Assistant      *FieldConfig `yaml:"assistant,omitempty" json:"assistant,omitempty"`
	ToolDefinition *FieldConfig `yaml:"tool_definition,omitempty" json:"tool_definition,omitempty"`
	ToolCall       *FieldConfig `yaml:"tool_call,omitempty" json:"tool_call,omitempty"`
	ToolResponse   *FieldConfig `yaml:"tool_response,omitempty" json:"tool_response,omitempty"`
}

// HasAnyField reports whether a system, user or assistant slot is enabled.
func (c *FieldsConfig) HasAnyField() bool {
	return c != nil && (c.System.Enabled() || c.User.Enabled() || c.Assistant.Enabled())
}

// HasToolFields reports whether any tool slot is enabled.
func (c *FieldsConfig) HasToolFields() bool {
	return c != nil && (c.ToolDefinition.Enabled() || c.ToolCall.Enabled() || c.ToolResponse.Enabled())
}

// Field returns the slot for role, or nil.
func (c *FieldsConfig) Field(role FieldRole) *FieldConfig {
	if c == nil {
		return nil
	}
	switch role {
	case FieldSystem:
		return c.System
	case FieldUser:
		return c.User
	case FieldAssistant:
		return c.Assistant
	case FieldToolDefinition:
		return c.ToolDefinition
	case FieldToolCall:
		return c.ToolCall
	case FieldToolResponse:
		return c.ToolResponse
	}
	return nil
}

// Each calls fn for every enabled slot in FieldRoles order.
func (c *FieldsConfig) Each(fn func(FieldRole, *FieldConfig)) {
	for _, role := range FieldRoles {
		if f := c.Field(role); f.Enabled() {
			fn(role, f)
		}
	}
}

// RequiredPlaceholders lists the tokens a slot's template is expected to reference.
func RequiredPlaceholders(role FieldRole) []placeholder.Placeholder {
	switch role {
	case FieldSystem:
		return []placeholder.Placeholder{placeholder.System}
	case FieldUser:
		return []placeholder.Placeholder{placeholder.Prompt}
	case FieldAssistant:
		return []placeholder.Placeholder{placeholder.Assistant}
	case FieldToolDefinition:
		return []placeholder.Placeholder{placeholder.ToolName, placeholder.ToolDescription, placeholder.ToolParameters}
	case FieldToolCall:
		return []placeholder.Placeholder{placeholder.ToolName, placeholder.ToolParameters}
	case FieldToolResponse:
		return []placeholder.Placeholder{placeholder.ToolResponse}
	}
	return nil
}
