package provider

import (
	"github.com/nghyane/llm-wire/internal/wire/body"
	"github.com/nghyane/llm-wire/internal/wire/stream"
)

// Presets returns fresh copies of the built-in definitions.
func Presets() []*Definition {
	return []*Definition{openAI(), anthropic(), google(), poe()}
}

func openAI() *Definition {
	return &Definition{
		Name:        "openai",
		Description: "OpenAI Chat Completions",
		URL:         "https://api.openai.com/v1/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer {key}",
			"Content-Type":  "application/json",
		},
		KeyEnv:       "OPENAI_API_KEY",
		Model:        "gpt-4o-mini",
		BodyTemplate: `{"model":"{model}","stream":true,"messages":[]}`,
		MessageFields: &body.FieldsConfig{
			System:    &body.FieldConfig{Path: "messages", Template: `{"role":"system","content":"{system}"}`},
			User:      &body.FieldConfig{Path: "messages", Template: `{"role":"user","content":"{prompt}"}`},
			Assistant: &body.FieldConfig{Path: "messages", Template: `{"role":"assistant","content":"{assistant}"}`},
			ToolDefinition: &body.FieldConfig{Path: "tools",
				Template: `{"type":"function","function":{"name":"{tool_name}","description":"{tool_description}","parameters":{tool_parameters}}}`},
			ToolCall: &body.FieldConfig{Path: "messages",
				Template: `{"role":"assistant","tool_calls":[{"id":"{tool_id}","type":"function","function":{"name":"{tool_name}","arguments":"{tool_parameters}"}}]}`},
			ToolResponse: &body.FieldConfig{Path: "messages",
				Template: `{"role":"tool","tool_call_id":"{tool_id}","content":"{tool_response}"}`},
		},
		Stream: stream.Config{
			Type:           stream.DataOnly,
			DoneMarker:     "[DONE]",
			SkipKeepalives: true,
			Mappings: map[stream.EventType]stream.Mapping{
				stream.EventTextContent:     {FieldPath: "choices.0.delta.content"},
				stream.EventThinkingContent: {FieldPath: "choices.0.delta.reasoning_content"},
			},
			ToolCall: &stream.ToolCallConfig{
				NamePath:       "choices.0.delta.tool_calls.0.function.name",
				IDPath:         "choices.0.delta.tool_calls.0.id",
				IndexPath:      "choices.0.delta.tool_calls.0.index",
				ParametersPath: "choices.0.delta.tool_calls.0.function.arguments",
			},
		},
	}
}

func anthropic() *Definition {
	return &Definition{
		Name:        "anthropic",
		Description: "Anthropic Messages",
		URL:         "https://api.anthropic.com/v1/messages",
		Headers: map[string]string{
			"x-api-key":         "{key}",
			"anthropic-version": "2023-06-01",
			"Content-Type":      "application/json",
		},
		KeyEnv:       "ANTHROPIC_API_KEY",
		Model:        "claude-sonnet-4-5",
		BodyTemplate: `{"model":"{model}","max_tokens":8192,"stream":true,"messages":[]}`,
		MessageFields: &body.FieldsConfig{
			System:    &body.FieldConfig{Path: "system", Template: `{"type":"text","text":"{system}"}`},
			User:      &body.FieldConfig{Path: "messages", Template: `{"role":"user","content":"{prompt}"}`},
			Assistant: &body.FieldConfig{Path: "messages", Template: `{"role":"assistant","content":"{assistant}"}`},
			ToolDefinition: &body.FieldConfig{Path: "tools",
				Template: `{"name":"{tool_name}","description":"{tool_description}","input_schema":{tool_parameters}}`},
			ToolCall: &body.FieldConfig{Path: "messages",
				Template: `{"role":"assistant","content":[{"type":"tool_use","id":"{tool_id}","name":"{tool_name}","input":{tool_parameters}}]}`},
			ToolResponse: &body.FieldConfig{Path: "messages",
				Template: `{"role":"user","content":[{"type":"tool_result","tool_use_id":"{tool_id}","content":"{tool_response}"}]}`},
		},
		Stream: stream.Config{
			Type:       stream.EventData,
			StopEvents: []string{"message_stop"},
			Mappings: map[stream.EventType]stream.Mapping{
				stream.EventTextContent: {EventName: "content_block_delta", FieldPath: "delta.text"},
				stream.EventThinkingStart: {EventName: "content_block_start",
					Guard: &stream.Guard{Path: "content_block.type", Equals: "thinking"}},
				stream.EventThinkingContent: {EventName: "content_block_delta", FieldPath: "delta.thinking"},
			},
			ToolCall: &stream.ToolCallConfig{
				EventName:           "content_block_start",
				NamePath:            "content_block.name",
				IDPath:              "content_block.id",
				IndexPath:           "index",
				ParametersEventName: "content_block_delta",
				ParametersPath:      "delta.partial_json",
			},
		},
	}
}

// Gemini sends one part per streamed chunk, with thought and answer parts in
// separate chunks, so only the first part of each chunk is mapped.
func google() *Definition {
	thought := "candidates.0.content.parts.0.thought"
	return &Definition{
		Name:        "google",
		Description: "Google Gemini streamGenerateContent",
		URL:         "https://generativelanguage.googleapis.com/v1beta/models/{model}:streamGenerateContent?alt=sse",
		Headers: map[string]string{
			"x-goog-api-key": "{key}",
			"Content-Type":   "application/json",
		},
		KeyEnv:       "GEMINI_API_KEY",
		Model:        "gemini-2.5-flash",
		BodyTemplate: `{"contents":[],"generationConfig":{"thinkingConfig":{"includeThoughts":true}}}`,
		MessageFields: &body.FieldsConfig{
			System:    &body.FieldConfig{Path: "system_instruction.parts", Template: `{"text":"{system}"}`},
			User:      &body.FieldConfig{Path: "contents", Template: `{"role":"user","parts":[{"text":"{prompt}"}]}`},
			Assistant: &body.FieldConfig{Path: "contents", Template: `{"role":"model","parts":[{"text":"{assistant}"}]}`},
			ToolDefinition: &body.FieldConfig{Path: "tools",
				Template: `{"functionDeclarations":[{"name":"{tool_name}","description":"{tool_description}","parameters":{tool_parameters}}]}`},
			ToolCall: &body.FieldConfig{Path: "contents",
				Template: `{"role":"model","parts":[{"functionCall":{"name":"{tool_name}","args":{tool_parameters}}}]}`},
			ToolResponse: &body.FieldConfig{Path: "contents",
				Template: `{"role":"user","parts":[{"functionResponse":{"name":"{tool_name}","response":{"content":"{tool_response}"}}}]}`},
		},
		Stream: stream.Config{
			Type:           stream.DataOnly,
			SkipKeepalives: true,
			Mappings: map[stream.EventType]stream.Mapping{
				stream.EventTextContent: {FieldPath: "candidates.0.content.parts.0.text",
					Guard: &stream.Guard{Path: thought, Equals: "true", Not: true}},
				stream.EventThinkingContent: {FieldPath: "candidates.0.content.parts.0.text",
					Guard: &stream.Guard{Path: thought, Equals: "true"}},
				stream.EventStreamEnd: {FieldPath: "candidates.0.finishReason"},
			},
			ToolCall: &stream.ToolCallConfig{
				NamePath:       "candidates.0.content.parts.0.functionCall.name",
				ParametersPath: "candidates.0.content.parts.0.functionCall.args",
			},
		},
	}
}

func poe() *Definition {
	return &Definition{
		Name:        "poe",
		Description: "Poe server bot protocol",
		URL:         "https://api.poe.com/bot/{model}",
		Headers: map[string]string{
			"Authorization": "Bearer {key}",
			"Content-Type":  "application/json",
		},
		KeyEnv:       "POE_API_KEY",
		Model:        "Claude-Sonnet-4.5",
		BodyTemplate: `{"version":"1.2","type":"query","query":[],"user_id":"","conversation_id":"","message_id":""}`,
		MessageFields: &body.FieldsConfig{
			System:    &body.FieldConfig{Path: "query", Template: `{"role":"system","content":"{system}","content_type":"text/markdown"}`},
			User:      &body.FieldConfig{Path: "query", Template: `{"role":"user","content":"{prompt}","content_type":"text/markdown"}`},
			Assistant: &body.FieldConfig{Path: "query", Template: `{"role":"bot","content":"{assistant}","content_type":"text/markdown"}`},
		},
		Stream: stream.Config{
			Type:       stream.EventData,
			StopEvents: []string{"done"},
			Mappings: map[stream.EventType]stream.Mapping{
				stream.EventTextContent: {EventName: "text", FieldPath: "text"},
			},
		},
	}
}
