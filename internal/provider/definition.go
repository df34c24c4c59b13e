// Package provider holds provider definitions: the data that tells the wire
// engine how to talk to one LLM endpoint.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nghyane/llm-wire/internal/pipeline"
	"github.com/nghyane/llm-wire/internal/wire/body"
	"github.com/nghyane/llm-wire/internal/wire/placeholder"
	"github.com/nghyane/llm-wire/internal/wire/stream"
)

var (
	ErrUnknownProvider = errors.New("provider: unknown provider")
	ErrMissingKey      = errors.New("provider: api key not set")
)

// Definition is one provider. URL and header values may reference {model}
// and {key}; BodyTemplate may reference the full placeholder vocabulary.
type Definition struct {
	Name          string             `yaml:"name" json:"name"`
	Description   string             `yaml:"description,omitempty" json:"description,omitempty"`
	URL           string             `yaml:"url" json:"url"`
	Method        string             `yaml:"method,omitempty" json:"method,omitempty"`
	Headers       map[string]string  `yaml:"headers,omitempty" json:"headers,omitempty"`
	KeyEnv        string             `yaml:"key_env,omitempty" json:"key_env,omitempty"`
	Model         string             `yaml:"model,omitempty" json:"model,omitempty"`
	BodyTemplate  string             `yaml:"body_template" json:"body_template"`
	MessageFields *body.FieldsConfig `yaml:"message_fields,omitempty" json:"message_fields,omitempty"`
	Stream        stream.Config      `yaml:"stream" json:"stream"`

	// Source is the file the definition was loaded from; empty for presets.
	Source string `yaml:"-" json:"source,omitempty"`
}

func (d *Definition) HTTPMethod() string {
	if d.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(d.Method)
}

// KeySource resolves credentials by environment variable name.
type KeySource interface {
	Lookup(name string) (string, bool)
}

// Runtime resolves the static substitutions for a request. An empty model
// falls back to the definition's default. A missing key is an error only when
// requireKey is set.
func (d *Definition) Runtime(keys KeySource, model string, requireKey bool) (body.RuntimeValues, error) {
	rt := body.RuntimeValues{Model: model}
	if rt.Model == "" {
		rt.Model = d.Model
	}
	if d.KeyEnv == "" || keys == nil {
		return rt, nil
	}
	key, ok := keys.Lookup(d.KeyEnv)
	if !ok || key == "" {
		if requireKey {
			return rt, fmt.Errorf("%w: %s (provider %s)", ErrMissingKey, d.KeyEnv, d.Name)
		}
		return rt, nil
	}
	rt.APIKey = key
	return rt, nil
}

// Endpoint returns the URL and headers with {model} and {key} substituted.
// URL values are inserted verbatim; callers escape model names if needed.
func (d *Definition) Endpoint(rt body.RuntimeValues) (string, map[string]string) {
	values := map[placeholder.Placeholder]string{
		placeholder.Model: rt.Model,
		placeholder.Key:   rt.APIKey,
	}
	headers := make(map[string]string, len(d.Headers))
	for k, v := range d.Headers {
		headers[k] = placeholder.Substitute(v, values)
	}
	return placeholder.Substitute(d.URL, values), headers
}

// Build renders conv into this provider's request body.
func (d *Definition) Build(conv body.Conversation, rt body.RuntimeValues, mode body.Mode) (*body.Result, error) {
	return body.Build(d.BodyTemplate, d.MessageFields, conv, rt, mode)
}

// Preview renders conv tolerantly for display.
func (d *Definition) Preview(conv body.Conversation, rt body.RuntimeValues) body.Preview {
	return body.RenderPreview(d.BodyTemplate, d.MessageFields, conv, rt)
}

// NewPipeline returns the parser/mapper chain for this provider's streams.
func (d *Definition) NewPipeline() *pipeline.Pipeline {
	cfg := d.Stream
	return pipeline.New(d.Name, &cfg)
}

// Clone returns a copy that shares no maps or slices with d.
func (d *Definition) Clone() *Definition {
	c := *d
	if d.Headers != nil {
		c.Headers = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			c.Headers[k] = v
		}
	}
	if d.MessageFields != nil {
		mf := *d.MessageFields
		for _, f := range []**body.FieldConfig{&mf.System, &mf.User, &mf.Assistant, &mf.ToolDefinition, &mf.ToolCall, &mf.ToolResponse} {
			if *f != nil {
				fc := **f
				*f = &fc
			}
		}
		c.MessageFields = &mf
	}
	c.Stream.StopEvents = append([]string(nil), d.Stream.StopEvents...)
	if d.Stream.Mappings != nil {
		c.Stream.Mappings = make(map[stream.EventType]stream.Mapping, len(d.Stream.Mappings))
		for k, m := range d.Stream.Mappings {
			if m.Guard != nil {
				g := *m.Guard
				m.Guard = &g
			}
			c.Stream.Mappings[k] = m
		}
	}
	if d.Stream.ToolCall != nil {
		tc := *d.Stream.ToolCall
		c.Stream.ToolCall = &tc
	}
	return &c
}
