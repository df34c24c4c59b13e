// Package stream turns the raw line stream of a streaming HTTP response into
// typed events, driven entirely by a declarative Config.
package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nghyane/llm-wire/internal/wire/jsonpath"
)

// ParserType selects the wire style.
type ParserType string

const (
	// EventData streams are SSE frames of "event:" and "data:" pairs.
	EventData ParserType = "EVENT_DATA"
	// DataOnly streams carry bare "data:" payloads, optionally tagged by a field.
	DataOnly ParserType = "DATA_ONLY"
)

// EventType keys a content mapping.
type EventType string

const (
	EventTextContent     EventType = "TEXT_CONTENT"
	EventStreamEnd       EventType = "STREAM_END"
	EventThinkingStart   EventType = "THINKING_START"
	EventThinkingContent EventType = "THINKING_CONTENT"
)

// EventTypes lists the mapping keys.
var EventTypes = []EventType{EventTextContent, EventStreamEnd, EventThinkingStart, EventThinkingContent}

// Guard restricts a mapping to payloads whose value at Path renders as Equals
// (or anything else when Not is set). A missing value renders as "".
type Guard struct {
	Path   string `yaml:"path" json:"path"`
	Equals string `yaml:"equals" json:"equals"`
	Not    bool   `yaml:"not,omitempty" json:"not,omitempty"`
}

// Mapping binds a provider event name to the payload path holding its value.
// An empty EventName matches every event. For THINKING_START and STREAM_END the
// path only has to exist; an empty path fires on the event name alone.
type Mapping struct {
	EventName string `yaml:"event_name,omitempty" json:"event_name,omitempty"`
	FieldPath string `yaml:"field_path,omitempty" json:"field_path,omitempty"`
	Guard     *Guard `yaml:"guard,omitempty" json:"guard,omitempty"`
}

// ToolCallConfig describes where tool calls live. NamePath is mandatory.
// ParametersEventName defaults to EventName.
type ToolCallConfig struct {
	EventName           string `yaml:"event_name,omitempty" json:"event_name,omitempty"`
	NamePath            string `yaml:"name_path" json:"name_path"`
	IDPath              string `yaml:"id_path,omitempty" json:"id_path,omitempty"`
	IndexPath           string `yaml:"index_path,omitempty" json:"index_path,omitempty"`
	ParametersEventName string `yaml:"parameters_event_name,omitempty" json:"parameters_event_name,omitempty"`
	ParametersPath      string `yaml:"parameters_path,omitempty" json:"parameters_path,omitempty"`
}

func (t *ToolCallConfig) parametersEvent() string {
	if t.ParametersEventName != "" {
		return t.ParametersEventName
	}
	return t.EventName
}

type Config struct {
	Type           ParserType            `yaml:"type" json:"type"`
	StopEvents     []string              `yaml:"stop_events,omitempty" json:"stop_events,omitempty"`
	EventTypeField string                `yaml:"event_type_field,omitempty" json:"event_type_field,omitempty"`
	DoneMarker     string                `yaml:"done_marker,omitempty" json:"done_marker,omitempty"`
	SkipKeepalives bool                  `yaml:"skip_keepalives,omitempty" json:"skip_keepalives,omitempty"`
	Mappings       map[EventType]Mapping `yaml:"mappings,omitempty" json:"mappings,omitempty"`
	ToolCall       *ToolCallConfig       `yaml:"tool_call,omitempty" json:"tool_call,omitempty"`
}

// ErrMissingNamePath is returned for a tool-call config without NamePath.
var ErrMissingNamePath = errors.New("stream: tool_call.name_path is required")

// Validate reports structural errors that make the config unusable.
func (c *Config) Validate() error {
	var errs []error
	switch c.Type {
	case EventData, DataOnly:
	default:
		errs = append(errs, fmt.Errorf("stream: unknown parser type %q", c.Type))
	}
	for key, m := range c.Mappings {
		if !knownEventType(key) {
			errs = append(errs, fmt.Errorf("stream: unknown mapping %q", key))
			continue
		}
		if valueMapping(key) && !jsonpath.Enabled(m.FieldPath) {
			errs = append(errs, fmt.Errorf("stream: mapping %s needs a field_path", key))
		}
		if !valueMapping(key) && !jsonpath.Enabled(m.FieldPath) && c.matchesEverything(m.EventName) {
			errs = append(errs, fmt.Errorf("stream: mapping %s would fire on every payload", key))
		}
		if m.Guard != nil && !jsonpath.Enabled(m.Guard.Path) {
			errs = append(errs, fmt.Errorf("stream: mapping %s guard needs a path", key))
		}
	}
	if tc := c.ToolCall; tc != nil {
		if !jsonpath.Enabled(tc.NamePath) {
			errs = append(errs, ErrMissingNamePath)
		}
		if c.Type == EventData && strings.TrimSpace(tc.EventName) == "" {
			errs = append(errs, errors.New("stream: tool_call.event_name is required for EVENT_DATA"))
		}
	}
	return errors.Join(errs...)
}

// Warnings reports configurations that work but are likely mistakes.
func (c *Config) Warnings() []string {
	var out []string
	if c.Type == DataOnly && c.DoneMarker == "" {
		if _, ok := c.Mappings[EventStreamEnd]; !ok {
			out = append(out, "DATA_ONLY stream has neither a done_marker nor a STREAM_END mapping; it only ends when the connection closes")
		}
	}
	if c.Type == EventData && len(c.StopEvents) == 0 {
		if _, ok := c.Mappings[EventStreamEnd]; !ok {
			out = append(out, "EVENT_DATA stream has no stop_events and no STREAM_END mapping")
		}
	}
	if _, ok := c.Mappings[EventTextContent]; !ok {
		out = append(out, "no TEXT_CONTENT mapping; no text will be produced")
	}
	if tc := c.ToolCall; tc != nil && !jsonpath.Enabled(tc.ParametersPath) {
		out = append(out, "tool_call has no parameters_path; arguments will always be empty")
	}
	return out
}

// matchesEverything reports whether a mapping with eventName is applied to every payload.
func (c *Config) matchesEverything(eventName string) bool {
	return (c.Type == DataOnly && c.EventTypeField == "") || eventName == ""
}

func (c *Config) isStopEvent(name string) bool {
	for _, s := range c.StopEvents {
		if s == name {
			return true
		}
	}
	return false
}

func knownEventType(t EventType) bool {
	for _, k := range EventTypes {
		if k == t {
			return true
		}
	}
	return false
}

// valueMapping reports whether the mapping extracts text rather than a signal.
func valueMapping(t EventType) bool {
	return t == EventTextContent || t == EventThinkingContent
}
