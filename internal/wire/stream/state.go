package stream

import (
	"strings"

	"github.com/nghyane/llm-wire/internal/wire/jsonpath"
	"github.com/tidwall/gjson"
)

// Phase is the coarse parser state.
type Phase int

const (
	AwaitingLine Phase = iota
	Closed
)

func (p Phase) String() string {
	if p == Closed {
		return "closed"
	}
	return "awaiting_line"
}

// CallRecord is an open tool call as seen by the parser.
type CallRecord struct {
	ID       string
	Index    int
	HasIndex bool
}

// State is everything the parser carries between lines. It is a value: Step
// never mutates the State it is given.
type State struct {
	Phase Phase
	// PendingEvent is the name from the last "event:" line of the current frame.
	PendingEvent string
	HasPending   bool
	ThinkingOpen bool
	Calls        []CallRecord
	// Malformed counts payloads skipped because they were not valid JSON.
	Malformed int
}

const (
	eventPrefix = "event:"
	dataPrefix  = "data:"
)

// Step applies one raw line to s and returns the next state with the events
// the line produced.
func Step(cfg *Config, s State, line string) (State, []Event) {
	if s.Phase == Closed {
		return s, nil
	}
	line = strings.TrimRight(line, "\r\n")

	if strings.TrimSpace(line) == "" {
		s.PendingEvent, s.HasPending = "", false
		return s, nil
	}
	if strings.HasPrefix(line, ":") {
		return s, nil
	}

	if strings.HasPrefix(line, eventPrefix) {
		if cfg.Type == EventData {
			s.PendingEvent = strings.TrimSpace(line[len(eventPrefix):])
			s.HasPending = true
		}
		return s, nil
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return s, nil
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])

	switch cfg.Type {
	case EventData:
		if !s.HasPending {
			return s, nil
		}
		if cfg.isStopEvent(s.PendingEvent) {
			s.Phase = Closed
			return s, []Event{StreamEnd()}
		}
		if payload == "" && cfg.SkipKeepalives {
			return s, nil
		}
		if cfg.DoneMarker != "" && payload == cfg.DoneMarker {
			s.Phase = Closed
			return s, []Event{StreamEnd()}
		}
		return emit(cfg, s, s.PendingEvent, false, payload)
	case DataOnly:
		if payload == "" && cfg.SkipKeepalives {
			return s, nil
		}
		if cfg.DoneMarker != "" && payload == cfg.DoneMarker {
			s.Phase = Closed
			return s, []Event{StreamEnd()}
		}
		if cfg.EventTypeField == "" {
			return emit(cfg, s, "", true, payload)
		}
		if !gjson.Valid(payload) {
			s.Malformed++
			return s, nil
		}
		name := jsonpath.Get([]byte(payload), cfg.EventTypeField).String()
		if cfg.isStopEvent(name) {
			s.Phase = Closed
			return s, []Event{StreamEnd()}
		}
		return emit(cfg, s, name, false, payload)
	}
	return s, nil
}

// emit evaluates every mapping and the tool config bound to event against one
// payload. With matchAll, event names are ignored.
func emit(cfg *Config, s State, event string, matchAll bool, payload string) (State, []Event) {
	if !gjson.Valid(payload) {
		s.Malformed++
		return s, nil
	}
	doc := gjson.Parse(payload)
	applies := func(name string) bool {
		return matchAll || name == "" || name == event
	}

	var events []Event

	if m, ok := cfg.Mappings[EventThinkingStart]; ok && applies(m.EventName) && m.signals(doc) {
		if !s.ThinkingOpen {
			s.ThinkingOpen = true
			events = append(events, ThinkingStart())
		}
	}
	if m, ok := cfg.Mappings[EventThinkingContent]; ok && applies(m.EventName) {
		if text := m.extract(doc); text != "" {
			if !s.ThinkingOpen {
				s.ThinkingOpen = true
				events = append(events, ThinkingStart())
			}
			events = append(events, ThinkingDelta(text))
		}
	}
	if m, ok := cfg.Mappings[EventTextContent]; ok && applies(m.EventName) {
		if text := m.extract(doc); text != "" {
			events = append(events, TextDelta(text))
		}
	}

	if tc := cfg.ToolCall; tc != nil && jsonpath.Enabled(tc.NamePath) {
		if applies(tc.EventName) {
			var ev *Event
			s, ev = openCall(tc, s, doc)
			if ev != nil {
				events = append(events, *ev)
			}
		}
		if applies(tc.parametersEvent()) && jsonpath.Enabled(tc.ParametersPath) {
			if frag := valueText(jsonpath.GetResult(doc, tc.ParametersPath)); frag != "" {
				events = append(events, argumentsDelta(tc, s, doc, frag))
			}
		}
	}

	if m, ok := cfg.Mappings[EventStreamEnd]; ok && applies(m.EventName) && m.signals(doc) {
		s.Phase = Closed
		events = append(events, StreamEnd())
	}
	return s, events
}

// openCall opens a record when the payload names a tool. It returns nil when
// the payload names none or the call is already open.
func openCall(tc *ToolCallConfig, s State, doc gjson.Result) (State, *Event) {
	name := jsonpath.GetResult(doc, tc.NamePath).String()
	if name == "" {
		return s, nil
	}
	id, index, hasIndex := callKey(tc, doc)
	if _, found := findCall(s.Calls, id, index, hasIndex); found {
		return s, nil
	}
	rec := CallRecord{ID: id, Index: len(s.Calls)}
	if hasIndex {
		rec.Index, rec.HasIndex = index, true
	}
	calls := make([]CallRecord, len(s.Calls), len(s.Calls)+1)
	copy(calls, s.Calls)
	s.Calls = append(calls, rec)
	ev := ToolCallStart(rec.ID, rec.Index, name)
	return s, &ev
}

func argumentsDelta(tc *ToolCallConfig, s State, doc gjson.Result, frag string) Event {
	id, index, hasIndex := callKey(tc, doc)
	if rec, found := findCall(s.Calls, id, index, hasIndex); found {
		return ToolCallArgumentsDelta(rec.ID, rec.Index, frag)
	}
	if id == "" && !hasIndex && len(s.Calls) > 0 {
		last := s.Calls[len(s.Calls)-1]
		return ToolCallArgumentsDelta(last.ID, last.Index, frag)
	}
	if !hasIndex {
		index = len(s.Calls)
	}
	return ToolCallArgumentsDelta(id, index, frag)
}

func callKey(tc *ToolCallConfig, doc gjson.Result) (id string, index int, hasIndex bool) {
	if jsonpath.Enabled(tc.IDPath) {
		id = jsonpath.GetResult(doc, tc.IDPath).String()
	}
	if jsonpath.Enabled(tc.IndexPath) {
		if r := jsonpath.GetResult(doc, tc.IndexPath); r.Type == gjson.Number {
			index, hasIndex = int(r.Int()), true
		}
	}
	return id, index, hasIndex
}

// findCall matches by id first, then by index.
func findCall(calls []CallRecord, id string, index int, hasIndex bool) (CallRecord, bool) {
	if id != "" {
		for _, c := range calls {
			if c.ID == id {
				return c, true
			}
		}
	}
	if hasIndex {
		for _, c := range calls {
			if c.HasIndex && c.Index == index {
				return c, true
			}
		}
	}
	return CallRecord{}, false
}

func (m Mapping) guardOK(doc gjson.Result) bool {
	if m.Guard == nil || !jsonpath.Enabled(m.Guard.Path) {
		return true
	}
	v := jsonpath.GetResult(doc, m.Guard.Path)
	got := ""
	if v.Exists() {
		got = v.String()
	}
	return (got == m.Guard.Equals) != m.Guard.Not
}

// extract returns the text at FieldPath, or "" when absent or guarded out.
func (m Mapping) extract(doc gjson.Result) string {
	if !jsonpath.Enabled(m.FieldPath) || !m.guardOK(doc) {
		return ""
	}
	return valueText(jsonpath.GetResult(doc, m.FieldPath))
}

// signals reports whether a start/end mapping fires on doc.
func (m Mapping) signals(doc gjson.Result) bool {
	if !m.guardOK(doc) {
		return false
	}
	if !jsonpath.Enabled(m.FieldPath) {
		return true
	}
	r := jsonpath.GetResult(doc, m.FieldPath)
	return r.Exists() && r.Type != gjson.Null
}

// valueText renders strings as their content and objects or arrays as raw JSON.
func valueText(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.JSON:
		return r.Raw
	case gjson.Number, gjson.True, gjson.False:
		return r.Raw
	}
	return ""
}
