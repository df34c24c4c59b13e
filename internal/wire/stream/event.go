package stream

import "fmt"

// Kind tags an Event.
type Kind int

const (
	KindTextDelta Kind = iota
	KindThinkingStart
	KindThinkingDelta
	KindToolCallStart
	KindToolCallArgumentsDelta
	KindStreamEnd
)

var kindNames = [...]string{
	KindTextDelta:              "text_delta",
	KindThinkingStart:          "thinking_start",
	KindThinkingDelta:          "thinking_delta",
	KindToolCallStart:          "tool_call_start",
	KindToolCallArgumentsDelta: "tool_call_arguments_delta",
	KindStreamEnd:              "stream_end",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is one parser output. Text holds the delta for text, thinking and
// argument events. ID and Index identify the tool call for tool events; Index
// is the payload's index when present, else the call's ordinal.
type Event struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
}

func TextDelta(s string) Event     { return Event{Kind: KindTextDelta, Text: s} }
func ThinkingStart() Event         { return Event{Kind: KindThinkingStart} }
func ThinkingDelta(s string) Event { return Event{Kind: KindThinkingDelta, Text: s} }
func StreamEnd() Event             { return Event{Kind: KindStreamEnd} }

func ToolCallStart(id string, index int, name string) Event {
	return Event{Kind: KindToolCallStart, ID: id, Index: index, Name: name}
}

func ToolCallArgumentsDelta(id string, index int, fragment string) Event {
	return Event{Kind: KindToolCallArgumentsDelta, ID: id, Index: index, Text: fragment}
}

func (e Event) String() string {
	switch e.Kind {
	case KindToolCallStart:
		return fmt.Sprintf("%s(id=%q index=%d name=%q)", e.Kind, e.ID, e.Index, e.Name)
	case KindToolCallArgumentsDelta:
		return fmt.Sprintf("%s(id=%q index=%d %q)", e.Kind, e.ID, e.Index, e.Text)
	case KindThinkingStart, KindStreamEnd:
		return e.Kind.String()
	default:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Text)
	}
}
