// Package message folds stream events into the assistant message being built.
package message

import (
	"time"

	"github.com/google/uuid"
	"github.com/nghyane/llm-wire/internal/json"
	"github.com/nghyane/llm-wire/internal/wire/stream"
)

var nowFunc = time.Now

// ThoughtsStatus tells whether the model produced visible reasoning.
type ThoughtsStatus string

const (
	ThoughtsNone    ThoughtsStatus = "none"
	ThoughtsPresent ThoughtsStatus = "present"
)

// ToolCall is one accumulated call. Arguments is the raw concatenation of every
// fragment. Input is the parsed arguments once finalized: set when Arguments
// is valid JSON, or when it could be repaired (Repaired).
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Index     int             `json:"index"`
	Name      string          `json:"name"`
	Arguments string          `json:"arguments"`
	Input     json.RawMessage `json:"input,omitempty"`
	Valid     bool            `json:"valid"`
	Repaired  bool            `json:"repaired,omitempty"`
}

// Message is the in-progress assistant turn. It is owned by a single writer;
// readers get copies through Snapshot.
type Message struct {
	ID                string         `json:"id"`
	Text              string         `json:"text"`
	ThoughtsStatus    ThoughtsStatus `json:"thoughts_status"`
	Thoughts          string         `json:"thoughts,omitempty"`
	ThinkingStartedAt time.Time      `json:"thinking_started_at,omitzero"`
	ThinkingDuration  time.Duration  `json:"thinking_duration,omitempty"`
	ToolCalls         []ToolCall     `json:"tool_calls,omitempty"`
	Complete          bool           `json:"complete"`
	Incomplete        bool           `json:"incomplete,omitempty"`
	IncompleteReason  string         `json:"incomplete_reason,omitempty"`
	EstimatedTokens   int            `json:"estimated_tokens,omitempty"`

	thinkingEndedAt time.Time
}

func New() *Message {
	return &Message{ID: uuid.NewString(), ThoughtsStatus: ThoughtsNone}
}

// Fold applies events to a new message.
func Fold(events []stream.Event) *Message {
	m := New()
	for _, ev := range events {
		m.Apply(ev)
	}
	return m
}

// Apply folds one event into m. Events arriving after the message completed
// are ignored.
func (m *Message) Apply(ev stream.Event) {
	if m.Complete {
		return
	}
	switch ev.Kind {
	case stream.KindTextDelta:
		m.endThinking()
		m.Text += ev.Text
	case stream.KindThinkingStart:
		m.startThinking()
	case stream.KindThinkingDelta:
		m.startThinking()
		m.Thoughts += ev.Text
	case stream.KindToolCallStart:
		m.endThinking()
		m.ToolCalls = append(m.ToolCalls, ToolCall{ID: ev.ID, Index: ev.Index, Name: ev.Name})
	case stream.KindToolCallArgumentsDelta:
		i := m.findCall(ev)
		if i < 0 {
			m.ToolCalls = append(m.ToolCalls, ToolCall{ID: ev.ID, Index: ev.Index})
			i = len(m.ToolCalls) - 1
		}
		m.ToolCalls[i].Arguments += ev.Text
	case stream.KindStreamEnd:
		m.finalize()
	}
}

// MarkIncomplete finalizes a message whose stream closed before its end
// signal. Partial content is kept.
func (m *Message) MarkIncomplete(reason string) {
	if m.Complete {
		return
	}
	m.Incomplete = true
	m.IncompleteReason = reason
	m.finalize()
}

// Snapshot returns a deep copy of m.
func (m *Message) Snapshot() *Message {
	c := *m
	if m.ToolCalls != nil {
		c.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			if tc.Input != nil {
				tc.Input = append(json.RawMessage(nil), tc.Input...)
			}
			c.ToolCalls[i] = tc
		}
	}
	return &c
}

func (m *Message) startThinking() {
	if m.ThoughtsStatus == ThoughtsPresent {
		return
	}
	m.ThoughtsStatus = ThoughtsPresent
	m.ThinkingStartedAt = nowFunc()
}

// endThinking stamps the end of reasoning at the first non-thinking output.
func (m *Message) endThinking() {
	if m.ThoughtsStatus == ThoughtsPresent && m.thinkingEndedAt.IsZero() {
		m.thinkingEndedAt = nowFunc()
	}
}

// findCall matches by id, then index, then falls back to the last call.
func (m *Message) findCall(ev stream.Event) int {
	if ev.ID != "" {
		for i := range m.ToolCalls {
			if m.ToolCalls[i].ID == ev.ID {
				return i
			}
		}
	}
	for i := range m.ToolCalls {
		if m.ToolCalls[i].Index == ev.Index {
			return i
		}
	}
	if ev.ID == "" && len(m.ToolCalls) > 0 {
		return len(m.ToolCalls) - 1
	}
	return -1
}

func (m *Message) finalize() {
	for i := range m.ToolCalls {
		finalizeCall(&m.ToolCalls[i])
	}
	if m.ThoughtsStatus == ThoughtsPresent {
		end := m.thinkingEndedAt
		if end.IsZero() {
			end = nowFunc()
		}
		m.ThinkingDuration = end.Sub(m.ThinkingStartedAt)
	}
	m.EstimatedTokens = m.estimateTokens()
	m.Complete = true
}
