package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/nghyane/llm-wire/internal/wire/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *stream.Config {
	return &stream.Config{
		Type:           stream.DataOnly,
		DoneMarker:     "[DONE]",
		SkipKeepalives: true,
		Mappings: map[stream.EventType]stream.Mapping{
			stream.EventTextContent: {FieldPath: "choices.0.delta.content"},
		},
		ToolCall: &stream.ToolCallConfig{
			NamePath:       "choices.0.delta.tool_calls.0.function.name",
			IDPath:         "choices.0.delta.tool_calls.0.id",
			IndexPath:      "choices.0.delta.tool_calls.0.index",
			ParametersPath: "choices.0.delta.tool_calls.0.function.arguments",
		},
	}
}

type failingSource struct {
	lines []string
	err   error
}

func (f *failingSource) Next() (string, error) {
	if len(f.lines) == 0 {
		return "", f.err
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

// ==================== Run Tests ====================

func TestRun_Complete(t *testing.T) {
	src := stream.Lines(
		`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"a\":1}"}}]}}]}`,
		`data: [DONE]`,
	)
	msg, err := New("openai", testConfig()).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "Hello", msg.Text)
	assert.True(t, msg.Complete)
	assert.False(t, msg.Incomplete)
	require.Len(t, msg.ToolCalls, 1)
	assert.JSONEq(t, `{"a":1}`, string(msg.ToolCalls[0].Input))
}

func TestRun_EOFBeforeDone(t *testing.T) {
	src := stream.Lines(`data: {"choices":[{"delta":{"content":"par"}}]}`)
	msg, err := New("openai", testConfig()).Run(context.Background(), src)

	var ie *IncompleteStreamError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, stream.ErrStreamIncomplete)
	assert.Same(t, msg, ie.Message)
	assert.Equal(t, "par", msg.Text)
	assert.True(t, msg.Incomplete)
}

func TestRun_TransportError(t *testing.T) {
	reset := errors.New("connection reset")
	src := &failingSource{lines: []string{`data: {"choices":[{"delta":{"content":"x"}}]}`}, err: reset}
	msg, err := New("openai", testConfig()).Run(context.Background(), src)

	assert.ErrorIs(t, err, reset)
	assert.Equal(t, "x", msg.Text)
	assert.Equal(t, "connection reset", msg.IncompleteReason)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg, err := New("openai", testConfig()).Run(ctx, stream.Lines("data: [DONE]"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "canceled", msg.IncompleteReason)
}

// ==================== Stream Tests ====================

func TestStream_PublishesSnapshots(t *testing.T) {
	src := stream.Lines(
		`data: {"choices":[{"delta":{"content":"a"}}]}`,
		`data: {"choices":[{"delta":{"content":"b"}}]}`,
		`data: [DONE]`,
	)
	var texts []string
	var final *Update
	for u := range New("openai", testConfig()).Stream(context.Background(), src) {
		if u.Final {
			u := u
			final = &u
			continue
		}
		texts = append(texts, u.Snapshot.Text)
	}
	assert.Equal(t, []string{"a", "ab", "ab"}, texts)
	require.NotNil(t, final)
	assert.NoError(t, final.Err)
	assert.True(t, final.Snapshot.Complete)
}

func TestStream_FinalCarriesError(t *testing.T) {
	src := &failingSource{err: io.ErrUnexpectedEOF}
	var last Update
	for u := range New("openai", testConfig()).Stream(context.Background(), src) {
		last = u
	}
	assert.True(t, last.Final)
	assert.ErrorIs(t, last.Err, io.ErrUnexpectedEOF)
}
