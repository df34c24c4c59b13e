package capture

import (
	"time"

	"github.com/google/uuid"
	"github.com/nghyane/llm-wire/internal/wire/message"
	"github.com/nghyane/llm-wire/internal/wire/stream"
)

// Recorder tees every line read from a source. Not safe for concurrent use.
type Recorder struct {
	src       stream.LineSource
	provider  string
	model     string
	startedAt time.Time
	lines     []string
}

func NewRecorder(src stream.LineSource, provider, model string) *Recorder {
	return &Recorder{src: src, provider: provider, model: model, startedAt: nowFunc()}
}

func (r *Recorder) Next() (string, error) {
	line, err := r.src.Next()
	if err == nil {
		r.lines = append(r.lines, line)
	}
	return line, err
}

// Transcript snapshots what was read so far. msg may be nil when the stream
// never produced a message.
func (r *Recorder) Transcript(msg *message.Message) *Transcript {
	t := &Transcript{
		Capture: Capture{
			ID:        uuid.NewString(),
			Provider:  r.provider,
			Model:     r.model,
			StartedAt: r.startedAt,
			EndedAt:   nowFunc(),
			Lines:     len(r.lines),
		},
		Text: joinLines(r.lines),
	}
	if msg != nil {
		t.Complete = msg.Complete
		t.Reason = msg.IncompleteReason
	}
	return t
}

// Source replays a transcript line by line.
func (t *Transcript) Source() stream.LineSource {
	return stream.NewStringSource(t.Text)
}
