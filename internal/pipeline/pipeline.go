// Package pipeline connects a line source to the stream parser and the message
// mapper for one request.
package pipeline

import (
	"context"
	"errors"

	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/wire/message"
	"github.com/nghyane/llm-wire/internal/wire/stream"
)

// IncompleteStreamError is returned when the stream stopped before its end
// signal. Message holds everything received up to that point.
type IncompleteStreamError struct {
	Message *message.Message
	Err     error
}

func (e *IncompleteStreamError) Error() string {
	return "pipeline: stream incomplete: " + e.Err.Error()
}

func (e *IncompleteStreamError) Unwrap() error { return e.Err }

// Pipeline is reusable and safe for concurrent use; each Run owns its own
// parser and message.
type Pipeline struct {
	name string
	cfg  *stream.Config
}

func New(name string, cfg *stream.Config) *Pipeline {
	return &Pipeline{name: name, cfg: cfg}
}

func (p *Pipeline) Name() string { return p.name }

// Run consumes src to completion. The message is always returned, partial or
// not; a stream that stopped early also yields an *IncompleteStreamError.
func (p *Pipeline) Run(ctx context.Context, src stream.LineSource) (*message.Message, error) {
	return p.run(ctx, src, nil)
}

func (p *Pipeline) run(ctx context.Context, src stream.LineSource, observe func(stream.Event, *message.Message)) (*message.Message, error) {
	msg := message.New()
	parser := stream.NewParser(p.cfg)
	err := stream.Run(ctx, src, parser, func(ev stream.Event) error {
		msg.Apply(ev)
		if observe != nil {
			observe(ev, msg)
		}
		return nil
	})
	if err == nil {
		log.WithField("provider", p.name).WithField("tokens", msg.EstimatedTokens).Debug("pipeline: stream complete")
		return msg, nil
	}

	reason := err.Error()
	switch {
	case errors.Is(err, stream.ErrStreamIncomplete):
		reason = "connection closed before stream end"
	case errors.Is(err, context.Canceled):
		reason = "canceled"
	}
	msg.MarkIncomplete(reason)
	log.WithField("provider", p.name).WithError(err).Warn("pipeline: stream ended early, keeping partial message")
	return msg, &IncompleteStreamError{Message: msg, Err: err}
}

// Update is one publication of Stream. The last update has Final set and
// carries the run's error, if any.
type Update struct {
	Event    *stream.Event
	Snapshot *message.Message
	Final    bool
	Err      error
}

// Stream runs the pipeline in a goroutine and publishes a snapshot after each
// event. The channel is closed after the final update.
func (p *Pipeline) Stream(ctx context.Context, src stream.LineSource) <-chan Update {
	out := make(chan Update, 8)
	go func() {
		defer close(out)
		msg, err := p.run(ctx, src, func(ev stream.Event, m *message.Message) {
			sendUpdate(ctx, out, Update{Event: &ev, Snapshot: m.Snapshot()})
		})
		final := Update{Snapshot: msg.Snapshot(), Final: true, Err: err}
		if !sendUpdate(ctx, out, final) {
			select {
			case out <- final:
			default:
			}
		}
	}()
	return out
}

func sendUpdate(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
