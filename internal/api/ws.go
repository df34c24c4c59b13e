package api

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/wire/message"
	"github.com/nghyane/llm-wire/internal/wire/stream"
	"github.com/nghyane/llm-wire/internal/wsrelay"
)

const maxReplayDelay = 2 * time.Second

type snapshotPayload struct {
	Event   *stream.Event    `json:"event,omitempty"`
	Message *message.Message `json:"message"`
}

type endPayload struct {
	Message *message.Message `json:"message"`
	Error   string           `json:"error,omitempty"`
}

// replayCaptureWS replays a stored transcript through its provider's pipeline
// and publishes one snapshot per event. ?provider= overrides the recorded
// provider; ?delay_ms= paces the replay.
func (s *Server) replayCaptureWS(c *gin.Context) {
	t, status, err := s.loadCapture(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, status, err)
		return
	}
	name := c.DefaultQuery("provider", t.Provider)
	def, status, err := s.resolve(definitionRef{Provider: name})
	if err != nil {
		errorResponse(c, status, err)
		return
	}
	delayMS, _ := strconv.Atoi(c.Query("delay_ms"))
	delay := min(time.Duration(max(delayMS, 0))*time.Millisecond, maxReplayDelay)

	session, err := wsrelay.Upgrade(c.Writer, c.Request, t.ID)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-session.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := session.Send(wsrelay.MessageTypeStreamStart, t.Capture); err != nil {
		return
	}
	var src stream.LineSource = t.Source()
	if delay > 0 {
		src = &pacedSource{ctx: ctx, src: src, delay: delay}
	}

	start := time.Now()
	for u := range def.NewPipeline().Stream(ctx, src) {
		if u.Final {
			s.deps.Stats.Record(def.Name, time.Since(start), u.Err == nil)
			end := endPayload{Message: u.Snapshot}
			if u.Err != nil {
				end.Error = u.Err.Error()
			}
			_ = session.Send(wsrelay.MessageTypeStreamEnd, end)
			continue
		}
		if err := session.Send(wsrelay.MessageTypeSnapshot, snapshotPayload{Event: u.Event, Message: u.Snapshot}); err != nil {
			cancel()
		}
	}
}

// pacedSource sleeps before every line.
type pacedSource struct {
	ctx   context.Context
	src   stream.LineSource
	delay time.Duration
}

func (p *pacedSource) Next() (string, error) {
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-p.ctx.Done():
		return "", p.ctx.Err()
	case <-timer.C:
	}
	return p.src.Next()
}
