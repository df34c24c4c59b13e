package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/llm-wire/internal/capture"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/provider"
	"github.com/nghyane/llm-wire/internal/transport"
	"github.com/nghyane/llm-wire/internal/wire/body"
	"github.com/nghyane/llm-wire/internal/wire/message"
	"github.com/nghyane/llm-wire/internal/wire/stream"
)

const maxDefinitionBytes = 1 << 20

func errorResponse(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// definitionRef names a registered provider or carries an inline definition.
// An inline definition wins.
type definitionRef struct {
	Provider   string               `json:"provider"`
	Definition *provider.Definition `json:"definition,omitempty"`
}

// resolve returns the definition and the HTTP status to use on failure.
func (s *Server) resolve(ref definitionRef) (*provider.Definition, int, error) {
	if ref.Definition != nil {
		def := ref.Definition
		if def.Name == "" {
			def.Name = "inline"
		}
		if issues := def.Validate(); issues.HasErrors() {
			return nil, http.StatusUnprocessableEntity, &provider.ValidationError{Name: def.Name, Issues: issues}
		}
		return def, 0, nil
	}
	if strings.TrimSpace(ref.Provider) == "" {
		return nil, http.StatusBadRequest, errors.New("provider or definition is required")
	}
	def, err := s.deps.Registry.Get(ref.Provider)
	if err != nil {
		return nil, http.StatusNotFound, err
	}
	return def, 0, nil
}

type providerInfo struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	URL         string               `json:"url"`
	Model       string               `json:"model,omitempty"`
	Source      string               `json:"source,omitempty"`
	StreamType  stream.ParserType    `json:"stream_type"`
	Stats       *provider.RunSummary `json:"stats,omitempty"`
}

func (s *Server) listProviders(c *gin.Context) {
	defs := s.deps.Registry.List()
	out := make([]providerInfo, 0, len(defs))
	for _, d := range defs {
		info := providerInfo{
			Name:        d.Name,
			Description: d.Description,
			URL:         log.MaskURL(d.URL),
			Model:       d.Model,
			Source:      d.Source,
			StreamType:  d.Stream.Type,
		}
		if sum, ok := s.deps.Stats.Summary(d.Name); ok {
			info.Stats = &sum
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

func (s *Server) getProvider(c *gin.Context) {
	def, err := s.deps.Registry.Get(c.Param("name"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"definition": def, "issues": nonNil(def.Validate())})
}

// validateProvider accepts a YAML or JSON definition as the raw request body.
func (s *Server) validateProvider(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDefinitionBytes))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	def, err := provider.Decode(data, "")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	issues := def.Validate()
	c.JSON(http.StatusOK, gin.H{
		"name":   def.Name,
		"valid":  !issues.HasErrors(),
		"issues": nonNil(issues),
	})
}

func nonNil(is provider.Issues) provider.Issues {
	if is == nil {
		return provider.Issues{}
	}
	return is
}

type previewRequest struct {
	definitionRef
	Model        string             `json:"model"`
	Conversation *body.Conversation `json:"conversation,omitempty"`
}

func (s *Server) preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	def, status, err := s.resolve(req.definitionRef)
	if err != nil {
		errorResponse(c, status, err)
		return
	}
	conv := body.SampleConversation()
	if req.Conversation != nil {
		conv = *req.Conversation
	}
	rt, _ := def.Runtime(s.deps.Credentials, req.Model, false)
	if rt.APIKey == "" {
		rt.APIKey = body.SampleRuntime().APIKey
	} else {
		rt.APIKey = log.MaskKey(rt.APIKey)
	}

	p := def.Preview(conv, rt)
	endpoint, headers := def.Endpoint(rt)
	c.JSON(http.StatusOK, gin.H{
		"provider": def.Name,
		"method":   def.HTTPMethod(),
		"url":      endpoint,
		"headers":  headers,
		"body":     p.Body,
		"valid":    p.Err == nil && len(p.Skipped) == 0,
		"notes":    p.Notes(),
	})
}

type replayRequest struct {
	definitionRef
	Transcript string `json:"transcript"`
	CaptureID  string `json:"capture_id"`
}

type runResponse struct {
	Provider  string           `json:"provider"`
	Message   *message.Message `json:"message"`
	Error     string           `json:"error,omitempty"`
	CaptureID string           `json:"capture_id,omitempty"`
}

func (s *Server) replay(c *gin.Context) {
	var req replayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	text := req.Transcript
	if req.CaptureID != "" {
		t, status, err := s.loadCapture(c.Request.Context(), req.CaptureID)
		if err != nil {
			errorResponse(c, status, err)
			return
		}
		text = t.Text
		if req.Provider == "" && req.Definition == nil {
			req.Provider = t.Provider
		}
	}
	def, status, err := s.resolve(req.definitionRef)
	if err != nil {
		errorResponse(c, status, err)
		return
	}

	msg, err := s.run(c.Request.Context(), def, stream.NewStringSource(text))
	resp := runResponse{Provider: def.Name, Message: msg}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// run drives def's pipeline over src and records the outcome in Stats.
func (s *Server) run(ctx context.Context, def *provider.Definition, src stream.LineSource) (*message.Message, error) {
	start := time.Now()
	msg, err := def.NewPipeline().Run(ctx, src)
	s.deps.Stats.Record(def.Name, time.Since(start), err == nil)
	return msg, err
}

type sendRequest struct {
	definitionRef
	Model        string            `json:"model"`
	Conversation body.Conversation `json:"conversation"`
}

func (s *Server) send(c *gin.Context) {
	if s.deps.Client == nil {
		errorResponse(c, http.StatusServiceUnavailable, errors.New("sending is disabled"))
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	def, status, err := s.resolve(req.definitionRef)
	if err != nil {
		errorResponse(c, status, err)
		return
	}
	rt, err := def.Runtime(s.deps.Credentials, req.Model, true)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	resp, err := s.deps.Client.Send(ctx, def, req.Conversation, rt)
	if err != nil {
		var se *transport.StatusError
		var fre *body.FieldRenderError
		var ite *body.InvalidTemplateError
		switch {
		case errors.As(err, &se):
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
				"error":    err.Error(),
				"status":   se.StatusCode,
				"category": se.Category.String(),
			})
		case errors.As(err, &fre), errors.As(err, &ite):
			errorResponse(c, http.StatusUnprocessableEntity, err)
		default:
			errorResponse(c, http.StatusBadGateway, err)
		}
		return
	}
	defer resp.Close()

	var src stream.LineSource = resp
	var rec *capture.Recorder
	if s.deps.Captures != nil {
		rec = capture.NewRecorder(resp, def.Name, rt.Model)
		src = rec
	}
	msg, runErr := s.run(ctx, def, src)
	out := runResponse{Provider: def.Name, Message: msg}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	if rec != nil {
		t := rec.Transcript(msg)
		if err := s.deps.Captures.Save(context.WithoutCancel(ctx), t); err != nil {
			log.WithError(err).Warn("failed to save capture")
		} else {
			out.CaptureID = t.ID
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) loadCapture(ctx context.Context, id string) (*capture.Transcript, int, error) {
	if s.deps.Captures == nil {
		return nil, http.StatusServiceUnavailable, errors.New("capture store is disabled")
	}
	t, err := s.deps.Captures.Load(ctx, id)
	if errors.Is(err, capture.ErrNotFound) {
		return nil, http.StatusNotFound, err
	}
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return t, 0, nil
}

func (s *Server) listCaptures(c *gin.Context) {
	if s.deps.Captures == nil {
		errorResponse(c, http.StatusServiceUnavailable, errors.New("capture store is disabled"))
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := s.deps.Captures.List(c.Request.Context(), c.Query("provider"), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []capture.Capture{}
	}
	c.JSON(http.StatusOK, gin.H{"captures": list})
}

func (s *Server) getCapture(c *gin.Context) {
	t, status, err := s.loadCapture(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, status, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
