package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// ==================== Handler Tests ====================

func TestHandler_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})
	SetLevel(slog.LevelDebug)
	defer SetLevel(slog.LevelInfo)

	WithField("provider", "openai").WithError(errors.New("boom")).Warn("stream stalled")

	line := buf.String()
	if !strings.Contains(line, "[warn]") {
		t.Errorf("line = %q, want level tag", line)
	}
	if !strings.Contains(line, "logging_test.go:") {
		t.Errorf("line = %q, want caller file", line)
	}
	if !strings.Contains(line, "stream stalled | provider=openai error=boom") {
		t.Errorf("line = %q, want message and attrs", line)
	}
}

func TestHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})
	SetLevel(slog.LevelWarn)
	defer SetLevel(slog.LevelInfo)

	Info("hidden")
	Debugf("hidden %d", 1)
	Errorf("shown %d", 2)

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("filtered records written: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("error record missing: %q", buf.String())
	}
}

func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	var lv slog.LevelVar
	logger := slog.New(NewCustomHandler(&buf, &lv, false)).With("run", 7).WithGroup("req")
	logger.Info("done", "status", 200)

	if got := buf.String(); !strings.HasSuffix(got, "done | run=7 req.status=200\n") {
		t.Errorf("line = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ==================== Masking Tests ====================

func TestMaskKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sk-1234567890abcd", "sk-1...abcd"},
		{"abcdefg", "ab...fg"},
		{"abc", "a...c"},
		{"ab", "ab"},
	}
	for _, tt := range tests {
		if got := MaskKey(tt.in); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskHeader(t *testing.T) {
	if got := MaskHeader("Authorization", "Bearer sk-1234567890abcd"); got != "Bearer sk-1...abcd" {
		t.Errorf("MaskHeader(Authorization) = %q", got)
	}
	if got := MaskHeader("x-goog-api-key", "AIza12345678"); got != "AIza...5678" {
		t.Errorf("MaskHeader(x-goog-api-key) = %q", got)
	}
	if got := MaskHeader("Content-Type", "application/json"); got != "application/json" {
		t.Errorf("MaskHeader(Content-Type) = %q", got)
	}
}

func TestMaskQuery(t *testing.T) {
	got := maskQuery("alt=sse&key=AIza12345678")
	if got != "alt=sse&key=AIza...5678" {
		t.Errorf("maskQuery = %q", got)
	}
	if got := maskQuery("alt=sse"); got != "alt=sse" {
		t.Errorf("maskQuery untouched = %q", got)
	}
}

func TestMaskURL(t *testing.T) {
	got := MaskURL("https://x.test/v1?alt=sse&key=AIza12345678")
	if strings.Contains(got, "AIza12345678") {
		t.Errorf("MaskURL = %q, key leaked", got)
	}
	if !strings.HasPrefix(got, "https://x.test/v1?alt=sse&key=") {
		t.Errorf("MaskURL = %q", got)
	}
	if got := MaskURL("https://x.test/v1"); got != "https://x.test/v1" {
		t.Errorf("MaskURL(no query) = %q", got)
	}
}

// ==================== Gin Middleware Tests ====================

func TestGinLogger_StructuredAndMasked(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(GinLogger())
	engine.GET("/v1/providers/:name", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/v1/providers/nope?alt=sse&key=AIza12345678", nil)
	engine.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	if !strings.Contains(line, "[warn]") || !strings.Contains(line, "request rejected") {
		t.Errorf("line = %q, want warn entry", line)
	}
	for _, want := range []string{"status=404", "method=GET", "provider=nope", "key=AIza...5678"} {
		if !strings.Contains(line, want) {
			t.Errorf("line = %q, missing %s", line, want)
		}
	}
	if strings.Contains(line, "AIza12345678") {
		t.Errorf("line = %q, key leaked", line)
	}
}
