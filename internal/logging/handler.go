package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// CustomHandler writes one line per record:
//
//	[2006-01-02 15:04:05] [info] [file.go:12] message | k=v k2=v2
type CustomHandler struct {
	w         io.Writer
	level     *slog.LevelVar
	addSource bool
	attrs     []slog.Attr
	group     string
	mu        *sync.Mutex
}

func NewCustomHandler(w io.Writer, level *slog.LevelVar, addSource bool) *CustomHandler {
	return &CustomHandler{
		w:         w,
		level:     level,
		addSource: addSource,
		mu:        &sync.Mutex{},
	}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	line.WriteString("[")
	line.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	line.WriteString("] [")
	line.WriteString(strings.ToLower(r.Level.String()))
	line.WriteString("] ")

	if h.addSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		fmt.Fprintf(&line, "[%s:%d] ", filepath.Base(f.File), f.Line)
	}
	line.WriteString(r.Message)

	n := 0
	write := func(a slog.Attr) {
		if n == 0 {
			line.WriteString(" | ")
		} else {
			line.WriteString(" ")
		}
		line.WriteString(a.Key)
		line.WriteString("=")
		fmt.Fprintf(&line, "%v", a.Value.Any())
		n++
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(h.qualify(a))
		return true
	})
	line.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return &clone
}

func (h *CustomHandler) qualify(a slog.Attr) slog.Attr {
	if h.group == "" {
		return a
	}
	return slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}
