package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	log "github.com/nghyane/llm-wire/internal/logging"
)

// ErrStreamIncomplete is returned when input ends before a stream end signal.
var ErrStreamIncomplete = errors.New("stream: input ended before stream end")

// Parser feeds lines through Step and keeps the resulting State. A Parser
// belongs to one stream and is not safe for concurrent use.
type Parser struct {
	cfg   *Config
	state State
	lines int
}

func NewParser(cfg *Config) *Parser {
	return &Parser{cfg: cfg}
}

// Feed applies one line. Lines fed after the stream closed are ignored.
func (p *Parser) Feed(line string) []Event {
	p.lines++
	before := p.state.Malformed
	next, events := Step(p.cfg, p.state, line)
	if next.Malformed > before {
		log.WithField("line", p.lines).WithField("payload", truncate(line, 120)).Warn("stream: skipped malformed payload")
	}
	p.state = next
	return events
}

func (p *Parser) State() State { return p.state }

func (p *Parser) Closed() bool { return p.state.Phase == Closed }

// Close ends the stream. It returns ErrStreamIncomplete when no stream end was seen.
func (p *Parser) Close() error {
	if p.state.Phase == Closed {
		return nil
	}
	p.state.Phase = Closed
	return ErrStreamIncomplete
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// LineSource yields raw lines. Next returns io.EOF once the input is exhausted.
type LineSource interface {
	Next() (string, error)
}

// Run feeds src through p and hands every event to fn until the stream ends,
// src is exhausted, fn or src fails, or ctx is done. Exhausting src before a
// stream end returns ErrStreamIncomplete.
func Run(ctx context.Context, src LineSource, p *Parser, fn func(Event) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return p.Close()
			}
			return err
		}
		for _, ev := range p.Feed(line) {
			if err := fn(ev); err != nil {
				return err
			}
		}
		if p.Closed() {
			return nil
		}
	}
}

const (
	// DefaultMaxLineSize bounds a single line; larger lines fail the scan.
	DefaultMaxLineSize = 8 << 20
	scannerBufferSize  = 64 * 1024
)

var scannerBufferPool = sync.Pool{
	New: func() any {
		return make([]byte, scannerBufferSize)
	},
}

// ScannerSource splits a reader into lines.
type ScannerSource struct {
	scanner *bufio.Scanner
	buf     []byte
}

// NewScannerSource reads lines from r. maxLine <= 0 means DefaultMaxLineSize.
func NewScannerSource(r io.Reader, maxLine int) *ScannerSource {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	// bufio.Scanner never caps a line below the initial buffer size.
	var buf []byte
	if maxLine >= scannerBufferSize {
		buf = scannerBufferPool.Get().([]byte)
	} else {
		buf = make([]byte, maxLine)
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(buf, maxLine)
	return &ScannerSource{scanner: scanner, buf: buf}
}

func (s *ScannerSource) Next() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	s.release()
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *ScannerSource) release() {
	if s.buf != nil && cap(s.buf) == scannerBufferSize {
		scannerBufferPool.Put(s.buf[:scannerBufferSize])
	}
	s.buf = nil
}

// NewStringSource splits text into lines.
func NewStringSource(text string) *ScannerSource {
	return NewScannerSource(strings.NewReader(text), 0)
}

// SliceSource yields pre-split lines.
type SliceSource struct {
	lines []string
	pos   int
}

func Lines(lines ...string) *SliceSource {
	return &SliceSource{lines: lines}
}

func (s *SliceSource) Next() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	s.pos++
	return s.lines[s.pos-1], nil
}

// Parse runs text through a fresh parser and collects every event. The error
// is ErrStreamIncomplete when text ends before a stream end.
func Parse(cfg *Config, text string) ([]Event, error) {
	var events []Event
	err := Run(context.Background(), NewStringSource(text), NewParser(cfg), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}
