package message

import (
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"github.com/nghyane/llm-wire/internal/json"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/tailscale/hujson"
	"github.com/tiktoken-go/tokenizer"
)

func finalizeCall(tc *ToolCall) {
	args := strings.TrimSpace(tc.Arguments)
	if args == "" {
		tc.Input = json.RawMessage("{}")
		tc.Valid = true
		return
	}
	if json.Valid([]byte(args)) {
		tc.Input = json.RawMessage(json.CompactString(args))
		tc.Valid = true
		return
	}
	tc.Valid = false
	if repaired, ok := repairArguments(args); ok {
		tc.Input = json.RawMessage(repaired)
		tc.Repaired = true
	}
	log.WithField("tool", tc.Name).WithField("repaired", tc.Repaired).Warn("message: tool call arguments are not valid JSON")
}

// repairArguments tries JSONC normalization (comments, trailing commas,
// unquoted keys) first and general repair (truncation, quoting) second.
func repairArguments(args string) (string, bool) {
	if std, err := hujson.Standardize([]byte(args)); err == nil && json.Valid(std) {
		return json.CompactString(string(std)), true
	}
	fixed, err := jsonrepair.JSONRepair(args)
	if err != nil || !json.Valid([]byte(fixed)) {
		return "", false
	}
	return json.CompactString(fixed), true
}

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

func tokenCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.WithError(err).Warn("message: tokenizer unavailable, using length estimate")
			return
		}
		codec = c
	})
	return codec
}

// CountTokens estimates the cl100k token count of s.
func CountTokens(s string) int {
	if s == "" {
		return 0
	}
	if c := tokenCodec(); c != nil {
		ids, _, _ := c.Encode(s)
		return len(ids)
	}
	return (len(s) + 3) / 4
}

func (m *Message) estimateTokens() int {
	n := CountTokens(m.Text) + CountTokens(m.Thoughts)
	for _, tc := range m.ToolCalls {
		n += CountTokens(tc.Name) + CountTokens(tc.Arguments)
	}
	return n
}
