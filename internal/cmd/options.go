// Package cmd implements the llm-wire command-line modes.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/nghyane/llm-wire/internal/config"
	"github.com/nghyane/llm-wire/internal/json"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/provider"
	"github.com/nghyane/llm-wire/internal/wire/body"
)

// Options carries the flags shared by the one-shot modes.
type Options struct {
	// Provider names a registered provider or points at a definition file.
	Provider string
	Model    string
	// Conversation is a JSON file holding a body.Conversation; empty uses
	// the built-in sample.
	Conversation string
	// Out receives command output; nil means stdout.
	Out io.Writer
}

func (o *Options) out() io.Writer {
	if o == nil || o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

// newRegistry returns the presets overlaid with every valid definition in
// the configured providers directory.
func newRegistry(cfg *config.Config) *provider.Registry {
	reg := provider.NewDefaultRegistry()
	dir := cfg.ResolvedProvidersDir()
	if dir == "" {
		return reg
	}
	defs, err := provider.LoadDir(dir)
	if err != nil {
		log.WithError(err).Warn("some provider definitions failed to load")
	}
	reg.Replace(defs)
	return reg
}

// resolveProvider accepts a registered name or a definition file path.
func resolveProvider(reg *provider.Registry, nameOrPath string) (*provider.Definition, error) {
	if nameOrPath == "" {
		return nil, fmt.Errorf("no provider given (use --provider)")
	}
	if provider.IsDefinitionFile(nameOrPath) {
		if _, err := os.Stat(nameOrPath); err == nil {
			return provider.Load(nameOrPath)
		}
	}
	return reg.Get(nameOrPath)
}

func loadConversation(path string) (body.Conversation, error) {
	if path == "" {
		return body.SampleConversation(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return body.Conversation{}, fmt.Errorf("read conversation: %w", err)
	}
	var conv body.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return body.Conversation{}, fmt.Errorf("parse conversation %s: %w", path, err)
	}
	return conv, nil
}
