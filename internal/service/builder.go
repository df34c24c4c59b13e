// Package service wires the workbench: provider registry, definition watcher,
// capture store, outbound client and HTTP server, with a managed lifecycle.
package service

import (
	"fmt"

	"github.com/nghyane/llm-wire/internal/api"
	"github.com/nghyane/llm-wire/internal/config"
	"github.com/nghyane/llm-wire/internal/provider"
	"github.com/nghyane/llm-wire/internal/transport"
)

// Builder constructs a Service instance with customizable collaborators.
type Builder struct {
	cfg           *config.Config
	credentials   provider.KeySource
	registry      *provider.Registry
	client        *transport.Client
	hooks         Hooks
	serverOptions []api.ServerOption
}

// Hooks allows callers to plug into service lifecycle stages.
type Hooks struct {
	// OnBeforeStart runs after wiring and before the HTTP server starts.
	OnBeforeStart func(*config.Config)

	// OnAfterStart runs once the server goroutine is launched.
	OnAfterStart func(*Service)

	// OnReload runs after every applied provider reload.
	OnReload func([]*provider.Definition, error)
}

// NewBuilder creates a Builder with default dependencies left unset.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the configuration instance used by the service.
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.cfg = cfg
	return b
}

// WithCredentials overrides where API keys are looked up. Defaults to the
// process environment.
func (b *Builder) WithCredentials(keys provider.KeySource) *Builder {
	b.credentials = keys
	return b
}

// WithRegistry supplies a pre-populated registry instead of the presets.
func (b *Builder) WithRegistry(reg *provider.Registry) *Builder {
	b.registry = reg
	return b
}

// WithClient overrides the outbound client built from the config.
func (b *Builder) WithClient(client *transport.Client) *Builder {
	b.client = client
	return b
}

func (b *Builder) WithHooks(h Hooks) *Builder {
	b.hooks = h
	return b
}

// WithServerOptions appends server construction options to apply when the HTTP server is created.
func (b *Builder) WithServerOptions(opts ...api.ServerOption) *Builder {
	b.serverOptions = append(b.serverOptions, opts...)
	return b
}

// Build validates inputs, applies defaults, and returns a ready-to-run service.
func (b *Builder) Build() (*Service, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("service: configuration is required")
	}

	credentials := b.credentials
	if credentials == nil {
		credentials = config.NewEnvCredentials()
	}

	registry := b.registry
	if registry == nil {
		registry = provider.NewDefaultRegistry()
	}

	client := b.client
	if client == nil {
		c, err := transport.New(transport.Options{
			ProxyURL:              b.cfg.ProxyURL,
			ResponseHeaderTimeout: b.cfg.RequestTimeout(),
			MaxLineSize:           b.cfg.MaxLineSize,
		})
		if err != nil {
			return nil, fmt.Errorf("service: %w", err)
		}
		client = c
	}

	return &Service{
		cfg:           b.cfg,
		credentials:   credentials,
		registry:      registry,
		stats:         provider.NewStats(),
		client:        client,
		hooks:         b.hooks,
		serverOptions: append([]api.ServerOption(nil), b.serverOptions...),
	}, nil
}
