package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nghyane/llm-wire/internal/api"
	"github.com/nghyane/llm-wire/internal/capture"
	"github.com/nghyane/llm-wire/internal/config"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/provider"
	"github.com/nghyane/llm-wire/internal/transport"
	"github.com/nghyane/llm-wire/internal/watcher"
)

// Service owns the workbench lifecycle so other programs can embed it.
type Service struct {
	cfg           *config.Config
	credentials   provider.KeySource
	registry      *provider.Registry
	stats         *provider.Stats
	client        *transport.Client
	hooks         Hooks
	serverOptions []api.ServerOption

	captures *capture.Store

	server    *api.Server
	serverErr chan error

	watcher       *watcher.Watcher
	watcherCancel context.CancelFunc

	shutdownOnce sync.Once
}

// Registry exposes the live provider registry.
func (s *Service) Registry() *provider.Registry { return s.registry }

// Server returns the HTTP server once Run has wired it.
func (s *Service) Server() *api.Server { return s.server }

// Run starts every component and blocks until ctx is done or the server fails.
// Shutdown always runs before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("service: service is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Errorf("service shutdown returned error: %v", err)
		}
	}()

	if s.cfg.Capture.Enabled {
		store, err := capture.Open(s.cfg.ResolvedCaptureDB(), s.cfg.Capture.RetentionDays)
		if err != nil {
			log.WithError(err).Warn("capture store disabled")
		} else {
			s.captures = store
			log.Infof("capturing streams to %s", store.DBPath())
		}
	}

	if dir := s.cfg.ResolvedProvidersDir(); dir != "" {
		if err := s.startWatcher(ctx, dir); err != nil {
			return err
		}
	}
	log.Infof("%d provider definitions registered", s.registry.Len())

	s.server = api.NewServer(s.cfg, api.Deps{
		Registry:    s.registry,
		Stats:       s.stats,
		Captures:    s.captures,
		Credentials: s.credentials,
		Client:      s.client,
	}, s.serverOptions...)

	if s.hooks.OnBeforeStart != nil {
		s.hooks.OnBeforeStart(s.cfg)
	}

	s.serverErr = make(chan error, 1)
	go func() {
		s.serverErr <- s.server.Start()
	}()

	if s.hooks.OnAfterStart != nil {
		s.hooks.OnAfterStart(s)
	}

	select {
	case <-ctx.Done():
		log.Debug("service context cancelled, shutting down...")
		return nil
	case err := <-s.serverErr:
		return err
	}
}

func (s *Service) startWatcher(ctx context.Context, dir string) error {
	w, err := watcher.NewWatcher(dir, s.registry, func(defs []*provider.Definition, loadErr error) {
		if loadErr != nil {
			log.WithError(loadErr).Warn("some provider definitions failed to load")
		}
		log.Infof("provider definitions reloaded (%d from %s)", len(defs), dir)
		if s.hooks.OnReload != nil {
			s.hooks.OnReload(defs, loadErr)
		}
	})
	if err != nil {
		return fmt.Errorf("service: failed to create watcher: %w", err)
	}
	watcherCtx, cancel := context.WithCancel(ctx)
	if err := w.Start(watcherCtx); err != nil {
		cancel()
		_ = w.Stop()
		return fmt.Errorf("service: failed to start watcher: %w", err)
	}
	s.watcher = w
	s.watcherCancel = cancel
	log.Info("file watcher started for provider definitions")
	return nil
}

// Shutdown stops the watcher, the HTTP server and the capture store. It is
// idempotent.
func (s *Service) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		if s.watcherCancel != nil {
			s.watcherCancel()
		}
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				log.Errorf("failed to stop file watcher: %v", err)
				shutdownErr = err
			}
		}
		if s.server != nil {
			if err := s.server.Stop(ctx); err != nil {
				log.Errorf("error stopping API server: %v", err)
				shutdownErr = errors.Join(shutdownErr, err)
			}
		}
		if s.captures != nil {
			if err := s.captures.Close(); err != nil {
				log.Errorf("failed to close capture store: %v", err)
				shutdownErr = errors.Join(shutdownErr, err)
			}
		}
	})
	return shutdownErr
}
