package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/nghyane/llm-wire/internal/config"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/provider"
	"github.com/nghyane/llm-wire/internal/service"
)

// StartService runs the workbench until SIGINT or SIGTERM.
func StartService(cfg *config.Config, keys provider.KeySource) error {
	svc, err := service.NewBuilder().
		WithConfig(cfg).
		WithCredentials(keys).
		WithRegistry(provider.NewDefaultRegistry()).
		Build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		log.WithError(err).Error("workbench stopped with error")
		return err
	}
	log.Info("workbench stopped")
	return nil
}
