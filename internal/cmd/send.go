package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nghyane/llm-wire/internal/capture"
	"github.com/nghyane/llm-wire/internal/config"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/provider"
	"github.com/nghyane/llm-wire/internal/transport"
	"github.com/nghyane/llm-wire/internal/wire/stream"
)

// DoSend performs a real request and prints text as it streams in.
func DoSend(ctx context.Context, cfg *config.Config, keys provider.KeySource, opts *Options) error {
	def, err := resolveProvider(newRegistry(cfg), opts.Provider)
	if err != nil {
		return err
	}
	conv, err := loadConversation(opts.Conversation)
	if err != nil {
		return err
	}
	rt, err := def.Runtime(keys, opts.Model, true)
	if err != nil {
		return err
	}
	client, err := transport.New(transport.Options{
		ProxyURL:              cfg.ProxyURL,
		ResponseHeaderTimeout: cfg.RequestTimeout(),
		MaxLineSize:           cfg.MaxLineSize,
	})
	if err != nil {
		return err
	}

	resp, err := client.Send(ctx, def, conv, rt)
	if err != nil {
		return err
	}
	defer resp.Close()

	var src stream.LineSource = resp
	var rec *capture.Recorder
	if cfg.Capture.Enabled {
		rec = capture.NewRecorder(resp, def.Name, rt.Model)
		src = rec
	}

	out := opts.out()
	start := time.Now()
	var runErr error
	for u := range def.NewPipeline().Stream(ctx, src) {
		if u.Final {
			fmt.Fprintln(out)
			printMessage(out, u.Snapshot)
			runErr = u.Err
			if rec != nil {
				saveCapture(cfg, rec.Transcript(u.Snapshot))
			}
			continue
		}
		switch u.Event.Kind {
		case stream.KindTextDelta, stream.KindThinkingDelta:
			fmt.Fprint(out, u.Event.Text)
		case stream.KindToolCallStart:
			fmt.Fprintf(out, "\n-> %s ", u.Event.Name)
		}
	}
	log.WithField("provider", def.Name).WithField("elapsed", time.Since(start)).Debug("send finished")
	return runErr
}

func saveCapture(cfg *config.Config, t *capture.Transcript) {
	store, err := capture.Open(cfg.ResolvedCaptureDB(), cfg.Capture.RetentionDays)
	if err != nil {
		log.WithError(err).Warn("capture store unavailable")
		return
	}
	defer store.Close()
	if err := store.Save(context.Background(), t); err != nil {
		log.WithError(err).Warn("failed to save capture")
		return
	}
	log.Infof("capture saved: %s", t.ID)
}
