package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/nghyane/llm-wire/internal/capture"
	"github.com/nghyane/llm-wire/internal/config"
	"github.com/nghyane/llm-wire/internal/provider"
	"github.com/nghyane/llm-wire/internal/wire/message"
	"github.com/nghyane/llm-wire/internal/wire/stream"
	"golang.org/x/sync/errgroup"
)

type replayResult struct {
	source   string
	provider string
	msg      *message.Message
	err      error
}

// DoReplay parses recorded streams concurrently and prints the assembled
// messages in argument order. A source that is not a file is looked up as a
// capture id when the capture store is enabled. It returns the number of
// sources that failed or ended early.
func DoReplay(ctx context.Context, cfg *config.Config, opts *Options, sources []string) (int, error) {
	reg := newRegistry(cfg)

	var store *capture.Store
	if cfg.Capture.Enabled {
		s, err := capture.Open(cfg.ResolvedCaptureDB(), 0)
		if err != nil {
			return 0, err
		}
		defer s.Close()
		store = s
	}

	results := make([]replayResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, source := range sources {
		g.Go(func() error {
			results[i] = replayOne(gctx, reg, store, opts.Provider, source)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	out := opts.out()
	failed := 0
	for _, r := range results {
		fmt.Fprintf(out, "== %s (%s)\n", r.source, r.provider)
		if r.msg != nil {
			printMessage(out, r.msg)
		}
		if r.err != nil {
			fmt.Fprintf(out, "! %v\n", r.err)
			failed++
		}
	}
	return failed, nil
}

func replayOne(ctx context.Context, reg *provider.Registry, store *capture.Store, providerName, source string) replayResult {
	res := replayResult{source: source, provider: providerName}

	var src stream.LineSource
	if f, err := os.Open(source); err == nil {
		defer f.Close()
		src = stream.NewScannerSource(f, 0)
	} else if store != nil && errors.Is(err, os.ErrNotExist) {
		t, loadErr := store.Load(ctx, source)
		if loadErr != nil {
			res.err = loadErr
			return res
		}
		if res.provider == "" {
			res.provider = t.Provider
		}
		src = t.Source()
	} else {
		res.err = err
		return res
	}

	def, err := resolveProvider(reg, res.provider)
	if err != nil {
		res.err = err
		return res
	}
	res.provider = def.Name
	res.msg, res.err = def.NewPipeline().Run(ctx, src)
	return res
}

func printMessage(out io.Writer, msg *message.Message) {
	if msg.Thoughts != "" {
		fmt.Fprintf(out, "[thinking %s]\n%s\n", msg.ThinkingDuration, msg.Thoughts)
	}
	if msg.Text != "" {
		fmt.Fprintln(out, msg.Text)
	}
	for _, tc := range msg.ToolCalls {
		args := tc.Arguments
		if len(tc.Input) > 0 {
			args = string(tc.Input)
		}
		note := ""
		switch {
		case tc.Repaired:
			note = " (repaired)"
		case !tc.Valid:
			note = " (invalid arguments)"
		}
		fmt.Fprintf(out, "-> %s(%s) id=%s%s\n", tc.Name, args, tc.ID, note)
	}
	status := "complete"
	if msg.Incomplete {
		status = "incomplete: " + msg.IncompleteReason
	}
	fmt.Fprintf(out, "[%s, ~%d tokens]\n", status, msg.EstimatedTokens)
}
