// Package main is the llm-wire entry point: validate provider definitions,
// preview request bodies, replay recorded streams, send live requests or run
// the HTTP workbench.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/nghyane/llm-wire/internal/cmd"
	"github.com/nghyane/llm-wire/internal/config"
	"github.com/nghyane/llm-wire/internal/logging"
	log "github.com/nghyane/llm-wire/internal/logging"
	flag "github.com/spf13/pflag"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath   string
		validate     bool
		preview      bool
		replay       bool
		send         bool
		serve        bool
		initConfig   bool
		withPresets  bool
		showVersion  bool
		debug        bool
		providerName string
		model        string
		conversation string
	)

	flag.StringVar(&configPath, "config", config.DefaultConfigPath(), "Configure File Path")
	flag.BoolVar(&validate, "validate", false, "Validate the provider definition files given as arguments")
	flag.BoolVar(&preview, "preview", false, "Print the request --provider would receive")
	flag.BoolVar(&replay, "replay", false, "Parse recorded streams (files or capture ids) with --provider")
	flag.BoolVar(&send, "send", false, "Send --conversation to --provider and stream the reply")
	flag.BoolVar(&serve, "serve", false, "Run the HTTP workbench (default when no other mode is given)")
	flag.BoolVar(&initConfig, "init", false, "Write the default config and create the providers directory")
	flag.BoolVar(&withPresets, "presets", false, "Also export built-in presets as definition files (use with --init)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVarP(&providerName, "provider", "p", "", "Provider name or definition file")
	flag.StringVarP(&model, "model", "m", "", "Model override")
	flag.StringVarP(&conversation, "conversation", "c", "", "Conversation JSON file (default: built-in sample)")
	flag.Parse()

	if showVersion {
		fmt.Printf("llm-wire Version: %s, Commit: %s, BuiltAt: %s\n", Version, Commit, BuildDate)
		return 0
	}

	opts := &cmd.Options{Provider: providerName, Model: model, Conversation: conversation}

	if initConfig {
		if err := cmd.DoInitConfig(configPath, withPresets, opts); err != nil {
			log.Errorf("init failed: %v", err)
			return 1
		}
		return 0
	}

	if validate {
		if flag.NArg() == 0 {
			log.Error("--validate needs at least one definition file")
			return 2
		}
		if cmd.DoValidate(flag.Args(), opts) > 0 {
			return 1
		}
		return 0
	}

	if wd, err := os.Getwd(); err == nil {
		if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil && !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	cfg, err := config.LoadConfigOptional(configPath, true)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return 1
	}
	if debug {
		cfg.Debug = true
	}
	if err := logging.ConfigureLogOutput(cfg.LoggingToFile, config.ExpandPath(cfg.LogDir)); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return 1
	}
	if cfg.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	keys := config.NewEnvCredentials()
	ctx := context.Background()

	switch {
	case serve:
		err = cmd.StartService(cfg, keys)
	case preview:
		err = cmd.DoPreview(cfg, keys, opts)
	case replay:
		var failed int
		failed, err = cmd.DoReplay(ctx, cfg, opts, flag.Args())
		if err == nil && failed > 0 {
			return 1
		}
	case send:
		err = cmd.DoSend(ctx, cfg, keys, opts)
	default:
		err = cmd.StartService(cfg, keys)
	}
	if err != nil {
		log.Error(err.Error())
		return 1
	}
	return 0
}
