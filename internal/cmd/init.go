package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nghyane/llm-wire/internal/config"
	"github.com/nghyane/llm-wire/internal/provider"
)

// DoInitConfig writes the default config when none exists and creates the
// providers directory. With exportPresets it also writes each preset as an
// editable definition file, leaving existing files alone.
func DoInitConfig(configPath string, exportPresets bool, opts *Options) error {
	out := opts.out()
	configPath = config.ExpandPath(configPath)
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if fileExists(configPath) {
		fmt.Fprintf(out, "Exists: %s\n", configPath)
	} else {
		if err := os.WriteFile(configPath, config.GenerateDefaultConfigYAML(), 0o600); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(out, "Created: %s\n", configPath)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	dir := cfg.ResolvedProvidersDir()
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create providers directory: %w", err)
	}
	fmt.Fprintf(out, "Providers: %s\n", dir)

	if !exportPresets {
		return nil
	}
	for _, def := range provider.Presets() {
		path := filepath.Join(dir, def.Name+".yaml")
		if fileExists(path) {
			fmt.Fprintf(out, "  skip %s (exists)\n", path)
			continue
		}
		data, err := provider.Marshal(def)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "  wrote %s\n", path)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
