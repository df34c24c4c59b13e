package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nghyane/llm-wire/internal/config"
	"github.com/nghyane/llm-wire/internal/provider"
)

const openAITranscript = "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
	"data: [DONE]\n\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.ProvidersDir = t.TempDir()
	cfg.Capture.Enabled = false
	return cfg
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// ==================== Validate Tests ====================

func TestDoValidate_CountsRejectedFiles(t *testing.T) {
	dir := t.TempDir()
	data, err := provider.Marshal(provider.Presets()[0])
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	good := writeFile(t, dir, "good.yaml", string(data))
	bad := writeFile(t, dir, "bad.yaml", "name: bad\nnot_a_field: 1\n")
	missing := filepath.Join(dir, "missing.yaml")

	var out bytes.Buffer
	failed := DoValidate([]string{good, bad, missing}, &Options{Out: &out})
	if failed != 2 {
		t.Errorf("failed = %d, want 2\n%s", failed, out.String())
	}
	if !strings.Contains(out.String(), good+" (openai): ok") {
		t.Errorf("missing ok line:\n%s", out.String())
	}
}

// ==================== Preview Tests ====================

func TestDoPreview_MasksKey(t *testing.T) {
	keys := config.NewEnvCredentials()
	keys.Set("OPENAI_API_KEY", "sk-live-abcdefghijklmnop")

	var out bytes.Buffer
	err := DoPreview(testConfig(t), keys, &Options{Provider: "openai", Out: &out})
	if err != nil {
		t.Fatalf("DoPreview failed: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "POST https://api.openai.com/v1/chat/completions\n") {
		t.Errorf("unexpected request line:\n%s", got)
	}
	if strings.Contains(got, "sk-live-abcdefghijklmnop") {
		t.Errorf("key leaked into preview:\n%s", got)
	}
	if !strings.Contains(got, "gpt-4o-mini") {
		t.Errorf("default model missing:\n%s", got)
	}
}

func TestDoPreview_UnknownProvider(t *testing.T) {
	var out bytes.Buffer
	if err := DoPreview(testConfig(t), config.NewEnvCredentials(), &Options{Provider: "nope", Out: &out}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestDoPreview_DefinitionFile(t *testing.T) {
	def := provider.Presets()[0]
	def.Name = "custom"
	def.URL = "https://llm.example.com/v1/chat"
	data, err := provider.Marshal(def)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	path := writeFile(t, t.TempDir(), "custom.yaml", string(data))

	var out bytes.Buffer
	if err := DoPreview(testConfig(t), config.NewEnvCredentials(), &Options{Provider: path, Out: &out}); err != nil {
		t.Fatalf("DoPreview failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "POST https://llm.example.com/v1/chat\n") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

// ==================== Replay Tests ====================

func TestDoReplay_PrintsInArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	complete := writeFile(t, dir, "complete.sse", openAITranscript)
	partial := writeFile(t, dir, "partial.sse", "data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\n")

	var out bytes.Buffer
	failed, err := DoReplay(context.Background(), testConfig(t), &Options{Provider: "openai", Out: &out}, []string{partial, complete})
	if err != nil {
		t.Fatalf("DoReplay failed: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	got := out.String()
	first := strings.Index(got, "== "+partial)
	second := strings.Index(got, "== "+complete)
	if first < 0 || second < 0 || first > second {
		t.Fatalf("results out of order:\n%s", got)
	}
	if !strings.Contains(got[second:], "Hello\n") || !strings.Contains(got[second:], "[complete") {
		t.Errorf("complete replay output wrong:\n%s", got[second:])
	}
	if !strings.Contains(got[first:second], "incomplete: ") {
		t.Errorf("partial replay not marked incomplete:\n%s", got[first:second])
	}
}

func TestDoReplay_MissingFile(t *testing.T) {
	var out bytes.Buffer
	failed, err := DoReplay(context.Background(), testConfig(t), &Options{Provider: "openai", Out: &out},
		[]string{filepath.Join(t.TempDir(), "nope.sse")})
	if err != nil {
		t.Fatalf("DoReplay failed: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
}

// ==================== Init Tests ====================

func TestDoInitConfig_CreatesConfigAndPresets(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	path := filepath.Join(home, "llm-wire", "config.yaml")

	var out bytes.Buffer
	if err := DoInitConfig(path, true, &Options{Out: &out}); err != nil {
		t.Fatalf("DoInitConfig failed: %v", err)
	}
	if !fileExists(path) {
		t.Fatalf("config not written:\n%s", out.String())
	}
	for _, def := range provider.Presets() {
		p := filepath.Join(home, "llm-wire", "providers", def.Name+".yaml")
		if _, err := provider.Load(p); err != nil {
			t.Errorf("preset %s: %v", def.Name, err)
		}
	}

	out.Reset()
	if err := DoInitConfig(path, true, &Options{Out: &out}); err != nil {
		t.Fatalf("second DoInitConfig failed: %v", err)
	}
	if !strings.Contains(out.String(), "Exists: "+path) || !strings.Contains(out.String(), "skip ") {
		t.Errorf("second run should keep existing files:\n%s", out.String())
	}
}
