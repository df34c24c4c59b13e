package provider

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/nghyane/llm-wire/internal/logging"
	"gopkg.in/yaml.v3"
)

// Decode reads one YAML (or JSON) definition without validating it. Unknown
// keys are rejected.
func Decode(data []byte, source string) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("provider %s: decode: %w", source, err)
	}
	def.Source = source
	if def.Name == "" && source != "" {
		def.Name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	return &def, nil
}

// Parse decodes one YAML definition and rejects it if validation finds errors.
func Parse(data []byte, source string) (*Definition, error) {
	def, err := Decode(data, source)
	if err != nil {
		return nil, err
	}
	issues := def.Validate()
	if issues.HasErrors() {
		return nil, &ValidationError{Name: def.Name, Source: source, Issues: issues}
	}
	for _, w := range issues.Warnings() {
		log.WithField("provider", def.Name).Warn(w.String())
	}
	return def, nil
}

// Load reads a definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("provider: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Marshal encodes def as YAML.
func Marshal(def *Definition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsDefinitionFile reports whether path has a YAML extension.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadDir loads every YAML file in dir, sorted by file name. Invalid files are
// skipped and reported in the joined error; valid ones are still returned.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("provider: read dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsDefinitionFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var defs []*Definition
	var errs []error
	seen := make(map[string]string, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		def, err := Load(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[def.Name]; dup {
			errs = append(errs, fmt.Errorf("provider %s: name %q already defined in %s", path, def.Name, prev))
			continue
		}
		seen[def.Name] = path
		defs = append(defs, def)
	}
	return defs, errors.Join(errs...)
}
