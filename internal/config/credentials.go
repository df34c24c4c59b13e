package config

import (
	"os"
	"strings"
	"sync"
)

// EnvCredentials resolves provider API keys from the environment. Overrides
// take precedence and exist for keys supplied on the command line.
type EnvCredentials struct {
	mu        sync.RWMutex
	overrides map[string]string
}

func NewEnvCredentials() *EnvCredentials {
	return &EnvCredentials{overrides: make(map[string]string)}
}

// Set pins name to value regardless of the environment.
func (c *EnvCredentials) Set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[name] = value
}

func (c *EnvCredentials) Lookup(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	c.mu.RLock()
	v, ok := c.overrides[name]
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	v, ok = os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}
