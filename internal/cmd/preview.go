package cmd

import (
	"fmt"
	"sort"

	"github.com/nghyane/llm-wire/internal/config"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/provider"
	"github.com/nghyane/llm-wire/internal/wire/body"
)

// DoPreview prints the request a provider would receive for the conversation.
// Keys are masked; a missing key shows the sample placeholder value.
func DoPreview(cfg *config.Config, keys provider.KeySource, opts *Options) error {
	def, err := resolveProvider(newRegistry(cfg), opts.Provider)
	if err != nil {
		return err
	}
	conv, err := loadConversation(opts.Conversation)
	if err != nil {
		return err
	}
	rt, _ := def.Runtime(keys, opts.Model, false)
	if rt.APIKey == "" {
		rt.APIKey = body.SampleRuntime().APIKey
	} else {
		rt.APIKey = log.MaskKey(rt.APIKey)
	}

	out := opts.out()
	endpoint, headers := def.Endpoint(rt)
	fmt.Fprintf(out, "%s %s\n", def.HTTPMethod(), endpoint)
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(out, "%s: %s\n", k, headers[k])
	}
	fmt.Fprintln(out)

	p := def.Preview(conv, rt)
	fmt.Fprintln(out, p.Body)
	for _, note := range p.Notes() {
		fmt.Fprintf(out, "! %s\n", note)
	}
	return p.Err
}
