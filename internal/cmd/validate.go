package cmd

import (
	"fmt"
	"os"

	"github.com/nghyane/llm-wire/internal/provider"
)

// DoValidate checks each definition file and prints its issues. It returns
// the number of files rejected.
func DoValidate(files []string, opts *Options) int {
	out := opts.out()
	failed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}
		def, err := provider.Decode(data, path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}
		issues := def.Validate()
		status := "ok"
		if issues.HasErrors() {
			status = "invalid"
			failed++
		}
		fmt.Fprintf(out, "%s (%s): %s\n", path, def.Name, status)
		for _, issue := range issues {
			fmt.Fprintf(out, "  %s\n", issue)
		}
	}
	return failed
}
