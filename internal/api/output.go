package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the output format for CLI commands.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// DefaultOutput is the default output format.
const DefaultOutput = OutputFormatYAML

var (
	outputMu     sync.RWMutex
	outputFormat = DefaultOutput
	outputWriter io.Writer = os.Stdout
)

// ParseOutputFormat maps a --output flag value to a format.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatJSON, OutputFormatYAML:
		return OutputFormat(s), nil
	case "":
		return DefaultOutput, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (want yaml or json)", s)
	}
}

// SetOutputFormat sets the global output format. Unknown values fall back to the default.
func SetOutputFormat(format string) {
	f, err := ParseOutputFormat(format)
	if err != nil {
		f = DefaultOutput
	}
	outputMu.Lock()
	outputFormat = f
	outputMu.Unlock()
}

// SetOutputWriter redirects Output, mainly for tests.
func SetOutputWriter(w io.Writer) {
	outputMu.Lock()
	outputWriter = w
	outputMu.Unlock()
}

// GetOutputFormat returns the current global output format.
func GetOutputFormat() OutputFormat {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return outputFormat
}

// Output writes data in the configured format.
func Output(data any) error {
	outputMu.RLock()
	w, f := outputWriter, outputFormat
	outputMu.RUnlock()
	return OutputTo(w, f, data)
}

// OutputTo writes data to the given writer in the specified format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
