// Package schema holds the JSON Schemas for Resource API payloads and
// validates documents against them.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names.
const (
	OCRStatus     = "ocr_status"
	ConfirmImport = "confirm_import"
)

var registry = []string{OCRStatus, ConfirmImport}

var (
	compileMu sync.Mutex
	compiled  = map[string]*jsonschema.Schema{}
)

// Names returns all registered schema names in sorted order.
func Names() []string {
	names := make([]string, len(registry))
	copy(names, registry)
	sort.Strings(names)
	return names
}

// Raw returns the embedded schema document.
func Raw(name string) ([]byte, error) {
	content, err := schemaFS.ReadFile(filename(name))
	if err != nil {
		return nil, fmt.Errorf("schema not found: %s", name)
	}
	return content, nil
}

// Get returns a compiled schema, compiling it on first use.
func Get(name string) (*jsonschema.Schema, error) {
	compileMu.Lock()
	defer compileMu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}

	raw, err := Raw(name)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", name, err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	compiled[name] = s
	return s, nil
}

// Validate checks a raw JSON document against the named schema.
func Validate(name string, doc []byte) error {
	s, err := Get(name)
	if err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("invalid JSON for %s: %w", name, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("document does not match %s schema: %w", name, err)
	}
	return nil
}

func filename(name string) string {
	return fmt.Sprintf("schemas/%s.json", strings.ToLower(name))
}
