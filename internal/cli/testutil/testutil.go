// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/extsql/internal/cli/output"
)

// PetsManifest is a small manifest exercising types, custom SQL and positioning.
const PetsManifest = `extension:
  name: pets
  default_version: "1.0"
  schema: public

mappings:
  - {id: i32, sql: integer}
  - {id: cstring, sql: cstring}
  - {id: String, sql: text}

entities:
  - custom_sql:
      name: setup
      module_path: pets
      file: src/lib.rs
      line: 1
      bootstrap: true
      sql: "SET client_min_messages TO warning;"
  - type:
      name: Dog
      module_path: pets
      file: src/lib.rs
      line: 10
      in_fn: dog_in
      out_fn: dog_out
  - function:
      name: dog_in
      module_path: pets
      file: src/lib.rs
      line: 20
      args: [{name: input, type: cstring}]
      returns: {type: {id: pets::Dog, text: Dog}}
  - function:
      name: dog_out
      module_path: pets
      file: src/lib.rs
      line: 30
      args: [{name: dog, type: {id: pets::Dog, text: Dog}}]
      returns: {type: cstring}
  - function:
      name: bark
      module_path: pets
      file: src/lib.rs
      line: 40
      args: [{name: dog, type: {id: pets::Dog, text: Dog}}, {name: times, type: i32}]
      returns: {type: String}
`

// SetupTestProject writes PetsManifest into a temporary directory and
// returns the manifest path.
func SetupTestProject(t *testing.T) string {
	t.Helper()
	return WriteManifest(t, t.TempDir(), "extension.yaml", PetsManifest)
}

// WriteManifest writes content to dir/name, creating directories as needed.
func WriteManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string { return tr.Out.String() }

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string { return tr.ErrOut.String() }

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
