package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "extsql.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0600))
	return cfgPath
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, DefaultManifest), cfg.Manifest)
	assert.Equal(t, Stdout, cfg.Out)
	assert.Empty(t, cfg.DOT)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultWatchDebounce, cfg.WatchDebounce)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_File(t *testing.T) {
	cfgPath := writeConfig(t, `manifest: manifests
out: sql/pets--1.0.sql
dot: graph/pets.dot
output: json
watch_debounce: 1s
`)
	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	root := filepath.Dir(cfgPath)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, cfgPath, cfg.ConfigFile)
	assert.Equal(t, filepath.Join(root, "manifests"), cfg.Manifest, "paths resolve against the config file's directory")
	assert.Equal(t, filepath.Join(root, "sql", "pets--1.0.sql"), cfg.Out)
	assert.Equal(t, filepath.Join(root, "graph", "pets.dot"), cfg.DOT)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

// TestLoadConfig_FlagPrecedence tests that flags override env vars and config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	cfgPath := writeConfig(t, "manifest: from_file\noutput: text\n")
	t.Setenv("EXTSQL_MANIFEST", "from_env")
	t.Setenv("EXTSQL_OUTPUT", "markdown")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("manifest", "", "manifest path")
	flags.String("output", "", "output format")
	require.NoError(t, flags.Set("manifest", "from_flag"))
	require.NoError(t, flags.Set("output", "json"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "from_flag"), cfg.Manifest, "flag paths resolve against the working directory")
	assert.Equal(t, "json", cfg.OutputFormat)
}

// TestLoadConfig_EnvPrecedenceOverFile tests that env vars override config file.
func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	cfgPath := writeConfig(t, "manifest: from_file\nwatch_debounce: 1s\n")
	t.Setenv("EXTSQL_MANIFEST", "from_env")
	t.Setenv("EXTSQL_WATCH_DEBOUNCE", "50ms")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "from_env"), cfg.Manifest)
	assert.Equal(t, 50*time.Millisecond, cfg.WatchDebounce)
}

// TestLoadConfig_FlagNotSetUsesEnv tests that unset flags fall back to env vars.
func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	cfgPath := writeConfig(t, "manifest: from_file\n")
	t.Setenv("EXTSQL_MANIFEST", "from_env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("manifest", "", "manifest path")

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "from_env"), cfg.Manifest)
}

func TestLoadConfig_StdoutIsNotAPath(t *testing.T) {
	cfgPath := writeConfig(t, "out: \"-\"\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("out", "", "script destination")
	require.NoError(t, flags.Set("out", "-"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)
	assert.Equal(t, Stdout, cfg.Out)
}

func TestLoadConfig_InvalidOutput(t *testing.T) {
	cfgPath := writeConfig(t, "output: yaml\n")

	_, err := LoadConfig(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid output format "yaml"`)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		errSubstr string
	}{
		{"valid", Config{Manifest: "m.yaml", OutputFormat: "auto"}, ""},
		{"empty manifest", Config{OutputFormat: "auto"}, "manifest is required"},
		{"bad output", Config{Manifest: "m.yaml", OutputFormat: "xml"}, "invalid output format"},
		{"negative debounce", Config{Manifest: "m.yaml", OutputFormat: "text", WatchDebounce: -time.Second}, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateManifest(t *testing.T) {
	cfg := &Config{Manifest: filepath.Join(t.TempDir(), "missing.yaml")}
	err := cfg.ValidateManifest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest does not exist")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "missing logger falls back to discard")

	var buf bytes.Buffer
	logger := NewLogger(&buf, true)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	GetLogger(ctx).Debug("hello", "key", "value")
	assert.Contains(t, buf.String(), "msg=hello key=value")

	buf.Reset()
	NewLogger(&buf, false).Debug("quiet")
	assert.Empty(t, buf.String())
}

func TestGetConfig(t *testing.T) {
	want := &Config{Manifest: "m.yaml", OutputFormat: "json"}
	got, err := GetConfig(WithConfig(context.Background(), want))
	require.NoError(t, err)
	assert.Same(t, want, got)

	got, err = GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultOutput, got.OutputFormat)
}
