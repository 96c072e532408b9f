package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/extsql/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdataManifest(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Join(wd, "..", "..", "internal", "manifest", "testdata", "pets.yaml")
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "extsql v")
}

func TestGenerateToStdout(t *testing.T) {
	out, _, err := run(t, "generate", "--manifest", testdataManifest(t))
	require.NoError(t, err)

	assert.Contains(t, out, "CREATE TYPE Dog;")
	assert.Less(t, strings.Index(out, "SET client_min_messages"), strings.Index(out, "CREATE TYPE Dog;"))
	assert.Less(t, strings.Index(out, "CREATE TABLE walks"), strings.Index(out, `FUNCTION "walk"(`))
}

func TestGenerateToFiles(t *testing.T) {
	dir := t.TempDir()
	sqlPath := filepath.Join(dir, "sql", "pets--1.0.sql")
	dotPath := filepath.Join(dir, "pets.dot")

	_, errOut, err := run(t, "generate", "--manifest", testdataManifest(t), "--out", sqlPath, "--dot", dotPath, "--output", "text")
	require.NoError(t, err)
	assert.Contains(t, errOut, "wrote "+sqlPath)

	script, err := os.ReadFile(sqlPath)
	require.NoError(t, err)
	assert.Contains(t, string(script), "CREATE TYPE Dog (")

	dot, err := os.ReadFile(dotPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dot), "digraph {\n"))
}

func TestGenerateIsStable(t *testing.T) {
	first, _, err := run(t, "generate", "--manifest", testdataManifest(t))
	require.NoError(t, err)
	second, _, err := run(t, "generate", "--manifest", testdataManifest(t))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCheckJSON(t *testing.T) {
	out, _, err := run(t, "check", "--manifest", testdataManifest(t), "--output", "json")
	require.NoError(t, err)

	var res struct {
		Extension string `json:"extension"`
		Nodes     int    `json:"nodes"`
		Digest    string `json:"digest"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "pets", res.Extension)
	assert.Positive(t, res.Nodes)
	assert.Len(t, res.Digest, 16)
}

func TestMissingManifest(t *testing.T) {
	_, _, err := run(t, "check", "--manifest", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest does not exist")
}

func TestCompletion(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "extsql")
}
