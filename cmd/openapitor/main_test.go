package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalSpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Widgets", "version": "1.0.0"},
  "paths": {}
}`

func TestRunMissingRequiredFlagsExitsOne(t *testing.T) {
	code := run([]string{})
	require.Equal(t, 1, code, "a missing-option failure isn't a taxonomy *errs.Error, so it maps to the generic exit code")
}

func TestRunSucceedsWithMinimalFlags(t *testing.T) {
	specPath := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(specPath, []byte(minimalSpec), 0o644))
	outDir := filepath.Join(t.TempDir(), "out")

	code := run([]string{
		"--input", specPath,
		"--output", outDir,
		"--name", "widgets_client",
		"--base-url", "https://api.example.com",
	})
	require.Equal(t, 0, code)

	_, err := os.Stat(filepath.Join(outDir, "Cargo.toml"))
	require.NoError(t, err)
}

func TestRunUnsupportedSpecVersionExitsTwo(t *testing.T) {
	specPath := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(specPath, []byte(`{"openapi": "2.0", "info": {}, "paths": {}}`), 0o644))
	outDir := filepath.Join(t.TempDir(), "out")

	code := run([]string{
		"--input", specPath,
		"--output", outDir,
		"--name", "widgets_client",
	})
	require.Equal(t, 2, code)
}
