package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittycad/openapitor/internal/errs"
)

const minimalJSONSpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Widgets", "version": "1.0.0"},
  "paths": {}
}`

const minimalYAMLSpec = `
openapi: "3.1.0"
info:
  title: Widgets
  version: "1.0.0"
paths: {}
`

func writeTempSpec(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesJSON(t *testing.T) {
	path := writeTempSpec(t, "spec.json", minimalJSONSpec)

	doc, err := Load(path, "https://api.example.com")
	require.NoError(t, err)
	require.Equal(t, "Widgets", doc.Info.Title)
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeTempSpec(t, "spec.yaml", minimalYAMLSpec)

	doc, err := Load(path, "https://api.example.com")
	require.NoError(t, err)
	require.Equal(t, "Widgets", doc.Info.Title)
}

func TestLoadFillsDefaultServerWhenMissing(t *testing.T) {
	path := writeTempSpec(t, "spec.json", minimalJSONSpec)

	doc, err := Load(path, "https://api.example.com")
	require.NoError(t, err)
	require.Len(t, doc.Servers, 1)
	require.Equal(t, "https://api.example.com", doc.Servers[0].URL)
}

func TestLoadRejectsSwagger2(t *testing.T) {
	path := writeTempSpec(t, "spec.json", `{"swagger": "2.0", "openapi": "2.0", "info": {}, "paths": {}}`)

	_, err := Load(path, "")
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errs.KindUnsupportedSpec, e.Kind)
}

func TestLoadMissingFileIsSpecLoadError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), "")
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errs.KindSpecLoad, e.Kind)
}

func TestReadRawThenReparseMatchesLoad(t *testing.T) {
	path := writeTempSpec(t, "spec.json", minimalJSONSpec)

	raw, err := ReadRaw(path)
	require.NoError(t, err)

	doc, err := Reparse(raw, "https://api.example.com")
	require.NoError(t, err)
	require.Equal(t, "Widgets", doc.Info.Title)
	require.Len(t, doc.Servers, 1)
}
