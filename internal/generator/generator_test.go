package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittycad/openapitor/internal/options"
)

const widgetsSpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Widgets", "version": "1.0.0"},
  "paths": {
    "/widgets": {
      "get": {
        "operationId": "list_widgets",
        "tags": ["widgets"],
        "responses": {
          "200": {
            "description": "ok",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/Widget"}}}}
          }
        }
      }
    }
  },
  "components": {
    "schemas": {
      "Widget": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "format": "uuid"},
          "name": {"type": "string"}
        }
      }
    }
  }
}`

func writeSpecFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunGeneratesExpectedFiles(t *testing.T) {
	specPath := writeSpecFile(t, widgetsSpec)
	outDir := filepath.Join(t.TempDir(), "out")

	opts := &options.Options{
		SpecPath:      specPath,
		OutputDir:     outDir,
		LibraryName:   "widgets_client",
		Description:   "a widget client",
		TargetVersion: "0.1.0",
		BaseURL:       "https://api.example.com",
	}

	result, err := Run(opts, nil)
	require.NoError(t, err)
	// Widget itself, plus the synthetic newtype EnsureNamed allocates so the
	// list-of-Widget response has a TypeId of its own to address.
	require.Equal(t, 2, result.TypeCount)
	require.Equal(t, 1, result.MethodCount)

	typesRs, err := os.ReadFile(filepath.Join(outDir, "src", "types.rs"))
	require.NoError(t, err)
	require.Contains(t, string(typesRs), "pub struct Widget {")
	require.NotContains(t, string(typesRs), "TypeRef", "every placeholder must be resolved before the file is written")

	widgetsRs, err := os.ReadFile(filepath.Join(outDir, "src", "widgets.rs"))
	require.NoError(t, err)
	require.Contains(t, string(widgetsRs), "pub async fn list_widgets")

	manifest, err := os.ReadFile(filepath.Join(outDir, "Cargo.toml"))
	require.NoError(t, err)
	require.Contains(t, string(manifest), `name = "widgets_client"`)
}

func TestRunFailsFastOnInvalidOptions(t *testing.T) {
	_, err := Run(&options.Options{}, nil)
	require.Error(t, err)
}

func TestRunAppliesPatchBeforeLowering(t *testing.T) {
	specPath := writeSpecFile(t, widgetsSpec)
	patchPath := filepath.Join(t.TempDir(), "patch.json")
	require.NoError(t, os.WriteFile(patchPath, []byte(
		`[{"op": "replace", "path": "/components/schemas/Widget/properties/name/type", "value": "integer"}]`,
	), 0o644))
	outDir := filepath.Join(t.TempDir(), "out")

	opts := &options.Options{
		SpecPath:      specPath,
		OutputDir:     outDir,
		LibraryName:   "widgets_client",
		TargetVersion: "0.1.0",
		BaseURL:       "https://api.example.com",
		PatchFile:     patchPath,
	}

	_, err := Run(opts, nil)
	require.NoError(t, err)

	typesRs, err := os.ReadFile(filepath.Join(outDir, "src", "types.rs"))
	require.NoError(t, err)
	require.Contains(t, string(typesRs), "pub name: Option<i64>,")
}
