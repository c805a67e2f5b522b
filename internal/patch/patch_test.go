package patch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittycad/openapitor/internal/errs"
)

func writeTempPatch(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patch.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestApplyWithEmptyPathReturnsInputUnchanged(t *testing.T) {
	raw := []byte(`{"openapi": "3.0.3"}`)

	out, err := Apply(raw, "")
	require.NoError(t, err)
	require.Equal(t, raw, out)
}

func TestApplyReplacesField(t *testing.T) {
	raw := []byte(`{"openapi": "3.0.0"}`)
	patchFile := writeTempPatch(t, `[{"op": "replace", "path": "/openapi", "value": "3.0.3"}]`)

	out, err := Apply(raw, patchFile)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, "3.0.3", decoded["openapi"])
}

func TestApplyAppliesOperationsInOrder(t *testing.T) {
	raw := []byte(`{"openapi": "3.0.0", "info": {"title": "old"}}`)
	patchFile := writeTempPatch(t, `[
		{"op": "replace", "path": "/info/title", "value": "mid"},
		{"op": "replace", "path": "/info/title", "value": "new"}
	]`)

	out, err := Apply(raw, patchFile)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, "new", decoded["info"].(map[string]interface{})["title"])
}

func TestApplyMissingPatchFileIsPatchError(t *testing.T) {
	raw := []byte(`{"openapi": "3.0.3"}`)

	_, err := Apply(raw, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errs.KindPatch, e.Kind)
}

func TestApplyInvalidOperationIsPatchErrorWithIndex(t *testing.T) {
	raw := []byte(`{"openapi": "3.0.3"}`)
	patchFile := writeTempPatch(t, `[{"op": "replace", "path": "/missing/field", "value": "x"}]`)

	_, err := Apply(raw, patchFile)
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errs.KindPatch, e.Kind)
	require.Equal(t, "#/0", e.Pointer)
}
