// Package patch implements stage B: applying a user-supplied RFC 6902
// JSON-patch document to the raw spec before it's unmarshaled into the
// spec.Document model, so upstream spec bugs can be fixed up without
// forking the spec (spec section 4.B).
package patch

import (
	"encoding/json"
	"fmt"
	"os"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/kittycad/openapitor/internal/errs"
)

// Apply reads the patch document at patchFile (a JSON array of RFC 6902
// operations) and applies it to rawSpec, returning the patched document
// bytes. An empty patchFile is not an error: rawSpec is returned unchanged,
// matching the "absence is not an error" rule in spec section 4.B.
func Apply(rawSpec []byte, patchFile string) ([]byte, error) {
	if patchFile == "" {
		return rawSpec, nil
	}

	patchBytes, err := os.ReadFile(patchFile)
	if err != nil {
		return nil, errs.Wrap(errs.KindPatch, errs.StagePatch, "", fmt.Errorf("reading patch file %s: %w", patchFile, err))
	}

	var ops []json.RawMessage
	if err := json.Unmarshal(patchBytes, &ops); err != nil {
		return nil, errs.Wrap(errs.KindPatch, errs.StagePatch, "", fmt.Errorf("patch file %s is not a JSON array of operations: %w", patchFile, err))
	}

	// jsonpatch.Apply runs the whole document atomically, but its errors
	// don't carry an operation index, so we re-apply one operation at a
	// time to produce the op_index the spec's PatchApplyError requires.
	current := rawSpec
	for i, op := range ops {
		single, err := jsonpatch.DecodePatch([]byte("[" + string(op) + "]"))
		if err != nil {
			return nil, errs.Wrap(errs.KindPatch, errs.StagePatch, fmt.Sprintf("#/%d", i), err)
		}
		current, err = single.Apply(current)
		if err != nil {
			return nil, errs.Wrap(errs.KindPatch, errs.StagePatch, fmt.Sprintf("#/%d", i), fmt.Errorf("applying patch operation %d: %w", i, err))
		}
	}

	return current, nil
}
