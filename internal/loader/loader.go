// Package loader implements stage A: parsing an OpenAPI document (JSON or
// YAML) on disk into the in-memory spec.Document model, filling in a
// default server and empty paths/schemas maps (spec section 4.A). Info and
// tags are left as declared.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kittycad/openapitor/internal/errs"
	"github.com/kittycad/openapitor/internal/spec"
)

// Load reads the spec file at path and returns a normalized spec.Document.
//
// JSON and YAML are both accepted; the format is sniffed from the file's
// first non-whitespace byte rather than its extension, since some specs
// arrive as ".json" files that are actually JSON-with-comments-stripped
// YAML supersets and vice versa. baseURLFallback is used to populate
// Servers when the document declares none (spec section 4.A).
func Load(path string, baseURLFallback string) (*spec.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindSpecLoad, errs.StageLoad, "", fmt.Errorf("reading %s: %w", path, err))
	}

	doc, err := parse(raw)
	if err != nil {
		return nil, errs.Wrap(errs.KindSpecLoad, errs.StageLoad, "", err)
	}

	if err := checkVersion(doc.OpenAPI); err != nil {
		return nil, errs.Wrap(errs.KindUnsupportedSpec, errs.StageLoad, "#/openapi", err)
	}

	normalize(doc, baseURLFallback)

	return doc, nil
}

// ReadRaw reads the spec file at path without parsing it, for callers
// (stage B, the patch layer) that need the original bytes rather than the
// decoded model.
func ReadRaw(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, nil
}

// Reparse decodes already-patched raw bytes into a normalized
// spec.Document, the same validation path Load uses after reading from
// disk.
func Reparse(raw []byte, baseURLFallback string) (*spec.Document, error) {
	doc, err := parse(raw)
	if err != nil {
		return nil, errs.Wrap(errs.KindSpecLoad, errs.StageLoad, "", err)
	}
	if err := checkVersion(doc.OpenAPI); err != nil {
		return nil, errs.Wrap(errs.KindUnsupportedSpec, errs.StageLoad, "#/openapi", err)
	}
	normalize(doc, baseURLFallback)
	return doc, nil
}

// parse sniffs JSON vs. YAML and unmarshals into a spec.Document. YAML is
// decoded via gopkg.in/yaml.v3, which (unlike v2) natively produces
// map[string]interface{} keys for JSON-compatible round-tripping; we still
// funnel through encoding/json-compatible struct tags by letting yaml.v3's
// decoder honor them itself (it understands "json" tags as a fallback when
// no "yaml" tag is present is NOT true in general, so we instead decode to
// a generic tree and re-marshal to JSON, letting spec.Schema's strict
// UnmarshalJSON do the real validation).
func parse(raw []byte) (*spec.Document, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var doc spec.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parsing JSON spec: %w", err)
		}
		return &doc, nil
	}

	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parsing YAML spec: %w", err)
	}

	jsonCompatible := convertYAMLToJSONCompatible(generic)
	asJSON, err := json.Marshal(jsonCompatible)
	if err != nil {
		return nil, fmt.Errorf("re-encoding YAML spec as JSON: %w", err)
	}

	var doc spec.Document
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return nil, fmt.Errorf("parsing spec: %w", err)
	}
	return &doc, nil
}

// convertYAMLToJSONCompatible recursively turns map[string]interface{}
// trees (as produced by yaml.v3 for mapping nodes) into something
// encoding/json will accept unmodified. yaml.v3 already yields string keys
// for ordinary mappings, so in practice this mostly just recurses through
// slices and maps; it exists as an explicit step so a future YAML decoder
// swap (e.g. one that yields map[interface{}]interface{} like yaml.v2)
// only needs a change here.
func convertYAMLToJSONCompatible(in interface{}) interface{} {
	switch v := in.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = convertYAMLToJSONCompatible(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[fmt.Sprintf("%v", k)] = convertYAMLToJSONCompatible(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = convertYAMLToJSONCompatible(val)
		}
		return out
	default:
		return v
	}
}

// checkVersion fails with UnsupportedSpecVersion on anything that isn't
// OpenAPI 3.x (spec section 4.A / non-goal: no 2.0/Swagger support).
func checkVersion(version string) error {
	if strings.HasPrefix(version, "3.") {
		return nil
	}
	if version == "" {
		return fmt.Errorf("spec is missing an \"openapi\" version field")
	}
	return fmt.Errorf("unsupported OpenAPI version %q: only 3.x documents are supported", version)
}

// normalize fills in info.title/info.version (with empty-string defaults)
// and a non-empty server list, per spec section 4.A.
func normalize(doc *spec.Document, baseURLFallback string) {
	// Info.Title/Version already default to "" via the zero value; nothing
	// further to do there beyond documenting that the caller should warn.

	if len(doc.Servers) == 0 {
		url := baseURLFallback
		doc.Servers = []spec.Server{{URL: url, Description: "Default server"}}
	}

	if doc.Paths == nil {
		doc.Paths = spec.Paths{}
	}
	if doc.Components.Schemas == nil {
		doc.Components.Schemas = map[string]*spec.Schema{}
	}
}
