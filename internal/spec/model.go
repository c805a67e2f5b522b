// Package spec is the in-memory OpenAPI document model produced by stage A
// (the loader). Stage B (the patch layer) works on the raw document bytes,
// which are then parsed into this model again. It is read-only from stage
// C onward.
//
// The shape of Schema and its UnmarshalJSON strategy is adapted directly
// from the teacher's own spec.Schema: a flat struct with every JSON Schema
// keyword the generator understands, and an UnmarshalJSON that rejects any
// keyword it doesn't recognize instead of silently dropping it.
package spec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/imdario/mergo"
)

// HTTPVerb is a lower-case HTTP method as it appears as a key in a path
// item ("get", "post", ...).
type HTTPVerb string

// The verbs recognized in a path item.
const (
	VerbGet     HTTPVerb = "get"
	VerbPut     HTTPVerb = "put"
	VerbPost    HTTPVerb = "post"
	VerbDelete  HTTPVerb = "delete"
	VerbOptions HTTPVerb = "options"
	VerbHead    HTTPVerb = "head"
	VerbPatch   HTTPVerb = "patch"
	VerbTrace   HTTPVerb = "trace"
)

// AllVerbs lists every verb PathItem.Operations will look at,
// in a stable order so that operation enumeration is deterministic.
var AllVerbs = []HTTPVerb{VerbGet, VerbPut, VerbPost, VerbDelete, VerbOptions, VerbHead, VerbPatch, VerbTrace}

// JSON Schema `type` values the generator understands (spec section 3/4.E).
const (
	TypeArray   = "array"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeObject  = "object"
	TypeString  = "string"
)

// Parameter locations.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
)

// Document is the root of a parsed OpenAPI v3 document.
type Document struct {
	OpenAPI    string     `json:"openapi"`
	Info       Info       `json:"info"`
	Servers    []Server   `json:"servers,omitempty"`
	Paths      Paths      `json:"paths"`
	Components Components `json:"components"`
	Tags       []Tag      `json:"tags,omitempty"`
	Security   []SecurityRequirement `json:"security,omitempty"`
}

// Info is the spec's `info` object. An absent field is left as an empty
// string rather than failing the load; no warning is emitted for it.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Server is one entry of the spec's `servers` array.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Tag groups operations into the emitted client's sub-modules (spec
// glossary: "Tag group").
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SecurityRequirement is a single entry of a `security` array: scheme name
// to a list of scopes (unused for bearer auth, kept for fidelity).
type SecurityRequirement map[string][]string

// SecurityScheme describes one entry of components.securitySchemes. Only
// bearer (http/bearer) schemes affect Method IR's auth field; others are
// recorded but otherwise inert, matching the narrow auth model in section
// 4.F.6.
type SecurityScheme struct {
	Type         string `json:"type"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
	In           string `json:"in,omitempty"`
	Name         string `json:"name,omitempty"`
}

// Paths maps an OpenAPI path template (e.g. "/users/{id}") to its path
// item. Keyed by string rather than a distinct Path type so that
// encoding/json and gopkg.in/yaml.v3 both round-trip it without custom
// marshaling.
type Paths map[string]*PathItem

// PathItem is the set of operations defined for one path template.
type PathItem struct {
	Get     *Operation `json:"get,omitempty"`
	Put     *Operation `json:"put,omitempty"`
	Post    *Operation `json:"post,omitempty"`
	Delete  *Operation `json:"delete,omitempty"`
	Options *Operation `json:"options,omitempty"`
	Head    *Operation `json:"head,omitempty"`
	Patch   *Operation `json:"patch,omitempty"`
	Trace   *Operation `json:"trace,omitempty"`
}

// Operation returns the Operation for the given verb, or nil.
func (p *PathItem) Operation(verb HTTPVerb) *Operation {
	switch verb {
	case VerbGet:
		return p.Get
	case VerbPut:
		return p.Put
	case VerbPost:
		return p.Post
	case VerbDelete:
		return p.Delete
	case VerbOptions:
		return p.Options
	case VerbHead:
		return p.Head
	case VerbPatch:
		return p.Patch
	case VerbTrace:
		return p.Trace
	}
	return nil
}

// Operations returns every non-nil (verb, operation) pair in AllVerbs
// order, so callers get deterministic iteration without touching a map.
func (p *PathItem) Operations() []struct {
	Verb HTTPVerb
	Op   *Operation
} {
	var out []struct {
		Verb HTTPVerb
		Op   *Operation
	}
	for _, v := range AllVerbs {
		if op := p.Operation(v); op != nil {
			out = append(out, struct {
				Verb HTTPVerb
				Op   *Operation
			}{Verb: v, Op: op})
		}
	}
	return out
}

// Operation is a single (path, verb) entry.
type Operation struct {
	OperationID string                  `json:"operationId,omitempty"`
	Summary     string                  `json:"summary,omitempty"`
	Description string                  `json:"description,omitempty"`
	Tags        []string                `json:"tags,omitempty"`
	Parameters  []*Parameter            `json:"parameters,omitempty"`
	RequestBody *RequestBody            `json:"requestBody,omitempty"`
	Responses   map[string]*Response    `json:"responses"`
	Security    *[]SecurityRequirement  `json:"security,omitempty"`

	// XDropshotPagination mirrors the `x-dropshot-pagination` marker
	// referenced in spec section 4.F.5 as one way pagination can be
	// declared explicitly rather than inferred from shape.
	XDropshotPagination bool `json:"x-dropshot-pagination,omitempty"`

	// XTimeoutSeconds is an optional per-operation override of the
	// request timeout (Method IR's timeout_hint).
	XTimeoutSeconds *int `json:"x-timeout-seconds,omitempty"`
}

// Parameter is a path/query/header/cookie parameter, or a $ref to one
// under #/components/parameters.
type Parameter struct {
	Ref         string  `json:"$ref,omitempty"`
	Name        string  `json:"name,omitempty"`
	In          string  `json:"in,omitempty"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Style       string  `json:"style,omitempty"`
	Explode     *bool   `json:"explode,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// ResolveRef returns the ultimate *Parameter, following Ref into the
// supplied components map. Cycles are not permitted at the parameter
// level (spec section 4.C); a self-referential or mutually-referential
// chain is caught by tracking the component names already visited.
func (p *Parameter) ResolveRef(parameters map[string]*Parameter) (*Parameter, error) {
	seen := map[string]bool{}
	cur := p
	for cur.Ref != "" {
		name, err := componentName(cur.Ref, "parameters")
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("reference cycle detected at #/components/parameters/%s", name)
		}
		seen[name] = true

		next, ok := parameters[name]
		if !ok {
			return nil, fmt.Errorf("unknown $ref target #/components/parameters/%s", name)
		}
		cur = next
	}
	return cur, nil
}

// RequestBody is an operation's `requestBody` object, or a $ref to one
// under #/components/requestBodies.
type RequestBody struct {
	Ref         string               `json:"$ref,omitempty"`
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// ResolveRef resolves a RequestBody's $ref, if any.
func (b *RequestBody) ResolveRef(bodies map[string]*RequestBody) (*RequestBody, error) {
	if b.Ref == "" {
		return b, nil
	}
	name, err := componentName(b.Ref, "requestBodies")
	if err != nil {
		return nil, err
	}
	resolved, ok := bodies[name]
	if !ok {
		return nil, fmt.Errorf("unknown $ref target #/components/requestBodies/%s", name)
	}
	return resolved, nil
}

// MediaType buckets a request or response body by content type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Response is one entry of an operation's `responses` map, or a $ref to one
// under #/components/responses.
type Response struct {
	Ref         string               `json:"$ref,omitempty"`
	Description string               `json:"description,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty"`
	Headers     map[string]*Parameter `json:"headers,omitempty"`
}

// ResolveRef resolves a Response's $ref, if any. Cycles are not permitted
// at the response level (spec section 4.C).
func (r *Response) ResolveRef(responses map[string]*Response) (*Response, error) {
	seen := map[string]bool{}
	cur := r
	for cur.Ref != "" {
		name, err := componentName(cur.Ref, "responses")
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("reference cycle detected at #/components/responses/%s", name)
		}
		seen[name] = true

		next, ok := responses[name]
		if !ok {
			return nil, fmt.Errorf("unknown $ref target #/components/responses/%s", name)
		}
		cur = next
	}
	return cur, nil
}

// Components is the spec's `components` object: the universe of named
// schemas, parameters, request bodies, and responses that $refs point
// into.
type Components struct {
	Schemas         map[string]*Schema         `json:"schemas,omitempty"`
	Parameters      map[string]*Parameter      `json:"parameters,omitempty"`
	RequestBodies   map[string]*RequestBody    `json:"requestBodies,omitempty"`
	Responses       map[string]*Response       `json:"responses,omitempty"`
	SecuritySchemes map[string]*SecurityScheme `json:"securitySchemes,omitempty"`
}

// supportedSchemaFields is the list of JSON Schema / OpenAPI Schema Object
// keywords this generator understands. Anything else in a schema fails
// UnmarshalJSON with a named field, the same defensive strategy as the
// teacher's spec.Schema.UnmarshalJSON, so that an unsupported spec
// construct is caught immediately instead of being silently dropped and
// surfacing as a confusing bug three stages later.
var supportedSchemaFields = []string{
	"$ref", "additionalProperties", "allOf", "anyOf", "oneOf",
	"description", "discriminator", "enum", "example", "format",
	"items", "maxLength", "minLength", "maximum", "minimum",
	"default", "nullable", "pattern", "properties", "required",
	"title", "type", "readOnly", "writeOnly", "uniqueItems",
	"maxItems", "minItems", "deprecated", "xml",
	"x-expandableFields", "x-expansionResources", "x-resourceId",
	"x-enum-descriptions", "x-enum-varnames", "x-rust-type",
}

// Schema is a JSON Schema / OpenAPI Schema Object node. It is the input to
// stage E (the Type IR builder); see internal/typelower.
type Schema struct {
	Ref string `json:"$ref,omitempty"`

	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Title                string             `json:"title,omitempty"`
	Description          string             `json:"description,omitempty"`
	Default              json.RawMessage    `json:"default,omitempty"`
	Example              json.RawMessage    `json:"example,omitempty"`
	Nullable             bool               `json:"nullable,omitempty"`
	Deprecated           bool               `json:"deprecated,omitempty"`
	ReadOnly             bool               `json:"readOnly,omitempty"`
	WriteOnly            bool               `json:"writeOnly,omitempty"`
	Pattern              string             `json:"pattern,omitempty"`
	MinLength            *int               `json:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	Enum                 []interface{}      `json:"enum,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	UniqueItems          bool               `json:"uniqueItems,omitempty"`
	MinItems             *int               `json:"minItems,omitempty"`
	MaxItems             *int               `json:"maxItems,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *AdditionalProperties `json:"additionalProperties,omitempty"`
	AllOf                []*Schema          `json:"allOf,omitempty"`
	AnyOf                []*Schema          `json:"anyOf,omitempty"`
	OneOf                []*Schema          `json:"oneOf,omitempty"`
	Discriminator        *Discriminator     `json:"discriminator,omitempty"`

	XExpandableFields   *[]string           `json:"x-expandableFields,omitempty"`
	XExpansionResources *ExpansionResources `json:"x-expansionResources,omitempty"`
	XResourceID         string              `json:"x-resourceId,omitempty"`
}

// Discriminator is the OpenAPI discriminator object used to distinguish
// oneOf branches (spec section 4.E / 8 scenario S2/S3).
type Discriminator struct {
	PropertyName string            `json:"propertyName"`
	Mapping      map[string]string `json:"mapping,omitempty"`
}

// ExpansionResources mirrors the teacher's x-expansionResources extension:
// a oneOf between the unexpanded ID form and the expanded object form of a
// field.
type ExpansionResources struct {
	OneOf []*Schema `json:"oneOf"`
}

// AdditionalProperties is either `false`, `true`, or a schema. Represented
// as a small sum type instead of bare interface{} so downstream code
// doesn't need to re-discover which case it's in with a type switch.
type AdditionalProperties struct {
	Forbidden bool
	Schema    *Schema // nil when Forbidden, or when additionalProperties was bare `true`
}

func (a *AdditionalProperties) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch trimmed {
	case "false":
		a.Forbidden = true
		return nil
	case "true":
		a.Forbidden = false
		a.Schema = nil
		return nil
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	a.Schema = &s
	return nil
}

func (a *AdditionalProperties) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	if a.Forbidden {
		return []byte("false"), nil
	}
	if a.Schema == nil {
		return []byte("true"), nil
	}
	return json.Marshal(a.Schema)
}

func (s *Schema) String() string {
	js, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unprintable schema: %v>", err)
	}
	return string(js)
}

// UnmarshalJSON rejects any keyword it doesn't recognize, the same
// fail-fast strategy the teacher's Schema.UnmarshalJSON uses.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for _, field := range supportedSchemaFields {
		delete(raw, field)
	}
	for unsupported := range raw {
		return fmt.Errorf("unsupported field in JSON schema: %q", unsupported)
	}

	type schemaAlias Schema
	var inner schemaAlias
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	*s = Schema(inner)
	return nil
}

// FlattenAllOf merges s and every branch of its AllOf chain (recursively)
// into a single Schema, adapted from the teacher's Schema.FlattenAllOf.
// mergo is asked to skip AllOf itself so the merged result doesn't carry
// the original slice forward.
func (s *Schema) FlattenAllOf() *Schema {
	var flatten func(output *Schema, input *Schema)
	flatten = func(output *Schema, input *Schema) {
		allOf := input.AllOf
		input.AllOf = nil
		_ = mergo.Merge(output, input)
		input.AllOf = allOf

		for _, branch := range allOf {
			flatten(output, branch)
		}
	}

	var output Schema
	flatten(&output, s)
	return &output
}

// ResolveRef returns the ultimate *Schema that s refers to, following a
// single $ref hop against the supplied schema table. Schema-level cycles
// are permitted (they become Named edges in stage E) so this does not loop
// to a fixed point; callers that need to recurse through multiple schemas
// drive that loop themselves via the ref resolver (internal/resolver),
// which does the cycle bookkeeping appropriate to its caller's context.
func (s *Schema) ResolveRef(schemas map[string]*Schema) (*Schema, error) {
	if s.Ref == "" {
		return s, nil
	}
	name, err := componentName(s.Ref, "schemas")
	if err != nil {
		return nil, err
	}
	resolved, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown $ref target #/components/schemas/%s", name)
	}
	return resolved, nil
}

// componentName extracts "Widget" out of "#/components/schemas/Widget",
// failing for anything that isn't a local component fragment reference
// (external refs are unsupported per spec section 4.C).
func componentName(ref string, kind string) (string, error) {
	prefix := "#/components/" + kind + "/"
	if !strings.HasPrefix(ref, prefix) {
		if !strings.HasPrefix(ref, "#/") {
			return "", fmt.Errorf("external references are unsupported: %q", ref)
		}
		return "", fmt.Errorf("unexpected $ref shape %q, want %s<name>", ref, prefix)
	}
	return strings.TrimPrefix(ref, prefix), nil
}

// Flatten walks every operation's request body and flattens any allOf
// composition on its schema to a single merged Schema, the document-wide
// analog of the teacher's Spec.Flatten.
func (d *Document) Flatten() {
	for _, item := range d.Paths {
		for _, entry := range item.Operations() {
			op := entry.Op
			if op.RequestBody == nil {
				continue
			}
			for contentType, media := range op.RequestBody.Content {
				if media.Schema == nil {
					continue
				}
				op.RequestBody.Content[contentType] = MediaType{Schema: media.Schema.FlattenAllOf()}
			}
		}
	}
}
