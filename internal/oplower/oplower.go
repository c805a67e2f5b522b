// Package oplower implements stage F: lowering each (path, verb) entry of
// a spec document into a Method IR entry (spec section 4.F).
//
// It is grounded on the teacher's server.go request-routing logic: the
// same parameter/body/response classification server.go performs at
// request time (HandleRequest, routeRequest) is performed here once per
// operation, ahead of time, against the spec instead of against live
// traffic.
package oplower

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/inflection"

	"github.com/kittycad/openapitor/internal/errs"
	"github.com/kittycad/openapitor/internal/ir"
	"github.com/kittycad/openapitor/internal/mint"
	"github.com/kittycad/openapitor/internal/resolver"
	"github.com/kittycad/openapitor/internal/spec"
	"github.com/kittycad/openapitor/internal/typelower"
)

// Builder lowers a spec document's operations into Method IR entries,
// sharing the same Type IR table the typelower.Builder produced so that
// parameter and body schemas address the same TypeIds the rest of the
// client uses.
type Builder struct {
	types    *typelower.Builder
	resolver *resolver.Resolver
	doc      *spec.Document

	tagScopes map[string]*mint.Scope
}

// NewBuilder returns a Builder that lowers operations from doc, resolving
// schemas through res and registering new inline types via types.
func NewBuilder(doc *spec.Document, types *typelower.Builder, res *resolver.Resolver) *Builder {
	return &Builder{
		types:     types,
		resolver:  res,
		doc:       doc,
		tagScopes: make(map[string]*mint.Scope),
	}
}

// LowerAll walks every path/verb pair in sorted (path, verb) order for
// determinism and returns the resulting Method list.
func (b *Builder) LowerAll() ([]ir.Method, error) {
	paths := make([]string, 0, len(b.doc.Paths))
	for p := range b.doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var methods []ir.Method
	for _, path := range paths {
		item := b.doc.Paths[path]
		for _, entry := range item.Operations() {
			pointer := fmt.Sprintf("#/paths/%s/%s", path, entry.Verb)
			m, err := b.lowerOperation(path, entry.Verb, entry.Op, pointer)
			if err != nil {
				return nil, err
			}
			methods = append(methods, m)
		}
	}
	return methods, nil
}

func (b *Builder) lowerOperation(path string, verb spec.HTTPVerb, op *spec.Operation, pointer string) (ir.Method, error) {
	tag := "default"
	if len(op.Tags) > 0 {
		tag = op.Tags[0]
	}

	scope := b.tagScopes[tag]
	if scope == nil {
		scope = mint.NewScope()
		b.tagScopes[tag] = scope
	}

	rawOpID := op.OperationID
	if rawOpID == "" {
		rawOpID = string(verb) + "_" + path
	}
	opIdent, _, err := scope.MintMethod(rawOpID)
	if err != nil {
		return ir.Method{}, errs.Wrap(errs.KindNameMint, errs.StageMint, pointer, err)
	}

	method := ir.Method{
		OpId: opIdent,
		Tag:  tag,
		Path: path,
		Verb: string(verb),
		Docs: firstNonEmpty(op.Description, op.Summary),
	}

	if err := b.lowerParameters(op, pointer, &method); err != nil {
		return ir.Method{}, err
	}

	if err := b.lowerBody(op, pointer, &method); err != nil {
		return ir.Method{}, err
	}

	if err := b.lowerResponses(op, pointer, &method); err != nil {
		return ir.Method{}, err
	}

	method.Auth = b.hasAuth(op)
	method.Pagination = inferPagination(op, method.Responses, b.types.Table())
	if method.Pagination != nil {
		method.Pagination.StreamMethod = paginationStreamName(path)
	}

	if op.XTimeoutSeconds != nil {
		d := time.Duration(*op.XTimeoutSeconds) * time.Second
		method.TimeoutHint = &d
	}

	return method, nil
}

func (b *Builder) lowerParameters(op *spec.Operation, pointer string, method *ir.Method) error {
	paramScope := mint.NewScope()

	for i, p := range op.Parameters {
		paramPointer := fmt.Sprintf("%s/parameters/%d", pointer, i)
		resolved, err := b.resolver.Parameter(p, paramPointer)
		if err != nil {
			return err
		}

		ft, err := b.types.Lower(resolved.Schema, paramPointer+"/schema")
		if err != nil {
			return err
		}

		ident, _, err := paramScope.MintField(resolved.Name)
		if err != nil {
			return errs.Wrap(errs.KindNameMint, errs.StageMint, paramPointer, err)
		}

		required := resolved.Required || resolved.In == spec.InPath
		if !required && ft.Kind != ir.KindOptional {
			inner := ft
			ft = ir.Type{Kind: ir.KindOptional, Inner: &inner}
		}

		param := ir.Param{
			WireName: resolved.Name,
			Ident:    ident,
			Type:     ft,
			Required: required,
			Style:    ir.ParamStyle(resolved.Style),
			Explode:  resolved.Explode != nil && *resolved.Explode,
		}

		switch resolved.In {
		case spec.InPath:
			method.ParamsPath = append(method.ParamsPath, param)
		case spec.InQuery:
			method.ParamsQuery = append(method.ParamsQuery, param)
		case spec.InHeader:
			method.ParamsHeader = append(method.ParamsHeader, param)
		case spec.InCookie:
			// Cookie parameters have no established Rust client idiom in
			// the pack; fold them into headers the way a raw Cookie
			// header would be sent.
			method.ParamsHeader = append(method.ParamsHeader, param)
		default:
			return errs.New(errs.KindSchemaLowering, errs.StageOperationIR, paramPointer,
				"unknown parameter location %q", resolved.In)
		}
	}
	return nil
}

func (b *Builder) lowerBody(op *spec.Operation, pointer string, method *ir.Method) error {
	if op.RequestBody == nil {
		method.Body = ir.Body{Kind: ir.BodyNone}
		return nil
	}

	bodyPointer := pointer + "/requestBody"
	resolved, err := b.resolver.RequestBody(op.RequestBody, bodyPointer)
	if err != nil {
		return err
	}

	contentType, media, ok := preferredContentType(resolved.Content)
	if !ok {
		method.Body = ir.Body{Kind: ir.BodyNone}
		return nil
	}

	switch {
	case contentType == "multipart/form-data":
		parts, err := b.lowerMultipart(media.Schema, bodyPointer)
		if err != nil {
			return err
		}
		method.Body = ir.Body{Kind: ir.BodyMultipart, Parts: parts}

	case contentType == "application/x-www-form-urlencoded":
		ft, err := b.types.Lower(media.Schema, bodyPointer+"/content")
		if err != nil {
			return err
		}
		id, err := b.types.EnsureNamed(ft)
		if err != nil {
			return err
		}
		method.Body = ir.Body{Kind: ir.BodyFormURLEncoded, Named: id}

	default: // application/json and every other content type, including octet-stream and text/plain, lowers as a JSON body
		ft, err := b.types.Lower(media.Schema, bodyPointer+"/content")
		if err != nil {
			return err
		}
		id, err := b.types.EnsureNamed(ft)
		if err != nil {
			return err
		}
		method.Body = ir.Body{Kind: ir.BodyJSON, Named: id}
	}

	return nil
}

func (b *Builder) lowerMultipart(schema *spec.Schema, pointer string) ([]ir.Part, error) {
	if schema == nil || schema.Properties == nil {
		return nil, nil
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	partScope := mint.NewScope()
	var parts []ir.Part
	for _, name := range names {
		propSchema := schema.Properties[name]
		ft, err := b.types.Lower(propSchema, fmt.Sprintf("%s/properties/%s", pointer, name))
		if err != nil {
			return nil, err
		}
		ident, _, err := partScope.MintField(name)
		if err != nil {
			return nil, errs.Wrap(errs.KindNameMint, errs.StageMint, pointer, err)
		}
		parts = append(parts, ir.Part{
			Name:     name,
			Ident:    ident,
			Type:     ft,
			Filename: propSchema.Format == "binary",
		})
	}
	return parts, nil
}

func (b *Builder) lowerResponses(op *spec.Operation, pointer string, method *ir.Method) error {
	method.Responses = make(map[string]ir.ResponseShape)

	codes := make([]string, 0, len(op.Responses))
	for code := range op.Responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		respPointer := fmt.Sprintf("%s/responses/%s", pointer, code)
		resp := op.Responses[code]

		resolved, err := b.resolver.Response(resp, respPointer)
		if err != nil {
			return err
		}

		if code == "default" {
			method.DefaultIsError = true
			continue
		}

		if statusIsWebsocketUpgrade(code, resolved) {
			method.Responses[code] = ir.ResponseShape{Kind: ir.RespWebsocketUpgrade}
			continue
		}

		contentType, media, ok := preferredContentType(resolved.Content)
		if !ok {
			method.Responses[code] = ir.ResponseShape{Kind: ir.RespUnit}
			continue
		}

		switch contentType {
		case "application/json":
			ft, err := b.types.Lower(media.Schema, respPointer+"/content")
			if err != nil {
				return err
			}
			id, err := b.types.EnsureNamed(ft)
			if err != nil {
				return err
			}
			method.Responses[code] = ir.ResponseShape{Kind: ir.RespJSON, Named: id}

		case "application/octet-stream":
			method.Responses[code] = ir.ResponseShape{Kind: ir.RespBytes}

		case "text/plain":
			method.Responses[code] = ir.ResponseShape{Kind: ir.RespText}

		default:
			method.Responses[code] = ir.ResponseShape{Kind: ir.RespBytes}
		}
	}

	return nil
}

// hasAuth reports whether the operation requires bearer auth: an explicit
// non-empty `security` override on the operation, or (absent an override)
// a non-empty document-level `security` list or any http/bearer scheme in
// components.securitySchemes. An operation in a document that declares no
// security at all gets no auth.
func (b *Builder) hasAuth(op *spec.Operation) bool {
	if op.Security != nil {
		return len(*op.Security) > 0
	}
	if len(b.doc.Security) > 0 {
		return true
	}
	for _, scheme := range b.doc.Components.SecuritySchemes {
		if scheme.Type == "http" && scheme.Scheme == "bearer" {
			return true
		}
	}
	return false
}

// preferredContentType picks the first declared content type in the order
// application/json, application/x-www-form-urlencoded, multipart/form-data,
// application/octet-stream, text/plain; when none of those is declared it
// falls back to the alphabetically first declared content type.
func preferredContentType(content map[string]spec.MediaType) (string, spec.MediaType, bool) {
	if m, ok := content["application/json"]; ok {
		return "application/json", m, true
	}
	for _, ct := range []string{"application/x-www-form-urlencoded", "multipart/form-data", "application/octet-stream", "text/plain"} {
		if m, ok := content[ct]; ok {
			return ct, m, true
		}
	}
	var names []string
	for ct := range content {
		names = append(names, ct)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "", spec.MediaType{}, false
	}
	return names[0], content[names[0]], true
}

// statusIsWebsocketUpgrade detects the scenario S6 shape: any 101
// response, signaling a protocol upgrade rather than a normal HTTP
// response. The response's declared content and headers are not inspected.
func statusIsWebsocketUpgrade(code string, resp *spec.Response) bool {
	n, err := strconv.Atoi(code)
	return err == nil && n == 101
}

// inferPagination detects the scenario S5 shape: an operation marked with
// x-dropshot-pagination, or (absent the marker) a 200 JSON response whose
// body actually lowers to { items: [...], next_page|next_page_token: ... }
// alongside a "page_token"-ish query parameter. A parameter name match alone
// is not enough: the body shape must back it up, or renderPaginatedMethod
// would emit field accesses against a type that doesn't have them.
func inferPagination(op *spec.Operation, responses map[string]ir.ResponseShape, table *ir.Table) *ir.Pagination {
	if op.XDropshotPagination {
		return &ir.Pagination{PageParam: "page_token", ItemsField: "items", NextCursorField: "next_page"}
	}

	var pageParam string
	for _, p := range op.Parameters {
		if p.Name == "page_token" || p.Name == "next_page" || p.Name == "cursor" {
			pageParam = p.Name
			break
		}
	}
	if pageParam == "" {
		return nil
	}

	resp, ok := responses["200"]
	if !ok || resp.Kind != ir.RespJSON {
		return nil
	}

	itemsField, cursorField, ok := paginatedResponseFields(resp.Named, table)
	if !ok {
		return nil
	}

	return &ir.Pagination{PageParam: pageParam, ItemsField: itemsField, NextCursorField: cursorField}
}

// paginatedResponseFields reports whether id names a Struct with a
// sequence-typed "items" field and a "next_page" or "next_page_token"
// field, returning the actual field names to address on the generated
// response type.
func paginatedResponseFields(id ir.TypeId, table *ir.Table) (itemsField string, cursorField string, ok bool) {
	entry, found := table.Get(id)
	if !found || entry.Kind != ir.KindStruct {
		return "", "", false
	}

	for _, f := range entry.Fields {
		if f.WireName == "items" && f.Type.Kind == ir.KindSequence {
			itemsField = f.WireName
		}
		if f.WireName == "next_page" || f.WireName == "next_page_token" {
			cursorField = f.WireName
		}
	}
	if itemsField == "" || cursorField == "" {
		return "", "", false
	}
	return itemsField, cursorField, true
}

// paginationStreamName derives an idiomatic "fetch every page" method name
// from a collection endpoint's path, e.g. "/users" -> "all_users",
// "/orgs/{org}/repos" -> "all_repos". jinzhu/inflection supplies the plural
// form; mint.Scope applies the usual identifier rules so the result is
// always a valid, never-empty Rust identifier.
func paginationStreamName(path string) string {
	resource := lastStaticSegment(path)
	raw := "all_pages"
	if resource != "" {
		raw = "all_" + inflection.Plural(resource)
	}
	ident, _, err := mint.NewScope().MintMethod(raw)
	if err != nil {
		return "all_pages"
	}
	return ident
}

// lastStaticSegment returns the last path template segment that isn't a
// "{param}" placeholder, e.g. "/orgs/{org}/repos" -> "repos".
func lastStaticSegment(path string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		return seg
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
