// Package typelower implements stage E: lowering every named and inline
// JSON Schema in a spec document into the closed Type IR (spec section
// 3/4.E).
//
// The recursive-descent shape of Lower mirrors the teacher's own
// generateInternal: a single function that dispatches on the schema's
// shape, carrying a JSON-pointer breadcrumb trail instead of the teacher's
// free-text "context" string, so that a SchemaLoweringError names exactly
// the offending node.
package typelower

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kittycad/openapitor/internal/errs"
	"github.com/kittycad/openapitor/internal/ir"
	"github.com/kittycad/openapitor/internal/mint"
	"github.com/kittycad/openapitor/internal/resolver"
	"github.com/kittycad/openapitor/internal/spec"
)

// Builder lowers schemas into a single ir.Table, owning that table for the
// duration of stage E only (spec section 5: "it is owned by the stage and
// never escapes").
type Builder struct {
	table      *ir.Table
	resolver   *resolver.Resolver
	components *spec.Components

	typeScope *mint.Scope // global scope: one identifier per named type
	named     map[string]ir.TypeId
	structural map[string]ir.TypeId
}

// NewBuilder returns a Builder ready to lower schemas from components.
func NewBuilder(components *spec.Components, res *resolver.Resolver) *Builder {
	return &Builder{
		table:      ir.NewTable(),
		resolver:   res,
		components: components,
		typeScope:  mint.NewScope(),
		named:      make(map[string]ir.TypeId),
		structural: make(map[string]ir.TypeId),
	}
}

// Table returns the type table built so far. Intended to be called once
// lowering is complete.
func (b *Builder) Table() *ir.Table { return b.table }

// LowerComponents lowers every named schema in components.schemas, in
// sorted-name order for determinism, and returns the resulting table.
// Sorting only affects which TypeId a given name receives on a fresh run;
// it does not affect content, so determinism (testable property 1) still
// holds given the same input.
func (b *Builder) LowerComponents() (*ir.Table, error) {
	names := make([]string, 0, len(b.components.Schemas))
	for name := range b.components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := b.lowerNamedRef(name, "#/components/schemas/"+name); err != nil {
			return nil, err
		}
	}
	return b.table, nil
}

// Lower lowers an arbitrary (possibly inline) schema at the given JSON
// pointer, returning the Type to embed at its use site.
func (b *Builder) Lower(schema *spec.Schema, pointer string) (ir.Type, error) {
	if schema == nil {
		return ir.Type{Kind: ir.KindAny}, nil
	}

	if schema.Ref != "" {
		name, err := refName(schema.Ref)
		if err != nil {
			return ir.Type{}, errs.Wrap(errs.KindExternalRef, errs.StageTypeIR, pointer, err)
		}
		id, err := b.lowerNamedRef(name, "#/components/schemas/"+name)
		if err != nil {
			return ir.Type{}, err
		}
		return ir.Type{Kind: ir.KindNamed, Named: id}, nil
	}

	if schema.Nullable {
		withoutNullable := *schema
		withoutNullable.Nullable = false
		inner, err := b.Lower(&withoutNullable, pointer)
		if err != nil {
			return ir.Type{}, err
		}
		if inner.Kind == ir.KindOptional {
			return inner, nil
		}
		return ir.Type{Kind: ir.KindOptional, Inner: &inner}, nil
	}

	switch {
	case len(schema.OneOf) > 0:
		return b.lowerOneOf(schema, pointer)

	case len(schema.AnyOf) > 0:
		return b.lowerAnyOf(schema, pointer)

	case len(schema.AllOf) > 0:
		return b.lowerAllOf(schema, pointer)

	case schema.Type == spec.TypeString && len(schema.Enum) > 0:
		return b.lowerEnum(schema, pointer)

	case schema.Type == "" && len(schema.Enum) > 0:
		// A bare `enum` with no explicit `type` (seen in the wild despite
		// being technically underspecified) is treated as a string enum.
		return b.lowerEnum(schema, pointer)

	case schema.Type == spec.TypeString:
		return ir.Type{Kind: ir.KindPrimitive, Primitive: stringPrimitive(schema.Format)}, nil

	case schema.Type == spec.TypeInteger:
		return ir.Type{Kind: ir.KindPrimitive, Primitive: integerPrimitive(schema.Format)}, nil

	case schema.Type == spec.TypeNumber:
		return ir.Type{Kind: ir.KindPrimitive, Primitive: numberPrimitive(schema.Format)}, nil

	case schema.Type == spec.TypeBoolean:
		return ir.Type{Kind: ir.KindPrimitive, Primitive: ir.Bool}, nil

	case schema.Type == spec.TypeArray:
		return b.lowerArray(schema, pointer)

	case schema.Type == spec.TypeObject || (schema.Type == "" && schema.Properties != nil):
		return b.lowerObject(schema, pointer, "")

	case schema.Type == "" && schema.Properties == nil && schema.AdditionalProperties == nil &&
		len(schema.Enum) == 0:
		return ir.Type{Kind: ir.KindAny}, nil
	}

	return ir.Type{}, errs.New(errs.KindSchemaLowering, errs.StageTypeIR, pointer,
		"unsupported schema shape (type=%q)", schema.Type)
}

//
// Named (component) schemas
//

// lowerNamedRef lowers the named component schema called name, allocating
// its TypeId before descending into its body so that a self-referencing
// schema resolves to a Named edge instead of infinite recursion (spec
// section 4.E, scenario S4).
func (b *Builder) lowerNamedRef(name string, pointer string) (ir.TypeId, error) {
	if id, ok := b.named[name]; ok {
		return id, nil
	}

	resolved, ok := b.components.Schemas[name]
	if !ok {
		return 0, errs.New(errs.KindRefResolve, errs.StageTypeIR, pointer,
			"unknown schema component %q", name)
	}

	id := b.table.Alloc()
	b.named[name] = id

	ident, disambiguated, err := b.typeScope.MintType(name)
	if err != nil {
		return 0, errs.Wrap(errs.KindNameMint, errs.StageMint, pointer, err)
	}

	concrete, err := b.lowerNamedBody(resolved, pointer, name, ident)
	if err != nil {
		return 0, err
	}
	if disambiguated {
		concrete.OriginalName = name
	}
	b.table.Set(id, concrete)
	return id, nil
}

// lowerNamedBody lowers the body of a named component schema into a
// concrete (table-entry) Type. Unlike Lower, it never wraps the result in
// Named: the caller (lowerNamedRef) owns writing the result into the
// table at the id it already allocated.
func (b *Builder) lowerNamedBody(schema *spec.Schema, pointer string, specName string, ident string) (ir.Type, error) {
	var concrete ir.Type
	var err error

	switch {
	case len(schema.OneOf) > 0:
		concrete, err = b.lowerOneOfConcrete(schema, pointer, ident)

	case len(schema.AnyOf) > 0:
		concrete, err = b.lowerAnyOfConcrete(schema, pointer, ident)

	case len(schema.AllOf) > 0:
		concrete, err = b.lowerAllOfConcrete(schema, pointer, ident)

	case (schema.Type == spec.TypeString || schema.Type == "") && len(schema.Enum) > 0:
		concrete, err = b.lowerEnumConcrete(schema, pointer)

	case schema.Type == spec.TypeObject || (schema.Type == "" && schema.Properties != nil):
		concrete, err = b.lowerObjectConcrete(schema, pointer, ident)

	default:
		// A named alias over a bare primitive becomes a Newtype wrapper
		// (spec section 3: "Newtype ... for constrained primitive
		// aliases"), giving the spec author's chosen name its own Rust
		// type instead of silently collapsing to the primitive.
		var inner ir.Type
		inner, err = b.Lower(schema, pointer)
		concrete = ir.Type{Kind: ir.KindNewtype, Inner: &inner, Docs: schema.Description}
	}

	if err != nil {
		return ir.Type{}, err
	}
	concrete.Name = ident
	return concrete, nil
}

//
// Object / Struct
//

func (b *Builder) lowerObject(schema *spec.Schema, pointer string, identHint string) (ir.Type, error) {
	concrete, err := b.lowerObjectConcrete(schema, pointer, identHint)
	if err != nil {
		return ir.Type{}, err
	}
	if concrete.Kind != ir.KindStruct {
		// Map / Any: not a table-entry kind, pass through untouched.
		return concrete, nil
	}
	return b.internTableEntry(concrete, hintFromPointer(pointer, "Struct"))
}

func (b *Builder) lowerObjectConcrete(schema *spec.Schema, pointer string, identHint string) (ir.Type, error) {
	if schema.Properties == nil {
		// Empty/missing-property object: Map if additionalProperties
		// names a value schema (or bare true), Any for a true "{}" hole.
		if schema.AdditionalProperties != nil && !schema.AdditionalProperties.Forbidden {
			var valueType ir.Type
			if schema.AdditionalProperties.Schema != nil {
				var err error
				valueType, err = b.Lower(schema.AdditionalProperties.Schema, pointer+"/additionalProperties")
				if err != nil {
					return ir.Type{}, err
				}
			} else {
				valueType = ir.Type{Kind: ir.KindAny}
			}
			return ir.Type{Kind: ir.KindMap, Inner: &valueType}, nil
		}
		return ir.Type{Kind: ir.KindAny}, nil
	}

	required := make(map[string]bool, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = true
	}

	fieldScope := mint.NewScope()

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]ir.Field, 0, len(names))
	for _, wireName := range names {
		propSchema := schema.Properties[wireName]
		fieldPointer := fmt.Sprintf("%s/properties/%s", pointer, wireName)

		ft, err := b.Lower(propSchema, fieldPointer)
		if err != nil {
			return ir.Type{}, err
		}
		if !required[wireName] && ft.Kind != ir.KindOptional {
			inner := ft
			ft = ir.Type{Kind: ir.KindOptional, Inner: &inner}
		}

		ident, _, err := fieldScope.MintField(wireName)
		if err != nil {
			return ir.Type{}, errs.Wrap(errs.KindNameMint, errs.StageMint, fieldPointer, err)
		}

		field := ir.Field{
			WireName: wireName,
			Ident:    ident,
			Type:     ft,
			Docs:     propSchema.Description,
		}
		switch propSchema.Format {
		case "byte":
			field.FormatOverride = "base64"
		case "binary":
			field.FormatOverride = "binary"
		}
		if len(propSchema.Default) > 0 {
			field.Default = propSchema.Default
		}

		fields = append(fields, field)
	}

	extensible := schema.AdditionalProperties != nil && !schema.AdditionalProperties.Forbidden

	return ir.Type{
		Kind:       ir.KindStruct,
		Fields:     fields,
		Required:   required,
		Docs:       schema.Description,
		Extensible: extensible,
	}, nil
}

//
// Array
//

func (b *Builder) lowerArray(schema *spec.Schema, pointer string) (ir.Type, error) {
	itemPointer := pointer + "/items"
	var inner ir.Type
	var err error
	if schema.Items != nil {
		inner, err = b.Lower(schema.Items, itemPointer)
		if err != nil {
			return ir.Type{}, err
		}
	} else {
		inner = ir.Type{Kind: ir.KindAny}
	}

	return ir.Type{
		Kind:  ir.KindSequence,
		Inner: &inner,
		SequenceConstraints: ir.SequenceConstraints{
			Unique: schema.UniqueItems,
			Min:    schema.MinItems,
			Max:    schema.MaxItems,
		},
	}, nil
}

//
// Enum
//

func (b *Builder) lowerEnum(schema *spec.Schema, pointer string) (ir.Type, error) {
	concrete, err := b.lowerEnumConcrete(schema, pointer)
	if err != nil {
		return ir.Type{}, err
	}
	return b.internTableEntry(concrete, hintFromPointer(pointer, "Enum"))
}

func (b *Builder) lowerEnumConcrete(schema *spec.Schema, pointer string) (ir.Type, error) {
	variantScope := mint.NewScope()
	variants := make([]ir.Variant, 0, len(schema.Enum))
	for _, raw := range schema.Enum {
		name := fmt.Sprintf("%v", raw)
		ident, _, err := variantScope.MintVariant(name)
		if err != nil {
			return ir.Type{}, errs.Wrap(errs.KindNameMint, errs.StageMint, pointer, err)
		}
		variants = append(variants, ir.Variant{WireValue: raw, Ident: ident})
	}
	return ir.Type{Kind: ir.KindEnum, Variants: variants, Docs: schema.Description}, nil
}

//
// oneOf / anyOf / allOf
//

func (b *Builder) lowerOneOf(schema *spec.Schema, pointer string) (ir.Type, error) {
	concrete, err := b.lowerOneOfConcrete(schema, pointer, "")
	if err != nil {
		return ir.Type{}, err
	}
	return b.internTableEntry(concrete, hintFromPointer(pointer, "Union"))
}

func (b *Builder) lowerOneOfConcrete(schema *spec.Schema, pointer string, ident string) (ir.Type, error) {
	style, tagField, contentField := classifyDiscriminated(schema, b.components.Schemas)
	if style == "" {
		return b.lowerOneOfAnyConcrete(schema, pointer)
	}

	variantScope := mint.NewScope()
	variants := make([]ir.UnionVariant, 0, len(schema.OneOf))

	for i, branch := range schema.OneOf {
		branchPointer := fmt.Sprintf("%s/oneOf/%d", pointer, i)
		resolved, err := b.resolver.Schema(branch, branchPointer)
		if err != nil {
			return ir.Type{}, err
		}

		tagSchema, ok := resolved.Properties[tagField]
		if !ok || len(tagSchema.Enum) == 0 {
			return ir.Type{}, errs.New(errs.KindSchemaLowering, errs.StageTypeIR, branchPointer,
				"oneOf branch is missing discriminator field %q", tagField)
		}
		wireTag := fmt.Sprintf("%v", tagSchema.Enum[0])
		variantIdent, _, err := variantScope.MintVariant(wireTag)
		if err != nil {
			return ir.Type{}, errs.Wrap(errs.KindNameMint, errs.StageMint, branchPointer, err)
		}

		variant := ir.UnionVariant{WireTag: wireTag, Ident: variantIdent}

		switch style {
		case ir.TagAdjacent:
			contentSchema, ok := resolved.Properties[contentField]
			if !ok {
				variant.PayloadKind = ir.KindEmpty
				break
			}
			payload, err := b.Lower(contentSchema, branchPointer+"/properties/"+contentField)
			if err != nil {
				return ir.Type{}, err
			}
			variant.PayloadKind = ir.KindNewtype
			variant.Payload = ir.Type{Kind: ir.KindNewtype, Inner: &payload}

		case ir.TagInternal:
			payloadSchema := withoutProperty(resolved, tagField)
			if len(payloadSchema.Properties) == 0 {
				variant.PayloadKind = ir.KindEmpty
				break
			}
			payload, err := b.lowerObjectConcrete(payloadSchema, branchPointer, "")
			if err != nil {
				return ir.Type{}, err
			}
			variant.PayloadKind = ir.KindStruct
			variant.Payload = payload
		}

		variants = append(variants, variant)
	}

	return ir.Type{
		Kind:          ir.KindTaggedUnion,
		Discriminator: style,
		TagField:      tagField,
		ContentField:  contentField,
		UnionVariants: variants,
		Docs:          schema.Description,
	}, nil
}

func (b *Builder) lowerAnyOf(schema *spec.Schema, pointer string) (ir.Type, error) {
	concrete, err := b.lowerAnyOfConcrete(schema, pointer, "")
	if err != nil {
		return ir.Type{}, err
	}
	return b.internTableEntry(concrete, hintFromPointer(pointer, "AnyOf"))
}

func (b *Builder) lowerAnyOfConcrete(schema *spec.Schema, pointer string, ident string) (ir.Type, error) {
	// anyOf is lowered identically to a discriminator-less oneOf (spec
	// section 4.E: "anyOf: same as oneOf without discriminator").
	return b.lowerOneOfAnyConcreteBranches(schema.AnyOf, pointer)
}

func (b *Builder) lowerOneOfAnyConcrete(schema *spec.Schema, pointer string) (ir.Type, error) {
	return b.lowerOneOfAnyConcreteBranches(schema.OneOf, pointer)
}

func (b *Builder) lowerOneOfAnyConcreteBranches(branches []*spec.Schema, pointer string) (ir.Type, error) {
	ids := make([]ir.TypeId, 0, len(branches))
	for i, branch := range branches {
		branchPointer := fmt.Sprintf("%s/%d", pointer, i)
		t, err := b.Lower(branch, branchPointer)
		if err != nil {
			return ir.Type{}, err
		}
		id, err := b.ensureTypeId(t)
		if err != nil {
			return ir.Type{}, err
		}
		ids = append(ids, id)
	}
	return ir.Type{Kind: ir.KindOneOfAny, OneOfVariants: ids}, nil
}

func (b *Builder) lowerAllOf(schema *spec.Schema, pointer string) (ir.Type, error) {
	concrete, err := b.lowerAllOfConcrete(schema, pointer, "")
	if err != nil {
		return ir.Type{}, err
	}
	return b.internTableEntry(concrete, hintFromPointer(pointer, "AllOf"))
}

func (b *Builder) lowerAllOfConcrete(schema *spec.Schema, pointer string, ident string) (ir.Type, error) {
	branches := make([]*spec.Schema, 0, len(schema.AllOf)+1)
	// A bare `allOf` sibling with its own properties counts as a branch
	// too.
	if schema.Properties != nil || schema.Type == spec.TypeObject {
		sibling := *schema
		sibling.AllOf = nil
		branches = append(branches, &sibling)
	}
	branches = append(branches, schema.AllOf...)

	resolvedBranches := make([]*spec.Schema, 0, len(branches))
	for i, branch := range branches {
		resolved, err := b.resolver.Schema(branch, fmt.Sprintf("%s/allOf/%d", pointer, i))
		if err != nil {
			return ir.Type{}, err
		}
		resolvedBranches = append(resolvedBranches, resolved)
	}

	if mergeableAllOf(resolvedBranches) {
		// Merge the already-resolved branches directly rather than calling
		// schema.FlattenAllOf() on the pre-resolution schema: FlattenAllOf
		// only ever sees each branch's bare Ref for a `$ref` branch (its
		// Properties/Required live on the schema the ref points to), so
		// merging pre-resolution silently drops every field a $ref branch
		// contributes.
		merged := &spec.Schema{Type: spec.TypeObject, Properties: map[string]*spec.Schema{}}
		for _, branch := range resolvedBranches {
			for name, prop := range branch.Properties {
				merged.Properties[name] = prop
			}
			merged.Required = append(merged.Required, branch.Required...)
		}
		merged.Description = schema.Description
		return b.lowerObjectConcrete(merged, pointer, ident)
	}

	// Conflicting or non-object branches: embed each branch as one
	// flattened field instead of merging (spec section 4.E / 9).
	fieldScope := mint.NewScope()
	fields := make([]ir.Field, 0, len(resolvedBranches))
	required := map[string]bool{}
	for i, branch := range resolvedBranches {
		branchPointer := fmt.Sprintf("%s/allOf/%d", pointer, i)
		t, err := b.Lower(branch, branchPointer)
		if err != nil {
			return ir.Type{}, err
		}
		hint := fmt.Sprintf("variant_%d", i+1)
		ident, _, err := fieldScope.MintField(hint)
		if err != nil {
			return ir.Type{}, errs.Wrap(errs.KindNameMint, errs.StageMint, branchPointer, err)
		}
		fields = append(fields, ir.Field{WireName: hint, Ident: ident, Type: t})
		required[hint] = true
	}

	return ir.Type{Kind: ir.KindAllOfMerged, Fields: fields, Required: required}, nil
}

func mergeableAllOf(branches []*spec.Schema) bool {
	seen := map[string]bool{}
	for _, branch := range branches {
		if branch.Type != "" && branch.Type != spec.TypeObject {
			return false
		}
		for name := range branch.Properties {
			if seen[name] {
				return false
			}
			seen[name] = true
		}
	}
	return true
}

//
// Discriminator classification (scenarios S2/S3)
//

func classifyDiscriminated(schema *spec.Schema, schemas map[string]*spec.Schema) (ir.TagStyle, string, string) {
	if len(schema.OneOf) == 0 {
		return "", "", ""
	}

	tagField := ""
	if schema.Discriminator != nil {
		tagField = schema.Discriminator.PropertyName
	}

	type branchShape struct {
		tagField  string
		extra     []string
	}
	var shapes []branchShape

	for _, branch := range schema.OneOf {
		resolved := branch
		if branch.Ref != "" {
			name, err := refName(branch.Ref)
			if err != nil {
				return "", "", ""
			}
			s, ok := schemas[name]
			if !ok {
				return "", "", ""
			}
			resolved = s
		}
		if resolved.Type != spec.TypeObject && resolved.Properties == nil {
			return "", "", ""
		}

		candidateTag := tagField
		if candidateTag == "" {
			candidateTag = findSingleEnumTag(resolved)
		}
		if candidateTag == "" {
			return "", "", ""
		}
		tagSchema, ok := resolved.Properties[candidateTag]
		if !ok || len(tagSchema.Enum) != 1 {
			return "", "", ""
		}

		var extra []string
		for name := range resolved.Properties {
			if name != candidateTag {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)

		tagField = candidateTag
		shapes = append(shapes, branchShape{tagField: candidateTag, extra: extra})
	}

	if len(shapes) == 0 {
		return "", "", ""
	}

	// Adjacent tagging: every branch has the tag field plus exactly one
	// other field, and that other field's name is identical across every
	// branch (scenario S3: {type, value}).
	allExactlyOneExtra := true
	contentField := ""
	for _, s := range shapes {
		if len(s.extra) != 1 {
			allExactlyOneExtra = false
			break
		}
		if contentField == "" {
			contentField = s.extra[0]
		} else if contentField != s.extra[0] {
			allExactlyOneExtra = false
			break
		}
	}
	if allExactlyOneExtra && contentField != "" {
		return ir.TagAdjacent, tagField, contentField
	}

	// Internal tagging: the tag field lives alongside the payload's own
	// fields (scenario S2).
	return ir.TagInternal, tagField, ""
}

func findSingleEnumTag(schema *spec.Schema) string {
	for name, propSchema := range schema.Properties {
		if len(propSchema.Enum) == 1 {
			if !contains(schema.Required, name) {
				continue
			}
			return name
		}
	}
	return ""
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func withoutProperty(schema *spec.Schema, field string) *spec.Schema {
	clone := *schema
	clone.Properties = make(map[string]*spec.Schema, len(schema.Properties))
	for k, v := range schema.Properties {
		if k != field {
			clone.Properties[k] = v
		}
	}
	var required []string
	for _, r := range schema.Required {
		if r != field {
			required = append(required, r)
		}
	}
	clone.Required = required
	return &clone
}

//
// Primitive format mapping (spec section 4.E)
//

func stringPrimitive(format string) ir.PrimitiveKind {
	switch format {
	case "uuid":
		return ir.Uuid
	case "date-time":
		return ir.DateTime
	case "date":
		return ir.Date
	case "byte", "binary":
		return ir.Bytes
	case "ip", "ipv4", "ipv6":
		return ir.IpAddr
	case "ipnet", "cidr":
		return ir.IpNet
	case "phone":
		return ir.PhoneNumber
	case "uri", "url":
		return ir.Url
	case "email":
		return ir.Email
	case "decimal":
		return ir.Decimal
	default:
		return ir.Str
	}
}

func integerPrimitive(format string) ir.PrimitiveKind {
	switch format {
	case "int32":
		return ir.I32
	case "int64":
		return ir.I64
	case "uint32":
		return ir.U32
	case "uint64":
		return ir.U64
	default:
		return ir.I64
	}
}

func numberPrimitive(format string) ir.PrimitiveKind {
	switch format {
	case "float":
		return ir.F32
	case "double":
		return ir.F64
	case "decimal":
		return ir.Decimal
	default:
		return ir.F64
	}
}

//
// Structural dedup + TypeId bookkeeping
//

// internTableEntry looks up an existing table entry structurally
// equivalent to concrete (ignoring Id), reusing its TypeId; otherwise it
// allocates a fresh entry. This implements "inline schemas that lower to
// byte-identical TypeIR nodes share a TypeId" (spec section 4.E) for
// anonymous struct/enum/union/allOf nodes. Named schemas never go through
// this path (lowerNamedRef writes directly into its pre-allocated id).
func (b *Builder) internTableEntry(concrete ir.Type, nameHint string) (ir.Type, error) {
	sig, err := structuralSignature(concrete)
	if err != nil {
		return ir.Type{}, errs.Wrap(errs.KindRender, errs.StageTypeIR, "", err)
	}
	if id, ok := b.structural[sig]; ok {
		return ir.Type{Kind: ir.KindNamed, Named: id}, nil
	}

	ident, _, err := b.typeScope.MintType(nameHint)
	if err != nil {
		return ir.Type{}, errs.Wrap(errs.KindNameMint, errs.StageMint, "", err)
	}
	concrete.Name = ident

	id := b.table.Alloc()
	b.table.Set(id, concrete)
	b.structural[sig] = id
	return ir.Type{Kind: ir.KindNamed, Named: id}, nil
}

// hintFromPointer derives a synthetic type-name seed from the tail of a
// JSON pointer (e.g. ".../properties/shipping_address" -> "shipping_address",
// which MintType then turns into "ShippingAddress"), falling back to
// fallback when the pointer has no usable tail.
func hintFromPointer(pointer string, fallback string) string {
	for i := len(pointer) - 1; i >= 0; i-- {
		if pointer[i] == '/' {
			tail := pointer[i+1:]
			if tail != "" {
				return tail
			}
			break
		}
	}
	return fallback
}

// EnsureNamed returns a TypeId addressing t, wrapping it in a Newtype table
// entry first if it isn't already a Named reference. Stage F uses this to
// address a request body or response schema by TypeId even when that
// schema lowers to a bare primitive or inline container.
func (b *Builder) EnsureNamed(t ir.Type) (ir.TypeId, error) {
	return b.ensureTypeId(t)
}

// ensureTypeId returns a TypeId for t, wrapping non-Named results (bare
// primitives, optionals, sequences) in a Newtype table entry so that
// OneOfAny's variant list (spec section 3: "variants: [TypeId]") always
// has something to address.
func (b *Builder) ensureTypeId(t ir.Type) (ir.TypeId, error) {
	if t.Kind == ir.KindNamed {
		return t.Named, nil
	}
	wrapped, err := b.internTableEntry(ir.Type{Kind: ir.KindNewtype, Inner: &t}, "Variant")
	if err != nil {
		return 0, err
	}
	return wrapped.Named, nil
}

// structuralSignature renders a Type (sans Id/OriginalName, which are
// identity rather than structure) into a stable string so two inline
// schemas that happen to be byte-identical hash to the same key.
func structuralSignature(t ir.Type) (string, error) {
	t.Id = 0
	t.OriginalName = ""
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func refName(ref string) (string, error) {
	const prefix = "#/components/schemas/"
	if len(ref) <= len(prefix) || ref[:len(prefix)] != prefix {
		return "", fmt.Errorf("unsupported $ref %q (only local schema refs are supported)", ref)
	}
	return ref[len(prefix):], nil
}
