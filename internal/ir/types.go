// Package ir defines the language-agnostic Type IR and Method IR produced
// by stages E and F (spec section 3). The Type IR is a closed tagged
// variant addressed by stable TypeId; the table that owns it is built once
// per run and never escapes stage E's caller (spec section 5).
package ir

// TypeId addresses an entry in a Table. It is never reused across tables
// and is stable for the lifetime of a single generator run.
type TypeId int

// PrimitiveKind enumerates the scalar kinds in spec section 3.
type PrimitiveKind string

const (
	Str         PrimitiveKind = "str"
	Bool        PrimitiveKind = "bool"
	I32         PrimitiveKind = "i32"
	I64         PrimitiveKind = "i64"
	U32         PrimitiveKind = "u32"
	U64         PrimitiveKind = "u64"
	F32         PrimitiveKind = "f32"
	F64         PrimitiveKind = "f64"
	Bytes       PrimitiveKind = "bytes"
	Uuid        PrimitiveKind = "uuid"
	Date        PrimitiveKind = "date"
	DateTime    PrimitiveKind = "date_time"
	IpAddr      PrimitiveKind = "ip_addr"
	IpNet       PrimitiveKind = "ip_net"
	PhoneNumber PrimitiveKind = "phone_number"
	Url         PrimitiveKind = "url"
	Email       PrimitiveKind = "email"
	Decimal     PrimitiveKind = "decimal"
)

// Kind discriminates which variant of Type is populated. Go has no sum
// types, so Type carries every variant's fields and Kind says which ones
// are meaningful — the same flat-struct-plus-tag shape the teacher uses
// for spec.Schema itself.
type Kind string

const (
	KindPrimitive    Kind = "primitive"
	KindOptional     Kind = "optional"
	KindSequence     Kind = "sequence"
	KindMap          Kind = "map"
	KindNamed        Kind = "named"
	KindStruct       Kind = "struct"
	KindEnum         Kind = "enum"
	KindTaggedUnion  Kind = "tagged_union"
	KindNewtype      Kind = "newtype"
	KindOneOfAny     Kind = "one_of_any"
	KindAllOfMerged  Kind = "all_of_merged"
	KindAny          Kind = "any"
	KindEmpty        Kind = "empty"
)

// TagStyle is how a TaggedUnion's variant is distinguished on the wire.
type TagStyle string

const (
	TagInternal TagStyle = "internal"
	TagAdjacent TagStyle = "adjacent"
	TagUntagged TagStyle = "untagged"
)

// Field is one member of a Struct.
type Field struct {
	WireName       string
	Ident          string
	Type           Type
	Docs           string
	Default        []byte // raw JSON, nil if absent
	FormatOverride string
}

// Variant is one member of an Enum.
type Variant struct {
	WireValue interface{}
	Ident     string
	Docs      string
}

// UnionVariant is one member of a TaggedUnion.
type UnionVariant struct {
	WireTag string
	Ident   string
	// PayloadKind is KindStruct, KindNewtype, or KindEmpty ("Unit").
	PayloadKind Kind
	Payload     Type // meaningful when PayloadKind == KindStruct or KindNewtype
}

// Sequence constraints (spec section 3).
type SequenceConstraints struct {
	Unique bool
	Min    *int
	Max    *int
}

// Type is one node of the Type IR. Exactly the fields relevant to Kind are
// populated; see the Kind constants above for which.
type Type struct {
	Kind Kind

	// Primitive
	Primitive PrimitiveKind

	// Optional / Sequence / Map: the element/value type.
	Inner *Type

	// Sequence
	SequenceConstraints SequenceConstraints

	// Named
	Named TypeId

	// Struct / Enum / TaggedUnion / Newtype / OneOfAny / AllOfMerged: the
	// identity of a named entry. Zero for inline (unnamed, structurally
	// addressed) nodes.
	Id TypeId

	// Name is the minted Rust type identifier for a table entry (Struct,
	// Enum, TaggedUnion, Newtype, OneOfAny, AllOfMerged). Empty for
	// non-table-entry kinds.
	Name string

	// Struct
	Fields   []Field
	Required map[string]bool
	Docs     string

	// Enum
	Variants []Variant

	// TaggedUnion
	Discriminator TagStyle
	TagField      string
	ContentField  string // only for TagAdjacent
	UnionVariants []UnionVariant

	// Newtype
	// Inner is reused for the wrapped primitive.

	// OneOfAny
	OneOfVariants []TypeId

	// Extensible: true when an object schema had a populated
	// additionalProperties alongside explicit properties (spec section
	// 4.E); the emitter's default behavior is to drop the catch-all.
	Extensible bool

	// OriginalName, when non-empty, is the raw spec identifier that was
	// disambiguated by the name mint, preserved so serialization stays
	// faithful to the wire (spec section 4.D rule 5 / testable property 7).
	OriginalName string
}

// Table is the global, insertion-ordered type table stage E builds and
// owns (spec section 3: "Global type table"). It is addressed by TypeId
// and never exposes its internals for mutation once built (stage E hands
// out its own builder, see internal/typelower).
type Table struct {
	entries []Type
	order   []TypeId
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Alloc reserves the next TypeId without populating an entry, so that
// cyclic schemas can reference a Named(id) edge to themselves before
// their body has been lowered (spec section 4.E: "allocate a TypeId
// before descending into the referent").
func (t *Table) Alloc() TypeId {
	id := TypeId(len(t.entries) + 1)
	t.entries = append(t.entries, Type{})
	t.order = append(t.order, id)
	return id
}

// Set populates the entry previously reserved by Alloc.
func (t *Table) Set(id TypeId, typ Type) {
	typ.Id = id
	t.entries[id-1] = typ
}

// Get returns the entry for id. The second return value is false if id
// was never allocated in this table (testable property 4: reference
// closure).
func (t *Table) Get(id TypeId) (Type, bool) {
	if id <= 0 || int(id) > len(t.entries) {
		return Type{}, false
	}
	return t.entries[id-1], true
}

// Order returns every TypeId in insertion order, for deterministic
// iteration during emission (spec section 5).
func (t *Table) Order() []TypeId {
	out := make([]TypeId, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of entries in the table.
func (t *Table) Len() int { return len(t.entries) }
