package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittycad/openapitor/internal/ir"
)

func TestRustTypePrimitives(t *testing.T) {
	require.Equal(t, "String", RustType(ir.Type{Kind: ir.KindPrimitive, Primitive: ir.Str}))
	require.Equal(t, "uuid::Uuid", RustType(ir.Type{Kind: ir.KindPrimitive, Primitive: ir.Uuid}))
	require.Equal(t, "rust_decimal::Decimal", RustType(ir.Type{Kind: ir.KindPrimitive, Primitive: ir.Decimal}))
}

func TestRustTypeOptionalSequenceMap(t *testing.T) {
	str := ir.Type{Kind: ir.KindPrimitive, Primitive: ir.Str}

	require.Equal(t, "Option<String>", RustType(ir.Type{Kind: ir.KindOptional, Inner: &str}))
	require.Equal(t, "Vec<String>", RustType(ir.Type{Kind: ir.KindSequence, Inner: &str}))
	require.Equal(t, "HashMap<String, String>", RustType(ir.Type{Kind: ir.KindMap, Inner: &str}))
}

func TestRustTypeNamedRendersPlaceholder(t *testing.T) {
	require.Equal(t, "TypeRef7", RustType(ir.Type{Kind: ir.KindNamed, Named: ir.TypeId(7)}))
}

func TestTypeNameUnknownId(t *testing.T) {
	table := ir.NewTable()
	_, ok := TypeName(table, ir.TypeId(42))
	require.False(t, ok)
}

func TestTypeNameKnownId(t *testing.T) {
	table := ir.NewTable()
	id := table.Alloc()
	table.Set(id, ir.Type{Kind: ir.KindStruct, Name: "Widget"})

	name, ok := TypeName(table, id)
	require.True(t, ok)
	require.Equal(t, "Widget", name)
}

func TestResolveRefPlaceholdersHighestIdFirst(t *testing.T) {
	table := ir.NewTable()
	id1 := table.Alloc()
	table.Set(id1, ir.Type{Kind: ir.KindStruct, Name: "Widget"})
	for i := 0; i < 8; i++ {
		table.Alloc()
	}
	id10 := table.Alloc()
	table.Set(id10, ir.Type{Kind: ir.KindStruct, Name: "Gadget"})

	// A naive single-pass replace of "TypeRef1" would also clobber the "1"
	// prefix inside "TypeRef10"; resolving from the highest id down avoids
	// that collision.
	rendered := "pub field_a: TypeRef1, pub field_b: TypeRef10,"
	resolved := ResolveRefPlaceholders(rendered, table)
	require.Equal(t, "pub field_a: Widget, pub field_b: Gadget,", resolved)
}

func TestRenderStructIncludesSampleComments(t *testing.T) {
	idField := ir.Field{
		WireName: "id",
		Ident:    "id",
		Type:     ir.Type{Kind: ir.KindPrimitive, Primitive: ir.Uuid},
	}
	amountField := ir.Field{
		WireName: "amount",
		Ident:    "amount",
		Type:     ir.Type{Kind: ir.KindPrimitive, Primitive: ir.Decimal},
		Default:  []byte(`"1.50000"`),
	}

	widget := ir.Type{
		Kind:   ir.KindStruct,
		Name:   "Widget",
		Fields: []ir.Field{idField, amountField},
	}

	table := ir.NewTable()
	id := table.Alloc()
	table.Set(id, widget)

	rendered, err := Render(table, false)
	require.NoError(t, err)
	require.Contains(t, rendered, "pub struct Widget {")
	require.Contains(t, rendered, "/// Example: "+ir.SampleUUID("Widget.id"))
	require.Contains(t, rendered, "/// Default: 1.5")
}

func TestRenderStructWithTabledFeature(t *testing.T) {
	widget := ir.Type{Kind: ir.KindStruct, Name: "Widget"}
	table := ir.NewTable()
	id := table.Alloc()
	table.Set(id, widget)

	rendered, err := Render(table, true)
	require.NoError(t, err)
	require.Contains(t, rendered, `#[cfg_attr(feature = "tabled", derive(tabled::Tabled))]`)
}

func TestRenderDanglingTypeIdErrors(t *testing.T) {
	table := ir.NewTable()
	table.Alloc() // allocated but never Set, leaving a zero-value empty Kind

	_, err := Render(table, false)
	require.Error(t, err)
}

func TestRenderStructEmitsDisplaySchemaNameAndEquality(t *testing.T) {
	widget := ir.Type{
		Kind: ir.KindStruct,
		Name: "Widget",
		Fields: []ir.Field{
			{WireName: "id", Ident: "id", Type: ir.Type{Kind: ir.KindPrimitive, Primitive: ir.Str}},
		},
	}
	table := ir.NewTable()
	id := table.Alloc()
	table.Set(id, widget)

	rendered, err := Render(table, false)
	require.NoError(t, err)
	require.Contains(t, rendered, "#[derive(Debug, Clone, Serialize, Deserialize, PartialEq, Eq)]")
	require.Contains(t, rendered, "impl std::fmt::Display for Widget {")
	require.Contains(t, rendered, "serde_json::to_string_pretty(self)")
	require.Contains(t, rendered, `pub fn schema_name() -> &'static str {`)
	require.Contains(t, rendered, `"Widget"`)
}

func TestRenderStructWithFloatFieldSkipsEq(t *testing.T) {
	priced := ir.Type{
		Kind: ir.KindStruct,
		Name: "Priced",
		Fields: []ir.Field{
			{WireName: "amount", Ident: "amount", Type: ir.Type{Kind: ir.KindPrimitive, Primitive: ir.F64}},
		},
	}
	table := ir.NewTable()
	id := table.Alloc()
	table.Set(id, priced)

	rendered, err := Render(table, false)
	require.NoError(t, err)
	require.Contains(t, rendered, "#[derive(Debug, Clone, Serialize, Deserialize, PartialEq)]")
	require.NotContains(t, rendered, "PartialEq, Eq", "a float-typed field makes deriving Eq illegal")
}

func TestRenderNewtypeEmitsDisplayAndSchemaName(t *testing.T) {
	inner := ir.Type{Kind: ir.KindPrimitive, Primitive: ir.Str}
	named := ir.Type{Kind: ir.KindNewtype, Name: "Label", Inner: &inner}
	table := ir.NewTable()
	id := table.Alloc()
	table.Set(id, named)

	rendered, err := Render(table, false)
	require.NoError(t, err)
	require.Contains(t, rendered, "pub struct Label(pub String);")
	require.Contains(t, rendered, "impl std::fmt::Display for Label {")
	require.Contains(t, rendered, `impl Label {`)
}

func TestRenderOneOfAnyDerivesOnlyPartialEq(t *testing.T) {
	any := ir.Type{Kind: ir.KindOneOfAny, Name: "Shape", OneOfVariants: []ir.TypeId{1, 2}}
	table := ir.NewTable()
	id := table.Alloc()
	table.Set(id, any)

	rendered, err := Render(table, false)
	require.NoError(t, err)
	require.Contains(t, rendered, "#[derive(Debug, Clone, PartialEq, Serialize, Deserialize)]")
	require.Contains(t, rendered, "impl std::fmt::Display for Shape {")
}
