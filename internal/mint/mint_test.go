package mint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMintTypeBasicCasing(t *testing.T) {
	scope := NewScope()

	ident, disambiguated, err := scope.MintType("widget_order")
	require.NoError(t, err)
	require.Equal(t, "WidgetOrder", ident)
	require.False(t, disambiguated)
}

func TestMintFieldSnakeCase(t *testing.T) {
	scope := NewScope()

	ident, disambiguated, err := scope.MintField("ShippingAddress")
	require.NoError(t, err)
	require.Equal(t, "shipping_address", ident)
	require.False(t, disambiguated)
}

func TestMintCollisionDisambiguation(t *testing.T) {
	scope := NewScope()

	first, _, err := scope.MintField("name")
	require.NoError(t, err)
	require.Equal(t, "name", first)

	// "Name" and "name" collide once cased, so the second mint must be
	// disambiguated rather than silently shadowing the first.
	second, disambiguated, err := scope.MintField("Name")
	require.NoError(t, err)
	require.True(t, disambiguated)
	require.NotEqual(t, first, second)
	require.Equal(t, "name_2", second)
}

func TestMintFieldStartingWithDigit(t *testing.T) {
	scope := NewScope()

	ident, _, err := scope.MintField("2fa_code")
	require.NoError(t, err)
	require.Equal(t, "n2fa_code", ident)
}

func TestMintReservedWord(t *testing.T) {
	scope := NewScope()

	ident, _, err := scope.MintField("type")
	require.NoError(t, err)
	require.Equal(t, "field_type", ident)
}

func TestMintVariantPascalCase(t *testing.T) {
	scope := NewScope()

	ident, _, err := scope.MintVariant("in_progress")
	require.NoError(t, err)
	require.Equal(t, "InProgress", ident)
}

func TestMintMethodSnakeCase(t *testing.T) {
	scope := NewScope()

	ident, _, err := scope.MintMethod("ListWidgets")
	require.NoError(t, err)
	require.Equal(t, "list_widgets", ident)
}

func TestMintEmptyRawGetsPlaceholder(t *testing.T) {
	scope := NewScope()

	ident, _, err := scope.MintType("!!!")
	require.NoError(t, err)
	require.Equal(t, "Type", ident)
}

func TestMintIsScopedIndependently(t *testing.T) {
	a := NewScope()
	b := NewScope()

	identA, _, err := a.MintField("id")
	require.NoError(t, err)
	identB, _, err := b.MintField("id")
	require.NoError(t, err)

	// Two distinct scopes (e.g. two different structs' field sets) must
	// not see each other's collisions.
	require.Equal(t, identA, identB)
}
