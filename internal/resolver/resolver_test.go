package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittycad/openapitor/internal/errs"
	"github.com/kittycad/openapitor/internal/spec"
)

func componentsFixture() *spec.Components {
	return &spec.Components{
		Schemas: map[string]*spec.Schema{
			"Widget": {Type: "object"},
			"Alias":  {Ref: "#/components/schemas/Widget"},
		},
		Parameters: map[string]*spec.Parameter{
			"Limit": {Name: "limit", In: "query"},
		},
		RequestBodies: map[string]*spec.RequestBody{
			"CreateWidget": {Required: true},
		},
		Responses: map[string]*spec.Response{
			"WidgetResponse": {Description: "a widget"},
		},
	}
}

func TestSchemaFollowsRefChain(t *testing.T) {
	r := New(componentsFixture())

	resolved, err := r.Schema(r.components.Schemas["Alias"], "#/p")
	require.NoError(t, err)
	require.Equal(t, "object", resolved.Type)
}

func TestSchemaSelfCycleFailsWithinHopLimit(t *testing.T) {
	components := componentsFixture()
	components.Schemas["Cycle"] = &spec.Schema{Ref: "#/components/schemas/Cycle"}
	r := New(components)

	_, err := r.Schema(components.Schemas["Cycle"], "#/p")
	require.Error(t, err)
}

func TestParameterResolvesRef(t *testing.T) {
	r := New(componentsFixture())

	resolved, err := r.Parameter(&spec.Parameter{Ref: "#/components/parameters/Limit"}, "#/p")
	require.NoError(t, err)
	require.Equal(t, "limit", resolved.Name)
}

func TestParameterNonRefIsReturnedAsIs(t *testing.T) {
	r := New(componentsFixture())
	p := &spec.Parameter{Name: "inline"}

	resolved, err := r.Parameter(p, "#/p")
	require.NoError(t, err)
	require.Same(t, p, resolved)
}

func TestParameterExternalRefIsUnsupported(t *testing.T) {
	r := New(componentsFixture())

	_, err := r.Parameter(&spec.Parameter{Ref: "https://example.com/schemas.json#/Widget"}, "#/p")
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errs.KindExternalRef, e.Kind)
}

func TestRequestBodyResolvesRef(t *testing.T) {
	r := New(componentsFixture())

	resolved, err := r.RequestBody(&spec.RequestBody{Ref: "#/components/requestBodies/CreateWidget"}, "#/p")
	require.NoError(t, err)
	require.True(t, resolved.Required)
}

func TestResponseResolvesRef(t *testing.T) {
	r := New(componentsFixture())

	resolved, err := r.Response(&spec.Response{Ref: "#/components/responses/WidgetResponse"}, "#/p")
	require.NoError(t, err)
	require.Equal(t, "a widget", resolved.Description)
}

func TestResponseUnknownRefIsRefResolveError(t *testing.T) {
	r := New(componentsFixture())

	_, err := r.Response(&spec.Response{Ref: "#/components/responses/Missing"}, "#/p")
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errs.KindRefResolve, e.Kind)
}
