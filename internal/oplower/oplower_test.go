package oplower

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kittycad/openapitor/internal/ir"
	"github.com/kittycad/openapitor/internal/resolver"
	"github.com/kittycad/openapitor/internal/spec"
	"github.com/kittycad/openapitor/internal/typelower"
)

func newBuilder(doc *spec.Document) *Builder {
	res := resolver.New(&doc.Components)
	types := typelower.NewBuilder(&doc.Components, res)
	return NewBuilder(doc, types, res)
}

func TestLowerOperationMintsOpIdFromOperationId(t *testing.T) {
	doc := &spec.Document{
		Paths: spec.Paths{
			"/widgets": &spec.PathItem{
				Get: &spec.Operation{
					OperationID: "ListWidgets",
					Responses:   map[string]*spec.Response{"200": {}},
				},
			},
		},
	}

	b := newBuilder(doc)
	methods, err := b.LowerAll()
	require.NoError(t, err)
	require.Len(t, methods, 1)
	require.Equal(t, "list_widgets", methods[0].OpId)
}

func TestLowerParametersWrapsOptionalInOption(t *testing.T) {
	doc := &spec.Document{
		Paths: spec.Paths{
			"/widgets": &spec.PathItem{
				Get: &spec.Operation{
					OperationID: "list_widgets",
					Parameters: []*spec.Parameter{
						{Name: "id", In: spec.InPath, Required: true, Schema: &spec.Schema{Type: "string"}},
						{Name: "limit", In: spec.InQuery, Schema: &spec.Schema{Type: "integer"}},
					},
					Responses: map[string]*spec.Response{"200": {}},
				},
			},
		},
	}

	b := newBuilder(doc)
	methods, err := b.LowerAll()
	require.NoError(t, err)
	require.Len(t, methods, 1)

	m := methods[0]
	require.Len(t, m.ParamsPath, 1)
	require.True(t, m.ParamsPath[0].Required)
	require.NotEqual(t, ir.KindOptional, m.ParamsPath[0].Type.Kind)

	require.Len(t, m.ParamsQuery, 1)
	require.False(t, m.ParamsQuery[0].Required)
	require.Equal(t, ir.KindOptional, m.ParamsQuery[0].Type.Kind,
		"an optional parameter must be Option-wrapped in the Type IR, matching the emitter's if-let-Some rendering")
}

func pagedResponseSchema() *spec.Schema {
	return &spec.Schema{
		Type: "object",
		Properties: map[string]*spec.Schema{
			"items":     {Type: "array", Items: &spec.Schema{Type: "string"}},
			"next_page": {Type: "string"},
		},
		Required: []string{"items"},
	}
}

func TestPaginationInfersStreamMethodFromPath(t *testing.T) {
	doc := &spec.Document{
		Paths: spec.Paths{
			"/orgs/{org}/repos": &spec.PathItem{
				Get: &spec.Operation{
					OperationID: "list_repos",
					Parameters: []*spec.Parameter{
						{Name: "page_token", In: spec.InQuery, Schema: &spec.Schema{Type: "string"}},
					},
					Responses: map[string]*spec.Response{
						"200": {Content: map[string]spec.MediaType{"application/json": {Schema: pagedResponseSchema()}}},
					},
				},
			},
		},
	}

	b := newBuilder(doc)
	methods, err := b.LowerAll()
	require.NoError(t, err)
	require.NotNil(t, methods[0].Pagination)
	require.Equal(t, "all_repos", methods[0].Pagination.StreamMethod)
	require.Equal(t, "items", methods[0].Pagination.ItemsField)
	require.Equal(t, "next_page", methods[0].Pagination.NextCursorField)
}

func TestPaginationRequiresMatchingResponseShape(t *testing.T) {
	doc := &spec.Document{
		Paths: spec.Paths{
			"/widgets": &spec.PathItem{
				Get: &spec.Operation{
					OperationID: "list_widgets",
					Parameters: []*spec.Parameter{
						{Name: "page_token", In: spec.InQuery, Schema: &spec.Schema{Type: "string"}},
					},
					Responses: map[string]*spec.Response{"200": {}},
				},
			},
		},
	}

	b := newBuilder(doc)
	methods, err := b.LowerAll()
	require.NoError(t, err)
	require.Nil(t, methods[0].Pagination, "a page_token param alone, without an items/next_page body shape, must not be treated as paginated")
}

func TestLowerResponsesDetectsWebsocketUpgrade(t *testing.T) {
	doc := &spec.Document{
		Paths: spec.Paths{
			"/ws": &spec.PathItem{
				Get: &spec.Operation{
					OperationID: "stream_events",
					Responses:   map[string]*spec.Response{"101": {}},
				},
			},
		},
	}

	b := newBuilder(doc)
	methods, err := b.LowerAll()
	require.NoError(t, err)

	shape, ok := methods[0].Responses["101"]
	require.True(t, ok)
	require.Equal(t, ir.RespWebsocketUpgrade, shape.Kind)
}

// TestWebsocketUpgradeDetectionMatchesRealHandshake grounds the generator's
// "101 means a protocol upgrade" rule (scenario S6) against an actual
// websocket handshake, not just the status code in isolation: gorilla's
// Upgrader is what the spec's source servers use to perform the upgrade
// that produces that 101 in the first place.
func TestWebsocketUpgradeDetectionMatchesRealHandshake(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
	}))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	require.True(t, statusIsWebsocketUpgrade("101", &spec.Response{}))
}
