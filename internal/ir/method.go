package ir

import "time"

// ParamStyle mirrors OpenAPI's parameter "style" (spec section 4.F.2):
// e.g. "simple", "form", "deepObject". Carried through verbatim from the
// spec parameter, defaulted by stage F when absent.
type ParamStyle string

// Param is one lowered path/query/header parameter.
type Param struct {
	WireName string
	Ident    string
	Type     Type
	Required bool
	Style    ParamStyle
	Explode  bool
}

// BodyKind discriminates Method.Body.
type BodyKind string

const (
	BodyNone            BodyKind = "none"
	BodyJSON            BodyKind = "json"
	BodyFormURLEncoded  BodyKind = "form_url_encoded"
	BodyMultipart       BodyKind = "multipart"
)

// Part is one field of a multipart/form-data body.
type Part struct {
	Name     string // wire field name
	Ident    string // minted Rust-safe field name
	Type     Type
	Filename bool // true when this part's declared type is Bytes (format: binary); the wire form includes filename= for it
}

// Body is an operation's request body shape.
type Body struct {
	Kind  BodyKind
	Named TypeId // meaningful for BodyJSON / BodyFormURLEncoded
	Parts []Part // meaningful for BodyMultipart
}

// ResponseKind discriminates ResponseShape.
type ResponseKind string

const (
	RespUnit             ResponseKind = "unit"
	RespJSON             ResponseKind = "json"
	RespBytes            ResponseKind = "bytes"
	RespText             ResponseKind = "text"
	RespWebsocketUpgrade ResponseKind = "websocket_upgrade"
	RespStream           ResponseKind = "stream"
)

// ResponseShape is the lowered shape of one status code's response body.
type ResponseShape struct {
	Kind  ResponseKind
	Named TypeId // meaningful for RespJSON / RespStream
}

// Pagination describes a cursor-paginated operation (spec section 4.F.5,
// scenario S5).
type Pagination struct {
	PageParam       string
	ItemsField      string
	NextCursorField string

	// StreamMethod names the generated "fetch every page" helper (spec
	// section 4.H): the pluralized resource noun from the path, e.g.
	// "all_users" for a collection endpoint at "/users".
	StreamMethod string
}

// Method is one (path, verb) entry lowered by stage F.
type Method struct {
	OpId string
	Tag  string
	Path string
	Verb string

	ParamsPath   []Param
	ParamsQuery  []Param
	ParamsHeader []Param

	Body Body

	// Responses maps an HTTP status code string ("200", "4XX", "default")
	// to its lowered shape.
	Responses map[string]ResponseShape

	// DefaultIsError records whether a "default" response entry exists;
	// per spec section 4.F.4 it folds into error mapping rather than
	// becoming a ResponseShape of its own.
	DefaultIsError bool

	Pagination *Pagination

	Auth bool

	TimeoutHint *time.Duration

	Docs string
}

// OrderedParams returns every parameter of m in the stable order the
// emitter must use for a method's argument list (spec section 4.H):
// required path, required query, required header, then optional query,
// optional header. The emitter inserts the body argument (if any) between
// the required and optional groups itself, since Body isn't a Param.
func (m *Method) OrderedParams() []Param {
	var required, optional []Param

	appendBucket := func(params []Param) {
		for _, p := range params {
			if p.Required {
				required = append(required, p)
			} else {
				optional = append(optional, p)
			}
		}
	}

	// Path parameters in OpenAPI are always required; included here for
	// completeness in case a spec author marks one optional in error.
	appendBucket(m.ParamsPath)
	appendBucket(m.ParamsQuery)
	appendBucket(m.ParamsHeader)

	out := make([]Param, 0, len(required)+len(optional))
	out = append(out, required...)
	out = append(out, optional...)
	return out
}
