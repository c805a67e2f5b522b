// Package resolver implements stage C: resolving $ref pointers against
// #/components/{schemas,parameters,requestBodies,responses} lazily, with
// cycle detection appropriate to each kind (spec section 4.C).
//
// It is adapted from the teacher's Schema.ResolveRef / Response.ResolveRef,
// generalized to all four component kinds and to explicit cycle tracking
// (the teacher's mock server never needed to detect a cycle because it
// only ever resolved one hop at a time against live traffic).
package resolver

import (
	"fmt"
	"strings"

	"github.com/kittycad/openapitor/internal/errs"
	"github.com/kittycad/openapitor/internal/spec"
)

// Resolver resolves references against a fixed Components table. It holds
// no mutable state of its own; the map it's given by the caller remains
// the sole owner of every component.
type Resolver struct {
	components *spec.Components
}

// New builds a Resolver over the given components table.
func New(components *spec.Components) *Resolver {
	return &Resolver{components: components}
}

// Schema resolves s if it is a $ref, repeating until a non-ref schema is
// reached. Schema-level cycles are allowed through (the caller is
// expected to break them into Named edges, per stage E); Schema instead
// caps the walk at a generous hop limit so a genuinely infinite alias
// chain still fails cleanly instead of hanging.
func (r *Resolver) Schema(s *spec.Schema, pointer string) (*spec.Schema, error) {
	const maxHops = 256
	cur := s
	for i := 0; cur.Ref != ""; i++ {
		if i >= maxHops {
			return nil, errs.New(errs.KindRefResolve, errs.StageResolve, pointer,
				"schema $ref chain exceeded %d hops, probable cycle at %q", maxHops, cur.Ref)
		}
		next, err := cur.ResolveRef(r.components.Schemas)
		if err != nil {
			return nil, errs.Wrap(errs.KindRefResolve, errs.StageResolve, pointer, err)
		}
		cur = next
	}
	return cur, nil
}

// Parameter resolves a $ref parameter. Cycles are not permitted (spec
// section 4.C): a parameter whose $ref chain revisits a name fails with
// RefCycle.
func (r *Resolver) Parameter(p *spec.Parameter, pointer string) (*spec.Parameter, error) {
	if p.Ref == "" {
		return p, nil
	}
	if err := checkExternal(p.Ref); err != nil {
		return nil, errs.Wrap(errs.KindExternalRef, errs.StageResolve, pointer, err)
	}

	resolved, err := p.ResolveRef(r.components.Parameters)
	if err != nil {
		kind := errs.KindRefResolve
		if strings.Contains(err.Error(), "cycle") {
			kind = errs.KindRefCycle
		}
		return nil, errs.Wrap(kind, errs.StageResolve, pointer, err)
	}
	return resolved, nil
}

// RequestBody resolves a $ref request body.
func (r *Resolver) RequestBody(b *spec.RequestBody, pointer string) (*spec.RequestBody, error) {
	if b.Ref == "" {
		return b, nil
	}
	if err := checkExternal(b.Ref); err != nil {
		return nil, errs.Wrap(errs.KindExternalRef, errs.StageResolve, pointer, err)
	}

	resolved, err := b.ResolveRef(r.components.RequestBodies)
	if err != nil {
		return nil, errs.Wrap(errs.KindRefResolve, errs.StageResolve, pointer, err)
	}
	return resolved, nil
}

// Response resolves a $ref response. Cycles are not permitted (spec
// section 4.C).
func (r *Resolver) Response(resp *spec.Response, pointer string) (*spec.Response, error) {
	if resp.Ref == "" {
		return resp, nil
	}
	if err := checkExternal(resp.Ref); err != nil {
		return nil, errs.Wrap(errs.KindExternalRef, errs.StageResolve, pointer, err)
	}

	resolved, err := resp.ResolveRef(r.components.Responses)
	if err != nil {
		kind := errs.KindRefResolve
		if strings.Contains(err.Error(), "cycle") {
			kind = errs.KindRefCycle
		}
		return nil, errs.Wrap(kind, errs.StageResolve, pointer, err)
	}
	return resolved, nil
}

// checkExternal rejects any $ref that isn't a local component fragment
// (spec section 4.C: "External refs (non-fragment) fail with
// ExternalRefUnsupported").
func checkExternal(ref string) error {
	if strings.HasPrefix(ref, "#/components/") {
		return nil
	}
	if strings.HasPrefix(ref, "#/") {
		return fmt.Errorf("unrecognized local $ref shape: %q", ref)
	}
	return fmt.Errorf("external $ref is unsupported: %q", ref)
}
