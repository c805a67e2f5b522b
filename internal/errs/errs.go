// Package errs defines the fatal error taxonomy returned by each stage of
// the generator pipeline. Every error is tagged with the stage it occurred
// in and, where applicable, the JSON Pointer into the spec document that
// provoked it, so that spec authors can locate the offending construct.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stage identifies which step of the Loaded -> Patched -> Resolved -> Named
// -> TypeIR -> OperationIR -> Rendered -> Written state machine produced an
// error.
type Stage string

// The stages of the generator's state machine, plus the terminal states
// before Loaded and after Written are implicit (not-yet-started / done).
const (
	StageLoad        Stage = "load"
	StagePatch       Stage = "patch"
	StageResolve     Stage = "resolve"
	StageMint        Stage = "mint"
	StageTypeIR      Stage = "type_ir"
	StageOperationIR Stage = "operation_ir"
	StageRender      Stage = "render"
	StageWrite       Stage = "write"
)

// Kind is the taxonomy from spec section 7.
type Kind string

const (
	KindSpecLoad        Kind = "SpecLoadError"
	KindPatch           Kind = "PatchError"
	KindRefResolve      Kind = "RefResolveError"
	KindRefCycle        Kind = "RefCycle"
	KindExternalRef     Kind = "ExternalRefUnsupported"
	KindSchemaLowering  Kind = "SchemaLoweringError"
	KindNameMint        Kind = "NameMintError"
	KindRender          Kind = "RenderError"
	KindIO              Kind = "IOError"
	KindUnsupportedSpec Kind = "UnsupportedSpecVersion"
)

// Error is the fatal error type returned by every exported entry point in
// the generator. None of these are retried: a single run either completes
// or fails outright, per spec section 5 and section 7.
type Error struct {
	Kind    Kind
	Stage   Stage
	Pointer string // JSON Pointer, e.g. "#/components/schemas/Widget/properties/id"
	cause   error
}

func (e *Error) Error() string {
	if e.Pointer != "" {
		return fmt.Sprintf("%s at %s (stage=%s): %v", e.Kind, e.Pointer, e.Stage, e.cause)
	}
	return fmt.Sprintf("%s (stage=%s): %v", e.Kind, e.Stage, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error wrapping a plain message with a stack trace attached
// via pkg/errors, so that callers that print with "%+v" still get a
// traceback pointing at the real failure site.
func New(kind Kind, stage Stage, pointer string, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Pointer: pointer,
		cause:   errors.Errorf(format, args...),
	}
}

// Wrap attaches stage/pointer metadata to an existing error, preserving it
// as the Unwrap() target.
func Wrap(kind Kind, stage Stage, pointer string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Pointer: pointer,
		cause:   errors.WithStack(cause),
	}
}

// ExitCode maps an Error's Kind to the front-end's documented exit codes
// (spec section 6): 0 success, 1 generic failure, 2 spec parse/validate
// failure, 3 output-write failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var e *Error
	if !errors.As(err, &e) {
		return 1
	}

	switch e.Kind {
	case KindSpecLoad, KindUnsupportedSpec, KindPatch, KindRefResolve, KindRefCycle, KindExternalRef, KindSchemaLowering, KindNameMint:
		return 2
	case KindIO:
		return 3
	default:
		return 1
	}
}
