// Package options holds the configured options record that the CLI
// front-end builds and hands to the generator. The generator core never
// reads argv or the environment directly; everything it needs arrives
// through this struct (spec section 1/6).
package options

import "time"

// Options configures a single generator run.
type Options struct {
	// SpecPath is the filesystem path to the OpenAPI document (JSON or
	// YAML).
	SpecPath string

	// OutputDir receives the generated files. It is not cleared first:
	// files already there that a run does not produce are left in place.
	OutputDir string

	// LibraryName shapes the crate name, module root, and README title.
	LibraryName string

	// Description is the human description used verbatim in the manifest
	// and README. The spec's own info.description is not consulted.
	Description string

	// TargetVersion stamps the manifest (a semver string).
	TargetVersion string

	// BaseURL is the default server used by the generated client when the
	// spec declares no servers of its own.
	BaseURL string

	// SpecURL is a documentation cross-link. It is accepted but not written
	// into any generated file.
	SpecURL string

	// RepoName is "owner/repo". It is accepted but not written into any
	// generated file.
	RepoName string

	// RequestTimeout is the default per-call timeout baked into the
	// generated client's constructor.
	RequestTimeout time.Duration

	// PatchFile is the path to an optional RFC 6902 JSON-patch document
	// applied to the parsed spec before lowering. Empty means no patch.
	PatchFile string

	// Features holds the "tabled", "clap", "retry" and "js" toggles; only
	// "tabled" changes the emitted output.
	Features FeatureSet
}

// FeatureSet is the set of emitter feature toggles enabled for a run.
// Tabled changes which optional interfaces emitted types implement; Clap,
// Retry and JS are recorded but no emitted file depends on them.
type FeatureSet struct {
	// Tabled gates unconditional emission of tabular header/row
	// projections. Per the open question in spec section 9, later
	// vintages of this generator gate the feature rather than emit it
	// unconditionally; this implementation follows the gated form and
	// defaults Tabled to false.
	Tabled bool

	// Clap is the clap toggle. No argument-parsing glue is generated
	// whether it is set or not.
	Clap bool

	// Retry is the retry toggle. The generated client has no retrying
	// wrapper whether it is set or not.
	Retry bool

	// JS is the wasm/JS toggle. The generated manifest uses reqwest's
	// default TLS stack whether it is set or not.
	JS bool
}

// DefaultRequestTimeout is used when the caller doesn't specify one.
const DefaultRequestTimeout = 15 * time.Second

// Validate checks that the minimum required fields are present. It does
// not touch the filesystem; that happens in the loader and workspace
// writer stages.
func (o *Options) Validate() error {
	if o.SpecPath == "" {
		return errMissing("spec path")
	}
	if o.OutputDir == "" {
		return errMissing("output directory")
	}
	if o.LibraryName == "" {
		return errMissing("library name")
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	return nil
}

type missingFieldError struct{ field string }

func (e *missingFieldError) Error() string { return "missing required option: " + e.field }

func errMissing(field string) error { return &missingFieldError{field: field} }
