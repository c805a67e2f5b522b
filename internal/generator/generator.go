// Package generator implements the top-level pipeline orchestrator: the
// Loaded -> Patched -> Resolved -> Named -> TypeIR -> OperationIR ->
// Rendered -> Written state machine described in spec section 5.
//
// It is the analog of the teacher's own main-flow glue in generator.go:
// a single function that drives every stage in order and fails the whole
// run on the first error. Nothing is written to disk unless every file
// rendered; a failure during the final write can leave some files written.
package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/kittycad/openapitor/internal/diag"
	"github.com/kittycad/openapitor/internal/emitter/operations"
	"github.com/kittycad/openapitor/internal/emitter/types"
	"github.com/kittycad/openapitor/internal/errs"
	"github.com/kittycad/openapitor/internal/ir"
	"github.com/kittycad/openapitor/internal/loader"
	"github.com/kittycad/openapitor/internal/oplower"
	"github.com/kittycad/openapitor/internal/options"
	"github.com/kittycad/openapitor/internal/patch"
	"github.com/kittycad/openapitor/internal/resolver"
	"github.com/kittycad/openapitor/internal/typelower"
	"github.com/kittycad/openapitor/internal/workspace"
)

// Result summarizes a successful run, for the CLI front-end to report.
type Result struct {
	TypeCount   int
	MethodCount int
	OutputDir   string
}

// Run executes the full pipeline against opts, writing the generated
// crate to opts.OutputDir only if every stage succeeds. log may be nil, in
// which case stage progress is not reported (diag.Logger tolerates a nil
// receiver for exactly this reason).
func Run(opts *options.Options, log *diag.Logger) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Stage A: Loaded.
	log.Stagef("loading spec from %s", opts.SpecPath)
	doc, err := loader.Load(opts.SpecPath, opts.BaseURL)
	if err != nil {
		return nil, err
	}

	// Stage B: Patched.
	if opts.PatchFile != "" {
		log.Stagef("applying patch file %s", opts.PatchFile)
		rawSpec, readErr := rereadForPatch(opts.SpecPath)
		if readErr != nil {
			return nil, errs.Wrap(errs.KindIO, errs.StagePatch, "", readErr)
		}
		patched, patchErr := patch.Apply(rawSpec, opts.PatchFile)
		if patchErr != nil {
			return nil, patchErr
		}
		doc, err = loader.Reparse(patched, opts.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	doc.Flatten()

	// Stage C: Resolved (the resolver is consulted lazily by stages E/F;
	// there is no separate eager resolve pass).
	res := resolver.New(&doc.Components)

	// Stages D/E: Named, TypeIR.
	log.Stagef("lowering %d component schema(s)", len(doc.Components.Schemas))
	typeBuilder := typelower.NewBuilder(&doc.Components, res)
	table, err := typeBuilder.LowerComponents()
	if err != nil {
		return nil, err
	}

	// Stage F: OperationIR.
	log.Stagef("lowering operations")
	opBuilder := oplower.NewBuilder(doc, typeBuilder, res)
	methods, err := opBuilder.LowerAll()
	if err != nil {
		return nil, err
	}

	// Stage G/H: Rendered.
	log.Stagef("rendering %d type(s) and %d method(s)", table.Len(), len(methods))
	ws := workspace.New()

	rendered, err := types.Render(table, opts.Features.Tabled)
	if err != nil {
		return nil, err
	}
	rendered = types.ResolveRefPlaceholders(rendered, table)
	if err := ws.WriteFile("src/types.rs", rendered); err != nil {
		return nil, err
	}

	byTag := groupByTag(methods)
	tagNames := make([]string, 0, len(byTag))
	for tag := range byTag {
		tagNames = append(tagNames, tag)
	}
	sort.Strings(tagNames)

	var modDecls []string
	for _, tag := range tagNames {
		src, renderErr := operations.Tag(tag, byTag[tag], table)
		if renderErr != nil {
			return nil, renderErr
		}
		src = types.ResolveRefPlaceholders(src, table)
		fileName := "src/" + tag + ".rs"
		if err := ws.WriteFile(fileName, src); err != nil {
			return nil, err
		}
		modDecls = append(modDecls, tag)
	}

	if err := ws.WriteFile("src/lib.rs", renderLib(opts, modDecls)); err != nil {
		return nil, err
	}
	if err := ws.EnvModule("KITTYCAD"); err != nil {
		return nil, err
	}
	if err := ws.Manifest(opts); err != nil {
		return nil, err
	}
	if err := ws.Readme(opts); err != nil {
		return nil, err
	}
	if err := ws.VersionFile(opts); err != nil {
		return nil, err
	}

	// Stage I: Written.
	log.Stagef("writing crate to %s", opts.OutputDir)
	if err := ws.Flush(opts.OutputDir, afero.NewOsFs()); err != nil {
		return nil, err
	}

	return &Result{
		TypeCount:   table.Len(),
		MethodCount: len(methods),
		OutputDir:   opts.OutputDir,
	}, nil
}

func groupByTag(methods []ir.Method) map[string][]ir.Method {
	out := make(map[string][]ir.Method)
	for _, m := range methods {
		out[m.Tag] = append(out[m.Tag], m)
	}
	return out
}

func rereadForPatch(specPath string) ([]byte, error) {
	return loader.ReadRaw(specPath)
}

func renderLib(opts *options.Options, tags []string) string {
	out := "// Generated by openapitor. Do not edit by hand.\n\n"
	out += "pub mod types;\npub mod auth;\npub mod error;\n"
	for _, t := range tags {
		out += "pub mod " + t + ";\n"
	}
	out += "\npub struct Client {\n    pub(crate) http: reqwest::Client,\n    pub(crate) base_url: url::Url,\n    token: String,\n}\n\n"
	out += "impl Client {\n"
	out += "    pub fn new(base_url: impl AsRef<str>, token: impl Into<String>) -> anyhow::Result<Self> {\n"
	out += fmt.Sprintf("        let http = reqwest::Client::builder()\n            .timeout(std::time::Duration::from_secs(%d))\n            .build()?;\n", int(opts.RequestTimeout.Seconds()))
	out += "        Ok(Self {\n            http,\n            base_url: url::Url::parse(base_url.as_ref())?,\n            token: token.into(),\n        })\n    }\n\n"
	out += "    pub fn from_env(base_url: impl AsRef<str>) -> anyhow::Result<Self> {\n        Self::new(base_url, crate::auth::token_from_env()?)\n    }\n\n"
	out += "    pub(crate) fn authenticate(&self, req: reqwest::RequestBuilder) -> reqwest::RequestBuilder {\n        req.bearer_auth(&self.token)\n    }\n"
	for _, t := range tags {
		out += "\n    pub fn " + t + "(&self) -> " + toPascalPublic(t) + "<'_> {\n        " + toPascalPublic(t) + "::new(self)\n    }\n"
	}
	out += "}\n"
	return out
}

func toPascalPublic(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	if b.Len() == 0 {
		return "Default"
	}
	return b.String()
}
