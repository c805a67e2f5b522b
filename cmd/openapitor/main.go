// Command openapitor is the non-core front-end: it turns CLI flags into an
// options.Options record and hands it to the generator core, translating any
// returned error into the documented exit code (spec section 6/7).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittycad/openapitor/internal/diag"
	"github.com/kittycad/openapitor/internal/errs"
	"github.com/kittycad/openapitor/internal/generator"
	"github.com/kittycad/openapitor/internal/options"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts := &options.Options{}
	var timeoutSeconds int
	var verbose bool

	cmd := &cobra.Command{
		Use:           "openapitor",
		Short:         "Generate a typed Rust client library from an OpenAPI v3 document",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.RequestTimeout = time.Duration(timeoutSeconds) * time.Second
			log := diag.New(cmd.ErrOrStderr(), verbose)
			result, err := generator.Run(opts, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d type(s) and %d method(s) into %s\n",
				result.TypeCount, result.MethodCount, result.OutputDir)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.SpecPath, "input", "i", "", "OpenAPI spec file (JSON or YAML)")
	flags.StringVarP(&opts.OutputDir, "output", "o", "", "output directory (files are written into it; it is not cleared first)")
	flags.StringVarP(&opts.LibraryName, "name", "n", "", "library name")
	flags.StringVarP(&opts.Description, "description", "d", "", "human description")
	flags.StringVar(&opts.TargetVersion, "target-version", "0.1.0", "semver stamped into the manifest")
	flags.StringVar(&opts.BaseURL, "base-url", "", "default server used by the generated client")
	flags.StringVar(&opts.SpecURL, "spec-url", "", "documentation cross-link")
	flags.StringVar(&opts.RepoName, "repo-name", "", "owner/repo (not written into the generated files)")
	flags.IntVar(&timeoutSeconds, "request-timeout-seconds", int(options.DefaultRequestTimeout.Seconds()), "default per-call timeout")
	flags.StringVar(&opts.PatchFile, "patch", "", "optional RFC 6902 JSON-patch file applied before lowering")
	flags.BoolVar(&opts.Features.Tabled, "feature-tabled", false, "derive tabled::Tabled on emitted structs")
	flags.BoolVar(&opts.Features.Clap, "feature-clap", false, "clap toggle (no argument-parsing glue is generated)")
	flags.BoolVar(&opts.Features.Retry, "feature-retry", false, "retry toggle (no retrying wrapper is generated)")
	flags.BoolVar(&opts.Features.JS, "feature-js", false, "wasm/JS toggle (the generated manifest does not change)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "print pipeline stage progress to stderr")

	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "openapitor:", err)
		return errs.ExitCode(err)
	}
	return 0
}
