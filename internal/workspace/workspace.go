// Package workspace implements stage I: staging the generated Rust crate
// in memory and flushing it to disk only once every file has rendered
// successfully. The flush itself writes file by file and is not atomic
// (see Flush).
//
// Staging is done with github.com/spf13/afero's in-memory filesystem,
// adapted from the teacher's own habit of building a response payload
// completely before writing anything to the wire: here the "wire" is the
// output directory instead of an http.ResponseWriter.
package workspace

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/afero"

	"github.com/kittycad/openapitor/internal/errs"
	"github.com/kittycad/openapitor/internal/options"
)

// Workspace stages an in-memory tree of a generated crate.
type Workspace struct {
	mem afero.Fs
}

// New returns an empty staged workspace.
func New() *Workspace {
	return &Workspace{mem: afero.NewMemMapFs()}
}

// WriteFile stages the given contents at a path relative to the crate
// root (e.g. "src/types.rs").
func (w *Workspace) WriteFile(relPath string, contents string) error {
	if err := afero.WriteFile(w.mem, relPath, []byte(contents), 0o644); err != nil {
		return errs.Wrap(errs.KindIO, errs.StageWrite, "", err)
	}
	return nil
}

// Manifest stages Cargo.toml for opts.
func (w *Workspace) Manifest(opts *options.Options) error {
	manifest := fmt.Sprintf(`[package]
name = %q
version = %q
description = %q
edition = "2021"

[dependencies]
reqwest = { version = "0.12", features = ["json", "multipart"] }
serde = { version = "1", features = ["derive"] }
serde_json = "1"
anyhow = "1"
thiserror = "1"
tokio = { version = "1", features = ["full"] }
tokio-tungstenite = "0.23"
async-stream = "0.3"
futures = "0.3"
uuid = { version = "1", features = ["serde", "v4"] }
chrono = { version = "0.4", features = ["serde"] }
url = { version = "2", features = ["serde"] }
bytes = "1"
percent-encoding = "2"
rust_decimal = { version = "1", features = ["serde"] }
ipnetwork = { version = "0.20", features = ["serde"] }
phonenumber = "0.3"

[features]
tabled = ["dep:tabled"]
clap = ["dep:clap"]

[dependencies.tabled]
version = "0.15"
optional = true

[dependencies.clap]
version = "4"
features = ["derive"]
optional = true
`, opts.LibraryName, opts.TargetVersion, opts.Description)

	return w.WriteFile("Cargo.toml", manifest)
}

// Readme stages a top-level README.md naming the spec source and library.
func (w *Workspace) Readme(opts *options.Options) error {
	readme := fmt.Sprintf("# %s\n\n%s\n\nGenerated from %s.\n", opts.LibraryName, opts.Description, opts.SpecPath)
	return w.WriteFile("README.md", readme)
}

// VersionFile stages VERSION.txt, the marker the teacher's own fixture
// bundle uses to pin a generated artifact to the spec revision it came
// from.
func (w *Workspace) VersionFile(opts *options.Options) error {
	return w.WriteFile("VERSION.txt", opts.TargetVersion+"\n")
}

// EnvModule stages src/auth.rs: bearer token resolution from
// <repoName>_API_TOKEN, falling back to ZOO_API_TOKEN. The generator passes
// "KITTYCAD", so the generated crate reads KITTYCAD_API_TOKEN first.
func (w *Workspace) EnvModule(repoName string) error {
	src := fmt.Sprintf(`// Generated by openapitor. Do not edit by hand.

/// Reads the bearer token from %s_API_TOKEN, falling back to ZOO_API_TOKEN.
pub fn token_from_env() -> anyhow::Result<String> {
    if let Ok(v) = std::env::var("%s_API_TOKEN") {
        return Ok(v);
    }
    if let Ok(v) = std::env::var("ZOO_API_TOKEN") {
        return Ok(v);
    }
    anyhow::bail!("neither {0}_API_TOKEN nor ZOO_API_TOKEN is set", %q)
}
`, repoName, repoName, repoName)
	return w.WriteFile("src/auth.rs", src)
}

// Flush copies every staged file into the real filesystem rooted at
// outputDir, one file at a time, and returns an error on the first file
// that can't be written. Files written before that failure stay in place;
// outputDir is not cleared first, so files already there that this run
// does not produce are left as they were.
func (w *Workspace) Flush(outputDir string, real afero.Fs) error {
	paths, err := w.listFiles()
	if err != nil {
		return errs.Wrap(errs.KindIO, errs.StageWrite, "", err)
	}
	sort.Strings(paths)

	staged := make(map[string][]byte, len(paths))
	for _, p := range paths {
		contents, readErr := afero.ReadFile(w.mem, p)
		if readErr != nil {
			return errs.Wrap(errs.KindIO, errs.StageWrite, "", readErr)
		}
		staged[p] = contents
	}

	for _, p := range paths {
		full := outputDir + "/" + p
		if err := real.MkdirAll(parentDir(full), 0o755); err != nil {
			return errs.Wrap(errs.KindIO, errs.StageWrite, "", err)
		}
		if err := afero.WriteFile(real, full, staged[p], 0o644); err != nil {
			return errs.Wrap(errs.KindIO, errs.StageWrite, "", err)
		}
	}
	return nil
}

// listFiles walks the staged in-memory tree and returns every regular
// file's path, relative to the tree root.
func (w *Workspace) listFiles() ([]string, error) {
	var paths []string
	err := afero.Walk(w.mem, ".", func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
