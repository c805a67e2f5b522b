package workspace

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kittycad/openapitor/internal/options"
)

func optsFixture() *options.Options {
	return &options.Options{
		LibraryName:   "widgets",
		Description:   "a widget client",
		TargetVersion: "0.1.0",
		SpecPath:      "widgets.yaml",
	}
}

func TestWriteFileThenFlushRoundTrips(t *testing.T) {
	ws := New()
	require.NoError(t, ws.WriteFile("src/types.rs", "pub struct Widget;\n"))

	real := afero.NewMemMapFs()
	require.NoError(t, ws.Flush("/out", real))

	contents, err := afero.ReadFile(real, "/out/src/types.rs")
	require.NoError(t, err)
	require.Equal(t, "pub struct Widget;\n", string(contents))
}

func TestManifestStagesCargoTomlWithLibraryName(t *testing.T) {
	ws := New()
	require.NoError(t, ws.Manifest(optsFixture()))

	real := afero.NewMemMapFs()
	require.NoError(t, ws.Flush("/out", real))

	contents, err := afero.ReadFile(real, "/out/Cargo.toml")
	require.NoError(t, err)
	require.Contains(t, string(contents), `name = "widgets"`)
	require.Contains(t, string(contents), `version = "0.1.0"`)
}

func TestReadmeNamesSpecSource(t *testing.T) {
	ws := New()
	require.NoError(t, ws.Readme(optsFixture()))

	real := afero.NewMemMapFs()
	require.NoError(t, ws.Flush("/out", real))

	contents, err := afero.ReadFile(real, "/out/README.md")
	require.NoError(t, err)
	require.Contains(t, string(contents), "widgets.yaml")
}

func TestEnvModuleUsesRepoPrefixedTokenVar(t *testing.T) {
	ws := New()
	require.NoError(t, ws.EnvModule("KITTYCAD"))

	real := afero.NewMemMapFs()
	require.NoError(t, ws.Flush("/out", real))

	contents, err := afero.ReadFile(real, "/out/src/auth.rs")
	require.NoError(t, err)
	require.Contains(t, string(contents), "KITTYCAD_API_TOKEN")
	require.Contains(t, string(contents), "ZOO_API_TOKEN")
}

func TestFlushWritesMultipleFilesUnderOutputDir(t *testing.T) {
	ws := New()
	require.NoError(t, ws.WriteFile("src/types.rs", "a"))
	require.NoError(t, ws.WriteFile("src/ops/widgets.rs", "b"))

	real := afero.NewMemMapFs()
	require.NoError(t, ws.Flush("/out", real))

	exists, err := afero.Exists(real, "/out/src/ops/widgets.rs")
	require.NoError(t, err)
	require.True(t, exists)
}
