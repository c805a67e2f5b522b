package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStagefWritesWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true)

	log.Stagef("loading spec from %s", "spec.yaml")

	require.Equal(t, "openapitor: loading spec from spec.yaml\n", buf.String())
}

func TestStagefSilentWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	log.Stagef("loading spec from %s", "spec.yaml")

	require.Empty(t, buf.String())
}

func TestStagefToleratesNilReceiver(t *testing.T) {
	var log *Logger
	require.NotPanics(t, func() {
		log.Stagef("this must not panic")
	})
}
