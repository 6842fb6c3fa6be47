package app

import (
	"os"
	"testing"

	"github.com/specialistvlad/recipegrid/internal/registry"
	"github.com/specialistvlad/recipegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// SetupAppTest creates a new app instance for system testing. It returns the
// app along with buffers capturing report output and logs.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Registrant) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	outBuffer := &testutil.SafeBuffer{}
	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	validated, err := NewConfig(*cfg)
	require.NoError(t, err)

	testApp, err := NewApp(outBuffer, logBuffer, validated, modules...)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("RECIPEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, outBuffer, logBuffer
}
