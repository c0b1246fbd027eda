package libfault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvDefaults(t *testing.T) { //nolint:paralleltest // shares process env with sibling tests
	cfg, err := parseEnv()
	require.NoError(t, err)

	assert.Equal(t, "yes", cfg.AbortHandler)
	assert.Equal(t, "no", cfg.BeepOnAbort)
	assert.Equal(t, "no", cfg.StopOnAbort)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("LIBFAULT_BEEP_ON_ABORT", "Y")
	t.Setenv("LIBFAULT_STOP_ON_ABORT", "On")

	cfg, err := parseEnv()
	require.NoError(t, err)

	assert.True(t, isTruthy(cfg.BeepOnAbort))
	assert.True(t, isTruthy(cfg.StopOnAbort))
}

func TestIsTruthy(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"yes", "YES", "y", "on", "true", " true "} {
		assert.True(t, isTruthy(v), "expected %q to be truthy", v)
	}
	for _, v := range []string{"no", "off", "false", "", "1"} {
		assert.False(t, isTruthy(v), "expected %q to be falsy", v)
	}
}
