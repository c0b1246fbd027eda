package procrun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	t.Parallel()

	res, err := Run(t.Context(), time.Second, "echo", []string{"-n", "hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(res.Stdout))
	assert.False(t, res.Timeout)
}

// TestRunTimeoutKillsChild is Testable Property #6: a subprocess that
// sleeps longer than its budget is killed within that budget, not waited
// out to completion.
func TestRunTimeoutKillsChild(t *testing.T) {
	t.Parallel()

	start := time.Now()
	_, err := Run(t.Context(), 50*time.Millisecond, "sleep", []string{"10"}, nil)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, 2*time.Second, "subprocess should have been killed near its budget, not run to completion")
}

func TestRunNonZeroExit(t *testing.T) {
	t.Parallel()

	res, err := Run(t.Context(), time.Second, "sh", []string{"-c", "exit 3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunMissingBinary(t *testing.T) {
	t.Parallel()

	_, err := Run(t.Context(), time.Second, "libfault-definitely-not-a-real-binary", nil, nil)
	require.Error(t, err)
}

func TestRunWithStdin(t *testing.T) {
	t.Parallel()

	res, err := Run(t.Context(), time.Second, "cat", nil, []byte("piped in"))
	require.NoError(t, err)
	assert.Equal(t, "piped in", string(res.Stdout))
}

func TestRunRespectsParentCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := Run(ctx, time.Second, "sleep", []string{"1"}, nil)
	require.Error(t, err)
}
