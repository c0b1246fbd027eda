package fdtable

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighestFindsOpenDescriptors(t *testing.T) {
	t.Parallel()

	extra, err := os.CreateTemp(t.TempDir(), "fdtable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = extra.Close() })

	top := Highest(t.Context(), os.Getpid())
	assert.GreaterOrEqual(t, top, int(extra.Fd()))
}

func TestFallbackLimitIsClamped(t *testing.T) {
	t.Parallel()

	n := fallbackLimit()
	assert.GreaterOrEqual(t, n, minFallback)
	assert.LessOrEqual(t, n, maxFallback)
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, minFallback, clamp(0))
	assert.Equal(t, maxFallback, clamp(1_000_000))
	assert.Equal(t, 100, clamp(100))
}

// TestCloseFromClosesOnlyAboveWatermark is not t.Parallel(), so no
// parallel test of this package is running while CloseFrom closes every
// descriptor above the watermark in the test binary's own process. The
// watermark lies above stdio, which is left open.
func TestCloseFromClosesOnlyAboveWatermark(t *testing.T) {
	below, err := os.CreateTemp(t.TempDir(), "below")
	require.NoError(t, err)
	defer below.Close() //nolint:errcheck

	watermark := int(below.Fd())

	above, err := os.CreateTemp(t.TempDir(), "above")
	require.NoError(t, err)
	require.Greater(t, int(above.Fd()), watermark)

	CloseFrom(t.Context(), watermark)

	// The descriptor above the watermark should now be closed: writing
	// to it must fail.
	_, writeErr := above.Write([]byte("x"))
	assert.Error(t, writeErr)

	// A second call must not panic or error (idempotent close).
	CloseFrom(t.Context(), watermark)

	// The descriptor at/below the watermark must be untouched.
	_, writeErr = below.Write([]byte("x"))
	assert.NoError(t, writeErr)
}
