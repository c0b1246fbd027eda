package dump

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreambleReportsDateAndLimits(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Preamble(t.Context(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "date:")
	assert.Contains(t, out, "ulimit open files:")
	assert.Contains(t, out, "ulimit address space:")
}
