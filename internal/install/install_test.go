package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetSignalsSucceeds(t *testing.T) {
	err := ResetSignals()
	require.NoError(t, err)
}

func TestCatchableListsFiveSignals(t *testing.T) {
	t.Parallel()
	assert.Len(t, Catchable, 5)
}
