package dump

import (
	"bytes"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryMapProducesOutputForSelf(t *testing.T) {
	t.Parallel()
	if runtime.GOOS != "linux" {
		t.Skip("memory map only implemented for linux")
	}

	var buf bytes.Buffer
	err := MemoryMap(t.Context(), &buf, os.Getpid())
	assert.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}
