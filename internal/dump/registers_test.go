package dump

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistersPrintsUnsupportedWithoutCrashText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Registers(&buf, nil)
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "not supported")
}

func TestRegistersFormatsRuntimeCrashBlock(t *testing.T) {
	t.Parallel()

	crashText := []byte("fatal error: ...\n\nrax    0x0\nrsp    0x7ffeefbff3a0\nrip    0x10000f3a4\n")

	var buf bytes.Buffer
	err := Registers(&buf, crashText)
	assert.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "rax = 0000000000000000")
	assert.Contains(t, out, "rsp = 00007ffeefbff3a0")
	assert.Contains(t, out, "rip = 000000010000f3a4")
}
