package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFallsBackToCatWhenSanitizerMissing(t *testing.T) {
	t.Parallel()

	cfg := Config{Command: "libfault-definitely-not-a-real-binary"}
	out, err := Run(t.Context(), cfg, []byte("frame 0: main\n"))
	require.NoError(t, err)
	assert.Equal(t, "frame 0: main\n", string(out))
}

func TestRunUsesConfiguredCommand(t *testing.T) {
	t.Parallel()

	cfg := Config{Command: "sed 's/frame/FRAME/'"}
	out, err := Run(t.Context(), cfg, []byte("frame 0: main\n"))
	require.NoError(t, err)
	assert.Equal(t, "FRAME 0: main\n", string(out))
}

func TestRunPassesProgramInfo(t *testing.T) {
	t.Parallel()

	cfg := Config{Command: "cat -", PassesInfo: true, ProgramPath: "/bin/app", PID: 42}
	got := shellLine(cfg.Command, cfg)
	assert.Equal(t, `cat - "/bin/app" 42`, got)
}

func TestShellLineOmitsInfoWhenNotConfigured(t *testing.T) {
	t.Parallel()

	cfg := Config{Command: "c++filt -n"}
	got := shellLine(cfg.Command, cfg)
	assert.Equal(t, "c++filt -n", got)
}
