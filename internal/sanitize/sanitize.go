// Package sanitize pipes raw backtrace lines through an external
// name-demangling filter, falling back to a direct write when the
// pipeline cannot be built or the filter exits non-zero. This is the Go
// realization of C5 (spec §4.5): "cat | sh -c exec <sanitizer>" becomes
// an os/exec pipeline with the same fallback ladder.
package sanitize

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Budget is the wall-clock allowance for the whole sanitizer pipeline,
// spec §4.7's 4-second slot for "backtrace with sanitizer".
const Budget = 4 * time.Second

// DefaultCommand is "c++filt -n", the default sanitizer_cmd from spec
// §4.5, kept even though Go symbol names are rarely mangled C++ names:
// it still demangles any cgo/C frames that reach the backtrace, and a
// configured command replaces it outright.
const DefaultCommand = "c++filt -n"

// Config mirrors the sanitizer-relevant slice of ConfigRecord.
type Config struct {
	Command     string // shell command line, e.g. "c++filt -n"
	PassesInfo  bool   // sanitizer_passes_program_info
	ProgramPath string
	PID         int
}

// Run pipes frames through cfg.Command via /bin/sh -c, appending the
// program path and pid as positional arguments when cfg.PassesInfo is
// set, and returns the demangled output. On any pipeline failure it
// falls back to cat (spec §4.5 step 2's own fallback), and if even that
// fails, returns the original frames unchanged along with the error so
// the caller can write them directly (spec §4.5 step 3 / §7's "Sanitizer
// pipeline failed" row).
func Run(ctx context.Context, cfg Config, frames []byte) ([]byte, error) {
	command := cfg.Command
	if command == "" {
		command = DefaultCommand
	}

	out, err := pipeThrough(ctx, shellLine(command, cfg), frames)
	if err == nil {
		return out, nil
	}

	out, catErr := pipeThrough(ctx, "cat", frames)
	if catErr == nil {
		return out, nil
	}

	return frames, fmt.Errorf("sanitize: pipeline and cat fallback both failed: %w", err)
}

// shellLine builds the shell command line spec §4.5 step 2 describes:
// exec <sanitizer> ["<argv0>" <pid>], program info only when configured.
func shellLine(command string, cfg Config) string {
	if !cfg.PassesInfo {
		return command
	}
	return command + " " + strconv.Quote(cfg.ProgramPath) + " " + strconv.Itoa(cfg.PID)
}

func pipeThrough(ctx context.Context, shellCmd string, stdin []byte) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, Budget)
	defer cancel()

	cmd := exec.CommandContext(cctx, "/bin/sh", "-c", "exec "+shellCmd)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.WaitDelay = 200 * time.Millisecond

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("sanitize: %s: %w", shellCmd, err)
	}
	return out, nil
}
