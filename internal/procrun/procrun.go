// Package procrun runs a bounded subprocess and guarantees it is reaped
// or killed within a wall-clock deadline. This is the Go realization of
// the C core's "safe fork" and run_subprocess: Go's os/exec already forks
// via a raw clone/fork syscall that never touches the Go allocator's
// locks (see SPEC_FULL.md §4.3), so there is no separate "bypass the libc
// fork wrapper" step to write here — the substitution is recorded once,
// in DESIGN.md, rather than re-justified at every call site.
package procrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// ErrTimeout is returned when the subprocess did not finish within its
// budget and had to be killed.
var ErrTimeout = errors.New("procrun: subprocess exceeded its time budget")

// Result is what a bounded subprocess produced.
type Result struct {
	Stdout   []byte
	ExitCode int
	Timeout  bool
}

// Run execs name with args, waits up to budget, and SIGKILLs plus reaps
// the child if the budget expires. stdin, if non-nil, is copied to the
// child's standard input. This mirrors spec §4.3 steps 1-4 one to one:
// pipe (stdout capture), fork+exec (exec.Cmd.Start), bounded wait
// (context deadline), SIGKILL-and-reap on timeout.
func Run(ctx context.Context, budget time.Duration, name string, args []string, stdin []byte) (Result, error) {
	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	cmd.WaitDelay = 200 * time.Millisecond
	if stdin != nil {
		cmd.Stdin = bytesReader(stdin)
	}

	out, runErr := cmd.Output()

	res := Result{Stdout: out}

	if cctx.Err() == context.DeadlineExceeded {
		// Belt-and-suspenders: exec.CommandContext already kills the
		// process (SIGKILL by default) as soon as the context is done,
		// but step 3 of spec §4.3 is explicit that the parent itself
		// sends SIGKILL on timeout, so make that visible here too.
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGKILL)
		}
		res.Timeout = true
		return res, ErrTimeout
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("procrun: exec %s: %w", name, runErr)
	}

	return res, nil
}

func bytesReader(b []byte) *os.File {
	r, w, err := os.Pipe()
	if err != nil {
		return nil
	}
	go func() {
		defer w.Close()
		_, _ = w.Write(b)
	}()
	return r
}
