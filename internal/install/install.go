// Package install resets signal disposition and the process signal mask
// back to default. Its one caller is internal/handler, which runs it in
// this process just before re-raising the original signal, so that the
// signal takes the kernel's default action rather than re-entering this
// library's own handler. Helper subprocesses are exec'd binaries that
// start with default dispositions and do not call it.
package install

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// Catchable lists every signal this library ever installs a disposition
// for. ResetSignals only needs to touch these; everything else is
// already at its default in a freshly forked child.
var Catchable = []os.Signal{
	unix.SIGABRT,
	unix.SIGSEGV,
	unix.SIGBUS,
	unix.SIGFPE,
	unix.SIGILL,
}

// ResetSignals undoes this process's own Notify registration for every
// signal it catches and clears the calling thread's signal mask. There
// is no Go-level sigaction equivalent reachable without cgo, so
// signal.Reset — which tells the runtime to restore a signal's
// pre-Notify behavior — stands in for "reset handler to SIG_DFL"; it is
// the documented substitution referenced in the design notes.
func ResetSignals() error {
	signal.Reset(Catchable...)
	return clearMask()
}

// clearMask empties the calling OS thread's signal mask, retrying on
// EINTR. Safe to call from a freshly forked child before any exec,
// matching spec.md's reset_handlers_and_mask.
func clearMask() error {
	var empty unix.Sigset_t
	for {
		err := unix.PthreadSigmask(unix.SIG_SETMASK, &empty, nil)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
