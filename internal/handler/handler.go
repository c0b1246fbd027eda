// Package handler implements the root crash handler orchestration
// (spec.md §4.7): it assembles the header, tees output to a crash log,
// runs the dumper sequence, and governs the three-tier recursion
// response keyed on the invocation counter.
//
// The original control flow forks twice — once to sleep off the stack
// without blocking the faulting thread, again so the grandchild can
// dump diagnostics while the parent waits on SIGSTOP/SIGCONT — purely to
// keep the signal-handling thread itself from doing any unsafe work.
// Every dumper this library runs already isolates its own unsafe work
// behind procrun or a context-bounded goroutine (see internal/dump), so
// there is no remaining unsafe work left for a fork to shield here: the
// sequence runs directly on the goroutine that detected the signal,
// which on the Notify path is never the faulting thread itself (Go
// delivers asynchronous signals to a dedicated runtime goroutine) and on
// the SetCrashOutput path is a reader goroutine draining a pipe the
// runtime itself writes, entirely decoupled from the crash. The
// SIGSTOP/SIGCONT handshake is therefore a documented no-op: there is no
// separate process left to wait on.
package handler

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/e2b-dev/infra/packages/libfault/internal/crashlog"
	"github.com/e2b-dev/infra/packages/libfault/internal/dump"
	"github.com/e2b-dev/infra/packages/libfault/internal/faultstate"
	"github.com/e2b-dev/infra/packages/libfault/internal/install"
	"github.com/e2b-dev/infra/packages/libfault/internal/procrun"
	"github.com/e2b-dev/infra/packages/libfault/internal/safefmt"
)

// separator matches dump's section delimiter for the header area.
const separator = "--------------------------------------"

// beepBudget bounds the optional beep-on-abort subprocess.
const beepBudget = 500 * time.Millisecond

// Crash describes one signal delivery, regardless of which of the two
// trigger paths (SetCrashOutput reader or signal.Notify) observed it.
type Crash struct {
	PID       int
	Signo     syscall.Signal
	Reason    safefmt.SigReason
	CrashText []byte // non-nil only on the SetCrashOutput path
	Reraise   bool   // true on the Notify path: default disposition must be restored and the signal re-sent
}

// Handle runs the root handler for one crash, dispatching on
// faultstate.Invocations exactly as spec.md §4.7's table prescribes.
// out is the destination for the handler's own output (normally
// os.Stderr). A dumper that returns an error is reported inline and the
// sequence continues; a panic is not recovered.
func Handle(ctx context.Context, out *os.File, c Crash) {
	switch n := faultstate.Invocations.Enter(); {
	case n == 1:
		normalSequence(ctx, out, c)
	case n == 2:
		singleFaultNotice(out, c)
		reraiseDefault(c)
	default:
		terminalNotice(out, c)
		os.Exit(1)
	}
}

func normalSequence(ctx context.Context, out *os.File, c Crash) {
	faultstate.Pipes.CloseAll()

	cfg := faultstate.Current()

	w, logPath := attachCrashLog(cfg, out)
	defer func() {
		if closer, ok := w.(io.Closer); ok && w != io.Writer(out) {
			_ = closer.Close()
		}
	}()

	writeHeader(w, c)
	writeOptionalLines(w, cfg, logPath)

	if cfg.BeepOnAbort {
		beep(ctx)
	}
	if cfg.StopOnAbort {
		_ = unix.Kill(unix.Getpid(), unix.SIGSTOP)
	}

	fmt.Fprintln(w, separator)
	dump.Sequence(ctx, w, dump.Request{PID: c.PID, CrashText: c.CrashText, Config: cfg, Logger: cfg.Logger})

	if c.Reraise {
		reraiseDefault(c)
	}
}

// attachCrashLog tries to create a crash log and tee output to it,
// returning out unchanged (with an empty path) on any failure — spec.md
// §7's "clear the filename and continue, stderr-only" policy.
func attachCrashLog(cfg *faultstate.Config, out *os.File) (io.Writer, string) {
	path, err := crashlog.CreateLogFile(cfg.LogBasePath, time.Now())
	if err != nil {
		return out, ""
	}

	tw, err := crashlog.Tee(path, out)
	if err != nil {
		return out, ""
	}
	return tw, path
}

func writeHeader(w io.Writer, c Crash) {
	buf := faultstate.HeaderBuf.Buf()
	if buf == nil {
		buf = make([]byte, 0, 256)
	}
	buf = safefmt.AppendText(buf, "[ pid=")
	buf = safefmt.AppendDecimal(buf, uint64(c.PID))
	buf = safefmt.AppendText(buf, ", timestamp=")
	buf = safefmt.AppendDecimal(buf, uint64(time.Now().Unix()))
	buf = safefmt.AppendText(buf, " ] Process aborted! signo=")
	buf = safefmt.AppendSigno(buf, c.Signo)
	buf = safefmt.AppendText(buf, ", reason=")
	buf = safefmt.AppendSigReason(buf, c.Reason)
	buf = safefmt.AppendByte(buf, '\n')
	w.Write(buf) //nolint:errcheck
}

func writeOptionalLines(w io.Writer, cfg *faultstate.Config, logPath string) {
	if cfg.AppName != "" {
		name := cfg.AppName
		if cfg.AppVersion != "" {
			name += " " + cfg.AppVersion
		}
		fmt.Fprintf(w, "application: %s\n", name)
	}
	if cfg.BugreportURL != "" {
		fmt.Fprintf(w, "please report this crash at: %s\n", cfg.BugreportURL)
	}
	if logPath != "" {
		fmt.Fprintf(w, "crash log: %s\n", logPath)
	} else {
		fmt.Fprintln(w, "dumping to stderr only")
	}
}

// beepBinaries mirrors spec.md §6's "platform beep (beep or osascript)".
var beepBinaries = []struct {
	name string
	args []string
}{
	{"beep", nil},
	{"osascript", []string{"-e", "beep"}},
}

func beep(ctx context.Context) {
	for _, b := range beepBinaries {
		if _, err := procrun.Run(ctx, beepBudget, b.name, b.args, nil); err == nil {
			return
		}
	}
}

func singleFaultNotice(w io.Writer, c Crash) {
	buf := make([]byte, 0, 128)
	buf = safefmt.AppendText(buf, "handler itself faulted while dumping diagnostics for signal ")
	buf = safefmt.AppendSigno(buf, c.Signo)
	buf = safefmt.AppendText(buf, ", reason=")
	buf = safefmt.AppendSigReason(buf, c.Reason)
	buf = safefmt.AppendByte(buf, '\n')
	w.Write(buf) //nolint:errcheck
}

func terminalNotice(w io.Writer, c Crash) {
	fmt.Fprintf(w, "handler recursed while processing signal %s; giving up\n", c.Signo)
}

// reraiseDefault restores default disposition for every catchable
// signal and clears the signal mask — install.ResetSignals is
// reset_handlers_and_mask's literal scope, spec.md §4.7's final step —
// then re-sends c.Signo to the calling process, after which kill(2)
// invokes the kernel's default action (terminate, and on most of these
// signals, dump core).
func reraiseDefault(c Crash) {
	_ = install.ResetSignals()
	_ = unix.Kill(unix.Getpid(), c.Signo)
}
