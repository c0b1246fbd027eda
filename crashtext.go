package libfault

import (
	"os"
	"regexp"
	"runtime"
	"strconv"
	"syscall"

	"github.com/e2b-dev/infra/packages/libfault/internal/handler"
	"github.com/e2b-dev/infra/packages/libfault/internal/safefmt"
)

// runtimeSignalLine matches the bracketed signal summary the Go runtime
// writes at the top of its fatal crash output, e.g.
// "[signal SIGSEGV: segmentation violation code=0x1 addr=0x0 pc=0x451fa0]".
var runtimeSignalLine = regexp.MustCompile(
	`\[signal (SIG\w+): [^\]]*?code=0x([0-9a-f]+) addr=0x([0-9a-f]+)`)

var signalsByName = map[string]syscall.Signal{
	"SIGABRT": syscall.SIGABRT,
	"SIGSEGV": syscall.SIGSEGV,
	"SIGBUS":  syscall.SIGBUS,
	"SIGFPE":  syscall.SIGFPE,
	"SIGILL":  syscall.SIGILL,
}

// parseRuntimeCrashText extracts the signal number and reason from the
// runtime's own crash report. ok is false when the crash text has no
// recognizable signal line, which happens for fatal errors that are not
// one of the five signals this library handles (e.g. "fatal error: out
// of memory") — those are not in scope (spec.md §1 Non-goals).
func parseRuntimeCrashText(text []byte) (syscall.Signal, safefmt.SigReason, bool) {
	m := runtimeSignalLine.FindSubmatch(text)
	if m == nil {
		return 0, safefmt.SigReason{}, false
	}

	signo, known := signalsByName[string(m[1])]
	if !known {
		return 0, safefmt.SigReason{}, false
	}

	code, _ := strconv.ParseInt(string(m[2]), 16, 64)
	addr, _ := strconv.ParseUint(string(m[3]), 16, 64)

	reason := safefmt.SigReason{
		Signo: signo,
		Code:  int32(code),
		Addr:  uintptr(addr),
	}
	return signo, reason, true
}

// synthesizedReason builds the reason for a signal delivered via
// os/signal.Notify: pure Go has no siginfo_t access for signals
// delivered this way (the runtime dispatches them to a dedicated
// goroutine as a bare os.Signal value, with no kernel siginfo_t
// attached), so si_code is reported as SI_USER (0) and SenderKnown is
// left false — safefmt.AppendSigReason reports the sender as unknown
// rather than fabricating PID/UID zeros. See DESIGN.md's Open Question
// resolution for why no cgo-free substitute exists for the real sender
// credentials spec.md §8 scenario S3 calls for.
func synthesizedReason(signo syscall.Signal) safefmt.SigReason {
	return safefmt.SigReason{Signo: signo, Code: 0}
}

func handlerCrash(signo syscall.Signal, reason safefmt.SigReason, crashText []byte, reraise bool) handler.Crash {
	return handler.Crash{
		PID:       os.Getpid(),
		Signo:     signo,
		Reason:    reason,
		CrashText: crashText,
		Reraise:   reraise,
	}
}

func callerLocation() (string, int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "", 0
	}
	return file, line
}
