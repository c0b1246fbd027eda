package dump

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/e2b-dev/infra/packages/libfault/internal/sanitize"
)

// maxFrames matches spec.md §4.4's "up to 512 frames" ceiling.
const maxFrames = 512

// Backtrace reports the faulting goroutine's stack. On the
// SetCrashOutput path, crashText already carries the Go runtime's own
// goroutine dump (the same text parseRegisters scans for register
// lines), and extractCrashingGoroutine pulls the crashing goroutine's
// stanza straight out of it — a genuine crash backtrace, not a
// reconstruction.
//
// On the signal.Notify path there is no such text: an asynchronously
// delivered signal gives the runtime no reason to capture any
// goroutine's stack, and the goroutine running this dumper is never the
// one that faulted (see the package doc comment on internal/handler for
// why). In that case this falls back to the handler's own call stack
// and says so explicitly in the report, rather than silently passing it
// off as the crash site.
func Backtrace(ctx context.Context, w io.Writer, cfg sanitize.Config, crashText []byte) error {
	raw, ok := extractCrashingGoroutine(crashText)
	if !ok {
		fmt.Fprintln(w, "backtrace: signal delivered asynchronously; no runtime-captured stack for the faulting goroutine is available, showing the handler's own call stack instead")
		raw = handlerCallStack()
		if raw == nil {
			fmt.Fprintln(w, "backtrace unavailable")
			return nil
		}
	}

	out, err := sanitize.Run(ctx, cfg, raw)
	if err != nil {
		// sanitize.Run already fell back to cat internally; this error
		// means even that failed, so fall back one level further here
		// and write the raw frames, matching spec.md §4.5 step 3.
		fmt.Fprintf(w, "sanitizer pipeline failed: %v\n", err)
	}
	_, writeErr := w.Write(out)
	return writeErr
}

// handlerCallStack collects up to 512 frames with runtime.Callers, the
// allocation-aware variant — safe here because this only ever runs past
// the point every dumper isolates unsafe work behind procrun or a
// context-bounded goroutine — formatted as "#N function (file:line)"
// lines.
func handlerCallStack() []byte {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(0, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	var buf bytes.Buffer
	for i := 0; ; i++ {
		frame, more := frames.Next()
		fmt.Fprintf(&buf, "#%d %s (%s:%d)\n", i, frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return buf.Bytes()
}
