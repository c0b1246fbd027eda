package handler

import (
	"bytes"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/e2b-dev/infra/packages/libfault/internal/faultstate"
	"github.com/e2b-dev/infra/packages/libfault/internal/safefmt"
)

// TestNormalSequenceProducesS2AssertionScenarioLiteralWording exercises
// spec.md §8 scenario S2 through the real dumper sequence: a populated
// AssertRecord must surface with S2's exact wording, not through a
// hand-inlined copy in the header. Calls normalSequence directly rather
// than Handle, since Handle drives faultstate.Invocations — the
// process-wide recursion counter — and a second real invocation in this
// test binary would take the n==2 (single-fault notice + re-raise)
// branch instead of the one under test, which would raise a real
// SIGABRT against the test process itself.
func TestNormalSequenceProducesS2AssertionScenarioLiteralWording(t *testing.T) {
	faultstate.RecordAssert(faultstate.AssertRecord{
		Expression: "x == 1",
		Filename:   "t.c",
		Line:       42,
	})
	faultstate.SetConfig(&faultstate.Config{LogBasePath: "/nonexistent/dir/should-fail."})

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close() //nolint:errcheck

	done := make(chan struct{})
	var captured bytes.Buffer
	go func() {
		_, _ = captured.ReadFrom(r)
		close(done)
	}()

	normalSequence(t.Context(), w, Crash{
		PID:   os.Getpid(),
		Signo: syscall.SIGABRT,
		Reason: safefmt.SigReason{
			Signo: syscall.SIGABRT,
			Code:  0,
		},
	})
	w.Close() //nolint:errcheck
	<-done

	out := captured.String()
	assert.Contains(t, out, "Last assertion failure: (x == 1), file t.c, line 42.")
	assert.Equal(t, 1, strings.Count(out, "Last assertion failure"))
}

func TestWriteHeaderMatchesSigsegvScenario(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := Crash{
		PID:   4242,
		Signo: syscall.SIGSEGV,
		Reason: safefmt.SigReason{
			Signo: syscall.SIGSEGV,
			Code:  1, // SEGV_MAPERR
			Addr:  0,
		},
	}
	writeHeader(&buf, c)

	out := buf.String()
	assert.Contains(t, out, "] Process aborted! signo=SIGSEGV(11), reason=SEGV_MAPERR, si_addr=0x0000000000000000")
	// The assertion record is internal/dump's job (spec.md §4.7's
	// "assertion record" sequence step), not the header's.
	assert.NotContains(t, out, "Last assertion failure")
}

func TestWriteOptionalLinesFallsBackToStderrOnlyNotice(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeOptionalLines(&buf, &faultstate.Config{}, "")
	assert.Contains(t, buf.String(), "dumping to stderr only")
}

func TestWriteOptionalLinesReportsLogPathAndAppInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := &faultstate.Config{AppName: "widgetd", AppVersion: "1.2.3", BugreportURL: "https://example.com/issues"}
	writeOptionalLines(&buf, cfg, "/tmp/exe-crash.libfault.123-abcd1234")

	out := buf.String()
	assert.Contains(t, out, "application: widgetd 1.2.3")
	assert.Contains(t, out, "please report this crash at: https://example.com/issues")
	assert.Contains(t, out, "crash log: /tmp/exe-crash.libfault.123-abcd1234")
}

func TestHandleNormalSequenceProducesFullReport(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close() //nolint:errcheck

	faultstate.SetConfig(&faultstate.Config{LogBasePath: "/nonexistent/dir/should-fail."})

	done := make(chan struct{})
	var captured bytes.Buffer
	go func() {
		_, _ = captured.ReadFrom(r)
		close(done)
	}()

	Handle(t.Context(), w, Crash{
		PID:   os.Getpid(),
		Signo: syscall.SIGABRT,
		Reason: safefmt.SigReason{
			Signo: syscall.SIGABRT,
			Code:  0,
		},
	})
	w.Close() //nolint:errcheck
	<-done

	out := captured.String()
	assert.Contains(t, out, "Process aborted!")
	assert.Contains(t, out, "dumping to stderr only")
	assert.Contains(t, out, "custom diagnostics: none registered")
	assert.True(t, strings.Contains(out, separator))
}
