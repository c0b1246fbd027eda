// Package dump implements the seven crash-time diagnostic dumpers plus
// the environment preamble, sequenced exactly as spec.md §4.7 orders
// them: environment preamble, assertion record, registers, stack,
// backtrace with sanitizer, custom diagnostics, memory map, FD listing.
// Every dumper writes directly to the shared report writer and reports
// its own failures as a line of text rather than aborting the sequence,
// matching the "emit an error line and continue" policy spec.md states
// for FD listing and generalized to every dumper here.
package dump

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/e2b-dev/infra/packages/libfault/internal/faultstate"
	"github.com/e2b-dev/infra/packages/libfault/internal/sanitize"
)

// separator is the "-"*38 section delimiter spec.md §4.7 specifies.
const separator = "--------------------------------------"

// Budgets per dumper, spec §4.4/§4.7.
const (
	RegisterBudget = 2 * time.Second
	StackBudget    = 2 * time.Second
	CustomBudget   = 2 * time.Second
	FDListBudget   = 4 * time.Second
)

// Request bundles everything Sequence needs that the handler already
// knows: the faulting process's pid, the raw crash text the Go runtime
// wrote (empty when the trigger was an asynchronously delivered signal
// rather than a runtime-detected fault), and the active configuration.
type Request struct {
	PID       int
	CrashText []byte
	Config    *faultstate.Config

	// Logger receives one Warn entry per dumper failure, in addition to
	// the plain-text error line every dumper also writes to the report
	// itself. Every dumper here already runs past the first subprocess
	// fork (via procrun or promise), so logging through zap here carries
	// none of the async-signal-safety risk spec.md §5 reserves for the
	// handler's own pre-fork code. Nil is fine; Sequence just skips it.
	Logger *zap.Logger
}

// Sequence runs every dumper in spec order, writing section separators
// between them, and never returns early: a dumper failure is recorded
// inline and the sequence continues, so that one broken dumper never
// hides the others' output (Testable Property — see S6 in spec.md §8).
func Sequence(ctx context.Context, w io.Writer, req Request) {
	steps := []struct {
		name string
		run  func(context.Context, io.Writer, Request) error
	}{
		{"environment", runPreamble},
		{"assertion record", runAssertion},
		{"registers", runRegisters},
		{"stack", runStack},
		{"backtrace", runBacktrace},
		{"custom diagnostics", runCustomDiagnostics},
		{"memory map", runMemoryMap},
		{"file descriptors", runFDListing},
	}

	for i, step := range steps {
		if i > 0 {
			fmt.Fprintln(w, separator)
		}
		if err := step.run(ctx, w, req); err != nil {
			fmt.Fprintf(w, "%s: error: %v\n", step.name, err)
			if req.Logger != nil {
				req.Logger.Warn("dumper failed", zap.String("dumper", step.name), zap.Error(err))
			}
		}
	}
}

func runAssertion(_ context.Context, w io.Writer, _ Request) error {
	Assertion(w, faultstate.LastAssert())
	return nil
}

func runRegisters(_ context.Context, w io.Writer, req Request) error {
	return Registers(w, req.CrashText)
}

func runStack(_ context.Context, w io.Writer, req Request) error {
	return Stack(w, req.CrashText)
}

func runPreamble(ctx context.Context, w io.Writer, _ Request) error {
	return Preamble(ctx, w)
}

func runMemoryMap(ctx context.Context, w io.Writer, req Request) error {
	return MemoryMap(ctx, w, req.PID)
}

func runFDListing(ctx context.Context, w io.Writer, req Request) error {
	return FDListing(ctx, w, req.PID)
}

func runBacktrace(ctx context.Context, w io.Writer, req Request) error {
	cfg := sanitize.Config{}
	if req.Config != nil {
		cfg.Command = req.Config.SanitizerCommand
		cfg.PassesInfo = req.Config.SanitizerPassesProgramInfo
		cfg.ProgramPath = programPath()
		cfg.PID = req.PID
	}
	return Backtrace(ctx, w, cfg, req.CrashText)
}

func runCustomDiagnostics(ctx context.Context, w io.Writer, req Request) error {
	if req.Config == nil || req.Config.CustomDiagnostics == nil {
		fmt.Fprintln(w, "custom diagnostics: none registered")
		return nil
	}
	return CustomDiagnostics(ctx, w, req.Config.CustomDiagnostics)
}
