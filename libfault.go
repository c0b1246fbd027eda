// Package libfault installs handlers for fatal signals (SIGABRT,
// SIGSEGV, SIGBUS, SIGFPE, SIGILL) and produces a forensic report —
// registers, stack, backtrace, memory map, open file descriptors,
// assertion context, and any user-registered diagnostics — to stderr
// and, optionally, a timestamped log file.
//
// Call the Set* functions to configure the library, then InstallHandlers
// once at process startup. libfault never installs itself from an
// init(): the caller decides when it is safe to do so, exactly as the
// library this one is modeled on expects its consumer to call its own
// install entry point explicitly.
package libfault

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/e2b-dev/infra/packages/libfault/internal/faultstate"
	"github.com/e2b-dev/infra/packages/libfault/internal/handler"
	"github.com/e2b-dev/infra/packages/libfault/internal/install"
)

// CustomDiagnosticsFunc is the registered callback type: it receives a
// writer for its report lines and the data value from
// SetCustomDiagnosticsData, and runs under a bounded budget inside the
// diagnostic sequence.
type CustomDiagnosticsFunc func(w io.Writer, data any) error

type builder struct {
	mu sync.Mutex

	appName      string
	appVersion   string
	bugreportURL string
	logBasePath  string

	sanitizerCommand           string
	sanitizerPassesProgramInfo bool

	customDiagnostics CustomDiagnosticsFunc
	customData        any

	logger *zap.Logger

	installed bool
}

var state = &builder{}

// Init zeroes the pending configuration. Safe to call more than once;
// every Set* call before the next InstallHandlers overwrites it again.
func Init() {
	state.mu.Lock()
	defer state.mu.Unlock()
	*state = builder{}
}

func SetAppName(name string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.appName = name
}

func SetAppVersion(version string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.appVersion = version
}

// SetLogName sets log_base_path, the prefix crash log files are composed
// from (spec.md §4.6); an empty value restores the default
// "/tmp/exe-crash.libfault.".
func SetLogName(base string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.logBasePath = base
}

func SetBugreportURL(url string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.bugreportURL = url
}

// SetSanitizerCommand overrides the default "c++filt -n" backtrace
// sanitizer. passesProgramInfo controls whether the faulting program's
// path and pid are appended as positional arguments (spec.md §4.5).
func SetSanitizerCommand(command string, passesProgramInfo bool) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.sanitizerCommand = command
	state.sanitizerPassesProgramInfo = passesProgramInfo
}

// SetCustomDiagnostics registers the callback invoked during the
// diagnostic sequence; fn receives whatever data SetCustomDiagnosticsData
// last stored.
func SetCustomDiagnostics(fn CustomDiagnosticsFunc) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.customDiagnostics = fn
}

// SetCustomDiagnosticsData stores the value passed as fn's data argument.
func SetCustomDiagnosticsData(data any) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.customData = data
}

// SetLogger wires a structured logger for post-fork dumper diagnostics
// (internal/dump's per-dumper failure logging). Every dumper already runs
// past the first subprocess fork, so this carries none of the
// async-signal-safety risk the handler's own pre-fork code avoids by
// using safefmt instead. A nil logger (the default) makes InstallHandlers
// fall back to zap.NewNop().
func SetLogger(logger *zap.Logger) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.logger = logger
}

// Assert is the redirected assertion entry point (spec.md §9, decision
// (b)): call it in place of a language-level assert macro. When cond is
// false, it records an AssertRecord for the next crash dump to include
// and returns false so callers can choose to panic, abort, or merely log.
func Assert(cond bool, expr string) bool {
	if cond {
		return true
	}

	file, line := callerLocation()
	faultstate.RecordAssert(faultstate.AssertRecord{
		Filename:   file,
		Expression: expr,
		Line:       line,
	})
	return false
}

// InstallHandlers performs spec.md §4.8's install sequence: parses the
// environment, freezes a faultstate.Config, opens the emergency pipes,
// deep-copies os.Args, and wires both crash-detection paths (the
// runtime's crash-output pipe and an asynchronous-signal Notify
// channel) into the shared handler sequence.
func InstallHandlers() error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.installed {
		return nil
	}

	envCfg, err := parseEnv()
	if err != nil {
		return fmt.Errorf("libfault: parsing environment: %w", err)
	}
	if !isTruthy(envCfg.AbortHandler) {
		state.installed = true
		return nil
	}

	cfg := &faultstate.Config{
		AppName:                    state.appName,
		AppVersion:                 state.appVersion,
		BugreportURL:               state.bugreportURL,
		LogBasePath:                state.logBasePath,
		SanitizerCommand:           state.sanitizerCommand,
		SanitizerPassesProgramInfo: state.sanitizerPassesProgramInfo,
		OriginalArgv:               append([]string(nil), os.Args...),
		BeepOnAbort:                isTruthy(envCfg.BeepOnAbort),
		StopOnAbort:                isTruthy(envCfg.StopOnAbort),
		AbortHandlerEnabled:        true,
	}
	if fn := state.customDiagnostics; fn != nil {
		data := state.customData
		cfg.CustomDiagnostics = func(w faultstate.CustomWriter) error {
			return fn(w, data)
		}
	}
	cfg.Logger = state.logger
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if err := faultstate.Pipes.Prepare(); err != nil {
		return fmt.Errorf("libfault: preparing emergency pipes: %w", err)
	}
	if err := faultstate.HeaderBuf.Prepare(); err != nil {
		faultstate.Pipes.CloseAll()
		return fmt.Errorf("libfault: preparing header scratch buffer: %w", err)
	}
	faultstate.SetConfig(cfg)

	if err := installCrashOutput(); err != nil {
		faultstate.Pipes.CloseAll()
		return err
	}
	installNotify()

	state.installed = true
	return nil
}

// installCrashOutput wires runtime/debug.SetCrashOutput to a pipe and
// starts a goroutine that drains it: the Go-native analogue of handing
// a C signal handler the kernel's ucontext_t, decoded in §1/§2's design
// notes.
func installCrashOutput() error {
	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("libfault: opening crash-output pipe: %w", err)
	}

	if err := debug.SetCrashOutput(w, debug.CrashOptions{}); err != nil {
		r.Close() //nolint:errcheck
		w.Close() //nolint:errcheck
		return fmt.Errorf("libfault: debug.SetCrashOutput: %w", err)
	}

	go drainCrashOutput(r)
	return nil
}

func drainCrashOutput(r *os.File) {
	text, _ := io.ReadAll(r)
	if len(text) == 0 {
		return
	}

	signo, reason, ok := parseRuntimeCrashText(text)
	if !ok {
		return
	}

	handler.Handle(context.Background(), os.Stderr, handlerCrash(signo, reason, text, false))
}

// installNotify registers os/signal.Notify for the five signals this
// library catches. Signals delivered this way reach the process
// asynchronously (another process's kill(2), or the shell), so there is
// no runtime-captured register block to parse — reason is synthesized
// as SI_USER per the HandlerState.Info doc comment in the design notes.
func installNotify() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, install.Catchable...)

	go func() {
		for sig := range ch {
			signo, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			handler.Handle(context.Background(), os.Stderr, handlerCrash(signo, synthesizedReason(signo), nil, true))
		}
	}()
}
