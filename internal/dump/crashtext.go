package dump

import (
	"bytes"
	"os"
	"regexp"
)

// registerLine matches the register lines the Go runtime itself prints
// into fatal crash output on linux/amd64 and linux/arm64, e.g.
// "rax    0x0" or "x0     0x7f8a40000000". This is the documented
// substitution for a C ucontext_t dump: we never decode raw machine
// context ourselves, we reformat the runtime's own rendering of it.
var registerLine = regexp.MustCompile(`(?m)^\s*([a-z][a-z0-9]{1,5})\s+(0x[0-9a-f]+)\s*$`)

// stackPointerNames covers the stack-pointer register across the
// architectures the Go runtime's crash writer supports.
var stackPointerNames = map[string]bool{
	"rsp": true, // amd64
	"sp":  true, // arm64, arm
	"esp": true, // 386
}

type register struct {
	name  string
	value uint64
}

// parseRegisters extracts every "name 0xvalue" line from crash text. It
// returns nil, false when crashText is empty or contains no recognizable
// register block, which happens whenever the handler was invoked via
// signal.Notify rather than a runtime-detected fault (the runtime only
// emits this block for faults it catches itself).
func parseRegisters(crashText []byte) ([]register, bool) {
	if len(crashText) == 0 {
		return nil, false
	}

	matches := registerLine.FindAllSubmatch(crashText, -1)
	if len(matches) == 0 {
		return nil, false
	}

	regs := make([]register, 0, len(matches))
	for _, m := range matches {
		var v uint64
		for _, c := range m[2][2:] { // skip "0x"
			v <<= 4
			v |= uint64(hexDigit(c))
		}
		regs = append(regs, register{name: string(m[1]), value: v})
	}
	return regs, true
}

func hexDigit(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

func stackPointer(regs []register) (uint64, bool) {
	for _, r := range regs {
		if stackPointerNames[r.name] {
			return r.value, true
		}
	}
	return 0, false
}

// goroutineHeader matches the "goroutine N [running]:" line the Go
// runtime writes at the start of each goroutine's stanza in a fatal
// crash dump.
var goroutineHeader = regexp.MustCompile(`(?m)^goroutine \d+ \[[^\]]*\]:$`)

// extractCrashingGoroutine returns the first goroutine stanza out of a
// fatal crash dump — the runtime always prints the crashing goroutine
// first — so that Backtrace can report the actual faulting stack
// instead of whatever goroutine happens to be running the handler.
// Returns false when crashText carries no goroutine dump at all, which
// is always the case on the signal.Notify path: that path only ever
// observes an asynchronously delivered signal, never a runtime-captured
// crash report.
func extractCrashingGoroutine(crashText []byte) ([]byte, bool) {
	loc := goroutineHeader.FindIndex(crashText)
	if loc == nil {
		return nil, false
	}

	rest := crashText[loc[0]:]
	if end := bytes.Index(rest, []byte("\n\n")); end >= 0 {
		rest = rest[:end]
	}
	return bytes.TrimRight(rest, "\n"), true
}

func programPath() string {
	p, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return p
}
