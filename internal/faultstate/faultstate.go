// Package faultstate holds the process-wide singletons a signal handler
// needs but cannot receive as an ordinary function argument: the active
// configuration, the last recorded assertion failure, the emergency file
// descriptors, and the handler re-entrancy counter. Every type here is
// frozen after install or is only ever mutated from the handler goroutine,
// per the "frozen after install" discipline described in the package
// this supports.
package faultstate

import (
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"
)

// Config mirrors the original ConfigRecord: read-only after Install.
type Config struct {
	AppName      string
	AppVersion   string
	BugreportURL string
	LogBasePath  string

	SanitizerCommand           string
	SanitizerPassesProgramInfo bool

	CustomDiagnostics   func(w CustomWriter) error
	OriginalArgv        []string
	BeepOnAbort         bool
	StopOnAbort         bool
	AbortHandlerEnabled bool

	// Logger receives post-fork diagnostic logging (spec.md §5's
	// deferral of all logging past the first subprocess fork).
	// InstallHandlers sets it to zap.NewNop() when no logger was given;
	// SetConfig itself stores the Config as is.
	Logger *zap.Logger
}

// CustomWriter is the narrow surface a custom diagnostics callback gets:
// enough to write report lines, nothing that lets it reach back into
// process-wide mutable state.
type CustomWriter interface {
	Write(p []byte) (int, error)
}

var configSlot atomic.Pointer[Config]

// SetConfig freezes cfg as the active configuration. InstallHandlers calls
// it once, before wiring the crash-output pipe and the Notify channel.
func SetConfig(cfg *Config) {
	configSlot.Store(cfg)
}

// Current returns the active configuration, or a zero Config if Install
// has not run yet.
func Current() *Config {
	cfg := configSlot.Load()
	if cfg == nil {
		return &Config{}
	}
	return cfg
}

// AssertRecord mirrors libfault_assert_info: populated by Assert, read by
// the assertion dumper.
type AssertRecord struct {
	Filename   string
	Function   string // optional, may be empty
	Expression string
	Line       int
}

var assertSlot atomic.Pointer[AssertRecord]

// RecordAssert stores the most recent assertion failure. Safe to call
// from any goroutine; last writer wins, matching the single static
// instance the C core keeps.
func RecordAssert(rec AssertRecord) {
	assertSlot.Store(&rec)
}

// LastAssert returns the most recently recorded assertion failure, or nil
// if none has ever been recorded.
func LastAssert() *AssertRecord {
	return assertSlot.Load()
}

// EmergencyPipes are two preallocated pipe pairs held open from install
// time purely so that the handler's own later pipe(2) calls are
// guaranteed free descriptor slots even if every other descriptor in the
// process has been exhausted. They are never read from or written to.
type EmergencyPipes struct {
	pairs [2][2]*os.File
}

// Prepare opens both pipe pairs. Called once at install time.
func (p *EmergencyPipes) Prepare() error {
	for i := range p.pairs {
		r, w, err := os.Pipe()
		if err != nil {
			p.CloseAll()
			return err
		}
		p.pairs[i][0], p.pairs[i][1] = r, w
	}
	return nil
}

// CloseAll closes every descriptor, idempotently: a slot that is already
// nil (closed on a prior call) is skipped, satisfying Testable Property
// #2 (idempotent close of emergency pipes).
func (p *EmergencyPipes) CloseAll() {
	for i := range p.pairs {
		for j := range p.pairs[i] {
			if p.pairs[i][j] == nil {
				continue
			}
			_ = p.pairs[i][j].Close()
			p.pairs[i][j] = nil
		}
	}
}

// Counter is the InvocationCounter: a monotonic count of entries into the
// root handler, used to detect and bound recursion when the handler
// itself faults.
type Counter struct {
	n atomic.Int32
}

// Enter increments the counter and returns the new value.
func (c *Counter) Enter() int32 {
	return c.n.Add(1)
}

// scratchSize matches spec.md §3's fixed 1024-byte scratch buffer,
// rounded up to a page so mmap.MapRegion is happy with the length.
const scratchSize = 4096

// Scratch is the mmap'd buffer the header line is formatted into before
// the first subprocess runs. Backing it with an anonymous mmap region
// rather than a Go-heap slice is the nearest equivalent of the original
// HandlerState's fixed on-stack buffer: the region is allocated once at
// install time and never grown, so formatting into it triggers no
// allocator or GC activity.
type Scratch struct {
	region mmap.MMap
}

// Prepare allocates the backing region. Called once at install time.
func (s *Scratch) Prepare() error {
	region, err := mmap.MapRegion(nil, scratchSize, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return err
	}
	s.region = region
	return nil
}

// Buf returns the backing slice, truncated to zero length so callers can
// append into it exactly like any other []byte cursor.
func (s *Scratch) Buf() []byte {
	if s.region == nil {
		return nil
	}
	return s.region[:0]
}

// Close unmaps the region. Idempotent.
func (s *Scratch) Close() error {
	if s.region == nil {
		return nil
	}
	err := s.region.Unmap()
	s.region = nil
	return err
}

// Global process-wide instances. There is exactly one of each per
// process, by necessity: a signal handler has no user-supplied context
// argument to thread these through.
var (
	Pipes       EmergencyPipes
	Invocations Counter
	HeaderBuf   Scratch
)
