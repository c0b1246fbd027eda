// Package safefmt formats integers, pointers, signal numbers and signal
// reasons into a caller-owned byte buffer without allocating, locking, or
// touching anything locale-sensitive. Every function here is safe to call
// from the handler goroutine before the first subprocess is spawned: no
// fmt, no strconv, no append-driven growth past the buffer's capacity.
//
// Each Append* function takes the destination slice (its existing
// content) and returns the slice with the new bytes appended, exactly
// like append's own signature. The caller is responsible for passing a
// slice backed by a buffer with enough spare capacity; AppendText and
// friends never grow the backing array themselves on the hot path
// described above, but this package is also used from dumper code
// running post-fork where ordinary append growth is harmless, so it does
// not refuse to grow — it simply never *needs* to if given enough
// capacity up front (see faultstate's mmap'd scratch buffer).
package safefmt

import "syscall"

var hexDigits = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

// AppendText copies s verbatim.
func AppendText(dst []byte, s string) []byte {
	return append(dst, s...)
}

// AppendByte appends a single byte.
func AppendByte(dst []byte, b byte) []byte {
	return append(dst, b)
}

// AppendDecimal appends the base-10 representation of v.
func AppendDecimal(dst []byte, v uint64) []byte {
	if v == 0 {
		return append(dst, '0')
	}

	var buf [20]byte // max digits for a 64-bit value
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return append(dst, buf[i:]...)
}

// AppendSignedDecimal appends the base-10 representation of a signed
// value, with a leading '-' for negatives.
func AppendSignedDecimal(dst []byte, v int64) []byte {
	if v < 0 {
		dst = append(dst, '-')
		// v == math.MinInt64 would overflow negation; the values this
		// package ever deals with (pids, uids, line numbers) never
		// approach that, so a plain negation is sufficient here.
		return AppendDecimal(dst, uint64(-v))
	}
	return AppendDecimal(dst, uint64(v))
}

// appendHexWidth appends the hex digits of v, zero-padded to exactly
// width digits (Testable Property #3: width-complete hex formatting).
func appendHexWidth(dst []byte, v uint64, width int) []byte {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return append(dst, buf...)
}

// AppendHexU32 appends v as exactly 8 zero-padded hex digits.
func AppendHexU32(dst []byte, v uint32) []byte {
	return appendHexWidth(dst, uint64(v), 8)
}

// AppendHexU64 appends v as exactly 16 zero-padded hex digits.
func AppendHexU64(dst []byte, v uint64) []byte {
	return appendHexWidth(dst, v, 16)
}

// AppendHexUlong appends v as exactly 2*sizeof(uint) zero-padded hex
// digits, matching the C core's "unsigned long" width on the build
// target. On every platform this module targets that's 64 bits.
func AppendHexUlong(dst []byte, v uint) []byte {
	return appendHexWidth(dst, uint64(v), 16)
}

// PointerWidth is the number of hex digits append_pointer emits after the
// 0x prefix, chosen at compile time from the target pointer size (always
// 8 bytes / 16 digits for the 64-bit targets this package supports).
const PointerWidth = 16

// AppendPointer appends p as "0x" followed by PointerWidth zero-padded
// hex digits.
func AppendPointer(dst []byte, p uintptr) []byte {
	dst = append(dst, '0', 'x')
	return appendHexWidth(dst, uint64(p), PointerWidth)
}

type signalName struct {
	signo syscall.Signal
	name  string
}

// knownSignals covers exactly the five signals this library installs
// handlers for; every other signal number falls back to the bare decimal
// form (Testable Property #4).
var knownSignals = [...]signalName{
	{syscall.SIGABRT, "SIGABRT"},
	{syscall.SIGSEGV, "SIGSEGV"},
	{syscall.SIGBUS, "SIGBUS"},
	{syscall.SIGFPE, "SIGFPE"},
	{syscall.SIGILL, "SIGILL"},
}

// AppendSigno appends the textual name for signo followed by "(N)", or
// just the decimal number for an unrecognized signal.
func AppendSigno(dst []byte, signo syscall.Signal) []byte {
	for _, s := range knownSignals {
		if s.signo == signo {
			dst = AppendText(dst, s.name)
			dst = append(dst, '(')
			dst = AppendDecimal(dst, uint64(signo))
			return append(dst, ')')
		}
	}
	return AppendDecimal(dst, uint64(signo))
}

// sigCodeName gives the textual mnemonic for a si_code value, generic
// ones first and then the signal-specific ones recognized for SIGSEGV,
// SIGBUS, SIGFPE and SIGILL. ok is false for an unrecognized code, which
// AppendSigReason renders as "#N".
func sigCodeName(signo syscall.Signal, code int32) (string, bool) {
	switch code {
	case siUser:
		return "SI_USER", true
	case siQueue:
		return "SI_QUEUE", true
	case siTimer:
		return "SI_TIMER", true
	case siAsyncIO:
		return "SI_ASYNCIO", true
	case siMesgQ:
		return "SI_MESGQ", true
	case siKernel:
		return "SI_KERNEL", true
	case siTkill:
		return "SI_TKILL", true
	}

	switch signo {
	case syscall.SIGSEGV:
		switch code {
		case segvMapErr:
			return "SEGV_MAPERR", true
		case segvAccErr:
			return "SEGV_ACCERR", true
		}
	case syscall.SIGBUS:
		switch code {
		case busAdrAlgn:
			return "BUS_ADRALN", true
		case busAdrErr:
			return "BUS_ADRERR", true
		case busObjErr:
			return "BUS_OBJERR", true
		}
	case syscall.SIGFPE:
		switch code {
		case fpeIntDiv:
			return "FPE_INTDIV", true
		case fpeIntOvf:
			return "FPE_INTOVF", true
		case fpeFltDiv:
			return "FPE_FLTDIV", true
		}
	case syscall.SIGILL:
		switch code {
		case illIllOpc:
			return "ILL_ILLOPC", true
		case illPrvOpc:
			return "ILL_PRVOPC", true
		}
	}

	return "", false
}

// SigReason is the decoded form of a siginfo_t the handler inspects:
// only the fields append_sigreason actually needs.
type SigReason struct {
	Signo     syscall.Signal
	Code      int32
	Addr      uintptr
	SenderPID int32  // only meaningful when Code <= 0 (user-originated) and SenderKnown
	SenderUID uint32 // only meaningful when Code <= 0 (user-originated) and SenderKnown

	// SenderKnown is true only when SenderPID/SenderUID came from a real
	// siginfo_t. Go's os/signal.Notify never exposes siginfo_t to user
	// code (see crashtext.go's synthesizedReason), so every
	// signal.Notify-observed signal leaves this false; AppendSigReason
	// reports the sender as unknown instead of fabricating zeros.
	SenderKnown bool
}

// AppendSigReason appends the textual mnemonic for r.Code, the
// user/sender annotation when the signal was user-originated, and always
// concludes with the faulting address, exactly matching the literal
// format in spec §4.1 and scenario S3. When the signal was
// user-originated but the real sender credentials were never available
// (SenderKnown false), it says so explicitly rather than printing a
// fabricated "PID 0 with UID 0".
func AppendSigReason(dst []byte, r SigReason) []byte {
	if name, ok := sigCodeName(r.Signo, r.Code); ok {
		dst = AppendText(dst, name)
	} else {
		dst = append(dst, '#')
		dst = AppendDecimal(dst, uint64(r.Code))
	}

	if r.Code <= 0 {
		if r.SenderKnown {
			dst = AppendText(dst, ", signal sent by PID ")
			dst = AppendDecimal(dst, uint64(r.SenderPID))
			dst = AppendText(dst, " with UID ")
			dst = AppendDecimal(dst, uint64(r.SenderUID))
		} else {
			dst = AppendText(dst, ", signal sent by unknown sender")
		}
	}

	dst = AppendText(dst, ", si_addr=")
	return AppendPointer(dst, r.Addr)
}
