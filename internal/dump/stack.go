package dump

import (
	"fmt"
	"io"

	"github.com/e2b-dev/infra/packages/libfault/internal/safefmt"
)

// stackWords is the fixed 16-word window spec.md §4.4 mandates.
const stackWords = 16

// Stack prints the addresses of the 16 machine words starting at the
// stack pointer the runtime's crash text recorded. Reading the crashed
// process's memory after the fact is not available in pure Go without
// ptrace, so each address is annotated as unavailable and no word's
// contents are printed — a documented narrowing of spec.md's byte-for-byte "(address)
// -> (value)" dump, recorded as an Open Question resolution.
func Stack(w io.Writer, crashText []byte) error {
	regs, ok := parseRegisters(crashText)
	if !ok {
		fmt.Fprintln(w, "stack dump not supported on this architecture")
		return nil
	}

	sp, ok := stackPointer(regs)
	if !ok {
		fmt.Fprintln(w, "stack dump not supported on this architecture")
		return nil
	}

	for i := 0; i < stackWords; i++ {
		addr := sp + uint64(i*8)
		buf := make([]byte, 0, 48)
		buf = safefmt.AppendPointer(buf, uintptr(addr))
		buf = safefmt.AppendText(buf, " -> (unavailable: crashed process memory not readable post-exit)\n")
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
