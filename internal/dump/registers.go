package dump

import (
	"fmt"
	"io"

	"github.com/e2b-dev/infra/packages/libfault/internal/safefmt"
)

// Registers prints every register the Go runtime's own crash writer
// decoded, reformatted through safefmt. This is the realization of
// spec.md's register dump: there is no portable way to read an arbitrary
// ucontext_t without cgo, so the register block the runtime already
// captures (linux/amd64, linux/arm64) stands in for it. On an
// architecture or trigger path where the runtime emitted no such block,
// this prints the spec-mandated unsupported line rather than guessing.
func Registers(w io.Writer, crashText []byte) error {
	regs, ok := parseRegisters(crashText)
	if !ok {
		fmt.Fprintln(w, "register dump not supported on this architecture")
		return nil
	}

	for _, r := range regs {
		buf := make([]byte, 0, 32)
		buf = safefmt.AppendText(buf, r.name)
		buf = safefmt.AppendByte(buf, ' ')
		buf = safefmt.AppendByte(buf, '=')
		buf = safefmt.AppendByte(buf, ' ')
		buf = safefmt.AppendHexU64(buf, r.value)
		buf = safefmt.AppendByte(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
