package dump

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/e2b-dev/infra/packages/libfault/internal/faultstate"
	"github.com/e2b-dev/infra/packages/libfault/internal/promise"
)

// CustomDiagnostics invokes the registered callback under CustomBudget,
// buffering its output so a callback that times out never interleaves
// partial writes with whatever the sequence writes next.
func CustomDiagnostics(ctx context.Context, w io.Writer, fn func(faultstate.CustomWriter) error) error {
	cctx, cancel := context.WithTimeout(ctx, CustomBudget)
	defer cancel()

	p := promise.New(func() (bytes.Buffer, error) {
		var buf bytes.Buffer
		err := fn(&buf)
		return buf, err
	})

	buf, err := p.Wait(cctx)
	if err != nil {
		fmt.Fprintf(w, "custom diagnostics: %v\n", err)
		return nil
	}

	_, writeErr := w.Write(buf.Bytes())
	return writeErr
}
