package dump

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/e2b-dev/infra/packages/libfault/internal/fdtable"
	"github.com/e2b-dev/infra/packages/libfault/internal/procrun"
)

// FDListing follows the three-rung fallback ladder spec.md §4.4
// prescribes: lsof under a 4s budget, then gopsutil's OpenFiles (which
// itself reads /proc/<pid>/fd), then a raw directory listing. If every
// rung fails, it reports the watermark fdtable.Highest's own cascade
// (the same enumeration C2 uses for close_from) still manages to find,
// so the report carries at least a count even when no per-descriptor
// detail is available, then emits an error line and returns nil rather
// than an error, matching "If none succeed, emit an error line and
// continue."
func FDListing(ctx context.Context, w io.Writer, pid int) error {
	res, err := procrun.Run(ctx, FDListBudget, "lsof", []string{"-p", strconv.Itoa(pid), "-nP"}, nil)
	if err == nil && res.ExitCode == 0 {
		_, writeErr := w.Write(res.Stdout)
		return writeErr
	}

	if proc, perr := process.NewProcess(int32(pid)); perr == nil {
		if files, ofErr := proc.OpenFilesWithContext(ctx); ofErr == nil {
			for _, f := range files {
				fmt.Fprintf(w, "fd %d -> %s\n", f.Fd, f.Path)
			}
			return nil
		}
	}

	res, err = procrun.Run(ctx, FDListBudget, "ls", []string{"-lv", "/proc/" + strconv.Itoa(pid) + "/fd"}, nil)
	if err == nil && res.ExitCode == 0 {
		_, writeErr := w.Write(res.Stdout)
		return writeErr
	}

	fmt.Fprintf(w, "fd listing: detailed listing unavailable; highest open descriptor is %d\n", fdtable.Highest(ctx, pid))
	return nil
}
