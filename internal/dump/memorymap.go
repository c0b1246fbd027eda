package dump

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/e2b-dev/infra/packages/libfault/internal/procrun"
)

// mapBudget bounds the "cat /proc/<pid>/maps" fallback subprocess.
const mapBudget = 2 * time.Second

// MemoryMap prints the faulting process's memory regions. gopsutil's
// MemoryMaps reads the same /proc/<pid>/smaps or /proc/<pid>/maps file
// spec.md's "fork, exec cat" step targets, so it is tried first; a raw
// cat of /proc/<pid>/maps through procrun is the fallback when gopsutil
// cannot open the proc file (permissions, or the process has already
// been reaped). On a platform with no such file at all, the spec's
// unsupported line is printed.
func MemoryMap(ctx context.Context, w io.Writer, pid int) error {
	if runtime.GOOS != "linux" {
		fmt.Fprintln(w, "memory map not supported on this platform")
		return nil
	}

	if proc, err := process.NewProcess(int32(pid)); err == nil {
		if maps, mErr := proc.MemoryMapsWithContext(ctx, false); mErr == nil && maps != nil {
			for _, m := range *maps {
				fmt.Fprintf(w, "%s  rss=%s  size=%s\n", m.Path, humanize.Bytes(m.Rss), humanize.Bytes(m.Size))
			}
			return nil
		}
	}

	res, err := procrun.Run(ctx, mapBudget, "cat", []string{"/proc/" + strconv.Itoa(pid) + "/maps"}, nil)
	if err != nil || res.ExitCode != 0 {
		return fmt.Errorf("memory map: cat fallback failed: %w", err)
	}
	_, writeErr := w.Write(res.Stdout)
	return writeErr
}
