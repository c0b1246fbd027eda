package dump

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"golang.org/x/sys/unix"

	"github.com/e2b-dev/infra/packages/libfault/internal/procrun"
)

const preambleBudget = 2 * time.Second

// rlimitsToReport mirrors the resources "ulimit -a" prints that this
// library's handler actually cares about: open files (fdtable operates
// on it directly) and max address space.
var rlimitsToReport = []struct {
	name     string
	resource int
}{
	{"open files", unix.RLIMIT_NOFILE},
	{"address space", unix.RLIMIT_AS},
}

// Preamble prints wall-clock time, kernel identity, and resource limits,
// the three things spec.md §4.4 has date/uname/ulimit produce. The date
// line comes from time.Now and has no fallback. gopsutil and
// unix.Getrlimit serve as the primary source for the other two; each of
// those falls back to a shell command (uname -mprsv, sh -c "ulimit -a").
func Preamble(ctx context.Context, w io.Writer) error {
	fmt.Fprintf(w, "date: %s\n", time.Now().Format(time.RFC3339))

	if info, err := host.InfoWithContext(ctx); err == nil {
		fmt.Fprintf(w, "uname: %s %s %s %s\n", info.Hostname, info.KernelVersion, info.KernelArch, info.Platform)
	} else if res, runErr := procrun.Run(ctx, preambleBudget, "uname", []string{"-mprsv"}, nil); runErr == nil && res.ExitCode == 0 {
		w.Write(res.Stdout) //nolint:errcheck
	} else {
		fmt.Fprintln(w, "uname: unavailable")
	}

	for _, r := range rlimitsToReport {
		var rlim unix.Rlimit
		if err := unix.Getrlimit(r.resource, &rlim); err == nil {
			fmt.Fprintf(w, "ulimit %s: soft=%d hard=%d\n", r.name, rlim.Cur, rlim.Max)
			continue
		}
		if res, runErr := procrun.Run(ctx, preambleBudget, "sh", []string{"-c", "ulimit -a"}, nil); runErr == nil && res.ExitCode == 0 {
			w.Write(res.Stdout) //nolint:errcheck
		} else {
			fmt.Fprintf(w, "ulimit %s: unavailable\n", r.name)
		}
	}

	return nil
}
