// Package fdtable enumerates the highest open file descriptor and closes
// every descriptor above a watermark, mirroring libfault's highest_fd and
// close_from. Safe mode (the "safe" flag throughout spec §4.2) routes the
// enumeration subprocess through procrun, which already forks via Go's
// allocator-lock-free clone path (see procrun's doc comment) — there is
// no separate unsafe-vs-safe fork implementation to choose between here.
package fdtable

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/bits-and-blooms/bitset"
	sysconf "github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"

	"github.com/e2b-dev/infra/packages/libfault/internal/procrun"
)

// enumerateBudget is the 30ms wall-clock budget spec §4.2 step 2 gives
// the forked scanning subprocess.
const enumerateBudget = 30 * time.Millisecond

const (
	minFallback = 2
	maxFallback = 9999
)

// Highest returns the largest open descriptor for pid. On Linux there is
// no direct fcntl query (step 1 of the cascade is a no-op here), so this
// goes straight to step 2: a bounded subprocess reading /proc/<pid>/fd,
// falling back to step 3 (rlimit / sysconf) on any failure.
func Highest(ctx context.Context, pid int) int {
	if open, top, ok := scanOpen(ctx, pid); ok && open.Count() > 0 {
		return top
	}
	return fallbackLimit()
}

// scanOpen lists /proc/<pid>/fd within enumerateBudget, returning a
// bitset marking every descriptor found open and the largest one seen.
func scanOpen(ctx context.Context, pid int) (*bitset.BitSet, int, bool) {
	res, err := procrun.Run(ctx, enumerateBudget, "ls", []string{"/proc/" + strconv.Itoa(pid) + "/fd"}, nil)
	if err != nil || res.ExitCode != 0 {
		return nil, 0, false
	}

	open := bitset.New(64)
	top := -1
	sc := bufio.NewScanner(bytes.NewReader(res.Stdout))
	for sc.Scan() {
		n, convErr := strconv.Atoi(sc.Text())
		if convErr != nil || n < 0 {
			continue
		}
		open.Set(uint(n))
		if n > top {
			top = n
		}
	}
	if top < 0 {
		return nil, 0, false
	}
	return open, top, true
}

// fallbackLimit reads RLIMIT_NOFILE, falling back further to sysconf(
// _SC_OPEN_MAX), clamped to [2, 9999] exactly as spec §4.2 step 3
// requires.
func fallbackLimit() int {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err == nil && rlim.Cur > 0 {
		return clamp(int(rlim.Cur))
	}

	if n, err := sysconf.Sysconf(sysconf.SC_OPEN_MAX); err == nil && n > 0 {
		return clamp(int(n))
	}

	return minFallback
}

func clamp(n int) int {
	if n < minFallback {
		return minFallback
	}
	if n > maxFallback {
		return maxFallback
	}
	return n
}

// CloseFrom closes every descriptor of the calling process strictly
// above fd. When a /proc-backed scan is available it closes exactly the
// descriptors it found open, above fd; otherwise it falls back to a
// blind close loop up to the rlimit/sysconf ceiling. Closing an
// already-closed descriptor returns EBADF, which is ignored, so a
// second call is a no-op either way (Testable Property #2).
func CloseFrom(ctx context.Context, fd int) {
	pid := unix.Getpid()

	if open, top, ok := scanOpen(ctx, pid); ok {
		for i := fd + 1; i <= top; i++ {
			if !open.Test(uint(i)) {
				continue
			}
			closeRetryingEINTR(i)
		}
		return
	}

	for i := fd + 1; i <= fallbackLimit(); i++ {
		closeRetryingEINTR(i)
	}
}

// closeRetryingEINTR retries close(2) on EINTR, which is permitted here
// because the caller guarantees no other goroutine is manipulating
// descriptors concurrently.
func closeRetryingEINTR(fd int) {
	for {
		if err := unix.Close(fd); err != unix.EINTR {
			return
		}
	}
}
