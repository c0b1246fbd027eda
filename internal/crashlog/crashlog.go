// Package crashlog creates a timestamped crash-log file and tees the
// handler's stdout/stderr so that a crash report reaches both the
// console and disk, mirroring libfault's create_log_file and
// tee_outputs_to (spec §4.6).
package crashlog

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// DefaultBasePath matches spec §6's literal default log_base.
const DefaultBasePath = "/tmp/exe-crash.libfault."

// teeCandidates is the fallback ladder spec §4.6 describes: PATH lookup
// first, then the hard-coded absolute paths, then cat as a last resort
// (cat is run without the path, so it keeps the report visible on out
// but writes nothing to the log file).
var teeCandidates = []string{"tee", "/usr/bin/tee", "/bin/tee", "cat"}

// CreateLogFile composes <basePath><unixSeconds>-<uuid8> and creates it
// with mode 0600, truncating any existing file, then immediately closes
// it — this call exists purely to prove the path is writable before the
// real tee process opens it. The uuid suffix keeps
// concurrent crashes (recursion, or multiple processes sharing a
// basePath) from colliding on the same filename.
func CreateLogFile(basePath string, now time.Time) (string, error) {
	if basePath == "" {
		basePath = DefaultBasePath
	}

	path := fmt.Sprintf("%s%d-%s", basePath, now.Unix(), uuid.NewString()[:8])

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("crashlog: create %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("crashlog: close %s: %w", path, err)
	}
	return path, nil
}

// Tee starts a tee(1) process writing everything written to the returned
// writer both to path and to out; when only the cat fallback can be
// started, output goes to out alone. The caller is expected
// to write the whole crash report through the returned writer and Close
// it when done. On total failure, Tee returns a nil writer and the
// caller falls back to writing directly to out.
func Tee(path string, out *os.File) (*TeeWriter, error) {
	var lastErr error
	for _, candidate := range teeCandidates {
		args := []string{path}
		if candidate == "cat" {
			args = nil
		}
		cmd := exec.Command(candidate, args...) //nolint:gosec // path is our own timestamped log file, not user input
		cmd.Stdout = out
		cmd.Stderr = out

		w, err := cmd.StdinPipe()
		if err != nil {
			lastErr = err
			continue
		}
		if err := cmd.Start(); err != nil {
			lastErr = err
			continue
		}
		return &TeeWriter{cmd: cmd, stdin: w}, nil
	}

	return nil, fmt.Errorf("crashlog: no tee program available: %w", lastErr)
}

// TeeWriter is the write end of a running tee(1) process.
type TeeWriter struct {
	cmd   *exec.Cmd
	stdin interface {
		Write([]byte) (int, error)
		Close() error
	}
}

func (t *TeeWriter) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

// Close closes tee's stdin and waits for it to flush and exit.
func (t *TeeWriter) Close() error {
	if err := t.stdin.Close(); err != nil {
		return err
	}
	return t.cmd.Wait()
}
