package dump

import (
	"fmt"
	"io"

	"github.com/e2b-dev/infra/packages/libfault/internal/faultstate"
)

// Assertion prints the most recently recorded assertion failure in
// spec.md §8 scenario S2's literal wording: "Last assertion failure:
// (expression), file filename, line line.", with the optional function
// name spliced in per spec.md §4.4 ("print expression, function (when
// present), filename, and line") when one was recorded. This is the
// dumper that runs in §4.7's "assertion record" sequence position — the
// only place this output is produced; it is not duplicated in the
// report header, which spec.md §4.7 step 3 scopes to pid/timestamp/
// signal/reason only. When no assertion has ever fired, it says so
// rather than printing nothing, so the section is never silently empty.
func Assertion(w io.Writer, rec *faultstate.AssertRecord) {
	if rec == nil {
		fmt.Fprintln(w, "no assertion recorded")
		return
	}

	if rec.Function != "" {
		fmt.Fprintf(w, "Last assertion failure: (%s), function %s, file %s, line %d.\n",
			rec.Expression, rec.Function, rec.Filename, rec.Line)
		return
	}
	fmt.Fprintf(w, "Last assertion failure: (%s), file %s, line %d.\n",
		rec.Expression, rec.Filename, rec.Line)
}
