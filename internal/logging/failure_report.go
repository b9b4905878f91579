package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/isseis/go-wcc/internal/failure"
)

// ReportFailure writes err for the user: the single-line rendering, the
// failure kind when err is classified, and the run ID. The text is written
// with one Write call so that concurrent output cannot interleave with it.
func ReportFailure(w io.Writer, err error, runID string) {
	if err == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", err)
	if kind, ok := failure.KindOf(err); ok {
		fmt.Fprintf(&b, "  Kind: %s\n", kind)
	}
	if runID != "" {
		fmt.Fprintf(&b, "  Run ID: %s\n", runID)
	}
	_, _ = io.WriteString(w, b.String())
}
