package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/isseis/go-wcc/internal/analyzer"
	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/metrics"
)

var csvHeader = []string{
	"path", "language", "sloc", "ploc", "cloc", "blank",
	"cyclomatic", "functions", "coverage", "wcc", "crap", "skunk",
}

// WriteCSV writes one row per analyzed file after a header row. Score
// columns are empty for files without coverage data.
func WriteCSV(w io.Writer, s *analyzer.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return failure.FromCSV(err)
	}
	for _, fm := range s.Files {
		if err := cw.Write(csvRow(fm)); err != nil {
			return failure.FromCSV(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return failure.FromCSV(err)
	}
	return nil
}

func csvRow(fm *metrics.FileMetrics) []string {
	row := []string{
		fm.Path,
		fm.Language,
		strconv.Itoa(fm.SLOC),
		strconv.Itoa(fm.PLOC),
		strconv.Itoa(fm.CLOC),
		strconv.Itoa(fm.Blank),
		strconv.Itoa(fm.Cyclomatic),
		strconv.Itoa(len(fm.Functions)),
	}
	w := fm.Weighted
	if w == nil {
		return append(row, "", "", "", "")
	}
	return append(row,
		formatFloat(w.Coverage),
		formatFloat(w.WCC),
		formatFloat(w.CRAP),
		formatFloat(w.Skunk),
	)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
