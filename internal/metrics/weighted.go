package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/isseis/go-wcc/internal/failure"
)

// ErrCoverageMismatch indicates coverage data describing more lines than the
// source file has.
var ErrCoverageMismatch = errors.New("coverage data does not match source")

// skunkDivisor scales complexity in the Skunk score.
const skunkDivisor = 25.0

// Weighted holds coverage and the scores that weigh it by complexity.
type Weighted struct {
	// Covered and Executable count lines with hits > 0 and hits >= 0.
	Covered    int `json:"covered"`
	Executable int `json:"executable"`
	// Coverage is Covered/Executable in [0, 1]; zero when nothing is executable.
	Coverage float64 `json:"coverage"`
	// CoveredWeight and ExecutableWeight sum the complexity of the enclosing
	// space over covered and executable lines. WCC is their ratio, in [0, 1].
	CoveredWeight    float64 `json:"covered_weight"`
	ExecutableWeight float64 `json:"executable_weight"`
	WCC              float64 `json:"wcc"`
	// CRAP is c² · (1 - coverage)³ + c.
	CRAP float64 `json:"crap"`
	// Skunk is c/25 · (100 - coverage%), or c/25 at full coverage.
	Skunk float64 `json:"skunk"`
}

// Weigh attaches coverage-weighted scores to fm and to each of its
// functions. hits holds one entry per source line: -1 for a line that is not
// executable, otherwise the number of times the line ran. A slice shorter
// than the file leaves the remaining lines non-executable.
func Weigh(fm *FileMetrics, hits []int) error {
	if len(hits) > fm.SLOC {
		return failure.Wrap(failure.KindMetricsCompute,
			fmt.Errorf("%w: %s has %d lines, coverage has %d", ErrCoverageMismatch, fm.Path, fm.SLOC, len(hits)))
	}

	var (
		covered, executable int
		weightCovered       float64
		weightTotal         float64
	)
	fnCounts := make([]struct{ covered, executable int }, len(fm.Functions))

	for i, h := range hits {
		if h < 0 {
			continue
		}
		line := i + 1
		weight := float64(fm.UnitCyclomatic)
		if idx := innermost(fm.Functions, line); idx >= 0 {
			weight = float64(fm.Functions[idx].Cyclomatic)
			fnCounts[idx].executable++
			if h > 0 {
				fnCounts[idx].covered++
			}
		}

		executable++
		weightTotal += weight
		if h > 0 {
			covered++
			weightCovered += weight
		}
	}

	fm.Weighted = score(fm.Cyclomatic, covered, executable)
	fm.Weighted.setWeights(weightCovered, weightTotal)

	for i := range fm.Functions {
		fn := &fm.Functions[i]
		c := float64(fn.Cyclomatic)
		fn.Weighted = score(fn.Cyclomatic, fnCounts[i].covered, fnCounts[i].executable)
		fn.Weighted.setWeights(c*float64(fnCounts[i].covered), c*float64(fnCounts[i].executable))
	}
	return nil
}

// innermost returns the index of the last-starting function containing line.
// Functions are ordered by start line, so the last match is the innermost.
func innermost(funcs []Function, line int) int {
	found := -1
	for i, f := range funcs {
		if f.StartLine > line {
			break
		}
		if f.Contains(line) {
			found = i
		}
	}
	return found
}

func (w *Weighted) setWeights(covered, executable float64) {
	w.CoveredWeight = covered
	w.ExecutableWeight = executable
	if executable > 0 {
		w.WCC = covered / executable
	}
}

func score(complexity, covered, executable int) *Weighted {
	w := &Weighted{Covered: covered, Executable: executable}
	if executable > 0 {
		w.Coverage = float64(covered) / float64(executable)
	}
	c := float64(complexity)
	w.CRAP = c*c*math.Pow(1-w.Coverage, 3) + c
	if executable > 0 && covered == executable {
		w.Skunk = c / skunkDivisor
	} else {
		w.Skunk = c / skunkDivisor * (100 - 100*w.Coverage)
	}
	return w
}
