// Package analyzer runs the analysis pipeline: it walks a source tree,
// computes the metrics of every file on a worker pool and aggregates them
// into a Summary.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/isseis/go-wcc/internal/coverage"
	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/guard"
	"github.com/isseis/go-wcc/internal/language"
	"github.com/isseis/go-wcc/internal/metrics"
	"github.com/isseis/go-wcc/internal/telemetry"
	"github.com/isseis/go-wcc/internal/walker"
	"github.com/isseis/go-wcc/internal/workpool"
	"github.com/oklog/ulid/v2"
)

// headSize is how much of a file language detection may inspect.
const headSize = 256

// ErrUnknownPolicy indicates an OnError value other than abort or skip.
var ErrUnknownPolicy = errors.New("unknown on-error policy")

// OnError selects what a run does when one file fails.
type OnError string

const (
	// OnErrorAbort ends the run with the first failure.
	OnErrorAbort OnError = "abort"
	// OnErrorSkip records the failure against the file and continues.
	OnErrorSkip OnError = "skip"
)

// ParseOnError converts s into an OnError policy.
func ParseOnError(s string) (OnError, error) {
	switch p := OnError(s); p {
	case OnErrorAbort, OnErrorSkip:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Options configures a run.
type Options struct {
	// Root is the project directory to analyze.
	Root string
	// CoveragePath optionally names a coveralls or covdir report. When set,
	// files it covers get weighted scores.
	CoveragePath string
	// Workers is the number of files analyzed in parallel. Zero means one
	// per CPU.
	Workers int
	// OnError is the failure policy. The zero value behaves as OnErrorSkip.
	OnError OnError
	// StrictLanguage turns files of unknown language into failures instead
	// of ignoring them.
	StrictLanguage bool
	// Walk selects the files below Root.
	Walk walker.Options
	// RunID identifies the run. A ULID is generated when empty.
	RunID string

	Logger    *slog.Logger
	Telemetry *telemetry.Recorder
}

// FileFailure is a failure recorded against one file under OnErrorSkip.
type FileFailure struct {
	Path    string       `json:"path"`
	Kind    failure.Kind `json:"kind"`
	Message string       `json:"message"`
}

// Totals aggregates the metrics of every analyzed file.
type Totals struct {
	Files      int `json:"files"`
	Failed     int `json:"failed"`
	Ignored    int `json:"ignored"`
	Functions  int `json:"functions"`
	SLOC       int `json:"sloc"`
	PLOC       int `json:"ploc"`
	CLOC       int `json:"cloc"`
	Blank      int `json:"blank"`
	Cyclomatic int `json:"cyclomatic"`

	// The fields below only count files that have coverage data.
	Covered    int     `json:"covered"`
	Executable int     `json:"executable"`
	Coverage   float64 `json:"coverage"`
	WCC        float64 `json:"wcc"`

	// UnmatchedCoverage counts coverage report entries that name no file
	// below the root.
	UnmatchedCoverage int `json:"unmatched_coverage"`
}

// Summary is the outcome of a run. Files and Failures are sorted by path.
type Summary struct {
	RunID          string                 `json:"run_id"`
	Root           string                 `json:"root"`
	CoverageFormat string                 `json:"coverage_format,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	Duration       time.Duration          `json:"duration_ns"`
	Totals         Totals                 `json:"totals"`
	Files          []*metrics.FileMetrics `json:"files"`
	Failures       []FileFailure          `json:"failures"`
}

// HasCoverage reports whether the run was given a coverage report.
func (s *Summary) HasCoverage() bool {
	return s.CoverageFormat != ""
}

// accumulator is the state shared between the aggregation steps. Every
// update is keyed by path, so the order outcomes arrive in does not matter.
type accumulator struct {
	files    map[string]*metrics.FileMetrics
	failures map[string]FileFailure
	ignored  int
}

// Run analyzes the tree at opts.Root.
//
// Under OnErrorAbort the first failing file ends the run and its failure is
// returned unchanged. Under OnErrorSkip file failures are recorded in the
// Summary. Failures that affect the whole run, such as an unreadable root or
// coverage report, are always returned. A cancelled ctx yields
// failure.KindConcurrency.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	started := time.Now()

	runID := opts.RunID
	if runID == "" {
		runID = ulid.Make().String()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", runID)

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	policy := opts.OnError
	if policy == "" {
		policy = OnErrorSkip
	}

	fail := func(err error) (*Summary, error) {
		if kind, ok := failure.KindOf(err); ok {
			opts.Telemetry.Failure(kind)
		}
		return nil, err
	}

	var cov *coverage.Report
	if opts.CoveragePath != "" {
		r, err := coverage.Load(opts.CoveragePath)
		if err != nil {
			return fail(err)
		}
		logger.Info("Loaded coverage report", "path", opts.CoveragePath, "format", r.Format.String(), "files", r.Len())
		cov = r
	}

	files, err := walker.Walk(opts.Root, opts.Walk)
	if err != nil {
		return fail(err)
	}
	logger.Info("Analyzing source tree", "root", opts.Root, "files", len(files), "workers", workers, "on_error", string(policy))

	var unmatched []string
	if cov != nil {
		unmatched = unmatchedCoverage(cov, files)
		if len(unmatched) > 0 {
			logger.Warn("Coverage report names files outside the analyzed tree", "count", len(unmatched), "first", unmatched[0])
		}
	}

	acc := guard.New(accumulator{
		files:    make(map[string]*metrics.FileMetrics),
		failures: make(map[string]FileFailure),
	})
	agg := &aggregator{acc: acc, policy: policy, logger: logger, telemetry: opts.Telemetry}

	pool := workpool.New(workers, analyzeFile(cov, opts.StrictLanguage), workpool.WithLogger(logger))
	if err := pool.Start(ctx, files).Drain(agg.add); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return fail(failure.Wrap(failure.KindConcurrency, err))
	}

	snap, err := acc.Snapshot()
	if err != nil {
		return fail(err)
	}

	s := snap.summary()
	s.RunID = runID
	s.Root = opts.Root
	s.StartedAt = started
	s.Duration = time.Since(started)
	if cov != nil {
		s.CoverageFormat = cov.Format.String()
		s.Totals.UnmatchedCoverage = len(unmatched)
	}
	opts.Telemetry.ObserveRun(s.Duration)

	logger.Info("Analysis finished",
		"files", s.Totals.Files,
		"failed", s.Totals.Failed,
		"ignored", s.Totals.Ignored,
		"duration_ms", s.Duration.Milliseconds())
	return s, nil
}

// analyzeFile returns the per-file task. A file of unknown language yields
// a nil FileMetrics unless strict is set.
func analyzeFile(cov *coverage.Report, strict bool) workpool.Task[walker.SourceFile, *metrics.FileMetrics] {
	return func(_ context.Context, f walker.SourceFile) failure.Result[*metrics.FileMetrics] {
		src, err := os.ReadFile(f.Path) // #nosec G304 -- f.Path comes from walking the user-selected root
		if err != nil {
			return failure.Fail[*metrics.FileMetrics](failure.FromIO(err))
		}

		lang, err := language.Detect(f.RelPath, src[:min(len(src), headSize)])
		if err != nil {
			if !strict {
				return failure.Ok[*metrics.FileMetrics](nil)
			}
			return failure.Of[*metrics.FileMetrics](nil, err)
		}

		fm, err := metrics.Compute(f.RelPath, lang, src)
		return failure.Then(failure.Of(fm, err), func(fm *metrics.FileMetrics) failure.Result[*metrics.FileMetrics] {
			if cov == nil {
				return failure.Ok(fm)
			}
			hits, ok := cov.Lines(f.RelPath)
			if !ok {
				return failure.Ok(fm)
			}
			return failure.Of(fm, metrics.Weigh(fm, hits))
		})
	}
}

// unmatchedCoverage returns the paths of cov, in lexical order, that name
// none of files.
func unmatchedCoverage(cov *coverage.Report, files []walker.SourceFile) []string {
	walked := make(map[string]struct{}, len(files))
	for _, f := range files {
		walked[f.RelPath] = struct{}{}
	}
	var missing []string
	for _, p := range cov.Files() {
		if _, ok := walked[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

type aggregator struct {
	acc       *guard.Mutex[accumulator]
	policy    OnError
	logger    *slog.Logger
	telemetry *telemetry.Recorder
}

func (a *aggregator) add(o workpool.Outcome[walker.SourceFile, *metrics.FileMetrics]) error {
	path := o.Job.RelPath

	fm, err := o.Result.Get()
	if err != nil {
		kind, _ := failure.KindOf(err)
		a.telemetry.Failure(kind)
		if a.policy == OnErrorAbort {
			a.logger.Error("Analysis aborted", "path", path, "kind", kind.String(), "error", err)
			return err
		}
		a.logger.Warn("Skipping file", "path", path, "kind", kind.String(), "error", err)
		return a.acc.Do(func(s *accumulator) error {
			s.failures[path] = FileFailure{Path: path, Kind: kind, Message: err.Error()}
			return nil
		})
	}

	if fm == nil {
		a.telemetry.FileIgnored()
		a.logger.Debug("Ignoring file of unknown language", "path", path)
		return a.acc.Do(func(s *accumulator) error {
			s.ignored++
			return nil
		})
	}

	a.telemetry.FileAnalyzed()
	a.logger.Debug("Analyzed file", "path", path, "language", fm.Language, "cyclomatic", fm.Cyclomatic)
	return a.acc.Do(func(s *accumulator) error {
		s.files[path] = fm
		return nil
	})
}

func (s accumulator) summary() *Summary {
	sum := &Summary{
		Files:    make([]*metrics.FileMetrics, 0, len(s.files)),
		Failures: make([]FileFailure, 0, len(s.failures)),
	}

	var coveredWeight, executableWeight float64
	t := &sum.Totals
	for _, path := range slices.Sorted(maps.Keys(s.files)) {
		fm := s.files[path]
		sum.Files = append(sum.Files, fm)

		t.Files++
		t.Functions += len(fm.Functions)
		t.SLOC += fm.SLOC
		t.PLOC += fm.PLOC
		t.CLOC += fm.CLOC
		t.Blank += fm.Blank
		t.Cyclomatic += fm.Cyclomatic
		if w := fm.Weighted; w != nil {
			t.Covered += w.Covered
			t.Executable += w.Executable
			coveredWeight += w.CoveredWeight
			executableWeight += w.ExecutableWeight
		}
	}
	if t.Executable > 0 {
		t.Coverage = float64(t.Covered) / float64(t.Executable)
	}
	if executableWeight > 0 {
		t.WCC = coveredWeight / executableWeight
	}

	for _, path := range slices.Sorted(maps.Keys(s.failures)) {
		sum.Failures = append(sum.Failures, s.failures[path])
	}
	t.Failed = len(sum.Failures)
	t.Ignored = s.ignored
	return sum
}
