// Package main provides the wcc command. It walks a source tree, computes
// complexity and weighted coverage metrics for every file and writes the
// aggregate as a JSON, CSV or HTML report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/isseis/go-wcc/internal/analyzer"
	"github.com/isseis/go-wcc/internal/config"
	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/logging"
	"github.com/isseis/go-wcc/internal/report"
	"github.com/isseis/go-wcc/internal/telemetry"
	"github.com/isseis/go-wcc/internal/terminal"
)

// Exit codes
const (
	exitOK       = 0
	exitUsage    = 1
	exitInput    = 2
	exitOutput   = 3
	exitInternal = 4
)

var errTooManyRoots = errors.New("at most one root directory may be given")

// patternList is a repeatable string flag.
type patternList []string

func (p *patternList) String() string {
	return strings.Join(*p, ",")
}

func (p *patternList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

type cliOptions struct {
	configPath     string
	format         string
	output         string
	coverage       string
	workers        int
	onError        string
	logLevel       string
	logFile        string
	metricsFile    string
	color          bool
	noColor        bool
	strictLanguage bool
	include        patternList
	exclude        patternList
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	runID := logging.GenerateRunID()

	cfg, opts, fs, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		printUsage(fs, stderr)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		logging.ReportFailure(stderr, err, runID)
		return exitUsage
	}

	termOpts := terminal.Options{ForceColor: opts.color, DisableColor: opts.noColor}
	console, isFile := stderr.(*os.File)
	if !isFile {
		notTerminal := false
		termOpts.Interactive = &notTerminal
	}
	caps := terminal.Detect(termOpts, console)

	logger, closeLog, err := logging.Setup(logging.Config{
		Level:   level,
		Console: stderr,
		Color:   caps.SupportsColor(),
		File:    cfg.Log.File,
		RunID:   runID,
	})
	if err != nil {
		logging.ReportFailure(stderr, err, runID)
		return exitCode(err)
	}
	defer func() { _ = closeLog() }()
	logger.Debug("Console detected", "interactive", caps.IsInteractive(), "color", caps.SupportsColor())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	onError, err := analyzer.ParseOnError(cfg.OnError)
	if err != nil {
		logging.ReportFailure(stderr, err, runID)
		return exitUsage
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		logging.ReportFailure(stderr, err, runID)
		return exitCode(err)
	}

	rec := telemetry.New()
	summary, err := analyzer.Run(ctx, analyzer.Options{
		Root:           cfg.Root,
		CoveragePath:   cfg.Coverage,
		Workers:        cfg.Workers,
		OnError:        onError,
		StrictLanguage: cfg.StrictLanguage,
		Walk:           cfg.WalkOptions(),
		RunID:          runID,
		Logger:         logger,
		Telemetry:      rec,
	})
	if err != nil {
		logger.Error("Analysis failed", "error", err)
		logging.ReportFailure(stderr, err, runID)
		return exitCode(err)
	}

	path, err := report.Write(cfg.Output, format, summary)
	if err != nil {
		logger.Error("Failed to write report", "error", err)
		logging.ReportFailure(stderr, err, runID)
		return exitCode(err)
	}

	if cfg.MetricsFile != "" {
		if err := rec.WriteFile(cfg.MetricsFile); err != nil {
			logger.Error("Failed to write metrics file", "error", err)
			logging.ReportFailure(stderr, err, runID)
			return exitCode(err)
		}
	}

	_, _ = fmt.Fprintf(stdout, "Analyzed %d files (%d failed, %d ignored)\n",
		summary.Totals.Files, summary.Totals.Failed, summary.Totals.Ignored)
	if summary.HasCoverage() {
		_, _ = fmt.Fprintf(stdout, "Coverage %.1f%%, WCC %.1f%%\n",
			100*summary.Totals.Coverage, 100*summary.Totals.WCC)
	}
	_, _ = fmt.Fprintf(stdout, "Report written to %s\n", path)
	return exitOK
}

// parseArgs builds the effective configuration: defaults, then the config
// file if one is given, then the flags the user actually set.
func parseArgs(args []string, stderr io.Writer) (*config.Config, *cliOptions, *flag.FlagSet, error) {
	opts := &cliOptions{}
	defaults := config.Default()

	fs := flag.NewFlagSet("wcc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }
	fs.StringVar(&opts.configPath, "config", "", "path to a TOML or YAML config file")
	fs.StringVar(&opts.format, "format", defaults.Format, "report format (json, csv, html)")
	fs.StringVar(&opts.output, "output", defaults.Output, "directory receiving the report")
	fs.StringVar(&opts.coverage, "coverage", "", "coveralls or covdir JSON coverage report")
	fs.IntVar(&opts.workers, "workers", defaults.Workers, "number of files analyzed in parallel")
	fs.StringVar(&opts.onError, "on-error", defaults.OnError, "failure policy (abort, skip)")
	fs.StringVar(&opts.logLevel, "log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFile, "log-file", "", "file receiving JSON log records")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "file receiving Prometheus metrics of the run")
	fs.BoolVar(&opts.color, "color", false, "force colored log output")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colored log output")
	fs.BoolVar(&opts.strictLanguage, "strict-language", false, "fail on files of unknown language")
	fs.Var(&opts.include, "include", "glob of files to analyze (repeatable)")
	fs.Var(&opts.exclude, "exclude", "glob of files or directories to skip (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, opts, fs, err
	}
	if fs.NArg() > 1 {
		return nil, opts, fs, errTooManyRoots
	}

	cfg := defaults
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, opts, fs, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = opts.format
		case "output":
			cfg.Output = opts.output
		case "coverage":
			cfg.Coverage = opts.coverage
		case "workers":
			cfg.Workers = opts.workers
		case "on-error":
			cfg.OnError = opts.onError
		case "log-level":
			cfg.Log.Level = opts.logLevel
		case "log-file":
			cfg.Log.File = opts.logFile
		case "metrics-file":
			cfg.MetricsFile = opts.metricsFile
		case "strict-language":
			cfg.StrictLanguage = opts.strictLanguage
		case "include":
			cfg.Include = opts.include
		case "exclude":
			cfg.Exclude = opts.exclude
		}
	})
	if fs.NArg() == 1 {
		cfg.Root = fs.Arg(0)
	}

	if err := cfg.Validate(); err != nil {
		return nil, opts, fs, err
	}
	return cfg, opts, fs, nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	if fs == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Usage: %s [flags] [root]\n", filepath.Base(os.Args[0]))
	fs.PrintDefaults()
}

// exitCode maps err to the process exit status. Errors outside the failure
// taxonomy come from argument or configuration handling.
func exitCode(err error) int {
	kind, ok := failure.KindOf(err)
	if !ok {
		return exitUsage
	}
	switch kind {
	case failure.KindFileIO,
		failure.KindPathPrefix,
		failure.KindFuncSpaceNaming,
		failure.KindJSONDecode,
		failure.KindConversion,
		failure.KindMapLookup,
		failure.KindJSONFromString,
		failure.KindMetricsCompute,
		failure.KindLanguageDetect,
		failure.KindUnsupportedFormat,
		failure.KindPathToString:
		return exitInput
	case failure.KindCSVWrite,
		failure.KindOutputPath,
		failure.KindTemplateRender:
		return exitOutput
	case failure.KindConcurrency,
		failure.KindOptionUnwrap,
		failure.KindLockPoisoned,
		failure.KindChannelSend:
		return exitInternal
	}
	panic(fmt.Sprintf("unhandled failure kind %d", int(kind)))
}
