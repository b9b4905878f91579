package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/isseis/go-wcc/internal/failure"
	"github.com/lmittmann/tint"
	"github.com/oklog/ulid/v2"
)

// File permissions for log files
const (
	logDirPerm  = 0o750
	logFilePerm = 0o600
)

// schemaVersion versions the attributes of JSON log records.
const schemaVersion = 1

// ErrNoConsole is returned by Setup when no console writer is given.
var ErrNoConsole = errors.New("console writer must not be nil")

// Config holds everything Setup needs.
type Config struct {
	Level slog.Level
	// Console receives human-readable records, usually stderr.
	Console io.Writer
	// Color selects the colored console handler.
	Color bool
	// File optionally names a file receiving JSON records. Its directory
	// is created when missing.
	File  string
	RunID string
}

// GenerateRunID returns a new identifier for a run. ULIDs sort by creation
// time, so log files and reports of successive runs list in order.
func GenerateRunID() string {
	return ulid.Make().String()
}

// Setup builds the logger of a run. The returned close function releases
// the log file, if any, and must be called once logging is over. A log file
// that cannot be created is a failure.KindFileIO.
func Setup(cfg Config) (*slog.Logger, func() error, error) {
	if cfg.Console == nil {
		return nil, nil, ErrNoConsole
	}

	var console slog.Handler
	if cfg.Color {
		console = tint.NewHandler(cfg.Console, &tint.Options{
			Level:      cfg.Level,
			TimeFormat: time.Kitchen,
		})
	} else {
		console = slog.NewTextHandler(cfg.Console, &slog.HandlerOptions{Level: cfg.Level})
	}

	closeFn := func() error { return nil }
	handlers := []slog.Handler{console}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), logDirPerm); err != nil {
			return nil, nil, failure.FromIO(err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm) // #nosec G304 -- cfg.File is the user-selected log file
		if err != nil {
			return nil, nil, failure.FromIO(err)
		}
		closeFn = f.Close

		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.Level}).
			WithAttrs([]slog.Attr{
				slog.String("hostname", hostname),
				slog.Int("pid", os.Getpid()),
				slog.Int("schema_version", schemaVersion),
				slog.String("run_id", cfg.RunID),
			}))
	}

	return slog.New(NewMultiHandler(handlers...)), closeFn, nil
}
