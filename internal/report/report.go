// Package report renders an analysis Summary as JSON, CSV or HTML.
package report

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/isseis/go-wcc/internal/analyzer"
	"github.com/isseis/go-wcc/internal/failure"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Explanations carried by failure.KindOutputPath.
const (
	msgEmptyPath  = "output path must not be empty"
	msgNotDir     = "destination must be a directory"
	msgBadFormat  = "output format must be one of json, csv, html"
	outputDirPerm = 0o750
	outputPerm    = 0o644
)

// ParseFormat converts s into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.valid() {
		return "", failure.OutputPath(msgBadFormat)
	}
	return f, nil
}

func (f Format) valid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatHTML:
		return true
	default:
		return false
	}
}

// FileName returns the name of the report file written for f.
func (f Format) FileName() string {
	if f == FormatHTML {
		return "index.html"
	}
	return "wcc." + string(f)
}

// ValidateOutput checks that dir can receive a report in format. dir may
// not exist yet; Write creates it. Rejections are failure.KindOutputPath.
func ValidateOutput(dir string, format Format) error {
	if dir == "" {
		return failure.OutputPath(msgEmptyPath)
	}
	if !format.valid() {
		return failure.OutputPath(msgBadFormat)
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return failure.FromIO(err)
	case !info.IsDir():
		return failure.OutputPath(msgNotDir)
	}
	return nil
}

// Write renders s into dir and returns the path of the written file.
func Write(dir string, format Format, s *analyzer.Summary) (string, error) {
	if err := ValidateOutput(dir, format); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, outputDirPerm); err != nil {
		return "", failure.FromIO(err)
	}

	path := filepath.Join(dir, format.FileName())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputPerm) // #nosec G302 G304 -- reports are meant to be shared
	if err != nil {
		return "", failure.FromIO(err)
	}

	err = render(f, format, s)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = failure.FromIO(closeErr)
	}
	if err != nil {
		return "", err
	}

	slog.Debug("Report written", "path", path, "format", string(format))
	return path, nil
}

func render(w io.Writer, format Format, s *analyzer.Summary) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, s)
	case FormatCSV:
		return WriteCSV(w, s)
	case FormatHTML:
		return WriteHTML(w, s)
	default:
		return failure.OutputPath(msgBadFormat)
	}
}
