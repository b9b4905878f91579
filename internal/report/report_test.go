package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isseis/go-wcc/internal/analyzer"
	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("no space left on device")

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errDiskFull
}

func sampleSummary() *analyzer.Summary {
	covered := &metrics.Weighted{Covered: 3, Executable: 4, Coverage: 0.75, WCC: 0.75, CRAP: 2.5, Skunk: 2}
	return &analyzer.Summary{
		RunID:          "01HZX3J9V6Q8W2K4M7N5P0R1ST",
		Root:           "/src/project",
		CoverageFormat: "coveralls",
		StartedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Totals:         analyzer.Totals{Files: 2, Failed: 1, SLOC: 9, Cyclomatic: 5, Covered: 3, Executable: 4, Coverage: 0.75, WCC: 0.75},
		Files: []*metrics.FileMetrics{
			{
				Path: "src/lib.rs", Language: "Rust", SLOC: 6, PLOC: 6, Cyclomatic: 3, UnitCyclomatic: 1,
				Functions: []metrics.Function{
					{Name: "src/lib.rs::add", StartLine: 1, EndLine: 6, Cyclomatic: 2, Weighted: covered},
				},
				Weighted: covered,
			},
			{Path: "src/util.rs", Language: "Rust", SLOC: 3, PLOC: 3, Cyclomatic: 2, UnitCyclomatic: 2},
		},
		Failures: []analyzer.FileFailure{
			{Path: "src/bad.rs", Kind: failure.KindMetricsCompute, Message: "Error while computing Metrics: caused by: unbalanced braces"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "csv", "html"} {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, Format(s), f)
	}

	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindOutputPath))
	assert.Equal(t, "output format must be one of json, csv, html", err.Error())
}

func TestValidateOutput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	tests := []struct {
		name    string
		path    string
		format  Format
		wantMsg string
	}{
		{name: "existing directory", path: dir, format: FormatJSON},
		{name: "directory to be created", path: filepath.Join(dir, "out"), format: FormatHTML},
		{name: "empty path", path: "", format: FormatCSV, wantMsg: "output path must not be empty"},
		{name: "regular file", path: file, format: FormatCSV, wantMsg: "destination must be a directory"},
		{name: "bad format", path: dir, format: "pdf", wantMsg: "output format must be one of json, csv, html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutput(tt.path, tt.format)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, failure.Is(err, failure.KindOutputPath))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleSummary()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "01HZX3J9V6Q8W2K4M7N5P0R1ST", doc["run_id"])
	failures := doc["failures"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, "metrics_compute", failures[0].(map[string]any)["kind"])
}

func TestWriteJSON_WriteFailure(t *testing.T) {
	err := WriteJSON(brokenWriter{}, sampleSummary())
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindFileIO))
	assert.ErrorIs(t, err, errDiskFull)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleSummary()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"src/lib.rs", "Rust", "6", "6", "0", "0", "3", "1", "0.7500", "0.7500", "2.5000", "2.0000"}, rows[1])
	assert.Equal(t, []string{"", "", "", ""}, rows[2][8:])
}

func TestWriteCSV_WriteFailure(t *testing.T) {
	err := WriteCSV(brokenWriter{}, sampleSummary())
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindCSVWrite))
	assert.Contains(t, err.Error(), "Error while writing on csv: caused by: no space left on device")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleSummary()))

	page := buf.String()
	assert.Contains(t, page, "<td>src/lib.rs</td>")
	assert.Contains(t, page, "src/lib.rs::add (1-6)")
	assert.Contains(t, page, "<td>75.0%</td>")
	assert.Contains(t, page, "metrics_compute")
	assert.Equal(t, 1, strings.Count(page, "<td>-</td><td>-</td><td>-</td><td>-</td>"))
}

func TestHTMLTemplateFailures(t *testing.T) {
	t.Run("parse error", func(t *testing.T) {
		_, err := parseTemplate("bad", "{{if}")
		require.Error(t, err)
		assert.True(t, failure.Is(err, failure.KindTemplateRender))
	})

	t.Run("missing field", func(t *testing.T) {
		tmpl, err := parseTemplate("missing", "{{.Nope}}")
		require.NoError(t, err)
		err = execute(&bytes.Buffer{}, tmpl, htmlData{Summary: sampleSummary()})
		require.Error(t, err)
		assert.True(t, failure.Is(err, failure.KindTemplateRender))
	})

	t.Run("absent scores", func(t *testing.T) {
		tmpl, err := parseTemplate("unguarded", "{{range .Summary.Files}}{{(weighted .Weighted).WCC}}{{end}}")
		require.NoError(t, err)
		err = execute(&bytes.Buffer{}, tmpl, htmlData{Summary: sampleSummary()})
		require.Error(t, err)
		assert.True(t, failure.Is(err, failure.KindOptionUnwrap), "got %v", err)
	})
}

func TestWrite(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatCSV, FormatHTML} {
		t.Run(string(format), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "reports")
			path, err := Write(dir, format, sampleSummary())
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, format.FileName()), path)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}
}

func TestWrite_RejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := Write(file, FormatJSON, sampleSummary())
	require.Error(t, err)
	assert.Equal(t, "destination must be a directory", err.Error())
}
