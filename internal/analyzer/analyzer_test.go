package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/telemetry"
	"github.com/isseis/go-wcc/internal/walker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libRS = `fn add(a: i32) -> i32 {
    if a > 0 {
        return a;
    }
    0
}
`

const mainGo = `package main

func main() {
	for i := 0; i < 3; i++ {
	}
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return root
}

func sampleTree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"src/lib.rs":  libRS,
		"cmd/main.go": mainGo,
		"src/bad.rs":  "fn broken() {\n}\n}\n",
		"README.md":   "# sample\n",
	})
}

func TestParseOnError(t *testing.T) {
	p, err := ParseOnError("abort")
	require.NoError(t, err)
	assert.Equal(t, OnErrorAbort, p)

	_, err = ParseOnError("retry")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestRun_SkipPolicy(t *testing.T) {
	root := sampleTree(t)

	s, err := Run(context.Background(), Options{Root: root, Workers: 3, OnError: OnErrorSkip})
	require.NoError(t, err)

	assert.Len(t, s.RunID, 26)
	assert.Equal(t, 2, s.Totals.Files)
	assert.Equal(t, 1, s.Totals.Failed)
	assert.Equal(t, 1, s.Totals.Ignored)
	assert.Equal(t, 2, s.Totals.Functions)
	assert.Equal(t, 6, s.Totals.Cyclomatic)

	require.Len(t, s.Files, 2)
	assert.Equal(t, "cmd/main.go", s.Files[0].Path)
	assert.Equal(t, "src/lib.rs", s.Files[1].Path)

	require.Len(t, s.Failures, 1)
	assert.Equal(t, "src/bad.rs", s.Failures[0].Path)
	assert.Equal(t, failure.KindMetricsCompute, s.Failures[0].Kind)
	assert.Contains(t, s.Failures[0].Message, "Error while computing Metrics")
	assert.False(t, s.HasCoverage())
}

func TestRun_AbortPolicy(t *testing.T) {
	root := sampleTree(t)

	s, err := Run(context.Background(), Options{Root: root, Workers: 2, OnError: OnErrorAbort})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, failure.Is(err, failure.KindMetricsCompute), "got %v", err)
}

func TestRun_StrictLanguage(t *testing.T) {
	root := sampleTree(t)

	s, err := Run(context.Background(), Options{
		Root:           root,
		StrictLanguage: true,
		Walk:           walker.Options{Exclude: []string{"bad.rs"}},
	})
	require.NoError(t, err)
	require.Len(t, s.Failures, 1)
	assert.Equal(t, "README.md", s.Failures[0].Path)
	assert.Equal(t, failure.KindLanguageDetect, s.Failures[0].Kind)
	assert.Zero(t, s.Totals.Ignored)
}

func TestRun_WithCoverage(t *testing.T) {
	root := writeTree(t, map[string]string{"src/lib.rs": libRS})
	report := filepath.Join(t.TempDir(), "coveralls.json")
	require.NoError(t, os.WriteFile(report, []byte(`{
  "source_files": [
    {"name": "src/lib.rs", "coverage": [1, 1, 0, null, 1, null]},
    {"name": "src/removed.rs", "coverage": [1]}
  ]
}`), 0o600))

	rec := telemetry.New()
	s, err := Run(context.Background(), Options{Root: root, CoveragePath: report, RunID: "run-1", Telemetry: rec})
	require.NoError(t, err)

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "coveralls", s.CoverageFormat)
	assert.True(t, s.HasCoverage())
	require.Len(t, s.Files, 1)
	require.NotNil(t, s.Files[0].Weighted)
	assert.Equal(t, 3, s.Totals.Covered)
	assert.Equal(t, 4, s.Totals.Executable)
	assert.InDelta(t, 0.75, s.Totals.Coverage, 1e-9)
	assert.InDelta(t, 0.75, s.Totals.WCC, 1e-9)
	assert.Equal(t, 1, s.Totals.UnmatchedCoverage)
}

func TestRun_CoverageFailures(t *testing.T) {
	root := writeTree(t, map[string]string{"a.rs": "fn a() {}\n"})

	t.Run("missing report", func(t *testing.T) {
		_, err := Run(context.Background(), Options{Root: root, CoveragePath: filepath.Join(root, "nope.json")})
		assert.True(t, failure.Is(err, failure.KindFileIO))
	})

	t.Run("unsupported report", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "cov.json")
		require.NoError(t, os.WriteFile(p, []byte(`{"lcov": true}`), 0o600))
		_, err := Run(context.Background(), Options{Root: root, CoveragePath: p})
		assert.True(t, failure.Is(err, failure.KindUnsupportedFormat))
	})

	t.Run("more coverage lines than source", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "cov.json")
		require.NoError(t, os.WriteFile(p, []byte(`{"source_files": [{"name": "a.rs", "coverage": [1, 1, 1]}]}`), 0o600))
		s, err := Run(context.Background(), Options{Root: root, CoveragePath: p})
		require.NoError(t, err)
		require.Len(t, s.Failures, 1)
		assert.Equal(t, failure.KindMetricsCompute, s.Failures[0].Kind)
	})
}

func TestRun_MissingRoot(t *testing.T) {
	_, err := Run(context.Background(), Options{Root: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindFileIO))
}

func TestRun_Cancelled(t *testing.T) {
	root := sampleTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{Root: root})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindConcurrency))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyTree(t *testing.T) {
	s, err := Run(context.Background(), Options{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, s.Files)
	assert.Empty(t, s.Failures)
	assert.NotNil(t, s.Files)
}
