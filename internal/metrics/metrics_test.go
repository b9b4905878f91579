package metrics

import (
	"testing"

	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rustSource = `// Adds numbers.
fn add(a: i32, b: i32) -> i32 {
    if a > 0 && b > 0 {
        return a + b;
    }

    a - b /* inline */
}

/*
 * block
 */
pub fn main() {
    let s = "fn fake() { if";
    println!("{}", add(1, 2));
}
`

const pythonSource = `import os

def outer(x):
    """Docstring."""
    if x and os.path:
        return 1
    def inner():
        return 2
    return inner()

class C:
    def method(self):
        for i in range(3):
            pass
`

func mustLang(t *testing.T, name string) language.Language {
	t.Helper()
	lang, ok := language.ByName(name)
	require.True(t, ok, "language %s", name)
	return lang
}

func TestCompute_Rust(t *testing.T) {
	fm, err := Compute("src/lib.rs", mustLang(t, "Rust"), []byte(rustSource))
	require.NoError(t, err)

	assert.Equal(t, "Rust", fm.Language)
	assert.Equal(t, 16, fm.SLOC)
	assert.Equal(t, 10, fm.PLOC)
	assert.Equal(t, 5, fm.CLOC)
	assert.Equal(t, 2, fm.Blank)

	require.Len(t, fm.Functions, 2)
	assert.Equal(t, Function{Name: "src/lib.rs::add", StartLine: 2, EndLine: 8, Cyclomatic: 3}, fm.Functions[0])
	assert.Equal(t, Function{Name: "src/lib.rs::main", StartLine: 13, EndLine: 16, Cyclomatic: 1}, fm.Functions[1])
	assert.Equal(t, 1, fm.UnitCyclomatic)
	assert.Equal(t, 5, fm.Cyclomatic)
	assert.Nil(t, fm.Weighted)
}

func TestCompute_Python(t *testing.T) {
	fm, err := Compute("pkg/mod.py", mustLang(t, "Python"), []byte(pythonSource))
	require.NoError(t, err)

	assert.Equal(t, 14, fm.SLOC)
	assert.Equal(t, 11, fm.PLOC)
	assert.Equal(t, 1, fm.CLOC)
	assert.Equal(t, 2, fm.Blank)

	require.Len(t, fm.Functions, 3)
	assert.Equal(t, Function{Name: "pkg/mod.py::outer", StartLine: 3, EndLine: 9, Cyclomatic: 3}, fm.Functions[0])
	assert.Equal(t, Function{Name: "pkg/mod.py::inner", StartLine: 7, EndLine: 8, Cyclomatic: 1}, fm.Functions[1])
	assert.Equal(t, Function{Name: "pkg/mod.py::method", StartLine: 12, EndLine: 14, Cyclomatic: 2}, fm.Functions[2])
	assert.Equal(t, 7, fm.Cyclomatic)
}

func TestCompute_CDeclarationsAreNotSpaces(t *testing.T) {
	src := "int f(void);\nint f(void) {\n  return 0;\n}\n"
	fm, err := Compute("f.c", mustLang(t, "C"), []byte(src))
	require.NoError(t, err)
	require.Len(t, fm.Functions, 1)
	assert.Equal(t, 2, fm.Functions[0].StartLine)
	assert.Equal(t, 4, fm.Functions[0].EndLine)
}

func TestCompute_CharLiteralBraces(t *testing.T) {
	src := "fn open() -> char {\n    '{'\n}\n"
	fm, err := Compute("a.rs", mustLang(t, "Rust"), []byte(src))
	require.NoError(t, err)
	require.Len(t, fm.Functions, 1)
	assert.Equal(t, 3, fm.Functions[0].EndLine)
}

func TestCompute_AnonymousFunction(t *testing.T) {
	src := "export default function () {\n  return 1;\n}\n"
	fm, err := Compute("a.js", mustLang(t, "JavaScript"), []byte(src))
	require.NoError(t, err)
	require.Len(t, fm.Functions, 1)
	assert.Equal(t, "a.js::<anonymous>", fm.Functions[0].Name)
}

func TestCompute_EmptyFile(t *testing.T) {
	fm, err := Compute("empty.go", mustLang(t, "Go"), nil)
	require.NoError(t, err)
	assert.Zero(t, fm.SLOC)
	assert.Empty(t, fm.Functions)
	assert.Equal(t, 1, fm.Cyclomatic)
}

func TestCompute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		lang    string
		path    string
		src     string
		kind    failure.Kind
		wantErr error
	}{
		{
			name:    "extra closing brace",
			lang:    "Rust",
			path:    "a.rs",
			src:     "fn main() {\n}\n}\n",
			kind:    failure.KindMetricsCompute,
			wantErr: ErrUnbalancedBraces,
		},
		{
			name:    "unclosed scope",
			lang:    "Go",
			path:    "a.go",
			src:     "func main() {\n\tif x {\n}\n",
			kind:    failure.KindMetricsCompute,
			wantErr: ErrUnbalancedBraces,
		},
		{
			name:    "invalid utf-8",
			lang:    "C",
			path:    "a.c",
			src:     "int x = 1;\n\xff\xfe\n",
			kind:    failure.KindMetricsCompute,
			wantErr: ErrInvalidUTF8,
		},
		{
			name:    "mixed indentation",
			lang:    "Python",
			path:    "a.py",
			src:     "def f():\n \treturn 1\n",
			kind:    failure.KindMetricsCompute,
			wantErr: ErrInconsistentIndent,
		},
		{
			name:    "method without a name",
			lang:    "Go",
			path:    "a.go",
			src:     "func (r *T) () {\n}\n",
			kind:    failure.KindFuncSpaceNaming,
			wantErr: ErrUnnamedFunction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.path, mustLang(t, tt.lang), []byte(tt.src))
			require.Error(t, err)
			assert.True(t, failure.Is(err, tt.kind), "got %v", err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestCountDecisions(t *testing.T) {
	tests := []struct {
		lang string
		code string
		want int
	}{
		{lang: "JavaScript", code: "a ?? b ? c : d", want: 2},
		{lang: "Rust", code: "match x { A => 1, B => 2 }", want: 2},
		{lang: "Rust", code: "match x { _ => 0 }", want: 1},
		{lang: "Go", code: "if x && y || z {", want: 3},
		{lang: "Go", code: "iffy := forEach", want: 0},
		{lang: "Python", code: "while a or b and c:", want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, countDecisions(tt.code, mustLang(t, tt.lang)))
		})
	}
}

func TestWeigh(t *testing.T) {
	fm, err := Compute("src/lib.rs", mustLang(t, "Rust"), []byte(rustSource))
	require.NoError(t, err)

	hits := []int{-1, 1, 1, 0, -1, -1, 1, -1, -1, -1, -1, -1, 1, 1, 1, -1}
	require.NoError(t, Weigh(fm, hits))

	w := fm.Weighted
	require.NotNil(t, w)
	assert.Equal(t, 6, w.Covered)
	assert.Equal(t, 7, w.Executable)
	assert.InDelta(t, 6.0/7.0, w.Coverage, 1e-9)
	assert.InDelta(t, 12.0, w.CoveredWeight, 1e-9)
	assert.InDelta(t, 15.0, w.ExecutableWeight, 1e-9)
	assert.InDelta(t, 0.8, w.WCC, 1e-9)
	assert.InDelta(t, 25.0/343.0+5, w.CRAP, 1e-9)
	assert.InDelta(t, 20.0/7.0, w.Skunk, 1e-9)

	add := fm.Functions[0].Weighted
	require.NotNil(t, add)
	assert.InDelta(t, 0.75, add.Coverage, 1e-9)
	assert.InDelta(t, 3.140625, add.CRAP, 1e-9)
	assert.InDelta(t, 3.0, add.Skunk, 1e-9)

	main := fm.Functions[1].Weighted
	require.NotNil(t, main)
	assert.InDelta(t, 1.0, main.Coverage, 1e-9)
	assert.InDelta(t, 1.0, main.CRAP, 1e-9)
	assert.InDelta(t, 0.04, main.Skunk, 1e-9)
}

func TestWeigh_NothingExecutable(t *testing.T) {
	fm, err := Compute("a.rs", mustLang(t, "Rust"), []byte("// only a comment\n"))
	require.NoError(t, err)
	require.NoError(t, Weigh(fm, []int{-1}))
	assert.Zero(t, fm.Weighted.Coverage)
	assert.Zero(t, fm.Weighted.WCC)
}

func TestWeigh_MoreLinesThanSource(t *testing.T) {
	fm, err := Compute("a.rs", mustLang(t, "Rust"), []byte("fn a() {}\n"))
	require.NoError(t, err)

	err = Weigh(fm, []int{1, 1, 1})
	assert.True(t, failure.Is(err, failure.KindMetricsCompute))
	assert.ErrorIs(t, err, ErrCoverageMismatch)
}
