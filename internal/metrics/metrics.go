// Package metrics computes line counts, cyclomatic complexity and the
// coverage-weighted scores of a single source file.
//
// The engine is line and token based rather than a full parser: comments
// and string literals are stripped, decision tokens are counted, and
// function spaces are recognised by a per-language definition pattern and
// delimited by braces or indentation.
package metrics

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/language"
)

// Static errors used as causes of classified failures.
var (
	// ErrInvalidUTF8 indicates source text that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("source is not valid UTF-8")
	// ErrUnbalancedBraces indicates a closing brace without a matching opening one,
	// or a scope left open at the end of the file.
	ErrUnbalancedBraces = errors.New("unbalanced braces")
	// ErrInconsistentIndent indicates indentation mixing tabs and spaces.
	ErrInconsistentIndent = errors.New("inconsistent use of tabs and spaces in indentation")
	// ErrUnnamedFunction indicates a function definition without a name.
	ErrUnnamedFunction = errors.New("function definition has no name")
)

// anonymousName is the name given to functions of languages that allow
// unnamed definitions.
const anonymousName = "<anonymous>"

// FileMetrics holds the metrics of one source file.
type FileMetrics struct {
	Path     string `json:"path"`
	Language string `json:"language"`

	// SLOC counts every line of the file.
	SLOC int `json:"sloc"`
	// PLOC counts lines holding code.
	PLOC int `json:"ploc"`
	// CLOC counts lines holding a comment, including lines that also hold code.
	CLOC int `json:"cloc"`
	// Blank counts lines holding only whitespace.
	Blank int `json:"blank"`

	// Cyclomatic is the complexity of the whole file: the unit space plus
	// every function space.
	Cyclomatic int `json:"cyclomatic"`
	// UnitCyclomatic is the complexity of code outside any function.
	UnitCyclomatic int `json:"unit_cyclomatic"`

	Functions []Function `json:"functions"`

	// Weighted is set by Weigh when coverage data exists for the file.
	Weighted *Weighted `json:"weighted,omitempty"`
}

// Function is one function space.
type Function struct {
	// Name is the qualified name "<path>::<function>".
	Name       string    `json:"name"`
	StartLine  int       `json:"start_line"`
	EndLine    int       `json:"end_line"`
	Cyclomatic int       `json:"cyclomatic"`
	Weighted   *Weighted `json:"weighted,omitempty"`
}

// Contains reports whether line (1-based) lies inside the function.
func (f Function) Contains(line int) bool {
	return line >= f.StartLine && line <= f.EndLine
}

// Compute returns the metrics of src, a file at path written in lang.
//
// Failures are classified as failure.KindMetricsCompute when the text
// cannot be scanned into balanced scopes, and failure.KindFuncSpaceNaming
// when a function definition yields no name.
func Compute(path string, lang language.Language, src []byte) (*FileMetrics, error) {
	if !utf8.Valid(src) {
		return nil, failure.Wrap(failure.KindMetricsCompute, fmt.Errorf("%w: %s at byte %d", ErrInvalidUTF8, path, invalidOffset(src)))
	}

	lines := splitLines(string(src))
	fm := &FileMetrics{
		Path:     path,
		Language: lang.Name,
		SLOC:     len(lines),
	}

	scanned := scanLines(lines, lang)
	for _, l := range scanned {
		switch {
		case l.code == "" && !l.comment:
			fm.Blank++
		case l.code == "":
			fm.CLOC++
		default:
			fm.PLOC++
			if l.comment {
				fm.CLOC++
			}
		}
	}

	var (
		tree *scopeTree
		err  error
	)
	if lang.Braces {
		tree, err = braceScopes(path, scanned, lang)
	} else {
		tree, err = indentScopes(path, scanned, lang)
	}
	if err != nil {
		return nil, err
	}

	fm.UnitCyclomatic = 1 + tree.unitDecisions
	fm.Cyclomatic = fm.UnitCyclomatic
	fm.Functions = make([]Function, 0, len(tree.funcs))
	for _, f := range tree.funcs {
		fn := Function{
			Name:       f.name,
			StartLine:  f.start,
			EndLine:    f.end,
			Cyclomatic: 1 + f.decisions,
		}
		fm.Functions = append(fm.Functions, fn)
		fm.Cyclomatic += fn.Cyclomatic
	}
	return fm, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}

func qualify(path, name string) string {
	return path + "::" + name
}

func unnamedFunction(path string, line int) error {
	return failure.Wrap(failure.KindFuncSpaceNaming, fmt.Errorf("%w: %s:%d", ErrUnnamedFunction, path, line))
}
