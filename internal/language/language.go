// Package language guesses the programming language of a source file and
// describes the lexical features the metric engine needs for it.
package language

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/isseis/go-wcc/internal/failure"
)

// ErrUnknownLanguage indicates that neither the extension nor the first line
// of a file identifies a supported language.
var ErrUnknownLanguage = errors.New("unknown language")

// Language describes one supported language.
type Language struct {
	// Name is the display name, e.g. "Rust".
	Name string
	// LineComment starts a comment that runs to the end of the line.
	LineComment string
	// BlockComment holds the opening and closing block comment markers, if any.
	BlockComment [2]string
	// SingleQuoteStrings reports whether single quotes delimit strings rather
	// than character literals.
	SingleQuoteStrings bool
	// Braces reports whether scopes are delimited with curly braces. When
	// false, scopes follow indentation.
	Braces bool
	// FuncPattern matches a function definition on one line. Its first
	// capture group is the function name.
	FuncPattern *regexp.Regexp
	// AnonymousFuncs reports whether a function definition may legitimately
	// have no name.
	AnonymousFuncs bool
	// Decisions are tokens that each add one to cyclomatic complexity.
	Decisions []string
}

var (
	cFamilyDecisions = []string{"if", "for", "while", "case", "catch", "&&", "||", "?"}

	rust = Language{
		Name:         "Rust",
		LineComment:  "//",
		BlockComment: [2]string{"/*", "*/"},
		Braces:       true,
		FuncPattern:  regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+"[^"]*"\s+)?fn\s+([A-Za-z_0-9]*)`),
		Decisions:    []string{"if", "for", "while", "loop", "=>", "&&", "||", "?"},
	}
	golang = Language{
		Name:         "Go",
		LineComment:  "//",
		BlockComment: [2]string{"/*", "*/"},
		Braces:       true,
		FuncPattern:  regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?([A-Za-z_0-9]*)`),
		Decisions:    []string{"if", "for", "case", "select", "&&", "||"},
	}
	c = Language{
		Name:         "C",
		LineComment:  "//",
		BlockComment: [2]string{"/*", "*/"},
		Braces:       true,
		FuncPattern:  regexp.MustCompile(`^[A-Za-z_][\w\s\*]*?\b([A-Za-z_]\w*)\s*\([^;]*\)\s*\{?\s*$`),
		Decisions:    cFamilyDecisions,
	}
	cpp = Language{
		Name:         "C++",
		LineComment:  "//",
		BlockComment: [2]string{"/*", "*/"},
		Braces:       true,
		FuncPattern:  regexp.MustCompile(`^[A-Za-z_][\w\s\*&:<>,]*?\b([A-Za-z_~][\w:]*)\s*\([^;]*\)\s*(?:const\s*)?\{?\s*$`),
		Decisions:    cFamilyDecisions,
	}
	java = Language{
		Name:         "Java",
		LineComment:  "//",
		BlockComment: [2]string{"/*", "*/"},
		Braces:       true,
		FuncPattern:  regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|abstract|synchronized)\s+)+[\w<>\[\],\s]+?\s+([A-Za-z_]\w*)\s*\(`),
		Decisions:    cFamilyDecisions,
	}
	javascript = Language{
		Name:               "JavaScript",
		LineComment:        "//",
		BlockComment:       [2]string{"/*", "*/"},
		SingleQuoteStrings: true,
		Braces:             true,
		FuncPattern:        regexp.MustCompile(`^\s*(?:export\s+(?:default\s+)?)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$0-9]*)`),
		AnonymousFuncs:     true,
		Decisions:          append(slices.Clone(cFamilyDecisions), "??"),
	}
	typescript = Language{
		Name:               "TypeScript",
		LineComment:        "//",
		BlockComment:       [2]string{"/*", "*/"},
		SingleQuoteStrings: true,
		Braces:             true,
		FuncPattern:        javascript.FuncPattern,
		AnonymousFuncs:     true,
		Decisions:          javascript.Decisions,
	}
	kotlin = Language{
		Name:         "Kotlin",
		LineComment:  "//",
		BlockComment: [2]string{"/*", "*/"},
		Braces:       true,
		FuncPattern:  regexp.MustCompile(`^\s*(?:(?:public|private|internal|protected|override|suspend|inline|open)\s+)*fun\s+(?:<[^>]*>\s*)?(?:[\w.]+\.)?([A-Za-z_0-9]*)`),
		Decisions:    []string{"if", "for", "while", "when", "->", "catch", "&&", "||", "?:"},
	}
	python = Language{
		Name:               "Python",
		LineComment:        "#",
		BlockComment:       [2]string{`"""`, `"""`},
		SingleQuoteStrings: true,
		Braces:             false,
		FuncPattern:        regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_0-9]*)`),
		Decisions:          []string{"if", "elif", "for", "while", "except", "and", "or"},
	}
)

var byExtension = map[string]Language{
	".rs":   rust,
	".go":   golang,
	".c":    c,
	".h":    c,
	".cc":   cpp,
	".cpp":  cpp,
	".cxx":  cpp,
	".hpp":  cpp,
	".hh":   cpp,
	".java": java,
	".js":   javascript,
	".mjs":  javascript,
	".cjs":  javascript,
	".jsx":  javascript,
	".ts":   typescript,
	".tsx":  typescript,
	".kt":   kotlin,
	".kts":  kotlin,
	".py":   python,
}

var byInterpreter = map[string]Language{
	"python":  python,
	"python3": python,
	"node":    javascript,
	"deno":    typescript,
}

// Detect returns the language of the file at path. head holds the first
// bytes of the file and is consulted for a shebang line when the extension
// is not recognised. It fails with failure.KindLanguageDetect.
func Detect(path string, head []byte) (Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := byExtension[ext]; ok {
		return lang, nil
	}
	if lang, ok := fromShebang(head); ok {
		return lang, nil
	}
	return Language{}, failure.Wrap(failure.KindLanguageDetect, fmt.Errorf("%w: %s", ErrUnknownLanguage, filepath.Base(path)))
}

// ByName returns the language with the given display name, ignoring case.
func ByName(name string) (Language, bool) {
	for _, lang := range byExtension {
		if strings.EqualFold(lang.Name, name) {
			return lang, true
		}
	}
	return Language{}, false
}

func fromShebang(head []byte) (Language, bool) {
	if !bytes.HasPrefix(head, []byte("#!")) {
		return Language{}, false
	}
	line, _, _ := bytes.Cut(head[2:], []byte("\n"))
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return Language{}, false
	}

	interp := filepath.Base(fields[0])
	if interp == "env" {
		// #!/usr/bin/env [-S] python3
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "-") {
				interp = f
				break
			}
		}
	}
	lang, ok := byInterpreter[interp]
	return lang, ok
}
