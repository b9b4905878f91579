package metrics

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/language"
)

// scannedLine is a source line with comments removed and string literals
// blanked out.
type scannedLine struct {
	// raw keeps leading whitespace; code is raw trimmed.
	raw     string
	code    string
	comment bool
}

func scanLines(lines []string, lang language.Language) []scannedLine {
	out := make([]scannedLine, len(lines))
	inBlock := false
	for i, line := range lines {
		out[i], inBlock = scanLine(line, lang, inBlock)
	}
	return out
}

func scanLine(line string, lang language.Language, inBlock bool) (scannedLine, bool) {
	var (
		b       strings.Builder
		comment bool
	)
	open, closing := lang.BlockComment[0], lang.BlockComment[1]

	for i := 0; i < len(line); {
		rest := line[i:]
		switch {
		case inBlock:
			comment = true
			idx := strings.Index(rest, closing)
			if idx < 0 {
				i = len(line)
				continue
			}
			i += idx + len(closing)
			inBlock = false
		case lang.LineComment != "" && strings.HasPrefix(rest, lang.LineComment):
			comment = true
			i = len(line)
		case open != "" && strings.HasPrefix(rest, open):
			comment = true
			inBlock = true
			i += len(open)
		case rest[0] == '"' || (lang.SingleQuoteStrings && rest[0] == '\''):
			b.WriteString(`""`)
			i += stringLiteralLen(rest)
		case rest[0] == '\'':
			if n := charLiteralLen(rest); n > 0 {
				b.WriteString("''")
				i += n
				continue
			}
			b.WriteByte('\'')
			i++
		default:
			b.WriteByte(rest[0])
			i++
		}
	}

	raw := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	return scannedLine{
		raw:     raw,
		code:    strings.TrimSpace(raw),
		comment: comment,
	}, inBlock
}

// stringLiteralLen returns the length of the string literal at the start of
// s, or len(s) when it is not closed on this line.
func stringLiteralLen(s string) int {
	quote := s[0]
	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

// charLiteralLen returns the length of a character literal such as 'a',
// '\n' or '→' at the start of s, or 0 when s starts with something else
// (a Rust lifetime, for example).
func charLiteralLen(s string) int {
	if len(s) < 3 {
		return 0
	}
	if s[1] == '\\' {
		if end := strings.IndexByte(s[2:], '\''); end >= 0 && end <= 8 {
			return end + 3
		}
		return 0
	}
	_, size := utf8.DecodeRuneInString(s[1:])
	if len(s) > 1+size && s[1+size] == '\'' {
		return size + 2
	}
	return 0
}

func countDecisions(code string, lang language.Language) int {
	if code == "" {
		return 0
	}

	var words, symbols []string
	for _, d := range lang.Decisions {
		if isWord(d) {
			words = append(words, d)
		} else {
			symbols = append(symbols, d)
		}
	}

	n := 0
	// Longest symbols first so that "??" is not also counted as two "?".
	slices.SortFunc(symbols, func(a, b string) int { return len(b) - len(a) })
	for _, sym := range symbols {
		n += strings.Count(code, sym)
		code = strings.ReplaceAll(code, sym, " ")
	}

	fields := strings.FieldsFunc(code, func(r rune) bool {
		return r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if slices.Contains(words, f) {
			n++
		}
	}
	return n
}

func isWord(s string) bool {
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

type funcSpace struct {
	name      string
	start     int
	end       int
	decisions int
}

type scopeTree struct {
	funcs         []*funcSpace
	unitDecisions int
}

type openFunc struct {
	fn    *funcSpace
	level int
}

func unbalanced(path string, line int) error {
	return failure.Wrap(failure.KindMetricsCompute, fmt.Errorf("%w: %s:%d", ErrUnbalancedBraces, path, line))
}

func matchFunction(path string, line int, l scannedLine, lang language.Language) (*funcSpace, error) {
	if lang.FuncPattern == nil {
		return nil, nil
	}
	m := lang.FuncPattern.FindStringSubmatch(l.raw)
	if m == nil {
		return nil, nil
	}
	name := ""
	if len(m) > 1 {
		name = m[1]
	}
	if name == "" {
		if !lang.AnonymousFuncs {
			return nil, unnamedFunction(path, line)
		}
		name = anonymousName
	}
	return &funcSpace{name: qualify(path, name), start: line}, nil
}

func braceScopes(path string, lines []scannedLine, lang language.Language) (*scopeTree, error) {
	tree := &scopeTree{}
	depth := 0
	var (
		pending *funcSpace
		stack   []openFunc
	)

	for idx, l := range lines {
		lineNo := idx + 1
		if l.code == "" {
			continue
		}

		fn, err := matchFunction(path, lineNo, l, lang)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			pending = fn
		}

		d := countDecisions(l.code, lang)
		switch {
		case pending != nil:
			pending.decisions += d
		case len(stack) > 0:
			stack[len(stack)-1].fn.decisions += d
		default:
			tree.unitDecisions += d
		}

		for _, ch := range l.code {
			switch ch {
			case '{':
				depth++
				if pending != nil {
					stack = append(stack, openFunc{fn: pending, level: depth})
					tree.funcs = append(tree.funcs, pending)
					pending = nil
				}
			case '}':
				if depth == 0 {
					return nil, unbalanced(path, lineNo)
				}
				if n := len(stack); n > 0 && stack[n-1].level == depth {
					stack[n-1].fn.end = lineNo
					stack = stack[:n-1]
				}
				depth--
			case ';':
				// A definition ending before any body is a declaration.
				pending = nil
			}
		}
	}

	if depth != 0 || len(stack) > 0 {
		return nil, unbalanced(path, len(lines))
	}
	return tree, nil
}

func indentScopes(path string, lines []scannedLine, lang language.Language) (*scopeTree, error) {
	tree := &scopeTree{}
	var stack []openFunc
	lastCode := 0

	closeUntil := func(width int) {
		for n := len(stack); n > 0 && width <= stack[n-1].level; n = len(stack) {
			stack[n-1].fn.end = lastCode
			stack = stack[:n-1]
		}
	}

	for idx, l := range lines {
		lineNo := idx + 1
		if l.code == "" {
			continue
		}

		indent := l.raw[:len(l.raw)-len(strings.TrimLeftFunc(l.raw, unicode.IsSpace))]
		if strings.Contains(indent, " ") && strings.Contains(indent, "\t") {
			return nil, failure.Wrap(failure.KindMetricsCompute, fmt.Errorf("%w: %s:%d", ErrInconsistentIndent, path, lineNo))
		}
		width := len(indent)
		closeUntil(width)

		fn, err := matchFunction(path, lineNo, l, lang)
		if err != nil {
			return nil, err
		}
		d := countDecisions(l.code, lang)
		switch {
		case fn != nil:
			fn.decisions += d
			tree.funcs = append(tree.funcs, fn)
			stack = append(stack, openFunc{fn: fn, level: width})
		case len(stack) > 0:
			stack[len(stack)-1].fn.decisions += d
		default:
			tree.unitDecisions += d
		}
		lastCode = lineNo
	}

	closeUntil(-1)
	return tree, nil
}
