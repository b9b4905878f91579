// Package coverage loads line coverage from coveralls and covdir JSON
// reports.
package coverage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/isseis/go-wcc/internal/failure"
	"github.com/tidwall/gjson"
)

// Static errors used as causes of classified failures.
var (
	// ErrUnexpectedType indicates a JSON value of the wrong type.
	ErrUnexpectedType = errors.New("unexpected JSON type")
	// ErrMissingKey indicates a required object key that is absent.
	ErrMissingKey = errors.New("missing key")
	// ErrTrailingData indicates bytes after the end of the JSON document.
	ErrTrailingData = errors.New("trailing data after JSON document")
	// ErrMalformedJSON indicates a document rejected by the validator for
	// which no more precise cause is known.
	ErrMalformedJSON = errors.New("malformed JSON document")
)

// Format identifies a coverage report schema.
type Format int

// Supported schemas.
const (
	FormatCoveralls Format = iota + 1
	FormatCovdir
)

func (f Format) String() string {
	switch f {
	case FormatCoveralls:
		return "coveralls"
	case FormatCovdir:
		return "covdir"
	default:
		return "unknown"
	}
}

// LineCoverage holds one hit count per source line, first line first.
// -1 marks a line that is not executable.
type LineCoverage []int

// Report is a parsed coverage report keyed by slash-separated path relative
// to the project root.
type Report struct {
	Format Format
	files  map[string]LineCoverage
}

// Lines returns the coverage of the file at relPath.
func (r *Report) Lines(relPath string) (LineCoverage, bool) {
	lines, ok := r.files[normalize(relPath)]
	return lines, ok
}

// Files returns the covered paths in lexical order.
func (r *Report) Files() []string {
	return slices.Sorted(maps.Keys(r.files))
}

// Len returns the number of files in the report.
func (r *Report) Len() int {
	return len(r.files)
}

// Load reads and parses the report at path.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the user-selected coverage report
	if err != nil {
		return nil, failure.FromIO(err)
	}
	return Parse(data)
}

// Parse parses a report held in data. A syntax error is classified as
// failure.KindJSONDecode.
func Parse(data []byte) (*Report, error) {
	if !gjson.ValidBytes(data) {
		return nil, failure.FromJSON(syntaxError(data))
	}
	return fromDocument(gjson.ParseBytes(data))
}

// ParseString parses a report held in s. It differs from Parse only in how
// a malformed document is classified: failure.KindJSONFromString.
func ParseString(s string) (*Report, error) {
	if !gjson.Valid(s) {
		return nil, failure.Wrap(failure.KindJSONFromString, syntaxError([]byte(s)))
	}
	return fromDocument(gjson.Parse(s))
}

// syntaxError describes why data is not a single JSON document.
func syntaxError(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if len(bytes.TrimSpace(data[dec.InputOffset():])) > 0 {
		return ErrTrailingData
	}
	return ErrMalformedJSON
}

func fromDocument(doc gjson.Result) (*Report, error) {
	format, ok := sniff(doc)
	if !ok {
		return nil, failure.New(failure.KindUnsupportedFormat)
	}

	r := &Report{Format: format, files: make(map[string]LineCoverage)}
	var err error
	switch format {
	case FormatCoveralls:
		err = r.readCoveralls(doc)
	case FormatCovdir:
		err = r.readCovdirNode(doc, "", "document")
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// sniff guesses the schema from the top-level keys. Their value types are
// checked later so that a known schema with a bad shape is reported as such.
func sniff(doc gjson.Result) (Format, bool) {
	if !doc.IsObject() {
		return 0, false
	}
	switch {
	case doc.Get("source_files").Exists():
		return FormatCoveralls, true
	case doc.Get("children").Exists():
		return FormatCovdir, true
	default:
		return 0, false
	}
}

func (r *Report) readCoveralls(doc gjson.Result) error {
	files := doc.Get("source_files")
	if !files.IsArray() {
		return conversion("source_files", files, "array")
	}

	for i, f := range files.Array() {
		where := fmt.Sprintf("source_files[%d]", i)
		if !f.IsObject() {
			return conversion(where, f, "object")
		}
		name, err := lookup(f, "name", where)
		if err != nil {
			return err
		}
		if name.Type != gjson.String {
			return conversion(where+".name", name, "string")
		}
		cov, err := lookup(f, "coverage", where)
		if err != nil {
			return err
		}
		lines, err := toLines(cov, where+".coverage")
		if err != nil {
			return err
		}
		r.files[normalize(name.Str)] = lines
	}
	return nil
}

func (r *Report) readCovdirNode(node gjson.Result, prefix, where string) error {
	children := node.Get("children")
	if !children.Exists() {
		cov, err := lookup(node, "coverage", where)
		if err != nil {
			return err
		}
		lines, err := toLines(cov, where+".coverage")
		if err != nil {
			return err
		}
		r.files[prefix] = lines
		return nil
	}

	if !children.IsObject() {
		return conversion(where+".children", children, "object")
	}
	byName := children.Map()
	for _, name := range slices.Sorted(maps.Keys(byName)) {
		childWhere := where + ".children." + name
		child := byName[name]
		if !child.IsObject() {
			return conversion(childWhere, child, "object")
		}
		if err := r.readCovdirNode(child, path.Join(prefix, name), childWhere); err != nil {
			return err
		}
	}
	return nil
}

func toLines(v gjson.Result, where string) (LineCoverage, error) {
	if !v.IsArray() {
		return nil, conversion(where, v, "array")
	}
	values := v.Array()
	lines := make(LineCoverage, len(values))
	for i, e := range values {
		switch {
		case e.Type == gjson.Null:
			lines[i] = -1
		case e.Type == gjson.Number && e.Num == float64(int(e.Num)) && e.Num >= -1:
			lines[i] = int(e.Num)
		default:
			return nil, conversion(fmt.Sprintf("%s[%d]", where, i), e, "hit count")
		}
	}
	return lines, nil
}

// lookup returns the member key of obj. Keys are matched literally, so
// gjson path syntax in key never applies.
func lookup(obj gjson.Result, key, where string) (gjson.Result, error) {
	var found gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			found = v
			return false
		}
		return true
	})
	if !found.Exists() {
		return found, failure.Wrap(failure.KindMapLookup, fmt.Errorf("%w: %q in %s", ErrMissingKey, key, where))
	}
	return found, nil
}

func conversion(where string, got gjson.Result, want string) error {
	return failure.Wrap(failure.KindConversion, fmt.Errorf("%w: %s is %s, want %s", ErrUnexpectedType, where, jsonType(got), want))
}

func jsonType(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	default:
		if v.IsArray() {
			return "array"
		}
		return "object"
	}
}

func normalize(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}
