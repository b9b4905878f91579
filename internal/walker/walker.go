// Package walker collects the source files below a project root.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/isseis/go-wcc/internal/failure"
)

// ErrNonUTF8Path indicates a path that is not valid UTF-8.
var ErrNonUTF8Path = errors.New("path is not valid UTF-8")

// SourceFile is one file found below the project root.
type SourceFile struct {
	// Path is the path as reached from the root passed to Walk.
	Path string
	// RelPath is Path relative to the root, slash separated.
	RelPath string
	// Size is the file size in bytes.
	Size int64
}

// Options controls which files Walk returns.
type Options struct {
	// Include keeps only files whose relative path matches one of the
	// patterns. An empty list keeps every file.
	Include []string
	// Exclude drops files and directories whose relative path matches one
	// of the patterns.
	Exclude []string
	// SkipHidden drops files and directories whose name starts with a dot.
	SkipHidden bool
	// MaxFileSize drops files larger than this many bytes. Zero disables the limit.
	MaxFileSize int64
}

// Walk returns the regular files below root, sorted by relative path.
//
// Filesystem failures are reported as failure.KindFileIO, paths that do not
// lie below root as failure.KindPathPrefix, and paths that are not valid
// UTF-8 as failure.KindPathToString.
func Walk(root string, opts Options) ([]SourceFile, error) {
	var files []SourceFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return failure.FromIO(walkErr)
		}

		rel, err := StripRoot(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if skipDir(rel, d.Name(), opts) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !keepFile(rel, d.Name(), opts) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return failure.FromIO(err)
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			return nil
		}

		files = append(files, SourceFile{Path: p, RelPath: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, failure.FromIO(err)
	}

	slices.SortFunc(files, func(a, b SourceFile) int {
		return strings.Compare(a.RelPath, b.RelPath)
	})
	return files, nil
}

// StripRoot returns p relative to root as a slash-separated string.
func StripRoot(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", failure.FromPathPrefix(err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", failure.FromPathPrefix(&failure.PrefixError{Root: root, Path: p})
	}
	if !utf8.ValidString(rel) {
		return "", failure.Wrap(failure.KindPathToString, fmt.Errorf("%w: %q", ErrNonUTF8Path, rel))
	}
	return filepath.ToSlash(rel), nil
}

func skipDir(rel, name string, opts Options) bool {
	if opts.SkipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	return matchAny(opts.Exclude, rel, name)
}

func keepFile(rel, name string, opts Options) bool {
	if opts.SkipHidden && strings.HasPrefix(name, ".") {
		return false
	}
	if matchAny(opts.Exclude, rel, name) {
		return false
	}
	return len(opts.Include) == 0 || matchAny(opts.Include, rel, name)
}

// matchAny matches each pattern against both the relative path and the base
// name, so "*.rs" selects files at any depth. Malformed patterns never match;
// config validation rejects them before a walk starts.
func matchAny(patterns []string, rel, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
