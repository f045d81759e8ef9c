// Package fsutil provides file system helpers on top of billy filesystems,
// so the same code runs against the real disk and an in-memory tree.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Exists reports whether path exists. Only "not exist" is treated as a
// negative answer; any other stat failure is returned.
func Exists(fs billy.Basic, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// FindFiles recursively searches root for regular files whose slash-separated
// path relative to root matches the doublestar pattern. Results are relative
// to root and sorted lexicographically. A missing root yields no files.
func FindFiles(fs billy.Filesystem, root string, pattern string) ([]string, error) {
	if pattern == "" {
		panic("pattern must not be empty")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	ok, err := Exists(fs, root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var files []string
	err = util.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := relSlash(root, path)
		if err != nil {
			return err
		}
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			return err
		}
		if matched {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func relSlash(root, path string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
