package fsutil

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// CopyFile copies src to dst, creating dst's parent directories. The
// content is returned so callers can report or hash it without a re-read.
func CopyFile(fs billy.Filesystem, src, dst string) ([]byte, error) {
	data, err := util.ReadFile(fs, src)
	if err != nil {
		return nil, err
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}
	if err := util.WriteFile(fs, dst, data, 0o644); err != nil {
		return nil, err
	}
	return data, nil
}

// CopyTree recursively copies every regular file under src into dst,
// preserving relative paths. Files for which skip returns true are left
// out; a skipped directory is not descended into. It returns the copied paths relative to src, sorted. A missing src
// copies nothing.
func CopyTree(fs billy.Filesystem, src, dst string, skip func(rel string) bool) ([]string, error) {
	ok, err := Exists(fs, src)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if err := fs.MkdirAll(dst, 0o755); err != nil {
		return nil, err
	}

	var copied []string
	err = util.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := relSlash(src, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if rel != "." && skip != nil && skip(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if skip != nil && skip(rel) {
			return nil
		}
		if _, err := CopyFile(fs, path, fs.Join(dst, filepath.FromSlash(rel))); err != nil {
			return err
		}
		copied = append(copied, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(copied)
	return copied, nil
}
