// Package artifact writes the build outputs: stable and version-tagged
// stylesheets, the published HTML asset, version-tagged script siblings,
// the frozen per-version snapshot and the cache control files.
package artifact

import (
	"errors"
	"fmt"
	"math"
	"os"
)

// Kind classifies a written file.
type Kind string

const (
	KindStable   Kind = "stable"   // fixed name, overwritten every build
	KindTagged   Kind = "tagged"   // carries the version tag, written once
	KindHTML     Kind = "html"     // published HTML asset
	KindSnapshot Kind = "snapshot" // file inside v/<date>/v<N>/
	KindControl  Kind = "control"  // _redirects, _headers
)

// Artifact is one file written by a build.
type Artifact struct {
	Kind Kind
	Path string // relative to the filesystem root
	Size int    // bytes
}

// SizeKB is the size rounded to whole kilobytes.
func (a Artifact) SizeKB() int {
	return int(math.Round(float64(a.Size) / 1024))
}

// FileSystemError reports a failed file system operation. It is always
// fatal to the build; nothing written before it is rolled back.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// IsCollision reports whether err is a FileSystemError caused by a path
// that already exists.
func IsCollision(err error) bool {
	var fsErr *FileSystemError
	return errors.As(err, &fsErr) && errors.Is(fsErr.Err, os.ErrExist)
}

func fsError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &FileSystemError{Op: op, Path: path, Err: err}
}
