// Package version allocates the dated, sequential tag that identifies one
// build's snapshot.
//
// Allocation inspects the output tree and is not atomic: two builds running
// at the same time against the same output directory can receive the same
// tag. Builds are expected to have a single writer.
package version

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/vk/webflowkit/internal/fsutil"
)

// DateLayout is the calendar-day format used in tags and snapshot paths.
const DateLayout = "2006-01-02"

// SnapshotDir is the directory under the output root that holds snapshots.
const SnapshotDir = "v"

var taggedName = regexp.MustCompile(`\.\d{4}-\d{2}-\d{2}-v\d+(\.[^./]+)*$`)

// Tag identifies one build: a calendar date and a counter starting at 1.
type Tag struct {
	Date    string
	Counter int
}

// String renders the tag as used in file names, e.g. 2026-10-17-v3.
func (t Tag) String() string {
	return fmt.Sprintf("%s-v%d", t.Date, t.Counter)
}

// Dir is the tag's snapshot directory relative to the snapshot root, e.g. 2026-10-17/v3.
func (t Tag) Dir() string {
	return path.Join(t.Date, fmt.Sprintf("v%d", t.Counter))
}

// SnapshotPath joins the tag's snapshot directory onto outputRoot.
func (t Tag) SnapshotPath(fs billy.Basic, outputRoot string) string {
	return fs.Join(outputRoot, SnapshotDir, t.Date, fmt.Sprintf("v%d", t.Counter))
}

// Apply inserts the tag before the extension chain of name, keeping any
// directory part: main.min.css becomes main.<tag>.min.css and js/a.js
// becomes js/a.<tag>.js.
func (t Tag) Apply(name string) string {
	dir, base := path.Split(filepath.ToSlash(name))
	stem, exts := base, ""
	if len(base) > 1 {
		if i := strings.Index(base[1:], "."); i >= 0 {
			stem, exts = base[:i+1], base[i+1:]
		}
	}
	return dir + stem + "." + t.String() + exts
}

// IsTagged reports whether name carries a version tag inserted by Apply.
func IsTagged(name string) bool {
	return taggedName.MatchString(path.Base(filepath.ToSlash(name)))
}

// Allocate returns the tag for a build at now: the date is now's calendar
// day and the counter is the smallest positive N for which
// <outputRoot>/v/<date>/v<N> does not exist. Nothing is created.
func Allocate(fs billy.Filesystem, outputRoot string, now time.Time) (Tag, error) {
	tag := Tag{Date: now.Format(DateLayout), Counter: 1}
	for {
		exists, err := fsutil.Exists(fs, tag.SnapshotPath(fs, outputRoot))
		if err != nil {
			return Tag{}, fmt.Errorf("failed to check snapshot %s: %w", tag.Dir(), err)
		}
		if !exists {
			return tag, nil
		}
		tag.Counter++
	}
}
