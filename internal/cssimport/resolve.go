// Package cssimport inlines the partial stylesheets referenced by a root
// import manifest.
//
// Only the literal directive form `@import url("./<path>");` is recognised.
// Inclusion is single-pass: directives inside included files are copied
// verbatim and never expanded, so no cycle detection is needed.
package cssimport

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/vk/webflowkit/internal/ctxlog"
	"github.com/vk/webflowkit/internal/fsutil"
)

var importDirective = regexp.MustCompile(`@import url\("\./([^"]+)"\);`)

// MissingImportError describes a directive whose target file does not
// exist. It is collected in Result.Missing rather than returned.
type MissingImportError struct {
	Path     string // as written in the directive
	FullPath string // resolved against the base directory
}

func (e *MissingImportError) Error() string {
	return fmt.Sprintf("imported file not found: %s", e.FullPath)
}

// Result is the outcome of resolving one manifest.
type Result struct {
	Text     string
	Included []string
	Missing  []*MissingImportError
}

// Resolve replaces each import directive in manifest, first to last, with a
// header comment naming the partial followed by the partial's raw content.
// Directives pointing at missing files are left untouched. Only file system
// failures other than a missing file are returned as errors.
func Resolve(ctx context.Context, fs billy.Filesystem, manifest, baseDir string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	res := &Result{}

	matches := importDirective.FindAllStringSubmatchIndex(manifest, -1)
	if len(matches) == 0 {
		res.Text = manifest
		return res, nil
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		directive := manifest[m[0]:m[1]]
		relPath := manifest[m[2]:m[3]]
		fullPath := fs.Join(baseDir, filepath.FromSlash(relPath))

		sb.WriteString(manifest[last:m[0]])
		last = m[1]

		ok, err := fsutil.Exists(fs, fullPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat import %s: %w", fullPath, err)
		}
		if !ok {
			logger.Warn("⚠️  File not found", "path", fullPath)
			res.Missing = append(res.Missing, &MissingImportError{Path: relPath, FullPath: fullPath})
			sb.WriteString(directive)
			continue
		}

		content, err := util.ReadFile(fs, fullPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read import %s: %w", fullPath, err)
		}
		logger.Info("📁 Including", "path", relPath)
		fmt.Fprintf(&sb, "\n/* === %s === */\n", relPath)
		sb.Write(content)
		res.Included = append(res.Included, relPath)
	}
	sb.WriteString(manifest[last:])

	res.Text = sb.String()
	return res, nil
}
