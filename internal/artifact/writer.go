package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/vk/webflowkit/internal/config"
	"github.com/vk/webflowkit/internal/ctxlog"
	"github.com/vk/webflowkit/internal/fsutil"
	"github.com/vk/webflowkit/internal/version"
)

// Input is what one build hands to the writer.
type Input struct {
	Concatenated string // unminified stylesheet, banner included
	Minified     string // minified stylesheet, banner included
	Tag          version.Tag
	BuiltAt      time.Time
}

// Writer writes build outputs into FS according to Config.
type Writer struct {
	FS     billy.Filesystem
	Config *config.Build
}

// New returns a Writer for cfg on fs.
func New(fs billy.Filesystem, cfg *config.Build) *Writer {
	return &Writer{FS: fs, Config: cfg}
}

// Write produces every artifact of a successful build, in order: the stable
// minified stylesheet, its version-tagged copy, the stable unminified
// stylesheet, the published HTML asset, the snapshot directory and the
// version-tagged script siblings.
func (w *Writer) Write(ctx context.Context, in Input) ([]Artifact, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := w.Config
	cssDir, jsDir := cfg.CSSOutDir(), cfg.JSOutDir()

	if err := w.ensureDirs(cssDir, jsDir); err != nil {
		return nil, err
	}

	var out []Artifact
	stableMin := w.FS.Join(cssDir, cfg.MinifiedName())
	a, err := w.writeFile(ctx, KindStable, stableMin, []byte(in.Minified))
	if err != nil {
		return nil, err
	}
	out = append(out, a)

	a, err = w.writeNew(ctx, KindTagged, w.FS.Join(cssDir, in.Tag.Apply(cfg.MinifiedName())), []byte(in.Minified))
	if err != nil {
		return out, err
	}
	out = append(out, a)

	a, err = w.writeFile(ctx, KindStable, w.FS.Join(cssDir, cfg.DebugName()), []byte(in.Concatenated))
	if err != nil {
		return out, err
	}
	out = append(out, a)

	html, htmlName, err := w.publishHTML(ctx)
	if err != nil {
		return out, err
	}
	if html != nil {
		a, err = w.writeFile(ctx, KindHTML, w.FS.Join(cfg.Output.Dir, htmlName), html)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}

	snap, err := w.snapshot(ctx, in, html, htmlName)
	out = append(out, snap...)
	if err != nil {
		return out, err
	}

	scripts, err := w.StableScripts(ctx)
	if err != nil {
		return out, err
	}
	for _, rel := range scripts {
		src := w.FS.Join(jsDir, filepath.FromSlash(rel))
		data, err := util.ReadFile(w.FS, src)
		if err != nil {
			return out, fsError("read", src, err)
		}
		a, err := w.writeNew(ctx, KindTagged, w.FS.Join(jsDir, filepath.FromSlash(in.Tag.Apply(rel))), data)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}

	logger.Debug("Artifacts written.", "count", len(out), "version", in.Tag.String())
	return out, nil
}

// WriteDebug writes only the stable unminified stylesheet. It is used when
// the transform stage fails so the rejected input can be inspected.
func (w *Writer) WriteDebug(ctx context.Context, concatenated string) (Artifact, error) {
	cssDir := w.Config.CSSOutDir()
	if err := w.ensureDirs(cssDir); err != nil {
		return Artifact{}, err
	}
	return w.writeFile(ctx, KindStable, w.FS.Join(cssDir, w.Config.DebugName()), []byte(concatenated))
}

// WriteControl writes a cache control file at the output root.
func (w *Writer) WriteControl(ctx context.Context, name, content string) (Artifact, error) {
	if err := w.ensureDirs(w.Config.Output.Dir); err != nil {
		return Artifact{}, err
	}
	return w.writeFile(ctx, KindControl, w.FS.Join(w.Config.Output.Dir, name), []byte(content))
}

// StableScripts lists the published scripts matching the configured glob,
// relative to the JS output directory and sorted. Version-tagged siblings
// from earlier builds are excluded.
func (w *Writer) StableScripts(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	jsDir := w.Config.JSOutDir()
	all, err := fsutil.FindFiles(w.FS, jsDir, w.Config.Output.JSGlob)
	if err != nil {
		return nil, fsError("list", jsDir, err)
	}
	var stable []string
	for _, rel := range all {
		if version.IsTagged(rel) {
			logger.Debug("Skipping version-tagged script", "path", w.FS.Join(jsDir, filepath.FromSlash(rel)))
			continue
		}
		stable = append(stable, rel)
	}
	return stable, nil
}

// snapshot freezes the current CSS and JS output directories, the HTML
// asset and a manifest under v/<date>/v<N>/.
func (w *Writer) snapshot(ctx context.Context, in Input, html []byte, htmlName string) ([]Artifact, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := w.Config
	root := in.Tag.SnapshotPath(w.FS, cfg.Output.Dir)

	exists, err := fsutil.Exists(w.FS, root)
	if err != nil {
		return nil, fsError("stat", root, err)
	}
	if exists {
		return nil, fsError("create snapshot", root, os.ErrExist)
	}
	if err := w.FS.MkdirAll(root, 0o755); err != nil {
		return nil, fsError("mkdir", root, err)
	}

	manifest := newManifest(in.Tag, in.BuiltAt)
	var out []Artifact
	snapshots := w.FS.Join(cfg.Output.Dir, version.SnapshotDir)

	for _, tree := range []struct{ src, rel string }{
		{cfg.CSSOutDir(), cfg.Output.CSSDir},
		{cfg.JSOutDir(), cfg.Output.JSDir},
	} {
		src := tree.src
		skip := func(rel string) bool {
			return version.IsTagged(rel) || within(w.FS.Join(src, filepath.FromSlash(rel)), snapshots)
		}
		dst := w.FS.Join(root, filepath.FromSlash(tree.rel))
		copied, err := fsutil.CopyTree(w.FS, tree.src, dst, skip)
		if err != nil {
			return out, fsError("copy", tree.src, err)
		}
		for _, rel := range copied {
			p := w.FS.Join(dst, filepath.FromSlash(rel))
			data, err := util.ReadFile(w.FS, p)
			if err != nil {
				return out, fsError("read", p, err)
			}
			manifest.add(filepath.ToSlash(filepath.Join(tree.rel, rel)), data)
			out = append(out, Artifact{Kind: KindSnapshot, Path: p, Size: len(data)})
		}
	}

	if html != nil {
		p := w.FS.Join(root, htmlName)
		if err := util.WriteFile(w.FS, p, html, 0o644); err != nil {
			return out, fsError("write", p, err)
		}
		manifest.add(htmlName, html)
		out = append(out, Artifact{Kind: KindSnapshot, Path: p, Size: len(html)})
	}

	data, err := manifest.encode()
	if err != nil {
		return out, fsError("encode", ManifestName, err)
	}
	p := w.FS.Join(root, ManifestName)
	if err := util.WriteFile(w.FS, p, data, 0o644); err != nil {
		return out, fsError("write", p, err)
	}
	out = append(out, Artifact{Kind: KindSnapshot, Path: p, Size: len(data)})

	logger.Info("📸 Snapshot created", "path", root, "files", len(manifest.Files))
	return out, nil
}

// publishHTML reads the HTML template and rewrites its stylesheet link.
// A disabled or missing template yields nil content and no error.
func (w *Writer) publishHTML(ctx context.Context) ([]byte, string, error) {
	logger := ctxlog.FromContext(ctx)
	h := w.Config.HTML
	if h.Template == "" {
		return nil, "", nil
	}

	tmpl := filepath.FromSlash(h.Template)
	src, err := util.ReadFile(w.FS, tmpl)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("⚠️  HTML template not found, skipping", "path", tmpl)
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fsError("read", tmpl, err)
	}

	out, n, err := rewriteStylesheetLink(src, h.LinkFrom, h.LinkTo)
	if err != nil {
		return nil, "", fsError("parse html", tmpl, err)
	}
	if n == 0 {
		logger.Warn("⚠️  No stylesheet link to rewrite", "path", tmpl, "href", h.LinkFrom, "stylesheets", stylesheetHrefs(src))
	}
	return out, filepath.Base(tmpl), nil
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Writer) ensureDirs(dirs ...string) error {
	for _, d := range dirs {
		if err := w.FS.MkdirAll(d, 0o755); err != nil {
			return fsError("mkdir", d, err)
		}
	}
	return nil
}

// writeFile creates or truncates path.
func (w *Writer) writeFile(ctx context.Context, kind Kind, path string, data []byte) (Artifact, error) {
	if err := util.WriteFile(w.FS, path, data, 0o644); err != nil {
		return Artifact{}, fsError("write", path, err)
	}
	return w.built(ctx, kind, path, data), nil
}

// writeNew creates path and fails if it already exists.
func (w *Writer) writeNew(ctx context.Context, kind Kind, path string, data []byte) (Artifact, error) {
	f, err := w.FS.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Artifact{}, fsError("create", path, err)
	}
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Artifact{}, fsError("write", path, err)
	}
	return w.built(ctx, kind, path, data), nil
}

func (w *Writer) built(ctx context.Context, kind Kind, path string, data []byte) Artifact {
	a := Artifact{Kind: kind, Path: path, Size: len(data)}
	ctxlog.FromContext(ctx).Info("✅ Built",
		"path", path,
		"kind", string(kind),
		"size_kb", a.SizeKB(),
		"size", humanize.Bytes(uint64(a.Size)),
	)
	return a
}
