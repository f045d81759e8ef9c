// Package build runs the asset pipeline once: resolve the import manifest,
// minify it, allocate a version tag, write every artifact and emit the
// cache control files.
//
// Stages run strictly in sequence. When the minifier rejects the
// stylesheet the run stops after writing the unminified debug copy; no
// minified, tagged, snapshot or control output is produced for that run.
// Any file system failure aborts the run and nothing already written is
// rolled back. Re-running the build is the recovery path.
package build

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/vk/webflowkit/internal/artifact"
	"github.com/vk/webflowkit/internal/cachedirective"
	"github.com/vk/webflowkit/internal/clock"
	"github.com/vk/webflowkit/internal/config"
	"github.com/vk/webflowkit/internal/cssimport"
	"github.com/vk/webflowkit/internal/ctxlog"
	"github.com/vk/webflowkit/internal/transform"
	"github.com/vk/webflowkit/internal/version"
)

// Pipeline holds everything one build needs. It keeps no state between runs.
type Pipeline struct {
	FS       billy.Filesystem
	Config   *config.Build
	Minifier transform.Minifier
	Clock    clock.Clock
}

// New returns a Pipeline using the CSS minifier and the system clock.
func New(fs billy.Filesystem, cfg *config.Build) *Pipeline {
	return &Pipeline{
		FS:       fs,
		Config:   cfg,
		Minifier: transform.NewCSSMinifier(),
		Clock:    clock.System{},
	}
}

// Result summarises one run. On a transform failure only Included,
// Missing and the debug artifact are populated.
type Result struct {
	Tag        version.Tag
	BuiltAt    time.Time
	Included   []string
	Missing    []*cssimport.MissingImportError
	Artifacts  []artifact.Artifact
	Directives cachedirective.Directives
}

// Run executes the pipeline. A *transform.TransformError is returned when
// the minifier fails; any other error is fatal.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := p.Config
	writer := artifact.New(p.FS, cfg)
	res := &Result{BuiltAt: p.Clock.Now()}

	logger.Info("🏗️  Building CSS from imports...", "manifest", cfg.ManifestPath())
	manifest, err := util.ReadFile(p.FS, cfg.ManifestPath())
	if err != nil {
		return res, &artifact.FileSystemError{Op: "read", Path: cfg.ManifestPath(), Err: err}
	}

	resolved, err := cssimport.Resolve(ctx, p.FS, string(manifest), cfg.Source.Dir)
	if err != nil {
		return res, err
	}
	res.Included = resolved.Included
	res.Missing = resolved.Missing
	concatenated := generatedBanner(cfg, res.BuiltAt) + resolved.Text

	logger.Info("🔧 Generating minified stylesheet...", "name", cfg.MinifiedName())
	minified, err := p.Minifier.Minify(concatenated)
	if err != nil {
		var te *transform.TransformError
		if !errors.As(err, &te) {
			te = &transform.TransformError{Message: err.Error(), Err: err}
		}
		logger.Error("❌ Minification failed, skipping versioned output", "error", te)
		debug, werr := writer.WriteDebug(ctx, concatenated)
		if werr != nil {
			return res, werr
		}
		res.Artifacts = append(res.Artifacts, debug)
		return res, te
	}

	tag, err := version.Allocate(p.FS, cfg.Output.Dir, res.BuiltAt)
	if err != nil {
		return res, err
	}
	res.Tag = tag
	ctx = ctxlog.With(ctx, "version", tag.String())
	logger = ctxlog.FromContext(ctx)
	logger.Info("🏷️  Version allocated", "snapshot", tag.SnapshotPath(p.FS, cfg.Output.Dir))

	arts, err := writer.Write(ctx, artifact.Input{
		Concatenated: concatenated,
		Minified:     minifiedBanner(cfg, res.BuiltAt, tag) + minified,
		Tag:          tag,
		BuiltAt:      res.BuiltAt,
	})
	res.Artifacts = append(res.Artifacts, arts...)
	if err != nil {
		return res, err
	}

	if err := p.emitDirectives(ctx, writer, res); err != nil {
		return res, err
	}

	logger.Info("🚀 Ready for deployment!", "artifacts", len(res.Artifacts), "missing_imports", len(res.Missing))
	return res, nil
}

func (p *Pipeline) emitDirectives(ctx context.Context, writer *artifact.Writer, res *Result) error {
	cfg := p.Config
	scripts, err := writer.StableScripts(ctx)
	if err != nil {
		return err
	}
	jsPaths := make([]string, 0, len(scripts))
	for _, rel := range scripts {
		jsPaths = append(jsPaths, cachedirective.PublicPath(path.Join(cfg.Output.JSDir, rel)))
	}
	cssPath := cachedirective.PublicPath(path.Join(cfg.Output.CSSDir, cfg.MinifiedName()))

	res.Directives = cachedirective.Emit(res.Tag, cssPath, jsPaths)
	policy := cachedirective.Policy{
		RedirectStatus:  cfg.Cache.RedirectStatus,
		StableMaxAge:    cfg.Cache.StableMaxAge,
		ImmutableMaxAge: cfg.Cache.ImmutableMaxAge,
	}

	for _, f := range []struct{ name, content string }{
		{cfg.Cache.RedirectsFile, res.Directives.Redirects(policy)},
		{cfg.Cache.HeadersFile, res.Directives.Headers(policy)},
	} {
		a, err := writer.WriteControl(ctx, f.name, f.content)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		res.Artifacts = append(res.Artifacts, a)
	}
	return nil
}
