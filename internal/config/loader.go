package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/webflowkit/internal/ctxlog"
	"github.com/vk/webflowkit/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// fileRoot is the set of top-level blocks a build file may contain. Each
// block is optional and may appear at most once.
type fileRoot struct {
	Source *sourceBlock `hcl:"source,block"`
	Output *outputBlock `hcl:"output,block"`
	HTML   *htmlBlock   `hcl:"html,block"`
	Banner *bannerBlock `hcl:"banner,block"`
	Cache  *cacheBlock  `hcl:"cache,block"`
}

type sourceBlock struct {
	Dir      *string `hcl:"dir,optional"`
	Manifest *string `hcl:"manifest,optional"`
}

type outputBlock struct {
	Dir      *string `hcl:"dir,optional"`
	CSSDir   *string `hcl:"css_dir,optional"`
	JSDir    *string `hcl:"js_dir,optional"`
	JSGlob   *string `hcl:"js_glob,optional"`
	BaseName *string `hcl:"base_name,optional"`
}

type htmlBlock struct {
	Template *string `hcl:"template,optional"`
	LinkFrom *string `hcl:"link_from,optional"`
	LinkTo   *string `hcl:"link_to,optional"`
}

type bannerBlock struct {
	Name      *string `hcl:"name,optional"`
	SourceURL *string `hcl:"source_url,optional"`
}

type cacheBlock struct {
	RedirectStatus  *int    `hcl:"redirect_status,optional"`
	StableMaxAge    *int    `hcl:"stable_max_age,optional"`
	ImmutableMaxAge *int    `hcl:"immutable_max_age,optional"`
	RedirectsFile   *string `hcl:"redirects_file,optional"`
	HeadersFile     *string `hcl:"headers_file,optional"`
}

// Load reads the build file at path from fs and returns the validated
// configuration. When required is false a missing file yields the
// defaults; when it is true a missing file is an error.
func Load(ctx context.Context, fs billy.Filesystem, path string, required bool) (*Build, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := Default()

	exists, err := fsutil.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error accessing config %s: %w", path, err)
	}
	if !exists {
		if required {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		logger.Debug("No build file found, using defaults.", "path", path)
		return cfg, cfg.Validate()
	}

	src, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := Parse(src, path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logger.Debug("Build file loaded.", "path", path, "manifest", cfg.ManifestPath(), "output", cfg.Output.Dir)
	return cfg, nil
}

// Parse decodes HCL source into cfg, overriding only the attributes the
// source sets. filename is used for diagnostics and the path.config variable.
func Parse(src []byte, filename string, cfg *Build) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalContext(filename), &root)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	root.apply(cfg)
	return nil
}

// evalContext exposes path.config and a handful of string functions to
// expressions in the build file.
func evalContext(filename string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"path": cty.ObjectVal(map[string]cty.Value{
				"config": cty.StringVal(filepath.ToSlash(filepath.Dir(filename))),
			}),
		},
		Functions: map[string]function.Function{
			"upper":     stdlib.UpperFunc,
			"lower":     stdlib.LowerFunc,
			"format":    stdlib.FormatFunc,
			"join":      stdlib.JoinFunc,
			"trimspace": stdlib.TrimSpaceFunc,
		},
	}
}

func (r *fileRoot) apply(cfg *Build) {
	if b := r.Source; b != nil {
		set(&cfg.Source.Dir, b.Dir)
		set(&cfg.Source.Manifest, b.Manifest)
	}
	if b := r.Output; b != nil {
		set(&cfg.Output.Dir, b.Dir)
		set(&cfg.Output.CSSDir, b.CSSDir)
		set(&cfg.Output.JSDir, b.JSDir)
		set(&cfg.Output.JSGlob, b.JSGlob)
		set(&cfg.Output.BaseName, b.BaseName)
	}
	if b := r.HTML; b != nil {
		set(&cfg.HTML.Template, b.Template)
		set(&cfg.HTML.LinkFrom, b.LinkFrom)
		set(&cfg.HTML.LinkTo, b.LinkTo)
	}
	if b := r.Banner; b != nil {
		set(&cfg.Banner.Name, b.Name)
		set(&cfg.Banner.SourceURL, b.SourceURL)
	}
	if b := r.Cache; b != nil {
		set(&cfg.Cache.RedirectStatus, b.RedirectStatus)
		set(&cfg.Cache.StableMaxAge, b.StableMaxAge)
		set(&cfg.Cache.ImmutableMaxAge, b.ImmutableMaxAge)
		set(&cfg.Cache.RedirectsFile, b.RedirectsFile)
		set(&cfg.Cache.HeadersFile, b.HeadersFile)
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
