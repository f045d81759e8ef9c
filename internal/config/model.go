package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vk/webflowkit/internal/version"
)

// DefaultFile is the config file looked up at the project root when no
// explicit path is given.
const DefaultFile = "webflow.hcl"

// Build is the complete, validated configuration of one build.
type Build struct {
	Source Source
	Output Output
	HTML   HTML
	Banner Banner
	Cache  Cache
}

// Source locates the import manifest and its partials.
type Source struct {
	Dir      string // base directory for import resolution
	Manifest string // manifest file name inside Dir
}

// Output describes the published tree.
type Output struct {
	Dir      string
	CSSDir   string // relative to Dir
	JSDir    string // relative to Dir
	JSGlob   string // doublestar pattern relative to JSDir
	BaseName string // stem of main.css / main.min.css
}

// HTML describes the auxiliary HTML asset whose stylesheet link is
// rewritten on publish. An empty Template disables it.
type HTML struct {
	Template string
	LinkFrom string
	LinkTo   string
}

// Banner is the comment header prepended to generated stylesheets.
type Banner struct {
	Name      string
	SourceURL string
}

// Cache controls the emitted redirect and header rules.
type Cache struct {
	RedirectStatus  int
	StableMaxAge    int
	ImmutableMaxAge int
	RedirectsFile   string
	HeadersFile     string
}

// Default returns the configuration used when no file overrides it.
func Default() *Build {
	return &Build{
		Source: Source{Dir: "css", Manifest: "imports.css"},
		Output: Output{
			Dir:      "dist",
			CSSDir:   "css",
			JSDir:    "js",
			JSGlob:   "**/*.js",
			BaseName: "main",
		},
		HTML: HTML{
			Template: "css/index.html",
			LinkFrom: "imports.css",
			LinkTo:   "main.min.css",
		},
		Banner: Banner{Name: "WEBFLOW FRAMEWORK"},
		Cache: Cache{
			RedirectStatus:  302,
			StableMaxAge:    0,
			ImmutableMaxAge: 31536000,
			RedirectsFile:   "_redirects",
			HeadersFile:     "_headers",
		},
	}
}

// Validate checks the configuration for values the build cannot work with.
func (b *Build) Validate() error {
	var errs []error
	required := []struct{ name, val string }{
		{"source.dir", b.Source.Dir},
		{"source.manifest", b.Source.Manifest},
		{"output.dir", b.Output.Dir},
		{"output.css_dir", b.Output.CSSDir},
		{"output.js_dir", b.Output.JSDir},
		{"output.js_glob", b.Output.JSGlob},
		{"output.base_name", b.Output.BaseName},
		{"cache.redirects_file", b.Cache.RedirectsFile},
		{"cache.headers_file", b.Cache.HeadersFile},
	}
	for _, f := range required {
		if strings.TrimSpace(f.val) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", f.name))
		}
	}

	if strings.ContainsAny(b.Output.BaseName, `/\.`) {
		errs = append(errs, fmt.Errorf("output.base_name %q must be a bare file stem", b.Output.BaseName))
	}
	for _, rel := range []struct{ name, val string }{
		{"output.css_dir", b.Output.CSSDir},
		{"output.js_dir", b.Output.JSDir},
	} {
		switch {
		case escapes(rel.val):
			errs = append(errs, fmt.Errorf("%s %q must stay inside output.dir", rel.name, rel.val))
		case rel.val != "" && path.Clean(filepath.ToSlash(rel.val)) == ".":
			errs = append(errs, fmt.Errorf("%s %q must name a subdirectory of output.dir", rel.name, rel.val))
		case firstSegment(rel.val) == version.SnapshotDir:
			errs = append(errs, fmt.Errorf("%s %q must not be inside the %q snapshot directory", rel.name, rel.val, version.SnapshotDir))
		}
	}
	if b.Output.JSGlob != "" && !doublestar.ValidatePattern(b.Output.JSGlob) {
		errs = append(errs, fmt.Errorf("output.js_glob %q is not a valid pattern", b.Output.JSGlob))
	}
	if b.HTML.Template != "" && (b.HTML.LinkFrom == "" || b.HTML.LinkTo == "") {
		errs = append(errs, errors.New("html.link_from and html.link_to are required when html.template is set"))
	}
	if b.Cache.RedirectStatus < 300 || b.Cache.RedirectStatus > 399 {
		errs = append(errs, fmt.Errorf("cache.redirect_status %d is not a 3xx code", b.Cache.RedirectStatus))
	}
	if b.Cache.StableMaxAge < 0 || b.Cache.ImmutableMaxAge < 0 {
		errs = append(errs, errors.New("cache max-age values must not be negative"))
	}

	return errors.Join(errs...)
}

// ManifestPath is the root stylesheet path.
func (b *Build) ManifestPath() string {
	return filepath.Join(native(b.Source.Dir), native(b.Source.Manifest))
}

// CSSOutDir is the directory the stylesheets are published to.
func (b *Build) CSSOutDir() string {
	return filepath.Join(native(b.Output.Dir), native(b.Output.CSSDir))
}

// JSOutDir is the directory holding the published scripts.
func (b *Build) JSOutDir() string {
	return filepath.Join(native(b.Output.Dir), native(b.Output.JSDir))
}

// MinifiedName is the stable minified stylesheet file name.
func (b *Build) MinifiedName() string {
	return b.Output.BaseName + ".min.css"
}

// DebugName is the stable unminified stylesheet file name.
func (b *Build) DebugName() string {
	return b.Output.BaseName + ".css"
}

func native(p string) string {
	return filepath.FromSlash(p)
}

func escapes(rel string) bool {
	if path.IsAbs(rel) || filepath.IsAbs(rel) {
		return true
	}
	clean := path.Clean(filepath.ToSlash(rel))
	return clean == ".." || strings.HasPrefix(clean, "../")
}

func firstSegment(rel string) string {
	clean := path.Clean(filepath.ToSlash(rel))
	first, _, _ := strings.Cut(clean, "/")
	return first
}
