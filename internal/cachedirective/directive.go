// Package cachedirective emits the redirect and cache-control rules that
// pair every stable asset path with its version-tagged counterpart.
//
// The output follows the Netlify `_redirects` and `_headers` plain-text
// formats.
package cachedirective

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/vk/webflowkit/internal/version"
)

// Directive pairs a stable published path with its version-tagged path.
type Directive struct {
	Stable string
	Tagged string
}

// Directives holds one Directive per asset, CSS first then JS.
type Directives []Directive

// Policy controls the rendered status code and max-age values.
type Policy struct {
	RedirectStatus  int
	StableMaxAge    int
	ImmutableMaxAge int
}

// DefaultPolicy revalidates stable paths on every request and caches tagged
// paths for a year.
var DefaultPolicy = Policy{
	RedirectStatus:  302,
	StableMaxAge:    0,
	ImmutableMaxAge: 31536000,
}

// Emit builds the directives for one CSS stable path and any number of JS
// stable paths. JS paths are sorted so the output does not depend on
// directory listing order.
func Emit(tag version.Tag, cssStablePath string, jsStablePaths []string) Directives {
	js := append([]string(nil), jsStablePaths...)
	sort.Strings(js)

	out := make(Directives, 0, len(js)+1)
	out = append(out, Directive{Stable: cssStablePath, Tagged: tag.Apply(cssStablePath)})
	for _, p := range js {
		out = append(out, Directive{Stable: p, Tagged: tag.Apply(p)})
	}
	return out
}

// Redirects renders one `<stable> <tagged> <status>!` line per directive.
func (d Directives) Redirects(p Policy) string {
	var sb strings.Builder
	for _, dir := range d {
		fmt.Fprintf(&sb, "%s %s %d!\n", dir.Stable, dir.Tagged, p.RedirectStatus)
	}
	return sb.String()
}

// Headers renders two stanzas per directive: must-revalidate for the stable
// path and immutable for the tagged path.
func (d Directives) Headers(p Policy) string {
	var stanzas []string
	for _, dir := range d {
		stanzas = append(stanzas,
			stanza(dir.Stable, fmt.Sprintf("public, max-age=%d, must-revalidate", p.StableMaxAge)),
			stanza(dir.Tagged, fmt.Sprintf("public, max-age=%d, immutable", p.ImmutableMaxAge)),
		)
	}
	if len(stanzas) == 0 {
		return ""
	}
	return strings.Join(stanzas, "\n")
}

func stanza(p, cacheControl string) string {
	return fmt.Sprintf("%s\n  Cache-Control: %s\n", p, cacheControl)
}

// PublicPath converts a path relative to the output root into the absolute
// URL path it is served at.
func PublicPath(rel string) string {
	return path.Join("/", strings.ReplaceAll(rel, "\\", "/"))
}
