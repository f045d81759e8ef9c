package build

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
	"github.com/vk/webflowkit/internal/artifact"
	"github.com/vk/webflowkit/internal/clock"
	"github.com/vk/webflowkit/internal/config"
	"github.com/vk/webflowkit/internal/fsutil"
	"github.com/vk/webflowkit/internal/transform"
	"github.com/vk/webflowkit/internal/version"
)

var now = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newSite(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	files := map[string]string{
		"css/imports.css": `@import url("./a.css"); @import url("./b.css");`,
		"css/a.css":       ".a{color:red}",
		"css/b.css":       ".b{color:blue}",
		"css/index.html":  `<html><head><link rel="stylesheet" href="imports.css"></head><body></body></html>`,
		"dist/js/main.js": "console.log(1)",
	}
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func newPipeline(fs billy.Filesystem) *Pipeline {
	p := New(fs, config.Default())
	p.Clock = clock.Fixed(now)
	return p
}

func read(t *testing.T, fs billy.Filesystem, p string) string {
	t.Helper()
	data, err := util.ReadFile(fs, p)
	require.NoError(t, err)
	return string(data)
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := newSite(t)

	// --- Act ---
	res, err := newPipeline(fs).Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, version.Tag{Date: "2026-10-17", Counter: 1}, res.Tag)
	require.Equal(t, []string{"a.css", "b.css"}, res.Included)
	require.Empty(t, res.Missing)

	debug := read(t, fs, "dist/css/main.css")
	require.True(t, strings.HasPrefix(debug, "/* WEBFLOW FRAMEWORK - GENERATED FILE */\n"))
	require.Contains(t, debug, "/* Built from css/imports.css at 2026-10-17T09:30:00Z */")
	require.Less(t, strings.Index(debug, ".a{color:red}"), strings.Index(debug, ".b{color:blue}"))

	minified := read(t, fs, "dist/css/main.min.css")
	require.Contains(t, minified, "/* Version: 2026-10-17-v1 */\n")
	require.True(t, strings.HasSuffix(minified, ".a{color:red}.b{color:blue}"), minified)
	require.Equal(t, minified, read(t, fs, "dist/css/main.2026-10-17-v1.min.css"))
	require.Equal(t, minified, read(t, fs, "dist/v/2026-10-17/v1/css/main.min.css"))

	require.Equal(t,
		"/css/main.min.css /css/main.2026-10-17-v1.min.css 302!\n"+
			"/js/main.js /js/main.2026-10-17-v1.js 302!\n",
		read(t, fs, "dist/_redirects"))
	headers := read(t, fs, "dist/_headers")
	require.Contains(t, headers, "/css/main.min.css\n  Cache-Control: public, max-age=0, must-revalidate\n")
	require.Contains(t, headers, "/js/main.2026-10-17-v1.js\n  Cache-Control: public, max-age=31536000, immutable\n")
}

func TestRun_TwiceSameDayGivesTwoSnapshots(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := newSite(t)
	p := newPipeline(fs)

	// --- Act ---
	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	// --- Assert ---
	require.Equal(t, 1, first.Tag.Counter)
	require.Equal(t, 2, second.Tag.Counter)

	for _, snap := range []string{"dist/v/2026-10-17/v1", "dist/v/2026-10-17/v2"} {
		files, err := fsutil.FindFiles(fs, snap, "**")
		require.NoError(t, err)
		require.Equal(t, []string{
			"css/main.css",
			"css/main.min.css",
			"index.html",
			"js/main.js",
			"manifest.json",
		}, files, snap)
	}

	// Stable JS stays untouched; each run adds its own tagged sibling.
	scripts, err := fsutil.FindFiles(fs, "dist/js", "*.js")
	require.NoError(t, err)
	require.Equal(t, []string{"main.2026-10-17-v1.js", "main.2026-10-17-v2.js", "main.js"}, scripts)
	require.Contains(t, read(t, fs, "dist/_redirects"), "/js/main.js /js/main.2026-10-17-v2.js 302!")
}

func TestRun_NextDayRestartsCounter(t *testing.T) {
	t.Parallel()

	fs := newSite(t)
	p := newPipeline(fs)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	p.Clock = clock.Fixed(now.Add(24 * time.Hour))
	res, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, version.Tag{Date: "2026-10-18", Counter: 1}, res.Tag)
}

func TestRun_MissingImportIsNotFatal(t *testing.T) {
	t.Parallel()

	fs := newSite(t)
	require.NoError(t, util.WriteFile(fs, "css/imports.css",
		[]byte(`@import url("./a.css"); @import url("./gone.css");`), 0o644))

	res, err := newPipeline(fs).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Missing, 1)
	require.Contains(t, read(t, fs, "dist/css/main.css"), `@import url("./gone.css");`)
}

func TestRun_TransformFailureShortCircuits(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := newSite(t)
	p := newPipeline(fs)
	p.Minifier = transform.Func(func(string) (string, error) { return "", errors.New("unexpected '{'") })

	// --- Act ---
	res, err := p.Run(context.Background())

	// --- Assert ---
	var te *transform.TransformError
	require.ErrorAs(t, err, &te)
	require.Len(t, res.Artifacts, 1)
	require.Equal(t, "dist/css/main.css", res.Artifacts[0].Path)
	require.Contains(t, read(t, fs, "dist/css/main.css"), ".b{color:blue}")

	for _, name := range []string{"dist/css/main.min.css", "dist/v", "dist/_redirects", "dist/_headers", "dist/index.html"} {
		ok, err := fsutil.Exists(fs, name)
		require.NoError(t, err)
		require.False(t, ok, name)
	}
}

func TestRun_MalformedStylesheetStopsBeforeVersioning(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := newSite(t)
	require.NoError(t, util.WriteFile(fs, "css/b.css", []byte(".b{color:blue"), 0o644))

	// --- Act ---
	res, err := newPipeline(fs).Run(context.Background())

	// --- Assert ---
	var te *transform.TransformError
	require.ErrorAs(t, err, &te)
	require.Contains(t, err.Error(), "unclosed '{'")
	require.Len(t, res.Artifacts, 1)
	require.Contains(t, read(t, fs, "dist/css/main.css"), ".b{color:blue")
	ok, err := fsutil.Exists(fs, "dist/v")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRun_MissingManifestIsFatal(t *testing.T) {
	t.Parallel()

	_, err := newPipeline(memfs.New()).Run(context.Background())

	var fsErr *artifact.FileSystemError
	require.ErrorAs(t, err, &fsErr)
	require.Equal(t, "css/imports.css", fsErr.Path)
}

func TestRun_SourceURLInBanner(t *testing.T) {
	t.Parallel()

	fs := newSite(t)
	p := newPipeline(fs)
	p.Config.Banner.SourceURL = "https://example.com/framework"

	_, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Contains(t, read(t, fs, "dist/css/main.min.css"), "/* Source: https://example.com/framework */\n")
}
