package build

import (
	"fmt"
	"strings"
	"time"

	"github.com/vk/webflowkit/internal/config"
	"github.com/vk/webflowkit/internal/version"
)

// generatedBanner heads the unminified stylesheet.
func generatedBanner(cfg *config.Build, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "/* %s - GENERATED FILE */\n", cfg.Banner.Name)
	fmt.Fprintf(&sb, "/* Built from %s at %s */\n", manifestLabel(cfg), now.UTC().Format(time.RFC3339))
	sb.WriteString("/* Original imports replaced with file contents */\n\n")
	return sb.String()
}

// minifiedBanner heads the minified stylesheet. It is prepended after
// minification so the minifier cannot strip it.
func minifiedBanner(cfg *config.Build, now time.Time, tag version.Tag) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "/* %s - MINIFIED */\n", cfg.Banner.Name)
	fmt.Fprintf(&sb, "/* Built from %s at %s */\n", manifestLabel(cfg), now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "/* Version: %s */\n", tag)
	if cfg.Banner.SourceURL != "" {
		fmt.Fprintf(&sb, "/* Source: %s */\n", cfg.Banner.SourceURL)
	}
	return sb.String()
}

func manifestLabel(cfg *config.Build) string {
	return strings.ReplaceAll(cfg.ManifestPath(), "\\", "/")
}
