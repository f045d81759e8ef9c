package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
	"github.com/vk/webflowkit/internal/config"
)

func validConfig() Config {
	return Config{
		Root:       ".",
		ConfigPath: config.DefaultFile,
		LogFormat:  "text",
		LogLevel:   "info",
	}
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		errPart string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty root", mutate: func(c *Config) { c.Root = "" }, errPart: "Root"},
		{name: "empty config path", mutate: func(c *Config) { c.ConfigPath = "" }, errPart: "ConfigPath"},
		{name: "bad format", mutate: func(c *Config) { c.LogFormat = "xml" }, errPart: "log-format"},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "trace" }, errPart: "log-level"},
		{name: "negative debounce", mutate: func(c *Config) { c.Debounce = -1 }, errPart: "debounce"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg)

			got, err := NewConfig(cfg)

			if tc.errPart == "" {
				require.NoError(t, err)
				require.Equal(t, cfg, *got)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errPart)
		})
	}
}

func TestNewAppWithFS_ConfigErrorIsTyped(t *testing.T) {
	t.Parallel()

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "webflow.hcl", []byte("output {"), 0o644))
	cfg := validConfig()

	_, err := NewAppWithFS(&bytes.Buffer{}, &cfg, fs)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Contains(t, err.Error(), "failed to load configuration")
}

func TestBuild_LogsProgress(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "css/imports.css", []byte(`@import url("./a.css");`), 0o644))
	require.NoError(t, util.WriteFile(fs, "css/a.css", []byte(".a{color:red}"), 0o644))
	out := &bytes.Buffer{}
	cfg := validConfig()
	app, err := NewAppWithFS(out, &cfg, fs)
	require.NoError(t, err)

	// --- Act ---
	res, err := app.Build(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, 1, res.Tag.Counter)
	logs := out.String()
	require.Contains(t, logs, "Including")
	require.Contains(t, logs, "path=a.css")
	require.Contains(t, logs, "Ready for deployment!")
	require.Contains(t, logs, "version="+res.Tag.String())
}

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	newLogger("warn", "json", out).Info("hidden")
	newLogger("warn", "json", out).Warn("shown")

	require.NotContains(t, out.String(), "hidden")
	require.Contains(t, out.String(), `"msg":"shown"`)
}
