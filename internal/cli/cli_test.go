package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T: %v", err, err)
	return exitErr.Code
}

func TestExecute(t *testing.T) {
	t.Parallel()

	site := map[string]string{
		"css/imports.css": `@import url("./a.css");`,
		"css/a.css":       ".a{color:red}",
	}

	testCases := []struct {
		name     string
		files    map[string]string
		args     []string
		wantCode int
		checkOut func(t *testing.T, output string)
	}{
		{
			name:     "help prints usage",
			args:     []string{"--help"},
			wantCode: 0,
			checkOut: func(t *testing.T, output string) {
				require.Contains(t, output, "Usage:")
				require.Contains(t, output, "watch")
			},
		},
		{
			name:     "default action builds",
			files:    site,
			wantCode: 0,
			checkOut: func(t *testing.T, output string) {
				require.Contains(t, output, "Ready for deployment!")
			},
		},
		{
			name:     "build subcommand with json logs",
			files:    site,
			args:     []string{"build", "--log-format=json"},
			wantCode: 0,
			checkOut: func(t *testing.T, output string) {
				require.Contains(t, output, `"msg":"🚀 Ready for deployment!"`)
			},
		},
		{
			name:     "unknown flag",
			args:     []string{"--this-is-not-a-valid-flag"},
			wantCode: ExitUsage,
		},
		{
			name:     "unexpected positional argument",
			args:     []string{"build", "extra"},
			wantCode: ExitUsage,
		},
		{
			name:     "invalid log level",
			files:    site,
			args:     []string{"--log-level=trace"},
			wantCode: ExitUsage,
		},
		{
			name:     "explicit config must exist",
			files:    site,
			args:     []string{"--config=missing.hcl"},
			wantCode: ExitUsage,
		},
		{
			name:     "invalid config",
			files:    map[string]string{"webflow.hcl": `cache { redirect_status = 200 }`},
			wantCode: ExitUsage,
		},
		{
			name: "malformed stylesheet fails the transform",
			files: map[string]string{
				"css/imports.css": `@import url("./a.css");`,
				"css/a.css":       ".a{color:red",
			},
			wantCode: ExitTransform,
			checkOut: func(t *testing.T, output string) {
				require.Contains(t, output, "Minification failed")
				require.Contains(t, output, "unclosed '{'")
			},
		},
		{
			name:     "missing manifest is fatal",
			files:    map[string]string{},
			wantCode: ExitFatal,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			root := writeSite(t, tc.files)
			args := append([]string{"--root", root}, tc.args...)
			out := &bytes.Buffer{}

			// --- Act ---
			err := Execute(context.Background(), args, out)

			// --- Assert ---
			require.Equal(t, tc.wantCode, exitCode(t, err), "err: %v\noutput: %s", err, out.String())
			if tc.checkOut != nil {
				tc.checkOut(t, out.String())
			}
		})
	}
}

func TestExecute_WatchStopsOnCancel(t *testing.T) {
	t.Parallel()

	root := writeSite(t, map[string]string{
		"css/imports.css": `@import url("./a.css");`,
		"css/a.css":       ".a{color:red}",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Execute(ctx, []string{"--root", root, "watch", "--debounce=10ms"}, &bytes.Buffer{})

	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(root, "dist", "v"))
	require.NoError(t, statErr, "initial build should run before watching")
}
