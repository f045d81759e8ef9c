// Package testutil holds helpers shared by the end-to-end tests.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/webflowkit/internal/app"
	"github.com/vk/webflowkit/internal/build"
	"github.com/vk/webflowkit/internal/config"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of one build run.
type HarnessResult struct {
	Root      string
	LogOutput string
	Result    *build.Result
	Err       error
}

// WriteSite creates a temporary project root holding files, keyed by
// slash-separated relative path.
func WriteSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

// RunBuild builds the project at root once through the App, using the
// default build file lookup and debug logging.
func RunBuild(t *testing.T, root string) *HarnessResult {
	t.Helper()

	appCfg, err := app.NewConfig(app.Config{
		Root:       root,
		ConfigPath: config.DefaultFile,
		LogFormat:  "text",
		LogLevel:   "debug",
	})
	require.NoError(t, err)

	logs := &SafeBuffer{}
	a, err := app.NewApp(logs, appCfg)
	if err != nil {
		return &HarnessResult{Root: root, LogOutput: logs.String(), Err: err}
	}

	res, err := a.Build(context.Background())
	if os.Getenv("WFK_TEST_LOGS") == "true" {
		t.Logf("--- BUILD LOGS ---\n%s", logs.String())
	}
	return &HarnessResult{Root: root, LogOutput: logs.String(), Result: res, Err: err}
}

// ReadFile reads a file under root by slash-separated relative path.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}
