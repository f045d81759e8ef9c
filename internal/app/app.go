package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/vk/webflowkit/internal/config"
	"github.com/vk/webflowkit/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	fs     billy.Filesystem
	appCfg *Config
	build  *config.Build
}

// NewApp is the constructor for the main application. It configures an
// isolated logger, opens the project root and loads the build file.
func NewApp(outW io.Writer, appConfig *Config) (*App, error) {
	return NewAppWithFS(outW, appConfig, osfs.New(appConfig.Root))
}

// NewAppWithFS is NewApp over an arbitrary filesystem rooted at the project.
func NewAppWithFS(outW io.Writer, appConfig *Config, fs billy.Filesystem) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	buildCfg, err := config.Load(ctx, fs, appConfig.ConfigPath, appConfig.ConfigRequired)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to load configuration: %w", err)}
	}
	logger.Debug("Build configuration loaded.", "root", appConfig.Root, "config", appConfig.ConfigPath)

	return &App{
		outW:   outW,
		logger: logger,
		fs:     fs,
		appCfg: appConfig,
		build:  buildCfg,
	}, nil
}

// BuildConfig returns the loaded build configuration. This is primarily for testing.
func (a *App) BuildConfig() *config.Build {
	return a.build
}

// ConfigError marks failures caused by invalid configuration rather than
// by the build itself.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }
