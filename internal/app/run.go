package app

import (
	"context"
	"path/filepath"

	"github.com/vk/webflowkit/internal/build"
	"github.com/vk/webflowkit/internal/ctxlog"
	"github.com/vk/webflowkit/internal/watch"
)

// Build runs the asset pipeline once.
func (a *App) Build(ctx context.Context) (*build.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Build method started.")

	res, err := build.New(a.fs, a.build).Run(ctx)
	if err != nil {
		return res, err
	}

	a.logger.Debug("App.Build method finished.", "version", res.Tag.String())
	return res, nil
}

// Watch builds once, then rebuilds on every change to the stylesheet
// sources or the HTML template until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if _, err := a.Build(ctx); err != nil {
		a.logger.Error("Initial build failed", "error", err)
	}

	dirs := []string{a.osPath(a.build.Source.Dir)}
	if a.build.HTML.Template != "" {
		dirs = append(dirs, a.osPath(filepath.Dir(filepath.FromSlash(a.build.HTML.Template))))
	}

	w := &watch.Watcher{
		Dirs:     dirs,
		Debounce: a.appCfg.Debounce,
		Build: func(ctx context.Context) error {
			_, err := a.Build(ctx)
			return err
		},
	}
	return w.Run(ctx)
}

func (a *App) osPath(rel string) string {
	return filepath.Join(a.appCfg.Root, filepath.FromSlash(rel))
}
