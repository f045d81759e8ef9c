package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/webflowkit/internal/app"
	"github.com/vk/webflowkit/internal/config"
	"github.com/vk/webflowkit/internal/transform"
	"github.com/vk/webflowkit/internal/watch"
)

// Exit codes returned through ExitError.
const (
	ExitFatal     = 1 // file system or other unrecoverable failure
	ExitUsage     = 2 // bad flags or configuration
	ExitTransform = 3 // the minifier rejected the stylesheet
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

type options struct {
	root      string
	config    string
	logFormat string
	logLevel  string
	debounce  time.Duration
}

// NewRootCommand builds the command tree. Output (help and logs) goes to outW.
func NewRootCommand(outW io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "webflowkit",
		Short: "Build, version and snapshot the Webflow framework's static assets",
		Long: `webflowkit resolves the CSS import manifest into one stylesheet, minifies it,
writes stable and version-tagged assets, freezes a dated snapshot of the
published CSS, JS and HTML under <output>/v/<date>/v<N>/, and emits the
_redirects and _headers cache rules.

Running it without a subcommand is the same as "webflowkit build".`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.root, "root", "r", ".", "Project root; all configured paths are relative to it.")
	pf.StringVarP(&opts.config, "config", "c", "", "Path to the HCL build file (default \""+config.DefaultFile+"\" if present).")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Run the asset pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever the stylesheet sources change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}
	watchCmd.Flags().DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "Quiet period after the last change before rebuilding.")

	root.AddCommand(buildCmd, watchCmd)
	return root
}

// Execute runs the command tree with args. Errors are returned as *ExitError.
func Execute(ctx context.Context, args []string, outW io.Writer) error {
	cmd := NewRootCommand(outW)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Remaining cobra errors are argument or command lookup problems.
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

func newApp(cmd *cobra.Command, opts *options) (*app.App, error) {
	slog.Debug("CLI parser started.")
	cfgPath, required := opts.config, true
	if cfgPath == "" {
		cfgPath, required = config.DefaultFile, false
	}

	appCfg, err := app.NewConfig(app.Config{
		Root:           opts.root,
		ConfigPath:     cfgPath,
		ConfigRequired: required,
		LogFormat:      strings.ToLower(opts.logFormat),
		LogLevel:       strings.ToLower(opts.logLevel),
		Debounce:       opts.debounce,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	a, err := app.NewApp(cmd.OutOrStdout(), appCfg)
	if err != nil {
		return nil, classify(err)
	}
	slog.Debug("CLI parser finished successfully.", "config", appCfg)
	return a, nil
}

func runBuild(cmd *cobra.Command, opts *options) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	if _, err := a.Build(cmd.Context()); err != nil {
		return classify(err)
	}
	return nil
}

func runWatch(cmd *cobra.Command, opts *options) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	if err := a.Watch(cmd.Context()); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps application errors onto exit codes.
func classify(err error) error {
	var cfgErr *app.ConfigError
	var te *transform.TransformError
	switch {
	case errors.As(err, &cfgErr):
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	case errors.As(err, &te):
		return &ExitError{Code: ExitTransform, Message: err.Error()}
	default:
		return &ExitError{Code: ExitFatal, Message: err.Error()}
	}
}
