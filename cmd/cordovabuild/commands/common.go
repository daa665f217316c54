package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/cordova"
	"git.home.luguber.info/inful/cordovabuild/internal/loader"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/manifest"
	"git.home.luguber.info/inful/cordovabuild/internal/metrics"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/hooks"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/models"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/stages"
	"git.home.luguber.info/inful/cordovabuild/internal/shell"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	// Ctx is canceled on SIGINT/SIGTERM.
	Ctx context.Context
	// Out receives user-facing output. Defaults to stdout.
	Out io.Writer
	// Exec runs external commands. Defaults to shell.OSExecutor.
	Exec shell.Executor
}

func (g *Global) context() context.Context {
	if g == nil || g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) executor() shell.Executor {
	if g == nil || g.Exec == nil {
		return shell.OSExecutor{}
	}
	return g.Exec
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"cordovabuild.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Run the full pipeline: configure, sanitize, prepare and compile"`
	Configure ConfigureCmd `cmd:"" help:"Write config.xml and sync platforms and plugins"`
	Clean     CleanCmd     `cmd:"" help:"Delete the build directory"`
	Create    CreateCmd    `cmd:"" help:"Scaffold the project when the build directory is missing"`
	Compile   CompileCmd   `cmd:"" help:"Prepare and compile an already configured project"`
	Run       RunCmd       `cmd:"" help:"Run the app on the target platforms"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
	Watch     WatchCmd     `cmd:"" help:"Re-run configure whenever the manifest source changes"`
	Cache     CacheCmd     `cmd:"" help:"Inspect or clear the plugin cache"`
}

// AfterApply runs after flag parsing; sets up logging from --verbose and the
// environment. Config-file logging settings are applied once the file is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if lvl := os.Getenv(config.EnvLogLevel); lvl != "" {
		level = config.NormalizeLogLevel(lvl).SlogLevel()
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// setupLogging replaces the default logger according to cfg. --verbose wins
// over the configured level.
func setupLogging(cfg *config.Config, verbose bool) {
	level := config.NormalizeLogLevel(cfg.Logging.Level).SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.NormalizeLogFormat(cfg.Logging.Format) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// PipelineFlags are the per-invocation overrides shared by pipeline commands.
type PipelineFlags struct {
	Path     string `short:"p" name:"path" help:"Override build.path"`
	Platform string `name:"platform" help:"Restrict prepare/compile/run to one platform"`
	Clean    bool   `name:"clean" help:"Delete the build directory before creating it"`
	Manifest string `short:"m" name:"manifest" help:"Manifest source file (JSON or XML), overrides the configured source"`
}

// loadConfig loads the configuration file, or the defaults when it is absent,
// and applies flag overrides.
func loadConfig(root *CLI, flags PipelineFlags) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return nil, err
	}
	if flags.Path != "" {
		cfg.Build.Path = flags.Path
	}
	if flags.Platform != "" {
		cfg.Build.Platform = flags.Platform
	}
	if flags.Clean {
		cfg.Build.Clean = true
	}
	if flags.Manifest != "" {
		cfg.Manifest = nil
		cfg.ManifestFile = flags.Manifest
	}
	setupLogging(cfg, root.Verbose)
	return cfg, nil
}

// environment is one wired pipeline run.
type environment struct {
	State    *models.BuildState
	loader   *loader.Lazy
	recorder *metrics.PrometheusRecorder
	textfile string
}

// newEnvironment wires the CLI wrapper, plugin loader, hook dispatcher and
// metrics recorder into a fresh BuildState.
func newEnvironment(g *Global, cfg *config.Config, opts models.Options) *environment {
	bs := models.NewBuildState(cfg, opts)
	env := &environment{State: bs, textfile: cfg.Metrics.Textfile}
	if env.textfile != "" {
		env.recorder = metrics.NewPrometheusRecorder(prom.NewRegistry())
		bs.Recorder = env.recorder
	}

	exec := g.executor()
	buildPath := bs.BuildPath()
	bs.CLI = cordova.New(exec, cfg.Build.CLI, buildPath)
	// Hook commands run from the invoking directory; the build path comes
	// and goes around clean and create.
	bs.Shell = shell.NewHandle(exec, "")

	dispatcher := hooks.NewDispatcher(hooks.FromConfig(cfg.Hooks), bs.Shell, buildPath)
	dispatcher.OnWarning = func(msg string) { bs.Report.AddWarning("%s", msg) }
	bs.Hooks = dispatcher

	// Built on first Resolve so a run that fails validation leaves the
	// plugin scratch directory alone.
	l := loader.NewLazy(loader.Options{
		BuildPath: buildPath,
		Registry:  cfg.Registry,
		VCS:       cfg.VCS,
		QueueSize: cfg.Loader.QueueSize,
		Recorder:  bs.Recorder,
	})
	env.loader = l
	bs.Loader = l
	return env
}

// Close stops the loader, if it was started, and writes the metrics
// textfile when configured.
func (e *environment) Close() error {
	if err := e.loader.Close(); err != nil {
		return err
	}
	if e.recorder != nil {
		if err := e.recorder.WriteTextfile(e.textfile); err != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(e.textfile), logfields.Error(err))
		}
	}
	return nil
}

// runMode executes the stage list of mode and prints the run summary.
func runMode(g *Global, root *CLI, mode stages.Mode, flags PipelineFlags) error {
	cfg, err := loadConfig(root, flags)
	if err != nil {
		return err
	}
	_, err = executeMode(g, cfg, mode, flags)
	return err
}

// executeMode runs mode against cfg and returns the finished report.
func executeMode(g *Global, cfg *config.Config, mode stages.Mode, flags PipelineFlags) (*models.BuildReport, error) {
	defs, err := stages.PlanMode(mode)
	if err != nil {
		return nil, err
	}
	opts := models.Options{
		Mode:     string(mode),
		Platform: flags.Platform,
		Clean:    flags.Clean || mode == stages.ModeClean,
	}
	if flags.Manifest != "" {
		opts.Source = manifest.Source{File: flags.Manifest}
	}

	env := newEnvironment(g, cfg, opts)
	runErr := stages.RunStages(g.context(), env.State, defs)
	if err := env.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if _, err := fmt.Fprintln(g.out(), RenderSummary(env.State.Report)); err != nil {
		slog.Debug("Failed to print summary", logfields.Error(err))
	}
	return env.State.Report, runErr
}
