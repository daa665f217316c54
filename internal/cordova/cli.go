// Package cordova wraps the external Cordova command line tool.
//
// Every method issues exactly one invocation of the form
// `<bin> <subcommand> [args...]`; a non-zero exit is returned as a
// subprocess error carrying the exit code and command line.
package cordova

import (
	"context"
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/shell"
)

// CLI invokes the external tool against one build directory.
type CLI struct {
	exec      shell.Executor
	bin       string
	buildPath string
}

// New returns a CLI running bin (default "cordova") for buildPath.
func New(exec shell.Executor, bin, buildPath string) *CLI {
	if bin == "" {
		bin = "cordova"
	}
	return &CLI{exec: exec, bin: bin, buildPath: buildPath}
}

// BuildPath returns the project directory the CLI operates on.
func (c *CLI) BuildPath() string { return c.buildPath }

// Create scaffolds a project at the build path. It runs from the current
// directory since the project does not exist yet.
func (c *CLI) Create(ctx context.Context, id, name string) error {
	return c.run(ctx, "", "create", c.buildPath, id, name)
}

// AddPlatform runs `platform add <name>`.
func (c *CLI) AddPlatform(ctx context.Context, name string) error {
	return c.run(ctx, c.buildPath, "platform", "add", name)
}

// RemovePlatform runs `platform remove <name>`.
func (c *CLI) RemovePlatform(ctx context.Context, name string) error {
	return c.run(ctx, c.buildPath, "platform", "remove", name)
}

// AddPlugin runs `plugin add <src>` with one --variable per param, sorted by name.
func (c *CLI) AddPlugin(ctx context.Context, src string, params map[string]string) error {
	args := []string{"plugin", "add", src}
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		args = append(args, "--variable", k+"="+params[k])
	}
	return c.run(ctx, c.buildPath, args...)
}

// RemovePlugin runs `plugin rm <id>`.
func (c *CLI) RemovePlugin(ctx context.Context, id string) error {
	return c.run(ctx, c.buildPath, "plugin", "rm", id)
}

// Prepare runs `prepare <platform>`.
func (c *CLI) Prepare(ctx context.Context, platform string) error {
	return c.run(ctx, c.buildPath, "prepare", platform)
}

// Compile runs `compile <platform>`.
func (c *CLI) Compile(ctx context.Context, platform string) error {
	return c.run(ctx, c.buildPath, "compile", platform)
}

// Run runs `run <platform>`.
func (c *CLI) Run(ctx context.Context, platform string) error {
	return c.run(ctx, c.buildPath, "run", platform)
}

func (c *CLI) run(ctx context.Context, dir string, args ...string) error {
	cmd := shell.Command{Name: c.bin, Args: args, Dir: dir}
	res, err := c.exec.Run(ctx, cmd)
	if err != nil {
		slog.Error("Cordova command failed",
			logfields.Command(cmd.String()),
			logfields.ExitCode(res.ExitCode),
			logfields.Path(dir),
			logfields.Error(err))
		return err
	}
	return nil
}
