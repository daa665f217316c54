// Package shell runs external processes for the build pipeline and for hook
// actions.
package shell

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
)

// Command is one process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Script builds a command that runs cmdline through sh -c.
func Script(cmdline, dir string) Command {
	return Command{Name: "sh", Args: []string{"-c", cmdline}, Dir: dir}
}

// String returns the command line as a user could type it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result captures process output.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs commands. Implementations return a subprocess error for
// non-zero exits.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

// Run executes cmd and waits for it.
func (OSExecutor) Run(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	slog.Debug("Running command", logfields.Command(cmd.String()), logfields.Path(cmd.Dir))
	err := c.Run()

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if res.Stdout != "" {
		slog.Debug("command stdout", logfields.Command(cmd.String()), slog.String("output", res.Stdout))
	}
	if err == nil {
		slog.Debug("Command finished", logfields.Command(cmd.String()),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		return res, nil
	}

	res.ExitCode = -1
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	if res.Stderr != "" {
		slog.Warn("command stderr", logfields.Command(cmd.String()), slog.String("error_output", res.Stderr))
	}
	return res, Failure(cmd, res, err)
}

// Failure builds the subprocess error for a failed command.
func Failure(cmd Command, res Result, cause error) error {
	b := errors.SubprocessError("command failed: "+cmd.String()).
		WithCause(cause).
		WithContext(logfields.KeyCommand, cmd.String()).
		WithContext(logfields.KeyExitCode, res.ExitCode)
	if cmd.Dir != "" {
		b = b.WithContext(logfields.KeyPath, cmd.Dir)
	}
	if out := lastLine(res.Stderr); out != "" {
		b = b.WithContext("stderr", out)
	}
	return b.Build()
}

// ExitCode extracts the exit code recorded on a subprocess error.
func ExitCode(err error) (int, bool) {
	ce, ok := errors.AsClassified(err)
	if !ok || !ce.IsCategory(errors.CategorySubprocess) {
		return 0, false
	}
	v, ok := ce.Context().Get(logfields.KeyExitCode)
	if !ok {
		return 0, false
	}
	code, ok := v.(int)
	return code, ok
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Handle is the shell handle given to hook callbacks; it runs scripts in a
// fixed working directory.
type Handle struct {
	exec Executor
	dir  string
}

// NewHandle returns a handle that runs commands in dir. An empty dir runs
// them in the current working directory.
func NewHandle(exec Executor, dir string) *Handle {
	return &Handle{exec: exec, dir: dir}
}

// Dir returns the working directory commands run in.
func (h *Handle) Dir() string { return h.dir }

// Exec runs cmdline through sh -c.
func (h *Handle) Exec(ctx context.Context, cmdline string) (Result, error) {
	return h.exec.Run(ctx, Script(cmdline, h.dir))
}

// Run runs an argument vector without a shell.
func (h *Handle) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return h.exec.Run(ctx, Command{Name: name, Args: args, Dir: h.dir})
}
