// Package hooks implements user-supplied actions attached to stage boundaries.
package hooks

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/shell"
)

// Kind tags the variant held by an Action.
type Kind int

const (
	KindCommand Kind = iota
	KindCallback
)

// CallbackFunc receives the dispatcher's shell handle and the build path.
// The build path may not exist yet, or any more, at the time of the call.
type CallbackFunc func(ctx context.Context, sh *shell.Handle, buildPath string) error

// Action is either a shell command line or a callback.
type Action struct {
	kind    Kind
	command string
	fn      CallbackFunc
}

// Command returns an action running text through sh -c.
func Command(text string) Action { return Action{kind: KindCommand, command: text} }

// Callback returns an action invoking fn.
func Callback(fn CallbackFunc) Action { return Action{kind: KindCallback, fn: fn} }

// Kind reports the variant.
func (a Action) Kind() Kind { return a.kind }

func (a Action) String() string {
	if a.kind == KindCommand {
		return a.command
	}
	return "<callback>"
}

// Set maps hook points (before_<stage>, after_<stage>) to ordered actions.
type Set map[string][]Action

// FromConfig converts configured command strings into a Set.
func FromConfig(cfg map[string]config.HookCommands) Set {
	s := Set{}
	for point, cmds := range cfg {
		for _, c := range cmds {
			if strings.TrimSpace(c) == "" {
				continue
			}
			s[point] = append(s[point], Command(c))
		}
	}
	return s
}

// Add appends actions to a hook point.
func (s Set) Add(point string, actions ...Action) Set {
	s[point] = append(s[point], actions...)
	return s
}

// Points returns the configured hook points, sorted.
func (s Set) Points() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Before is the hook point dispatched ahead of stage.
func Before(stage string) string { return "before_" + stage }

// After is the hook point dispatched after stage succeeded.
func After(stage string) string { return "after_" + stage }

// Dispatcher runs the actions of a Set in declaration order.
type Dispatcher struct {
	set       Set
	shell     *shell.Handle
	buildPath string
	// OnWarning receives one message per failed or skipped action.
	OnWarning func(msg string)
}

// NewDispatcher returns a dispatcher whose commands run through sh. The
// handle should be rooted at the invoking directory: before_create and
// after_clean fire while buildPath is absent. buildPath is handed to
// callbacks unchanged.
func NewDispatcher(set Set, sh *shell.Handle, buildPath string) *Dispatcher {
	return &Dispatcher{set: set, shell: sh, buildPath: buildPath}
}

// Dispatch runs every action attached to point. Failing actions are logged
// as warnings and never abort the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, point string) {
	if d == nil {
		return
	}
	for i, a := range d.set[point] {
		logger := slog.With(logfields.Hook(point), slog.Int("index", i))
		switch a.kind {
		case KindCommand:
			logger.Info("Running hook command", logfields.Command(a.command))
			if _, err := d.shell.Exec(ctx, a.command); err != nil {
				attrs := []any{logfields.Command(a.command), logfields.Error(err)}
				if code, ok := shell.ExitCode(err); ok {
					attrs = append(attrs, logfields.ExitCode(code))
				}
				logger.Warn("Hook command failed", attrs...)
				d.warn(point + ": command failed: " + a.command)
			}
		case KindCallback:
			if a.fn == nil {
				err := errors.ConfigError("hook callback has no function").
					WithContext(logfields.KeyHook, point).
					Build()
				logger.Error("Invalid hook", logfields.Error(err))
				d.warn(point + ": " + err.Error())
				continue
			}
			if err := a.fn(ctx, d.shell, d.buildPath); err != nil {
				logger.Warn("Hook callback failed", logfields.Error(err))
				d.warn(point + ": callback failed: " + err.Error())
			}
		}
	}
}

func (d *Dispatcher) warn(msg string) {
	if d.OnWarning != nil {
		d.OnWarning(msg)
	}
}
