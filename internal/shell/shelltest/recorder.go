// Package shelltest provides a recording shell.Executor for tests.
package shelltest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"git.home.luguber.info/inful/cordovabuild/internal/shell"
)

// Responder decides the outcome of a recorded command. A nil return value
// with exit code 0 means success.
type Responder func(cmd shell.Command) (shell.Result, error)

// Recorder records every command and answers through an optional Responder.
type Recorder struct {
	mu        sync.Mutex
	commands  []shell.Command
	responder Responder
	failures  map[string]int
}

// New returns a Recorder where every command succeeds.
func New() *Recorder {
	return &Recorder{failures: map[string]int{}}
}

// Respond installs a custom responder.
func (r *Recorder) Respond(fn Responder) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responder = fn
	return r
}

// FailOn makes commands whose line contains substr exit with code.
func (r *Recorder) FailOn(substr string, code int) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[substr] = code
	return r
}

// Run records cmd and returns the configured outcome.
func (r *Recorder) Run(_ context.Context, cmd shell.Command) (shell.Result, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	responder := r.responder
	var code int
	line := cmd.String()
	for substr, c := range r.failures {
		if strings.Contains(line, substr) {
			code = c
			break
		}
	}
	r.mu.Unlock()

	if code != 0 {
		res := shell.Result{ExitCode: code, Stderr: fmt.Sprintf("simulated failure of %s", line)}
		return res, shell.Failure(cmd, res, fmt.Errorf("exit status %d", code))
	}
	if responder != nil {
		return responder(cmd)
	}
	return shell.Result{}, nil
}

// Commands returns the recorded commands.
func (r *Recorder) Commands() []shell.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shell.Command(nil), r.commands...)
}

// Lines returns the recorded command lines without the executable name.
func (r *Recorder) Lines() []string {
	cmds := r.Commands()
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, strings.TrimPrefix(c.String(), c.Name+" "))
	}
	return out
}

// Matching returns the recorded command lines containing substr.
func (r *Recorder) Matching(substr string) []string {
	var out []string
	for _, l := range r.Lines() {
		if strings.Contains(l, substr) {
			out = append(out, l)
		}
	}
	return out
}
