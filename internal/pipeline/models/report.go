package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/cordovabuild/internal/metrics"
)

// RunOutcome is the typed enumeration of final run result states.
type RunOutcome string

const (
	OutcomeCompleted RunOutcome = "completed"
	OutcomeFailed    RunOutcome = "failed"
	OutcomeCanceled  RunOutcome = "canceled"
)

// StageRecord is the outcome of one executed stage.
type StageRecord struct {
	Name     StageName
	Result   StageResult
	Duration time.Duration
	Err      error
}

// BuildReport captures what happened during one pipeline run.
type BuildReport struct {
	RunID   string
	Mode    string
	Start   time.Time
	End     time.Time
	Stages  []StageRecord
	Outcome RunOutcome
	// Errors holds the fatal error that aborted the run, if any.
	Errors []error
	// Warnings collects non-fatal problems such as failing hooks.
	Warnings []string
	// Plugins lists resolved plugins as id@version.
	Plugins []string
}

// NewBuildReport constructs a report with a fresh run id.
func NewBuildReport(mode string) *BuildReport {
	return &BuildReport{
		RunID: uuid.NewString(),
		Mode:  mode,
		Start: time.Now(),
	}
}

// RecordStageResult appends the stage record and emits metrics (if recorder non-nil).
func (r *BuildReport) RecordStageResult(stage StageName, res StageResult, d time.Duration, err error, recorder metrics.Recorder) {
	r.Stages = append(r.Stages, StageRecord{Name: stage, Result: res, Duration: d, Err: err})
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
	if recorder == nil {
		return
	}
	recorder.ObserveStageDuration(string(stage), d)
	switch res {
	case StageResultSuccess:
		recorder.IncStageResult(string(stage), metrics.ResultSuccess)
	case StageResultFatal:
		recorder.IncStageResult(string(stage), metrics.ResultFatal)
	case StageResultCanceled:
		recorder.IncStageResult(string(stage), metrics.ResultCanceled)
	}
}

// AddWarning records a non-fatal problem.
func (r *BuildReport) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// AddPlugin records a resolved plugin.
func (r *BuildReport) AddPlugin(id, version string) {
	r.Plugins = append(r.Plugins, id+"@"+version)
	sort.Strings(r.Plugins)
}

// Finish sets the end time and derives the outcome.
func (r *BuildReport) Finish() {
	r.End = time.Now()
	r.DeriveOutcome()
}

// DeriveOutcome sets Outcome from the recorded errors.
func (r *BuildReport) DeriveOutcome() {
	if len(r.Errors) == 0 {
		r.Outcome = OutcomeCompleted
		return
	}
	for _, e := range r.Errors {
		var se *StageError
		if errors.As(e, &se) && se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
			return
		}
	}
	r.Outcome = OutcomeFailed
}

// Duration is the wall time of the run.
func (r *BuildReport) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// Ran reports whether the named stage was executed.
func (r *BuildReport) Ran(stage StageName) bool {
	for _, s := range r.Stages {
		if s.Name == stage {
			return true
		}
	}
	return false
}

// StageNames returns the executed stages in order.
func (r *BuildReport) StageNames() []StageName {
	out := make([]StageName, 0, len(r.Stages))
	for _, s := range r.Stages {
		out = append(out, s.Name)
	}
	return out
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	var failed []string
	for _, s := range r.Stages {
		if s.Result != StageResultSuccess {
			failed = append(failed, string(s.Name))
		}
	}
	return fmt.Sprintf("run=%s mode=%s duration=%s stages=%d failed=[%s] plugins=%d warnings=%d outcome=%s",
		r.RunID, r.Mode, r.Duration().Truncate(time.Millisecond), len(r.Stages),
		strings.Join(failed, ","), len(r.Plugins), len(r.Warnings), string(r.Outcome))
}

// Observe emits run-level metrics.
func (r *BuildReport) Observe(recorder metrics.Recorder) {
	if recorder == nil {
		return
	}
	recorder.ObserveBuildDuration(r.Duration())
	recorder.IncBuildOutcome(string(r.Outcome))
}
