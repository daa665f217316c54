// Package stages implements the pipeline orchestrator: the stage catalogue,
// the invocation modes selecting stage lists from it, and the runner that
// executes one list against a BuildState.
//
// The runner stops at the first failing stage and never rolls back completed
// ones. It dispatches before_<stage> ahead of each stage and after_<stage>
// only when the stage succeeded; clean, before_build and after_build dispatch
// their own hook points.
package stages
