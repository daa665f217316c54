package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// ResolveResult enumerates plugin resolution outcomes.
type ResolveResult string

const (
	ResolveCacheHit ResolveResult = "cache_hit"
	ResolveFetched  ResolveResult = "fetched"
	ResolveFailed   ResolveResult = "failed"
)

// Recorder defines observability hooks for pipeline and loader metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: completed|failed|canceled
	ObservePluginResolve(source string, result ResolveResult, d time.Duration)
	IncRegistryRetry()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)                {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                        {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                        {}
func (NoopRecorder) IncBuildOutcome(string)                                    {}
func (NoopRecorder) ObservePluginResolve(string, ResolveResult, time.Duration) {}
func (NoopRecorder) IncRegistryRetry()                                         {}
