package metrics

import (
	"testing"
	"time"
)

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("clean", time.Millisecond)
	r.IncStageResult("clean", ResultSuccess)
	r.ObserveBuildDuration(time.Millisecond)
	r.IncBuildOutcome("completed")
	r.ObservePluginResolve("registry", ResolveCacheHit, time.Millisecond)
	r.IncRegistryRetry()

	var _ Recorder = (*PrometheusRecorder)(nil)
}
