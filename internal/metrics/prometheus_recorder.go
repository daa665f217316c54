package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "cordovabuild"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	reg             *prom.Registry
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	buildDuration   prom.Histogram
	buildOutcome    *prom.CounterVec
	resolveDuration *prom.HistogramVec
	resolveResults  *prom.CounterVec
	registryRetries prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final status",
		}, []string{"outcome"})
		pr.resolveDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "plugin_resolve_duration_seconds",
			Help:      "Duration of plugin resolutions by source kind",
			Buckets:   prom.DefBuckets,
		}, []string{"source", "result"})
		pr.resolveResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_resolve_results_total",
			Help:      "Plugin resolutions by source kind and outcome",
		}, []string{"source", "result"})
		pr.registryRetries = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "registry_retries_total",
			Help:      "Registry requests retried after transient failures",
		})
		reg.MustRegister(pr.stageDuration, pr.stageResults, pr.buildDuration, pr.buildOutcome,
			pr.resolveDuration, pr.resolveResults, pr.registryRetries)
	})
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

// WriteTextfile writes the current metric values in text exposition format,
// for pickup by a node exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObservePluginResolve(source string, result ResolveResult, d time.Duration) {
	if p == nil || p.resolveDuration == nil {
		return
	}
	p.resolveDuration.WithLabelValues(source, string(result)).Observe(d.Seconds())
	p.resolveResults.WithLabelValues(source, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRegistryRetry() {
	if p == nil || p.registryRetries == nil {
		return
	}
	p.registryRetries.Inc()
}
