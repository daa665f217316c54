// Package metrics records pipeline and plugin loader metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder. PrometheusRecorder registers its collectors on a private
// registry and can dump them to a node exporter textfile after a run:
//
//	rec := metrics.NewPrometheusRecorder(nil)
//	runner := stages.NewRunner(stages.WithRecorder(rec))
//	...
//	_ = rec.WriteTextfile("/var/lib/node_exporter/cordovabuild.prom")
package metrics
