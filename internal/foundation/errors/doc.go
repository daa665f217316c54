// Package errors provides foundational, type-safe error primitives used across cordovabuild.
//
// Every failure surfaced by the document model, the plugin loader and the pipeline
// stages is a ClassifiedError carrying one of the categories below, so callers can
// branch on the kind of failure without parsing messages.
//
// Key features:
//   - ErrorCategory: the failure taxonomy (validation, manifest, subprocess, fetch, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: retry behavior (never, immediate, backoff, rate limit, user action)
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit code mapping and presentation for the command line
//
// Example usage:
//
//	err := errors.FetchError("registry lookup failed").
//		WithContext("url", url).
//		WithContext("status", resp.StatusCode).
//		WithCause(originalErr).
//		Build()
package errors
