// Package metrics defines the observability hooks of the distribution engine.
// Components take a Recorder and default to NoopRecorder, so metrics never need nil checks.
package metrics

import "time"

// ResultLabel enumerates per-request outcomes of an assignment attempt.
type ResultLabel string

const (
	ResultStarted      ResultLabel = "started"
	ResultConflict     ResultLabel = "conflict"
	ResultStartFailed  ResultLabel = "start_failed"
	ResultNoWorker     ResultLabel = "no_worker"
	ResultIncompatible ResultLabel = "incompatible"
)

// Recorder defines observability hooks for distributor passes and assignments.
type Recorder interface {
	ObservePassDuration(d time.Duration)
	ObserveQueueDuration(builder string, d time.Duration)
	IncAssignment(builder string, result ResultLabel)
	IncPolicyError(builder, decision string)
	IncQueueError(builder string)
	IncReleaseFailure(builder string)
	SetPendingBuilders(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(time.Duration)          {}
func (NoopRecorder) ObserveQueueDuration(string, time.Duration) {}
func (NoopRecorder) IncAssignment(string, ResultLabel)          {}
func (NoopRecorder) IncPolicyError(string, string)              {}
func (NoopRecorder) IncQueueError(string)                       {}
func (NoopRecorder) IncReleaseFailure(string)                   {}
func (NoopRecorder) SetPendingBuilders(int)                     {}
