// Package metrics provides pipeline run metrics behind a Recorder interface.
//
// Components receive a Recorder through dependency injection; the default
// NoopRecorder makes metrics collection optional without nil checks. The
// Prometheus implementation is activated by the CLI when a metrics listen
// address is configured.
package metrics

import "time"

// Recorder receives pipeline execution observations.
type Recorder interface {
	// IncStageResult counts one stage completing with the given result
	// ("success", "fatal", "skipped").
	IncStageResult(stage, result string)
	// ObservePhaseDuration records how long a phase ran.
	ObservePhaseDuration(phase string, d time.Duration)
	// IncPublishResult counts one publish attempt outcome per provider.
	IncPublishResult(provider, result string)
}

// NoopRecorder is the default Recorder; all methods do nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncStageResult(string, string)              {}
func (NoopRecorder) ObservePhaseDuration(string, time.Duration) {}
func (NoopRecorder) IncPublishResult(string, string)            {}
