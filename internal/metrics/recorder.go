// Package metrics records event queue activity.
package metrics

// ResultLabel is the outcome label attached to counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultRejected ResultLabel = "rejected"
)

// Recorder receives event queue measurements.
type Recorder interface {
	IncPut(result ResultLabel)
	AddRemoved(n int)
	SetStored(n int)
	IncBatch(result ResultLabel)
	AddDelivered(n int)
}

// NoopRecorder discards every measurement.
type NoopRecorder struct{}

func (NoopRecorder) IncPut(ResultLabel)   {}
func (NoopRecorder) AddRemoved(int)       {}
func (NoopRecorder) SetStored(int)        {}
func (NoopRecorder) IncBatch(ResultLabel) {}
func (NoopRecorder) AddDelivered(int)     {}
