package pipeline

import (
	"time"

	"redovi/internal/job"
)

// Observer receives lifecycle notifications from the orchestrator. Calls are
// made synchronously on the pipeline worker.
type Observer interface {
	StageStarted(req job.Request, state State)
	StageFinished(req job.Request, state State, elapsed time.Duration, err error)
	RunFinished(req job.Request, result Result, err error)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) StageStarted(job.Request, State)                         {}
func (NopObserver) StageFinished(job.Request, State, time.Duration, error) {}
func (NopObserver) RunFinished(job.Request, Result, error)                 {}

// Observers fans notifications out to every non-nil observer in order.
func Observers(list ...Observer) Observer {
	active := make(multiObserver, 0, len(list))
	for _, o := range list {
		if o != nil {
			active = append(active, o)
		}
	}
	return active
}

type multiObserver []Observer

func (m multiObserver) StageStarted(req job.Request, state State) {
	for _, o := range m {
		o.StageStarted(req, state)
	}
}

func (m multiObserver) StageFinished(req job.Request, state State, elapsed time.Duration, err error) {
	for _, o := range m {
		o.StageFinished(req, state, elapsed, err)
	}
}

func (m multiObserver) RunFinished(req job.Request, result Result, err error) {
	for _, o := range m {
		o.RunFinished(req, result, err)
	}
}
