package progress

import "sync"

// Sink receives the overall percentage (0-100) and a stage label. Sinks are
// called synchronously from the pipeline worker and must not block.
type Sink func(percent float64, label string)

// Discard is a sink that drops every update.
func Discard(float64, string) {}

// Multi fans one update out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return func(percent float64, label string) {
		for _, s := range active {
			s(percent, label)
		}
	}
}

// Tracker converts phase progress into overall progress for a single run.
// It never emits a value lower than one it already emitted.
type Tracker struct {
	mu    sync.Mutex
	sink  Sink
	last  float64
	label string
}

// NewTracker wraps sink; a nil sink discards updates.
func NewTracker(sink Sink) *Tracker {
	if sink == nil {
		sink = Discard
	}
	return &Tracker{sink: sink}
}

// Enter reports the start of a phase.
func (t *Tracker) Enter(p Phase) {
	t.emit(p.Range().Start, p.Label())
}

// Update reports stagePercent (0-100) of progress within phase p.
func (t *Tracker) Update(p Phase, stagePercent float64) {
	t.emit(p.Range().At(stagePercent), p.Label())
}

// Finish reports the end of phase p.
func (t *Tracker) Finish(p Phase) {
	t.emit(p.Range().End, p.Label())
}

// Complete reports 100% with the completed label.
func (t *Tracker) Complete() {
	t.emit(100, PhaseCompleted.Label())
}

// Last returns the most recently emitted percentage and label.
func (t *Tracker) Last() (float64, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.label
}

func (t *Tracker) emit(percent float64, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	percent = clamp(percent)
	if percent < t.last {
		percent = t.last
	}
	t.last = percent
	t.label = label
	t.sink(percent, label)
}
