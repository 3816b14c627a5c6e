package pipeline

import "redovi/internal/progress"

// State is a pipeline state for one file.
type State string

const (
	StateCreated            State = "created"
	StateDemuxing           State = "demuxing"
	StateExtractingMetadata State = "extracting_metadata"
	StateReencoding         State = "reencoding"
	StateReextractingVideo  State = "reextracting_video"
	StateInjectingMetadata  State = "injecting_metadata"
	StateTranscodingAudio   State = "transcoding_audio"
	StateRemuxing           State = "remuxing"
	StateCompleted          State = "completed"
	StateFailed             State = "failed"
	StateAborted            State = "aborted"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateAborted:
		return true
	default:
		return false
	}
}

// Phase returns the progress phase driven while in s.
func (s State) Phase() (progress.Phase, bool) {
	switch s {
	case StateDemuxing:
		return progress.PhaseDemux, true
	case StateExtractingMetadata:
		return progress.PhaseMetadata, true
	case StateReencoding:
		return progress.PhaseReencode, true
	case StateReextractingVideo:
		return progress.PhaseReextract, true
	case StateInjectingMetadata:
		return progress.PhaseInject, true
	case StateTranscodingAudio:
		return progress.PhaseAudio, true
	case StateRemuxing:
		return progress.PhaseRemux, true
	case StateCompleted:
		return progress.PhaseCompleted, true
	default:
		return 0, false
	}
}

// StageStates lists the working states in execution order.
func StageStates() []State {
	return []State{
		StateDemuxing,
		StateExtractingMetadata,
		StateReencoding,
		StateReextractingVideo,
		StateInjectingMetadata,
		StateTranscodingAudio,
		StateRemuxing,
	}
}
