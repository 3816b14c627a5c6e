package progress

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Phase identifies a progress range within one file's run.
type Phase int

const (
	PhaseDemux Phase = iota
	PhaseMetadata
	PhaseReencode
	PhaseReextract
	PhaseInject
	PhaseAudio
	PhaseRemux
	PhaseCompleted
)

// Range is the [Start, End] slice of the overall percentage owned by a phase.
type Range struct {
	Start float64
	End   float64
}

var phaseRanges = map[Phase]Range{
	PhaseDemux:     {0, 10},
	PhaseMetadata:  {10, 20},
	PhaseReencode:  {20, 90},
	PhaseReextract: {90, 95},
	PhaseInject:    {95, 97},
	PhaseAudio:     {97, 98},
	PhaseRemux:     {98, 100},
	PhaseCompleted: {100, 100},
}

var phaseNames = map[Phase]string{
	PhaseDemux:     "extracting video stream",
	PhaseMetadata:  "extracting dolby vision metadata",
	PhaseReencode:  "reencoding video",
	PhaseReextract: "extracting reencoded video",
	PhaseInject:    "injecting dolby vision metadata",
	PhaseAudio:     "processing audio",
	PhaseRemux:     "remuxing",
	PhaseCompleted: "completed",
}

// Range returns the phase's share of the overall percentage.
func (p Phase) Range() Range {
	if r, ok := phaseRanges[p]; ok {
		return r
	}
	return Range{}
}

// String returns the lowercase phase name used in logs.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Label returns the title-cased name shown next to the percentage.
func (p Phase) Label() string {
	return cases.Title(language.English).String(p.String())
}

// At converts a stage-local percentage (0-100) into the overall percentage.
func (r Range) At(stagePercent float64) float64 {
	stagePercent = clamp(stagePercent)
	return r.Start + (r.End-r.Start)*stagePercent/100
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
