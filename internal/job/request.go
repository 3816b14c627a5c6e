package job

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"redovi/internal/services"
)

// Quality bounds accepted by every backend (crf / cq / global_quality).
const (
	MinQuality = 16
	MaxQuality = 40
)

// Backend selects the encoder family used for the re-encode stage.
type Backend string

const (
	BackendCUDA Backend = "cuda"
	BackendQSV  Backend = "qsv"
	BackendCPU  Backend = "cpu"
)

var backendPresets = map[Backend][]string{
	BackendCUDA: {"slow", "medium", "fast", "hp", "hq"},
	BackendQSV:  {"slow", "medium", "fast", "faster", "veryfast"},
	BackendCPU:  {"ultrafast", "faster", "fast", "medium", "slow", "veryslow", "slower", "placebo"},
}

// Presets returns the encoder presets valid for the backend.
func (b Backend) Presets() []string {
	return slices.Clone(backendPresets[b])
}

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	_, ok := backendPresets[b]
	return ok
}

// HasPreset reports whether preset belongs to the backend's list.
func (b Backend) HasPreset(preset string) bool {
	return slices.Contains(backendPresets[b], preset)
}

// DefaultPreset is "slow", which every backend offers.
func (b Backend) DefaultPreset() string {
	if b.HasPreset(defaultPreset) {
		return defaultPreset
	}
	if presets := backendPresets[b]; len(presets) > 0 {
		return presets[0]
	}
	return ""
}

// ParseBackend accepts the canonical names and their upper-case labels.
func ParseBackend(value string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(value)))
	if !b.Valid() {
		return "", fmt.Errorf("unknown encoder backend %q (want cuda, qsv or cpu)", value)
	}
	return b, nil
}

// AudioMode selects whether audio is transcoded and to which channel layout.
type AudioMode string

const (
	AudioNone     AudioMode = "none"
	AudioStereo   AudioMode = "stereo"
	AudioSurround AudioMode = "5.1"
	AudioSeven    AudioMode = "7.1"
)

var audioChannels = map[AudioMode]int{
	AudioNone:     0,
	AudioStereo:   2,
	AudioSurround: 6,
	AudioSeven:    8,
}

// Channels returns the output channel count; zero means no conversion.
func (m AudioMode) Channels() int {
	return audioChannels[m]
}

// Converts reports whether the audio stage runs an encoder.
func (m AudioMode) Converts() bool {
	return m.Channels() > 0
}

// ParseAudioMode accepts canonical names and the labels used by older
// frontends ("No", "2.0 Stereo", "5.1 Surround", "7.1 Surround").
func ParseAudioMode(value string) (AudioMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "no", "off", "":
		return AudioNone, nil
	case "stereo", "2.0", "2.0 stereo":
		return AudioStereo, nil
	case "5.1", "5.1 surround", "surround":
		return AudioSurround, nil
	case "7.1", "7.1 surround":
		return AudioSeven, nil
	default:
		return "", fmt.Errorf("unknown audio mode %q (want none, stereo, 5.1 or 7.1)", value)
	}
}

// AudioBitrates lists the accepted aac bitrates.
var AudioBitrates = []string{"128k", "192k", "256k", "384k", "480k", "640k"}

// Retention decides whether the source audio is carried into the output.
type Retention string

const (
	RetainKeep   Retention = "keep"
	RetainRemove Retention = "remove"
)

// ParseRetention accepts keep/remove in any case.
func ParseRetention(value string) (Retention, error) {
	switch r := Retention(strings.ToLower(strings.TrimSpace(value))); r {
	case RetainKeep, RetainRemove:
		return r, nil
	default:
		return "", fmt.Errorf("unknown audio retention %q (want keep or remove)", value)
	}
}

// Request is the immutable input for one file's pipeline run.
type Request struct {
	Source       string
	OutputDir    string
	Quality      int
	Backend      Backend
	Preset       string
	AudioMode    AudioMode
	AudioBitrate string
	Retention    Retention
}

const defaultPreset = "slow"

// Default returns a request populated with the stock encode settings.
func Default() Request {
	return Request{
		Quality:      23,
		Backend:      BackendCUDA,
		Preset:       defaultPreset,
		AudioMode:    AudioNone,
		AudioBitrate: "640k",
		Retention:    RetainKeep,
	}
}

// ForSource returns a copy of r targeting source. An empty output directory
// falls back to the source's own directory.
func (r Request) ForSource(source string) Request {
	r.Source = source
	if strings.TrimSpace(r.OutputDir) == "" {
		r.OutputDir = filepath.Dir(source)
	}
	return r
}

// BaseName is the source file name without its extension.
func (r Request) BaseName() string {
	name := filepath.Base(r.Source)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Validate rejects requests that no backend could run.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return invalid("source file is required")
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		return invalid("output directory is required")
	}
	if r.Quality < MinQuality || r.Quality > MaxQuality {
		return invalid(fmt.Sprintf("quality %d out of range %d-%d", r.Quality, MinQuality, MaxQuality))
	}
	if !r.Backend.Valid() {
		return invalid(fmt.Sprintf("unknown encoder backend %q", r.Backend))
	}
	if !r.Backend.HasPreset(r.Preset) {
		return invalid(fmt.Sprintf("preset %q is not valid for %s (want one of %s)",
			r.Preset, r.Backend, strings.Join(backendPresets[r.Backend], ", ")))
	}
	if _, ok := audioChannels[r.AudioMode]; !ok {
		return invalid(fmt.Sprintf("unknown audio mode %q", r.AudioMode))
	}
	if r.AudioMode.Converts() && !slices.Contains(AudioBitrates, r.AudioBitrate) {
		return invalid(fmt.Sprintf("audio bitrate %q is not one of %s", r.AudioBitrate, strings.Join(AudioBitrates, ", ")))
	}
	if r.Retention != RetainKeep && r.Retention != RetainRemove {
		return invalid(fmt.Sprintf("unknown audio retention %q", r.Retention))
	}
	return nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "request", "validate", message, nil)
}
