package history

import "time"

// Mode distinguishes single-file runs from folder batches.
type Mode string

const (
	ModeFile  Mode = "file"
	ModeBatch Mode = "batch"
)

// Run is one invocation of `redovi run`.
type Run struct {
	ID         string
	Source     string
	Mode       Mode
	StartedAt  time.Time
	FinishedAt *time.Time
	Total      int
	Succeeded  int
	Failed     int
	Outcome    string
}

// Finished reports whether FinishRun was recorded.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// FileRecord is the outcome of one file within a run.
type FileRecord struct {
	RunID        string
	Source       string
	Output       string
	State        string
	ErrorKind    string
	ErrorMessage string
	Elapsed      time.Duration
	FinishedAt   time.Time
}

// Summary carries the final counts for FinishRun.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Outcome   string
}
