package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"redovi/internal/config"
)

// timeLayout keeps every fractional digit so stored timestamps sort and
// compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenConfig opens the history database under the configured state directory.
func OpenConfig(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return Open(cfg.HistoryPath())
}

// Open initializes or connects to the history database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a new run and returns it with a fresh identifier.
func (s *Store) BeginRun(ctx context.Context, source string, mode Mode) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Source:    source,
		Mode:      mode,
		StartedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, mode, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, string(run.Mode), formatTime(run.StartedAt),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordFile appends a file outcome to runID.
func (s *Store) RecordFile(ctx context.Context, runID string, rec FileRecord) error {
	if strings.TrimSpace(runID) == "" {
		return errors.New("run id is required")
	}
	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (run_id, source, output, state, error_kind, error_message, elapsed_ms, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		rec.Source,
		nullableString(rec.Output),
		rec.State,
		nullableString(rec.ErrorKind),
		nullableString(rec.ErrorMessage),
		rec.Elapsed.Milliseconds(),
		formatTime(finished),
	)
	if err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// FinishRun stores the final counts for runID.
func (s *Store) FinishRun(ctx context.Context, runID string, summary Summary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, failed = ?, outcome = ? WHERE id = ?`,
		formatTime(s.now()),
		summary.Total, summary.Succeeded, summary.Failed, summary.Outcome,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

const runColumns = "id, source, mode, started_at, finished_at, total, succeeded, failed, outcome"

// GetRun fetches a run by identifier. It returns nil when the run is unknown.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns lists up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Files lists the file records for runID in processing order.
func (s *Store) Files(ctx context.Context, runID string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, source, output, state, error_kind, error_message, elapsed_ms, finished_at
         FROM files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		var (
			rec         FileRecord
			output      sql.NullString
			errKind     sql.NullString
			errMessage  sql.NullString
			elapsedMS   int64
			finishedRaw string
		)
		if err := rows.Scan(&rec.RunID, &rec.Source, &output, &rec.State, &errKind, &errMessage, &elapsedMS, &finishedRaw); err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		rec.Output = output.String
		rec.ErrorKind = errKind.String
		rec.ErrorMessage = errMessage.String
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		rec.FinishedAt = parseTime(finishedRaw)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes runs started before cutoff, with their file records, and
// returns how many runs were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	stamp := formatTime(cutoff)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM files WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, stamp); err != nil {
		return 0, fmt.Errorf("prune files: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, stamp)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return removed, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		mode        string
		startedRaw  string
		finishedRaw sql.NullString
		outcome     sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Source, &mode, &startedRaw, &finishedRaw, &run.Total, &run.Succeeded, &run.Failed, &outcome); err != nil {
		return nil, err
	}
	run.Mode = Mode(mode)
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid && finishedRaw.String != "" {
		t := parseTime(finishedRaw.String)
		run.FinishedAt = &t
	}
	run.Outcome = outcome.String
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
