package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sift/internal/analysis"
	"sift/internal/config"
)

// ErrNotFound is returned when no analysis has the requested id.
var ErrNotFound = errors.New("analysis not found")

// DefaultListLimit bounds List when the caller passes no limit.
const DefaultListLimit = 50

// Metadata is the caller context stored alongside a result.
type Metadata struct {
	// ID overrides the generated record id. Empty means a new UUID.
	ID         string
	ProjectID  string
	UserID     string
	SourceName string
}

// Record identifies a persisted analysis.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is one row of List output.
type Summary struct {
	Record
	ProjectID         string `json:"project_id,omitempty"`
	UserID            string `json:"user_id,omitempty"`
	SourceName        string `json:"source_name,omitempty"`
	TranscriptLength  int    `json:"transcript_length"`
	ProblemAreaCount  int    `json:"problem_area_count"`
	ExcerptCount      int    `json:"excerpt_count"`
	ManuallyValidated bool   `json:"manually_validated"`
}

// Stored is a persisted analysis with its caller metadata.
type Stored struct {
	Summary
	Result *analysis.Result `json:"result"`
}

// createdAtLayout is fixed width so created_at text sorts chronologically.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists analysis results in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open initializes or connects to the analysis database and applies migrations.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
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

// Persist stores result with its caller metadata.
func (s *Store) Persist(ctx context.Context, result *analysis.Result, meta Metadata) (Record, error) {
	if result == nil {
		return Record{}, errors.New("persist: result is nil")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return Record{}, fmt.Errorf("marshal result: %w", err)
	}

	id := strings.TrimSpace(meta.ID)
	if id == "" {
		id = uuid.NewString()
	}
	record := Record{ID: id, CreatedAt: s.now().UTC()}
	counts := result.Metadata()

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO analyses (
            id, project_id, user_id, source_name, created_at,
            transcript_length, problem_area_count, excerpt_count,
            manually_validated, result_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		nullableString(meta.ProjectID),
		nullableString(meta.UserID),
		nullableString(meta.SourceName),
		record.CreatedAt.Format(createdAtLayout),
		counts.TranscriptLength,
		counts.ProblemAreaCount,
		counts.ExcerptCount,
		boolToInt(counts.ManuallyValidated),
		string(payload),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert analysis: %w", err)
	}
	return record, nil
}

const summaryColumns = `id, project_id, user_id, source_name, created_at,
    transcript_length, problem_area_count, excerpt_count, manually_validated`

// Get fetches a stored analysis by id.
func (s *Store) Get(ctx context.Context, id string) (*Stored, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+`, result_json FROM analyses WHERE id = ?`, id)
	var stored Stored
	var payload string
	err := scanSummary(row, &stored.Summary, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	result, err := analysis.Decode([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decode stored analysis %s: %w", id, err)
	}
	stored.Result = result
	return &stored, nil
}

// List returns the most recent analyses, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+summaryColumns+` FROM analyses ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var summary Summary
		if err := scanSummary(rows, &summary); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return summaries, nil
}

// Delete removes an analysis. Deleting an unknown id returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner, summary *Summary, extra ...any) error {
	var (
		projectID, userID, sourceName sql.NullString
		createdAt                     string
		manual                        int
	)
	dest := []any{
		&summary.ID, &projectID, &userID, &sourceName, &createdAt,
		&summary.TranscriptLength, &summary.ProblemAreaCount, &summary.ExcerptCount, &manual,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	summary.ProjectID = projectID.String
	summary.UserID = userID.String
	summary.SourceName = sourceName.String
	summary.ManuallyValidated = manual != 0
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	summary.CreatedAt = parsed
	return nil
}

func nullableString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
