// Package capture persists raw provider streams so they can be listed and
// replayed through the parser later.
package capture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/nghyane/llm-wire/internal/logging"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load for unknown capture ids.
var ErrNotFound = errors.New("capture: not found")

var nowFunc = time.Now

// Capture describes one recorded stream.
type Capture struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Complete  bool      `json:"complete"`
	Reason    string    `json:"reason,omitempty"`
	Lines     int       `json:"lines"`
}

// Transcript is a capture plus its raw lines, one per "\n"-terminated row.
type Transcript struct {
	Capture
	Text string `json:"text"`
}

// Store handles SQLite persistence of transcripts.
type Store struct {
	db            *sql.DB
	dbPath        string
	retentionDays int
	cleanupTicker *time.Ticker
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// Open creates or opens the database at dbPath. retentionDays <= 0 keeps
// transcripts forever and disables the daily cleanup.
func Open(dbPath string, retentionDays int) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("capture: database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("capture: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("capture: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("capture: initialize schema: %w", err)
	}

	s := &Store{
		db:            db,
		dbPath:        dbPath,
		retentionDays: retentionDays,
		stopChan:      make(chan struct{}),
	}
	if retentionDays > 0 {
		s.cleanupTicker = time.NewTicker(24 * time.Hour)
		s.wg.Add(1)
		go s.cleanupLoop()
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS captures (
		id         TEXT PRIMARY KEY,
		provider   TEXT NOT NULL,
		model      TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		ended_at   INTEGER NOT NULL,
		complete   INTEGER NOT NULL DEFAULT 0,
		reason     TEXT NOT NULL DEFAULT '',
		line_count INTEGER NOT NULL DEFAULT 0,
		transcript TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_captures_started_at ON captures(started_at);
	CREATE INDEX IF NOT EXISTS idx_captures_provider ON captures(provider, started_at);
	`)
	return err
}

func (s *Store) Save(ctx context.Context, t *Transcript) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("capture: transcript without id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO captures
			(id, provider, model, started_at, ended_at, complete, reason, line_count, transcript)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Provider, t.Model, t.StartedAt.UnixMilli(), t.EndedAt.UnixMilli(),
		boolToInt(t.Complete), t.Reason, t.Lines, t.Text)
	if err != nil {
		return fmt.Errorf("capture: save %s: %w", t.ID, err)
	}
	return nil
}

// List returns captures newest first. An empty provider lists all; limit <= 0
// means 50.
func (s *Store) List(ctx context.Context, provider string, limit int) ([]Capture, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, provider, model, started_at, ended_at, complete, reason, line_count FROM captures`
	args := []any{}
	if provider != "" {
		query += ` WHERE provider = ?`
		args = append(args, provider)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("capture: list: %w", err)
	}
	defer rows.Close()

	var out []Capture
	for rows.Next() {
		var c Capture
		var started, ended int64
		var complete int
		if err := rows.Scan(&c.ID, &c.Provider, &c.Model, &started, &ended, &complete, &c.Reason, &c.Lines); err != nil {
			return nil, fmt.Errorf("capture: scan: %w", err)
		}
		c.StartedAt = time.UnixMilli(started)
		c.EndedAt = time.UnixMilli(ended)
		c.Complete = complete != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Load(ctx context.Context, id string) (*Transcript, error) {
	var t Transcript
	var started, ended int64
	var complete int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, provider, model, started_at, ended_at, complete, reason, line_count, transcript
		FROM captures WHERE id = ?
	`, id).Scan(&t.ID, &t.Provider, &t.Model, &started, &ended, &complete, &t.Reason, &t.Lines, &t.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("capture: load %s: %w", id, err)
	}
	t.StartedAt = time.UnixMilli(started)
	t.EndedAt = time.UnixMilli(ended)
	t.Complete = complete != 0
	return &t, nil
}

func (s *Store) cleanupLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.cleanupTicker.C:
			if _, err := s.Cleanup(context.Background()); err != nil {
				log.Errorf("capture: cleanup failed: %v", err)
			}
		case <-s.stopChan:
			return
		}
	}
}

// Cleanup removes transcripts older than the retention period.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := nowFunc().AddDate(0, 0, -s.retentionDays)
	result, err := s.db.ExecContext(ctx, `DELETE FROM captures WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		log.Infof("capture: removed %d transcripts older than %d days", n, s.retentionDays)
	}
	return n, nil
}

// Close stops the cleanup loop and closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.cleanupTicker != nil {
			s.cleanupTicker.Stop()
		}
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Store) DBPath() string {
	if s == nil {
		return ""
	}
	return s.dbPath
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// joinLines terminates every line with "\n" so trailing blank lines survive
// a round trip through a line scanner.
func joinLines(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
