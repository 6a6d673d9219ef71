// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists per-run outcomes in a SQLite database so repeat
// runs can be audited and papers traced back to the run that produced them.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meshintel/preprint-digest/pkg/types"
)

const defaultDBFile = "digest.db"

// Store manages the run ledger database.
type Store struct {
	db *sql.DB
}

// PaperEntry is one paper's outcome within a run.
type PaperEntry struct {
	RunID       string
	PaperID     string
	DOI         string
	Title       string
	PDFPath     string
	SummaryPath string
	Status      string
	Reason      string
	RecordedAt  time.Time
}

// NewStore opens or creates the ledger at cfg.Path, creating parent
// directories and the schema as needed. An empty path selects digest.db in
// the current directory.
func NewStore(cfg types.LedgerConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = defaultDBFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			query TEXT,
			matched INTEGER DEFAULT 0,
			downloaded INTEGER DEFAULT 0,
			summarized INTEGER DEFAULT 0,
			failed INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			paper_id TEXT NOT NULL,
			doi TEXT,
			title TEXT,
			pdf_path TEXT,
			summary_path TEXT,
			status TEXT NOT NULL,
			reason TEXT,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (run_id, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_paper_id ON papers(paper_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun records the start of a run with its query.
func (s *Store) BeginRun(ctx context.Context, runID string, q types.Query) error {
	queryJSON, _ := json.Marshal(q)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, query) VALUES (?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), string(queryJSON),
	)
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// FinishRun records the run's end time and outcome counts.
func (s *Store) FinishRun(ctx context.Context, runID string, matched, downloaded, summarized, failed int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, matched = ?, downloaded = ?, summarized = ?, failed = ?
		 WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339), matched, downloaded, summarized, failed, runID,
	)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// RecordPaper upserts one paper's outcome for a run.
func (s *Store) RecordPaper(ctx context.Context, entry PaperEntry) error {
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (run_id, paper_id, doi, title, pdf_path, summary_path, status, reason, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, paper_id) DO UPDATE SET
			pdf_path=excluded.pdf_path, summary_path=excluded.summary_path,
			status=excluded.status, reason=excluded.reason, recorded_at=excluded.recorded_at`,
		entry.RunID, entry.PaperID, entry.DOI, entry.Title, entry.PDFPath,
		entry.SummaryPath, entry.Status, entry.Reason,
		recordedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording paper %s: %w", entry.PaperID, err)
	}
	return nil
}

// PaperHistory returns every recorded outcome for a paper, newest first.
func (s *Store) PaperHistory(ctx context.Context, paperID string) ([]PaperEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, paper_id, doi, title, pdf_path, summary_path, status, reason, recorded_at
		 FROM papers WHERE paper_id = ? ORDER BY recorded_at DESC`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying paper history: %w", err)
	}
	defer rows.Close()

	var entries []PaperEntry
	for rows.Next() {
		var e PaperEntry
		var recordedAt string
		if err := rows.Scan(&e.RunID, &e.PaperID, &e.DOI, &e.Title, &e.PDFPath,
			&e.SummaryPath, &e.Status, &e.Reason, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning paper history: %w", err)
		}
		if t, parseErr := time.Parse(time.RFC3339, recordedAt); parseErr == nil {
			e.RecordedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
