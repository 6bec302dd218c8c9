// Package store keeps a local history of analyzed runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// ErrNotFound is returned when no analysis has the requested id. Match it
// with eris.Is.
var ErrNotFound = eris.New("analysis not found")

// Analysis is one saved analyzer result.
type Analysis struct {
	ID         string          `json:"id"`
	RunID      string          `json:"runId"`
	Source     string          `json:"source,omitempty"`
	RiskLevel  trace.RiskLevel `json:"riskLevel"`
	NodeCount  int             `json:"nodeCount"`
	IssueCount int             `json:"issueCount"`
	File       string          `json:"file,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	Run        *trace.TraceRun `json:"trace,omitempty"` // only populated by Get
}

// Filter narrows List results.
type Filter struct {
	RiskLevel trace.RiskLevel
	Source    string
	Limit     int
	Offset    int
}

// SQLiteStore persists analyses using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, creating its parent
// directory, and configures WAL mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, eris.Wrapf(err, "sqlite: create directory %s", dir)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	risk_level  TEXT NOT NULL,
	node_count  INTEGER NOT NULL,
	issue_count INTEGER NOT NULL,
	file        TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	payload     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_risk_level ON analyses(risk_level);
CREATE INDEX IF NOT EXISTS idx_analyses_run_id ON analyses(run_id);
`

// Migrate creates the schema if it does not exist yet.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores an analyzed run and returns its history entry.
func (s *SQLiteStore) Save(ctx context.Context, run *trace.TraceRun, file string) (*Analysis, error) {
	if run == nil {
		return nil, eris.New("sqlite: nil run")
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run")
	}

	a := &Analysis{
		ID:         uuid.New().String(),
		RunID:      run.ID,
		Source:     run.Source,
		RiskLevel:  run.RiskLevel,
		NodeCount:  len(run.Nodes),
		IssueCount: len(run.Issues),
		File:       file,
		CreatedAt:  time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, run_id, source, risk_level, node_count, issue_count, file, created_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.RunID, a.Source, string(a.RiskLevel), a.NodeCount, a.IssueCount, a.File, a.CreatedAt, string(payload),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert analysis for run %s", run.ID)
	}
	return a, nil
}

// List returns saved analyses, newest first, without their payloads.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Analysis, error) {
	query := `SELECT id, run_id, source, risk_level, node_count, issue_count, file, created_at FROM analyses WHERE 1=1`
	var args []any

	if filter.RiskLevel != "" {
		query += ` AND risk_level = ?`
		args = append(args, string(filter.RiskLevel))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		var a Analysis
		var risk string
		if err := rows.Scan(&a.ID, &a.RunID, &a.Source, &risk, &a.NodeCount, &a.IssueCount, &a.File, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		a.RiskLevel = trace.RiskLevel(risk)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

// Get returns one analysis including its stored run. A unique id prefix
// is accepted.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Analysis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, source, risk_level, node_count, issue_count, file, created_at, payload
		 FROM analyses WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2`,
		id, id+"%", id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	defer rows.Close()

	var matches []*Analysis
	for rows.Next() {
		var a Analysis
		var risk, payload string
		if err := rows.Scan(&a.ID, &a.RunID, &a.Source, &risk, &a.NodeCount, &a.IssueCount, &a.File, &a.CreatedAt, &payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		a.RiskLevel = trace.RiskLevel(risk)
		a.Run = &trace.TraceRun{}
		if err := json.Unmarshal([]byte(payload), a.Run); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal analysis %s", a.ID)
		}
		matches = append(matches, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: get analysis iterate")
	}

	switch {
	case len(matches) == 0:
		return nil, eris.Wrapf(ErrNotFound, "id %s", id)
	case matches[0].ID == id || len(matches) == 1:
		return matches[0], nil
	default:
		return nil, eris.Errorf("id prefix %s is ambiguous", id)
	}
}

// Delete removes an analysis by exact id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete analysis %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}
