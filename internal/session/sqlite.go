package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/voicedev/vox/internal/domain"
)

// SQLiteStore provides durable session persistence. SQLite's single
// writer serializes concurrent appends; per-session ordering comes from
// the autoincrement entry id.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// One connection: pragmas are per-connection, and :memory: databases
	// are not shared across pool connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create makes a new session with a fresh UUID
func (s *SQLiteStore) Create(context domain.Context) (*domain.Session, error) {
	sess := domain.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Context:   context,
	}

	ctxJSON, err := json.Marshal(context)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`INSERT INTO sessions (id, created_at, context) VALUES (?, ?, ?)`,
		sess.ID, sess.CreatedAt, string(ctxJSON))
	if err != nil {
		return nil, err
	}

	return &sess, nil
}

// Get returns the session with its full history in insertion order
func (s *SQLiteStore) Get(id string) (*domain.Session, error) {
	row := s.db.QueryRow(`SELECT id, created_at, context FROM sessions WHERE id = ?`, id)

	var sess domain.Session
	var ctxJSON string
	if err := row.Scan(&sess.ID, &sess.CreatedAt, &ctxJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if ctxJSON != "" {
		if err := json.Unmarshal([]byte(ctxJSON), &sess.Context); err != nil {
			return nil, fmt.Errorf("decode context: %w", err)
		}
	}

	rows, err := s.db.Query(
		`SELECT role, content, timestamp FROM entries WHERE session_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.Role, &e.Content, &e.Timestamp); err != nil {
			return nil, err
		}
		sess.History = append(sess.History, e)
	}

	return &sess, rows.Err()
}

// Append adds one conversation entry
func (s *SQLiteStore) Append(id, role, content string) error {
	res, err := s.db.Exec(
		`INSERT INTO entries (session_id, role, content, timestamp)
		 SELECT id, ?, ?, ? FROM sessions WHERE id = ?`,
		role, content, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session and its entries
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns summaries ordered by creation time
func (s *SQLiteStore) List() ([]domain.Summary, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.created_at, s.context, COUNT(e.id)
		FROM sessions s
		LEFT JOIN entries e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var sum domain.Summary
		var ctxJSON string
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &ctxJSON, &sum.Entries); err != nil {
			return nil, err
		}
		if ctxJSON != "" {
			if err := json.Unmarshal([]byte(ctxJSON), &sum.Context); err != nil {
				return nil, fmt.Errorf("decode context: %w", err)
			}
		}
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// SaveRun records a finished pipeline run against a session
func (s *SQLiteStore) SaveRun(sessionID string, run *domain.PipelineRun) error {
	if sessionID != "" {
		if err := s.exists(sessionID); err != nil {
			return err
		}
	}

	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO pipeline_runs (id, session_id, status, results, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, nullable(sessionID), string(run.Status), string(resultsJSON), run.StartedAt, run.FinishedAt)
	return err
}

// Runs returns the recorded runs for a session, oldest first. Runs whose
// session was deleted are reachable with an empty sessionID.
func (s *SQLiteStore) Runs(sessionID string) ([]domain.PipelineRun, error) {
	if sessionID != "" {
		if err := s.exists(sessionID); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.Query(`
		SELECT id, status, results, started_at, finished_at
		FROM pipeline_runs
		WHERE session_id IS ?
		ORDER BY started_at
	`, nullable(sessionID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.PipelineRun
	for rows.Next() {
		var run domain.PipelineRun
		var resultsJSON string
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Status, &resultsJSON, &run.StartedAt, &finished); err != nil {
			return nil, err
		}
		if resultsJSON != "" {
			if err := json.Unmarshal([]byte(resultsJSON), &run.Results); err != nil {
				return nil, fmt.Errorf("decode results: %w", err)
			}
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// exists reports ErrNotFound when no session row carries the id
func (s *SQLiteStore) exists(id string) error {
	var one int
	if err := s.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
