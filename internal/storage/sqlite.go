package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding sessions and their turn log.
type Store struct {
	db *sql.DB
}

// dbFile is the database file name inside the data directory.
const dbFile = "heracles.db"

// pragmas run on the single connection right after it is opened.
var pragmas = []struct{ name, stmt string }{
	{"busy timeout", "PRAGMA busy_timeout = 5000"},
	{"journal mode", "PRAGMA journal_mode = WAL"},
}

// Open opens the session database under dataDir, creating the directory
// and file as needed, and brings the schema up to date. dataDir ":memory:"
// yields a private in-memory database.
func Open(dataDir string) (*Store, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dataDir, err)
		}
		dsn = filepath.Join(dataDir, dbFile)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dsn, err)
	}
	// One connection: writers serialize and an in-memory database stays shared.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) prepare() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p.stmt); err != nil {
			return fmt.Errorf("setting %s: %w", p.name, err)
		}
	}
	if err := s.migrate(); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies every embedded migration newer than the recorded schema
// version, each in its own transaction.
func (s *Store) migrate() error {
	const bootstrap = `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.Exec(bootstrap); err != nil {
		return fmt.Errorf("bootstrapping schema_version: %w", err)
	}

	applied, err := s.AppliedMigrations()
	if err != nil {
		return err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		version, err := parseMigrationVersion(path.Base(name))
		if err != nil {
			return err
		}
		if done[version] {
			continue
		}
		if err := s.apply(name, version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(name string, version int) error {
	body, err := migrationsFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(body)); err != nil {
		return fmt.Errorf("migration %d: %w", version, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("recording migration %d: %w", version, err)
	}
	return tx.Commit()
}

// parseMigrationVersion reads the numeric prefix of names like "001_init.sql".
func parseMigrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %q has no version prefix", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("migration %q: bad version: %w", name, err)
	}
	return v, nil
}

// AppliedMigrations lists recorded schema versions, lowest first.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query(`SELECT version FROM schema_version ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", field, err)
	}
	return t, nil
}

// --- Sessions ---

const sessionColumns = `id, created_at, updated_at, active_agent, state_json, stack_json, turn_count`

// SaveSession inserts sess or replaces the stored copy. CreatedAt is kept
// from the first save.
func (s *Store) SaveSession(sess Session) error {
	if sess.StateJSON == "" {
		sess.StateJSON = "{}"
	}
	if sess.StackJSON == "" {
		sess.StackJSON = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			active_agent = excluded.active_agent,
			state_json = excluded.state_json,
			stack_json = excluded.stack_json,
			turn_count = excluded.turn_count`,
		sess.ID, formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt), sess.ActiveAgent,
		sess.StateJSON, sess.StackJSON, sess.TurnCount,
	)
	return err
}

func (s *Store) GetSession(id string) (Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// ListSessions returns the most recently updated sessions first.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(`SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteSession removes the session and its turns.
func (s *Store) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM turns WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting turns: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(r scanner) (Session, error) {
	var sess Session
	var createdAt, updatedAt string
	if err := r.Scan(&sess.ID, &createdAt, &updatedAt, &sess.ActiveAgent, &sess.StateJSON, &sess.StackJSON, &sess.TurnCount); err != nil {
		return Session{}, err
	}
	var err error
	if sess.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Session{}, err
	}
	if sess.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// --- Turns ---

const turnColumns = `id, session_id, seq, created_at, input, messages_json, agents_json, active_agent, error`

// AppendTurn stores t as the next turn of its session and returns the
// assigned sequence number, starting at 1.
func (s *Store) AppendTurn(t Turn) (int, error) {
	if t.MessagesJSON == "" {
		t.MessagesJSON = "[]"
	}
	if t.AgentsJSON == "" {
		t.AgentsJSON = "[]"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning turn transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?`, t.SessionID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("selecting turn sequence: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO turns (`+turnColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, seq, formatTime(t.CreatedAt), t.Input,
		t.MessagesJSON, t.AgentsJSON, t.ActiveAgent, t.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting turn: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing turn: %w", err)
	}
	return seq, nil
}

// ListTurns returns up to limit turns of a session in order. limit <= 0
// returns all of them.
func (s *Store) ListTurns(sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+turnColumns+` FROM turns WHERE session_id = ? ORDER BY seq ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var createdAt string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Seq, &createdAt, &t.Input, &t.MessagesJSON, &t.AgentsJSON, &t.ActiveAgent, &t.Error); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
