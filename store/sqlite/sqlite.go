/*
Package sqlite provides the SQLite-backed roster.Store.

PURPOSE:
  Production persistence for the planner: users, work posts, the code
  space, planning rows, holidays, cycles, HR rule versions, type-tables
  and leave data. The engine only reads through roster.Repository; the
  writes serve the UI, scenario seeding and the CLI.

KEY TABLES:
  planning:             one row per (user, date), code may be empty
  shift_codes:          letters unique per (work post, day type)
  special_codes:        letters unique, one code per term
  hr_rules:             append-only rule versions [effective_from, effective_to)
  type_table_versions:  draft/active/archived weekly patterns
  type_table_cells:     (version, week, day) → slot label or code

VERSIONING:
  Saving an HR rule or activating a type-table closes the version it
  supersedes in the same transaction (roster.ActivateRule and
  roster.ActivateTypeTable decide what changes).

ENCODING:
  Dates are TEXT "YYYY-MM-DD", clock times TEXT "HH:MM", amounts TEXT
  decimals, so the values round-trip exactly.

WAL MODE:
  Opened with WAL for concurrent readers. ":memory:" is pinned to a single
  connection, since every connection would otherwise get its own database.

SEE ALSO:
  - ../../roster/store.go: Repository and Writer
  - ../../roster/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// Store implements roster.Store on SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	log *logrus.Logger
}

var _ roster.Store = (*Store)(nil)

// New opens (and migrates) the database at dbPath. Use ":memory:" for an
// in-memory database. A nil logger discards output.
func New(dbPath string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, log: log}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.WithField("path", dbPath).Debug("Opened roster database")
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_week INTEGER NOT NULL DEFAULT 1,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS work_posts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS user_work_posts (
		user_id TEXT NOT NULL,
		work_post_id TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (user_id, work_post_id)
	);

	CREATE TABLE IF NOT EXISTS shift_codes (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		work_post_id TEXT NOT NULL,
		day_type TEXT NOT NULL,
		shift_type TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		counts_as_workday BOOLEAN NOT NULL DEFAULT TRUE,
		resets_12h_rest BOOLEAN NOT NULL DEFAULT FALSE,
		breaks_work_streak BOOLEAN NOT NULL DEFAULT FALSE,
		is_critical BOOLEAN NOT NULL DEFAULT FALSE,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- Letters are only unique within a (work post, day type)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_shift_codes_letters
		ON shift_codes(work_post_id, day_type, code);

	CREATE TABLE IF NOT EXISTS special_codes (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		term TEXT NOT NULL DEFAULT '',
		counts_as_workday BOOLEAN NOT NULL DEFAULT FALSE,
		resets_12h_rest BOOLEAN NOT NULL DEFAULT FALSE,
		breaks_work_streak BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_special_codes_term
		ON special_codes(term) WHERE term != '';

	CREATE TABLE IF NOT EXISTS planning (
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		PRIMARY KEY (user_id, date)
	);

	-- Month loads scan by date
	CREATE INDEX IF NOT EXISTS idx_planning_date
		ON planning(date);

	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		counts_as_sunday_rest BOOLEAN NOT NULL DEFAULT TRUE,
		is_variable BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (date, name)
	);

	CREATE TABLE IF NOT EXISTS cycles (
		period_number INTEGER PRIMARY KEY,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hr_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE INDEX IF NOT EXISTS idx_hr_rules_name
		ON hr_rules(name, effective_from);

	CREATE TABLE IF NOT EXISTS type_table_versions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		weeks INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		effective_from TEXT NOT NULL DEFAULT '',
		effective_to TEXT
	);

	CREATE TABLE IF NOT EXISTS type_table_cells (
		version_id TEXT NOT NULL,
		week INTEGER NOT NULL,
		day INTEGER NOT NULL,
		slot TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (version_id, week, day)
	);

	CREATE TABLE IF NOT EXISTS leave_balances (
		user_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		leave_total TEXT NOT NULL DEFAULT '0',
		leave_carryover TEXT NOT NULL DEFAULT '0',
		leave_used TEXT NOT NULL DEFAULT '0',
		comp_total TEXT NOT NULL DEFAULT '0',
		comp_carryover TEXT NOT NULL DEFAULT '0',
		comp_used TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (user_id, year)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'pending',
		granted_term TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_user
		ON leave_requests(user_id, start_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes every row. Scenario loading starts from here.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"users", "work_posts", "user_work_posts", "shift_codes", "special_codes",
		"planning", "holidays", "cycles", "hr_rules", "type_table_versions",
		"type_table_cells", "leave_balances", "leave_requests",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
	}
	s.log.Info("Roster database reset")
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func formatDate(d generic.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(s string) (generic.Date, error) {
	if s == "" {
		return generic.Date{}, nil
	}
	return generic.ParseDate(s)
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) (*generic.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseAmount(value string, unit generic.Unit) generic.Amount {
	a, err := generic.ParseAmount(value, unit)
	if err != nil {
		return generic.NewAmountFromInt(0, unit)
	}
	return a
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
