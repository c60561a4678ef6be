package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrMissingTable is returned when a required table is absent after
// migration.  Every store operation depends on all three tables, so callers
// treat it as fatal.
var ErrMissingTable = errors.New("required table missing")

// Table is a baseline table definition.  Columns added after the first
// deployment are expressed as Patches, never edited in here, so existing
// databases and fresh ones converge on the same shape.
type Table struct {
	Name   string
	SQLite string
	MySQL  string
}

// Patch adds one column to an existing table.
type Patch struct {
	Table  string
	Column string
	SQLite string
	MySQL  string
}

func (p Patch) def(d Dialect) string {
	if d == MySQL {
		return p.MySQL
	}
	return p.SQLite
}

func (t Table) ddl(d Dialect) string {
	if d == MySQL {
		return t.MySQL
	}
	return t.SQLite
}

// Tables are created in order when absent.
var Tables = []Table{
	{
		Name: "landlords",
		SQLite: `CREATE TABLE IF NOT EXISTS landlords (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT, phone TEXT UNIQUE, password TEXT)`,
		MySQL: `CREATE TABLE IF NOT EXISTS landlords (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255), phone VARCHAR(32) UNIQUE, password VARCHAR(255))`,
	},
	{
		Name: "boarding",
		SQLite: `CREATE TABLE IF NOT EXISTS boarding (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			landlord_id INTEGER,
			name TEXT, location TEXT, price TEXT,
			phone TEXT, institution TEXT, distance TEXT,
			images TEXT, map_url TEXT, amenities TEXT,
			verified INTEGER DEFAULT 1,
			clicks INTEGER DEFAULT 0,
			status TEXT DEFAULT 'Available')`,
		MySQL: `CREATE TABLE IF NOT EXISTS boarding (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			landlord_id BIGINT UNSIGNED NOT NULL DEFAULT 0,
			name VARCHAR(255), location TEXT, price VARCHAR(64),
			phone VARCHAR(32), institution TEXT, distance VARCHAR(255),
			images TEXT, map_url TEXT, amenities TEXT,
			verified TINYINT(1) NOT NULL DEFAULT 1,
			clicks BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(32) NOT NULL DEFAULT 'Available',
			INDEX idx_boarding_landlord (landlord_id))`,
	},
	{
		Name: "schools",
		SQLite: `CREATE TABLE IF NOT EXISTS schools (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE,
			map_url TEXT)`,
		MySQL: `CREATE TABLE IF NOT EXISTS schools (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) UNIQUE,
			map_url TEXT)`,
	},
}

// Patches lists columns introduced after the baseline, oldest first.
var Patches = []Patch{
	// password recovery
	{"landlords", "security_question", "TEXT", "VARCHAR(255)"},
	{"landlords", "security_answer", "TEXT", "VARCHAR(255)"},
	// listing kinds
	{"boarding", "category", "TEXT DEFAULT 'boarding'", "VARCHAR(32) NOT NULL DEFAULT 'boarding'"},
	{"boarding", "details", "TEXT DEFAULT ''", "TEXT"},
}

// PatchError records a column that could not be added.
type PatchError struct {
	Table  string
	Column string
	Err    error
}

func (e PatchError) Error() string {
	return fmt.Sprintf("add %s.%s: %v", e.Table, e.Column, e.Err)
}

// Report summarizes one migration run.
type Report struct {
	Created []string     // tables created this run
	Applied []string     // "table.column" patches applied this run
	Failed  []PatchError // patches that could not apply; startup continues
}

// Migrator ensures tables and patched columns exist.  It is safe to run on
// every start: a fully migrated database is a no-op.
type Migrator struct {
	DB      *sql.DB
	Dialect Dialect
	Log     *zap.Logger
	Tables  []Table
	Patches []Patch
}

// NewMigrator returns a Migrator for the application schema.
func NewMigrator(db *sql.DB, d Dialect, log *zap.Logger) *Migrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{DB: db, Dialect: d, Log: log, Tables: Tables, Patches: Patches}
}

// Migrate creates missing tables, then adds missing patch columns.  A
// failed patch is logged and recorded in the report; a table that cannot
// be created or is still absent afterwards is returned as an error.
func (m *Migrator) Migrate(ctx context.Context) (Report, error) {
	var rep Report
	for _, t := range m.Tables {
		exists, err := TableExists(ctx, m.DB, m.Dialect, t.Name)
		if err != nil {
			return rep, fmt.Errorf("inspect %s: %w", t.Name, err)
		}
		if exists {
			continue
		}
		if _, err := m.DB.ExecContext(ctx, t.ddl(m.Dialect)); err != nil {
			return rep, fmt.Errorf("create %s: %w", t.Name, err)
		}
		m.Log.Info("schema: table created", zap.String("table", t.Name))
		rep.Created = append(rep.Created, t.Name)
	}

	known := map[string]map[string]bool{}
	for _, p := range m.Patches {
		cols, ok := known[p.Table]
		if !ok {
			list, err := Columns(ctx, m.DB, m.Dialect, p.Table)
			if err != nil {
				rep.Failed = append(rep.Failed, PatchError{p.Table, p.Column, err})
				m.Log.Warn("schema: introspection failed", zap.String("table", p.Table), zap.Error(err))
				continue
			}
			cols = make(map[string]bool, len(list))
			for _, c := range list {
				cols[c] = true
			}
			known[p.Table] = cols
		}
		if cols[p.Column] {
			continue
		}
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", p.Table, p.Column, p.def(m.Dialect))
		if _, err := m.DB.ExecContext(ctx, q); err != nil {
			rep.Failed = append(rep.Failed, PatchError{p.Table, p.Column, err})
			m.Log.Warn("schema: patch failed",
				zap.String("table", p.Table), zap.String("column", p.Column), zap.Error(err))
			continue
		}
		cols[p.Column] = true
		rep.Applied = append(rep.Applied, p.Table+"."+p.Column)
		m.Log.Info("schema: column added", zap.String("table", p.Table), zap.String("column", p.Column))
	}

	for _, t := range m.Tables {
		exists, err := TableExists(ctx, m.DB, m.Dialect, t.Name)
		if err != nil {
			return rep, fmt.Errorf("inspect %s: %w", t.Name, err)
		}
		if !exists {
			return rep, fmt.Errorf("%w: %s", ErrMissingTable, t.Name)
		}
	}
	m.Log.Info("schema: migration complete",
		zap.Int("created", len(rep.Created)),
		zap.Int("applied", len(rep.Applied)),
		zap.Int("failed", len(rep.Failed)))
	return rep, nil
}

// TableExists reports whether table is present.
func TableExists(ctx context.Context, db *sql.DB, d Dialect, table string) (bool, error) {
	q := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if d == MySQL {
		q = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	}
	var n int
	if err := db.QueryRowContext(ctx, q, table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Columns lists the column names of table in declaration order.
func Columns(ctx context.Context, db *sql.DB, d Dialect, table string) ([]string, error) {
	if d == MySQL {
		rows, err := db.QueryContext(ctx,
			`SELECT column_name FROM information_schema.columns
			 WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`, table)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, err
			}
			out = append(out, name)
		}
		return out, rows.Err()
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
