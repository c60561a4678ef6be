package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func snapshot(t *testing.T, db *sql.DB) map[string][]string {
	t.Helper()
	out := map[string][]string{}
	for _, tbl := range Tables {
		cols, err := Columns(context.Background(), db, SQLite, tbl.Name)
		require.NoError(t, err)
		out[tbl.Name] = cols
	}
	return out
}

func TestMigrateFreshDatabase(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	rep, err := NewMigrator(db, SQLite, nil).Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"landlords", "boarding", "schools"}, rep.Created)
	assert.Len(t, rep.Applied, len(Patches))
	assert.Empty(t, rep.Failed)

	cols := snapshot(t, db)
	assert.Contains(t, cols["landlords"], "security_answer")
	assert.Contains(t, cols["boarding"], "category")
	assert.Contains(t, cols["boarding"], "details")
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	m := NewMigrator(db, SQLite, nil)

	_, err := m.Migrate(ctx)
	require.NoError(t, err)
	first := snapshot(t, db)

	rep, err := m.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Created)
	assert.Empty(t, rep.Applied)
	assert.Empty(t, rep.Failed)
	assert.Equal(t, first, snapshot(t, db))
}

func TestMigrateAppliesOnlyDelta(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	// a database from before password recovery existed, with one patch already present
	_, err := db.Exec(`CREATE TABLE landlords (id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT, phone TEXT UNIQUE, password TEXT, security_question TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO landlords (name, phone, password) VALUES ('Old', '0977', 'x')`)
	require.NoError(t, err)

	rep, err := NewMigrator(db, SQLite, nil).Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"boarding", "schools"}, rep.Created)
	assert.Contains(t, rep.Applied, "landlords.security_answer")
	assert.NotContains(t, rep.Applied, "landlords.security_question")

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM landlords").Scan(&n))
	assert.Equal(t, 1, n, "existing rows survive")
}

func TestMigrateLegacyListingsGetDefaultCategory(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	_, err := db.Exec(Tables[1].SQLite)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO boarding (name, status) VALUES ('Old House', 'Full')`)
	require.NoError(t, err)

	_, err = NewMigrator(db, SQLite, nil).Migrate(ctx)
	require.NoError(t, err)

	var category string
	require.NoError(t, db.QueryRow("SELECT category FROM boarding WHERE name = 'Old House'").Scan(&category))
	assert.Equal(t, "boarding", category)
}

func TestMigratePatchFailureIsRecorded(t *testing.T) {
	db := openTemp(t)
	_, err := db.Exec(Tables[1].SQLite)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO boarding (name) VALUES ('Seed')`)
	require.NoError(t, err)

	m := NewMigrator(db, SQLite, nil)
	// SQLite refuses ADD COLUMN with a non-constant default once the table has rows
	m.Patches = append(append([]Patch{}, Patches...),
		Patch{Table: "boarding", Column: "created_at", SQLite: "DATETIME DEFAULT CURRENT_TIMESTAMP"},
		Patch{Table: "schools", Column: "city", SQLite: "TEXT"})

	rep, err := m.Migrate(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "created_at", rep.Failed[0].Column)
	assert.Contains(t, rep.Applied, "schools.city", "later patches still apply")
}

func TestMigrateMissingTableIsFatal(t *testing.T) {
	db := openTemp(t)
	m := NewMigrator(db, SQLite, nil)
	m.Tables = append(append([]Table{}, Tables...),
		Table{Name: "ghost", SQLite: "CREATE TABLE IF NOT EXISTS not_ghost (id INTEGER)"})

	_, err := m.Migrate(context.Background())
	assert.ErrorIs(t, err, ErrMissingTable)
}

func TestTableExists(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	ok, err := TableExists(ctx, db, SQLite, "schools")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewMigrator(db, SQLite, nil).Migrate(ctx)
	require.NoError(t, err)
	ok, err = TableExists(ctx, db, SQLite, "schools")
	require.NoError(t, err)
	assert.True(t, ok)
}
