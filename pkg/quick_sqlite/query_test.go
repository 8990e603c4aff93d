package quick_sqlite

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemcdonald/quick_sqlite/internal/engine"
	"github.com/wemcdonald/quick_sqlite/pkg/listeners"
	"github.com/wemcdonald/quick_sqlite/pkg/sqlparser"
)

func createUsers(t *testing.T, db *Connection) {
	require.NoError(t, db.CreateTable("users", []string{"id", "name"}, []string{"INT", "STR"}))
}

func countRows(t *testing.T, path, table string) int {
	reader, err := engine.Open(DriverCGO, path)
	require.NoError(t, err)
	defer reader.Close()

	var n int
	require.NoError(t, reader.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func TestUsersScenario(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	createUsers(t, db)
	require.NoError(t, db.Insert("users", 1, "Ann"))

	row, err := db.SelectOne("users", []string{"name"}, Where("id", 1))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Ann", row.Text("name"))

	result, err := db.Select("users", []string{"name"}, Where("id", 1))
	require.NoError(t, err)
	assert.IsType(t, Row{}, result)
}

func TestCreateTable(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, db.CreateTable("samples", []string{"a", "b", "c", "d", "e"},
		[]string{"int", "Str", "float", "bytes", "none"}))
	// Creating an existing table is a no-op.
	require.NoError(t, db.CreateTable("samples", []string{"a"}, []string{"TEXT"}))

	tables, err := db.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"samples"}, tables)

	require.NoError(t, db.Insert("samples", 7, "x", 1.5, []byte{0x01, 0x02}, nil))
	row, err := db.SelectOne("samples", nil)
	require.NoError(t, err)

	a, ok := row.Int("a")
	assert.True(t, ok)
	assert.Equal(t, int64(7), a)
	assert.Equal(t, "x", row.Text("b"))
	c, ok := row.Float("c")
	assert.True(t, ok)
	assert.Equal(t, 1.5, c)
	assert.Equal(t, []byte{0x01, 0x02}, row.Blob("d"))
	assert.True(t, row.Null("e"))
}

func TestCreateTableRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []string
		types   []string
		wantErr error
	}{
		{
			name:    "mismatched lengths",
			table:   "users",
			columns: []string{"id", "name"},
			types:   []string{"INT"},
			wantErr: sqlparser.ErrColumnCount,
		},
		{
			name:    "unknown type",
			table:   "users",
			columns: []string{"id", "name"},
			types:   []string{"INT", "VARCHAR"},
			wantErr: sqlparser.ErrUnknownColumnType,
		},
		{
			name:    "bad table name",
			table:   "users; DROP TABLE x",
			columns: []string{"id"},
			types:   []string{"INT"},
			wantErr: sqlparser.ErrInvalidIdentifier,
		},
		{
			name:    "bad column name",
			table:   "users",
			columns: []string{"id)"},
			types:   []string{"INT"},
			wantErr: sqlparser.ErrInvalidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, cleanup := setupTestDB(t)
			defer cleanup()
			log := recordEvents(t, db)

			err := db.CreateTable(tt.table, tt.columns, tt.types)
			assert.True(t, HasCode(err, CodeInvalidArgument), "got %v", err)
			assert.ErrorIs(t, err, tt.wantErr)

			tables, err := db.Tables()
			require.NoError(t, err)
			assert.Empty(t, tables)
			assert.Equal(t, []listeners.Event{listeners.Error}, log.events)
		})
	}
}

func TestUnknownTypeNamesToken(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.CreateTable("users", []string{"id"}, []string{"VARCHAR"})
	assert.ErrorContains(t, err, "VARCHAR")
}

func TestDropTable(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	createUsers(t, db)
	require.NoError(t, db.DropTable("users"))

	tables, err := db.Tables()
	require.NoError(t, err)
	assert.Empty(t, tables)

	err = db.DropTable("users")
	assert.True(t, HasCode(err, CodeQueryFailed), "got %v", err)
}

func TestInsertWrongArity(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()
	createUsers(t, db)

	err := db.Insert("users", 1)
	assert.True(t, HasCode(err, CodeQueryFailed), "got %v", err)

	err = db.Insert("users")
	assert.True(t, HasCode(err, CodeInvalidArgument), "got %v", err)
}

func TestDelete(t *testing.T) {
	db, path, cleanup := setupTestDB(t)
	defer cleanup()

	createUsers(t, db)
	require.NoError(t, db.Insert("users", 1, "Ann"))
	require.NoError(t, db.Insert("users", 2, "Bob"))
	require.NoError(t, db.Insert("users", 3, "Cy"))

	t.Run("value without column", func(t *testing.T) {
		err := db.Delete("users", Filter{Value: 1})
		assert.True(t, HasCode(err, CodeInvalidArgument), "got %v", err)
		assert.ErrorIs(t, err, sqlparser.ErrInvalidArgument)
		assert.Equal(t, 3, countRows(t, path, "users"))
	})

	t.Run("column without value", func(t *testing.T) {
		err := db.Delete("users", Filter{Column: "id"})
		assert.True(t, HasCode(err, CodeInvalidArgument), "got %v", err)
		assert.Equal(t, 3, countRows(t, path, "users"))
	})

	t.Run("two filters", func(t *testing.T) {
		err := db.Delete("users", Where("id", 1), Where("name", "Ann"))
		assert.True(t, HasCode(err, CodeInvalidArgument), "got %v", err)
		assert.Equal(t, 3, countRows(t, path, "users"))
	})

	t.Run("filtered", func(t *testing.T) {
		require.NoError(t, db.Delete("users", Where("id", 1)))
		assert.Equal(t, 2, countRows(t, path, "users"))
	})

	t.Run("all rows", func(t *testing.T) {
		require.NoError(t, db.Delete("users"))
		assert.Equal(t, 0, countRows(t, path, "users"))
	})
}

func TestUpdate(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	createUsers(t, db)
	require.NoError(t, db.Insert("users", 1, "Ann"))
	require.NoError(t, db.Insert("users", 2, "Bob"))

	require.NoError(t, db.Update("users", "name", "Anne", Where("id", 1)))
	row, err := db.SelectOne("users", []string{"name"}, Where("id", 1))
	require.NoError(t, err)
	assert.Equal(t, "Anne", row.Text("name"))

	row, err = db.SelectOne("users", []string{"name"}, Where("id", 2))
	require.NoError(t, err)
	assert.Equal(t, "Bob", row.Text("name"))

	require.NoError(t, db.Update("users", "name", "Zed"))
	rows, err := db.SelectAll("users", []string{"name"})
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, "Zed", r.Text("name"))
	}

	err = db.Update("users", "name", "x", Filter{Value: 2})
	assert.True(t, HasCode(err, CodeInvalidArgument), "got %v", err)

	err = db.Update("users", "name = 'x' --", "x")
	assert.ErrorIs(t, err, sqlparser.ErrInvalidIdentifier)
}

func userIDs(t *testing.T, rows []Row) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		id, ok := r.Int("id")
		require.True(t, ok)
		ids = append(ids, id)
	}
	return ids
}

func TestSelect(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	createUsers(t, db)
	for i, name := range []string{"Ann", "Bob", "Cy", "Di", "Ed"} {
		require.NoError(t, db.Insert("users", i+1, name))
	}

	t.Run("all columns", func(t *testing.T) {
		rows, err := db.SelectAll("users", []string{"*"})
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Equal(t, []int64{1, 2, 3, 4, 5}, userIDs(t, rows))
		assert.Equal(t, "Ann", rows[0].Text("name"))
	})

	t.Run("first row only", func(t *testing.T) {
		row, err := db.SelectOne("users", []string{"id"})
		require.NoError(t, err)
		assert.Len(t, row, 1)
		id, _ := row.Int("id")
		assert.Equal(t, int64(1), id)
	})

	t.Run("fetch all option", func(t *testing.T) {
		result, err := db.Select("users", []string{"id"}, FetchAll())
		require.NoError(t, err)
		rows, ok := result.([]Row)
		require.True(t, ok)
		assert.Len(t, rows, 5)
	})

	t.Run("limit", func(t *testing.T) {
		rows, err := db.SelectAll("users", []string{"id"}, Limit(2))
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, userIDs(t, rows))
	})

	t.Run("random", func(t *testing.T) {
		rows, err := db.SelectAll("users", []string{"id"}, Random())
		require.NoError(t, err)

		ids := userIDs(t, rows)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if diff := cmp.Diff([]int64{1, 2, 3, 4, 5}, ids); diff != "" {
			t.Errorf("random select returned different rows (-want +got):\n%s", diff)
		}
	})

	t.Run("random with filter and limit", func(t *testing.T) {
		rows, err := db.SelectAll("users", []string{"id", "name"}, Where("name", "Cy"), Random(), Limit(3))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Cy", rows[0].Text("name"))
	})

	t.Run("no match", func(t *testing.T) {
		row, err := db.SelectOne("users", nil, Where("id", 99))
		require.NoError(t, err)
		assert.Nil(t, row)

		result, err := db.Select("users", nil, Where("id", 99))
		require.NoError(t, err)
		assert.Nil(t, result)

		rows, err := db.SelectAll("users", nil, Where("id", 99))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("bad limit", func(t *testing.T) {
		_, err := db.SelectAll("users", nil, Limit(0))
		assert.True(t, HasCode(err, CodeInvalidArgument), "got %v", err)
	})

	t.Run("bad filter", func(t *testing.T) {
		_, err := db.SelectOne("users", nil, Filter{Column: "id"})
		assert.True(t, HasCode(err, CodeInvalidArgument), "got %v", err)
	})

	t.Run("bad column", func(t *testing.T) {
		_, err := db.SelectOne("users", []string{"name FROM users; --"})
		assert.ErrorIs(t, err, sqlparser.ErrInvalidIdentifier)
	})
}

func TestMissingTableDispatchesError(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	var gotOp string
	var gotErr error
	require.NoError(t, db.On(listeners.Error, func(_ string, op string, err error) {
		gotOp = op
		gotErr = err
	}))

	_, err := db.SelectAll("ghosts", nil)
	assert.True(t, HasCode(err, CodeQueryFailed), "got %v", err)
	assert.Equal(t, opSelect, gotOp)
	assert.Same(t, err, gotErr)
}

func TestTransactionSuccessOperations(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()
	log := recordEvents(t, db)

	createUsers(t, db)
	require.NoError(t, db.Insert("users", 1, "Ann"))
	require.NoError(t, db.Update("users", "name", "Anne"))
	_, err := db.SelectOne("users", nil)
	require.NoError(t, err)
	require.NoError(t, db.Delete("users"))
	require.NoError(t, db.DropTable("users"))

	assert.Equal(t, []string{opCreateTable, opInsert, opUpdate, opSelect, opDelete, opDropTable}, log.operations)
}

func TestAutoCommitPersistsImmediately(t *testing.T) {
	db, path, cleanup := setupTestDB(t)
	defer cleanup()

	createUsers(t, db)
	require.NoError(t, db.Insert("users", 1, "Ann"))
	assert.Equal(t, 1, countRows(t, path, "users"))
}

func TestManualCommit(t *testing.T) {
	db, path, cleanup := setupTestDB(t, func(c *Config) { c.AutoCommit = false })
	defer cleanup()

	createUsers(t, db)
	require.NoError(t, db.Commit())

	require.NoError(t, db.Insert("users", 1, "Ann"))

	// Pending writes are visible to this connection only.
	row, err := db.SelectOne("users", nil, Where("id", 1))
	require.NoError(t, err)
	assert.Equal(t, "Ann", row.Text("name"))
	assert.Equal(t, 0, countRows(t, path, "users"))

	require.NoError(t, db.Commit())
	assert.Equal(t, 1, countRows(t, path, "users"))
}

func TestManualRollback(t *testing.T) {
	db, path, cleanup := setupTestDB(t, func(c *Config) { c.AutoCommit = false })
	defer cleanup()

	createUsers(t, db)
	require.NoError(t, db.Commit())

	require.NoError(t, db.Insert("users", 1, "Ann"))
	require.NoError(t, db.Rollback())

	row, err := db.SelectOne("users", nil)
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.Equal(t, 0, countRows(t, path, "users"))
}

func TestCloseDiscardsPendingTransaction(t *testing.T) {
	db, path, cleanup := setupTestDB(t, func(c *Config) { c.AutoCommit = false })
	defer cleanup()

	createUsers(t, db)
	require.NoError(t, db.Commit())
	require.NoError(t, db.Insert("users", 1, "Ann"))
	require.NoError(t, db.Close())

	assert.Equal(t, 0, countRows(t, path, "users"))
}

// lockedDB returns a connection that fails fast on lock conflicts plus a
// second handle holding an exclusive lock on the same file.
func lockedDB(t *testing.T, sleeper *sleepRecorder) (*Connection, *sqlx.DB, string) {
	path := filepath.Join(t.TempDir(), "locked.db")
	cfg := DefaultConfig("file:" + path + "?_busy_timeout=0")
	cfg.LockTimeout = 250 * time.Millisecond

	db, err := newConnection(cfg, engine.Open, sleeper.sleep)
	require.NoError(t, err)
	require.NoError(t, db.Connect())
	t.Cleanup(func() { db.Close() })
	createUsers(t, db)

	locker, err := engine.Open(DriverCGO, path)
	require.NoError(t, err)
	t.Cleanup(func() { locker.Close() })
	_, err = locker.Exec("BEGIN EXCLUSIVE")
	require.NoError(t, err)

	return db, locker, path
}

func TestLockRetrySucceeds(t *testing.T) {
	sleeper := &sleepRecorder{}
	db, locker, path := lockedDB(t, sleeper)
	sleeper.hook = func() {
		_, err := locker.Exec("COMMIT")
		require.NoError(t, err)
	}

	require.NoError(t, db.Insert("users", 1, "Ann"))
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, sleeper.waits)
	assert.Equal(t, 1, countRows(t, path, "users"))
}

func TestLockRetryGivesUp(t *testing.T) {
	sleeper := &sleepRecorder{}
	db, locker, _ := lockedDB(t, sleeper)
	defer locker.Exec("ROLLBACK")
	log := recordEvents(t, db)

	err := db.Insert("users", 1, "Ann")
	assert.True(t, IsLocked(err), "got %v", err)
	assert.Len(t, sleeper.waits, 1)
	assert.Equal(t, []listeners.Event{listeners.Error}, log.events)

	var dbErr *DBError
	require.True(t, errors.As(err, &dbErr))
	assert.True(t, engine.IsLocked(dbErr.Err))
}
