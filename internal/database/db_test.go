package database

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, table := range []string{"users", "medications", "medication_logs", "patient_caretakers"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db, SQLite))
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	insert := `INSERT INTO users (name, email, password_hash, role) VALUES ('A', 'a@example.com', 'x', 'patient')`
	_, err = db.Exec(insert)
	require.NoError(t, err)

	_, err = db.Exec(insert)
	require.Error(t, err)
	assert.True(t, SQLite.IsUniqueViolation(err))
}

func TestIsUniqueViolationSQLiteIgnoresOtherConstraints(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`INSERT INTO users (name, email, password_hash, role) VALUES ('A', 'a@example.com', 'x', 'admin')`)
	require.Error(t, err)
	assert.False(t, SQLite.IsUniqueViolation(err))
}

func TestIsUniqueViolationMySQL(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.True(t, MySQL.IsUniqueViolation(dup))
	assert.True(t, MySQL.IsUniqueViolation(errors.Join(errors.New("insert user"), dup)))
	assert.False(t, MySQL.IsUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, MySQL.IsUniqueViolation(nil))
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`INSERT INTO medications (user_id, name, dosage, frequency) VALUES (999, 'X', '1', 'once_daily')`)
	assert.Error(t, err)
}
