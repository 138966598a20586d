package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("app", "s3cret", "db.local", "3306", "inventory")
	assert.Contains(t, dsn, "app:s3cret@tcp(db.local:3306)/inventory?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	assert.Contains(t, DSN("root", "", "localhost", "3306", "inventory"), "root@tcp(localhost:3306)/inventory")
}

func TestStatements(t *testing.T) {
	stmts := statements(schemaSQL)
	require.Len(t, stmts, 5)
	for _, s := range stmts {
		assert.True(t, len(s) > 0 && s[len(s)-1] != ';')
	}
	assert.Contains(t, stmts[3], "CREATE TABLE IF NOT EXISTS units")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"tenants", "projects", "towers", "units", "unit_type_rules"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tenants").WillReturnError(errors.New("access denied"))
	err = Migrate(context.Background(), db)
	assert.ErrorContains(t, err, "statement 1")
	assert.ErrorContains(t, err, "access denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}
