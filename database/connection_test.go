package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wantam-ink/pledge-backend/shared"
)

func TestParseSQLStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (
    id TEXT
);

-- trailing comment
CREATE INDEX idx ON a(id);
SELECT 1`

	statements := parseSQLStatements(content)
	require.Len(t, statements, 3)
	assert.Equal(t, "CREATE TABLE a ( id TEXT )", statements[0])
	assert.Equal(t, "CREATE INDEX idx ON a(id)", statements[1])
	assert.Equal(t, "SELECT 1", statements[2])
}

func TestParseDialect(t *testing.T) {
	for input, want := range map[string]Dialect{
		"":           DialectPostgres,
		"postgres":   DialectPostgres,
		"PostgreSQL": DialectPostgres,
		"sqlite":     DialectSQLite,
		"sqlite3":    DialectSQLite,
	} {
		got, err := ParseDialect(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseDialect("mysql")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(context.Background(), db, DialectSQLite))

	var views int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'view' AND name = 'region_pledge_counts'`).Scan(&views))
	assert.Equal(t, 1, views)

	require.NoError(t, HealthCheck(context.Background(), db))
}

func TestEmbeddedSchemasDeclareTransactionConstraint(t *testing.T) {
	for _, dialect := range []Dialect{DialectPostgres, DialectSQLite} {
		content, err := schemaFS.ReadFile("schema/" + string(dialect) + ".sql")
		require.NoError(t, err)
		assert.Contains(t, string(content), "CONSTRAINT pledges_transaction_id_key UNIQUE (transaction_id)")
		assert.Contains(t, string(content), "region_pledge_counts")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	config := shared.NewDefaultUnifiedConfiguration().Database
	config.Driver = "oracle"
	config.URL = "whatever"

	_, _, err := Open(config)
	assert.Error(t, err)
}
