package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/shared"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour used by the repository.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ParseDialect maps a DATABASE_DRIVER value onto a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open establishes the record store connection and verifies it with a ping.
func Open(config shared.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(config.Driver)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(string(dialect), config.URL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database connection: %w", err)
	}

	if dialect == DialectSQLite {
		// One writer; ":memory:" databases are per connection.
		db.SetMaxOpenConns(1)
		if err := applySQLitePragmas(db); err != nil {
			db.Close()
			return nil, "", err
		}
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"component":          "database",
		"dialect":            dialect,
		"max_open_conns":     db.Stats().MaxOpenConnections,
		"conn_max_lifetime":  config.ConnMaxLifetime,
		"conn_max_idle_time": config.ConnMaxIdleTime,
	}).Info("Connected to record store")

	return db, dialect, nil
}

func applySQLitePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return nil
}

// Close releases the connection pool.
func Close(db *sql.DB) {
	if db != nil {
		db.Close()
		logrus.WithField("component", "database").Info("Database connection closed")
	}
}

// HealthCheck pings the store and logs pool statistics.
func HealthCheck(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database connection not established")
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	stats := db.Stats()
	logrus.WithFields(logrus.Fields{
		"component":            "database",
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration,
	}).Debug("Database connection pool health check")

	return nil
}

// Migrate applies the embedded schema for the dialect. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	content, err := schemaFS.ReadFile("schema/" + string(dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	statements := parseSQLStatements(string(content))
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i+1, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"component":  "database",
		"dialect":    dialect,
		"statements": len(statements),
	}).Info("Database migration completed successfully")
	return nil
}

// parseSQLStatements splits a schema file into statements.
// Comment-only lines are dropped; a statement ends at a line ending in ';'.
func parseSQLStatements(content string) []string {
	var statements []string
	var currentStatement strings.Builder

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if currentStatement.Len() > 0 {
			currentStatement.WriteString(" ")
		}
		currentStatement.WriteString(line)

		if strings.HasSuffix(line, ";") {
			stmt := strings.TrimSpace(strings.TrimSuffix(currentStatement.String(), ";"))
			if stmt != "" {
				statements = append(statements, stmt)
			}
			currentStatement.Reset()
		}
	}

	if stmt := strings.TrimSpace(currentStatement.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}
