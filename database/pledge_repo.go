package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/shared"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const transactionIDConstraint = "pledges_transaction_id_key"

// PledgeRepository persists pledges. Queries are written with '?' placeholders
// and rebound for PostgreSQL.
type PledgeRepository struct {
	db      *sql.DB
	dialect Dialect
	metrics *shared.DatabaseMetrics
}

// NewPledgeRepository creates a repository over an open connection.
func NewPledgeRepository(db *sql.DB, dialect Dialect, metrics *shared.DatabaseMetrics) *PledgeRepository {
	if metrics == nil {
		metrics = shared.NewDatabaseMetrics(500 * time.Millisecond)
	}
	return &PledgeRepository{db: db, dialect: dialect, metrics: metrics}
}

// Metrics returns the query metrics collected by the repository.
func (r *PledgeRepository) Metrics() *shared.DatabaseMetrics {
	return r.metrics
}

// Insert stores a pledge. It reports false without error when a pledge with the
// same transaction ID already exists.
func (r *PledgeRepository) Insert(ctx context.Context, p *models.PledgeRecord) (bool, error) {
	start := time.Now()
	_, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO pledges
		(id, phone, region, amount, transaction_id, payment_method, verified, created_at)
		VALUES (?,?,?,?,?,?,?,?)`),
		p.ID.String(), p.Phone, p.Region, p.Amount.StringFixed(2), p.TransactionID,
		p.PaymentMethod, p.Verified, p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			r.metrics.RecordQuery(true, time.Since(start))
			return false, nil
		}
		r.metrics.RecordQuery(false, time.Since(start))
		return false, fmt.Errorf("insert pledge: %w", err)
	}
	r.metrics.RecordQuery(true, time.Since(start))
	return true, nil
}

// GetByTransactionID returns the pledge recorded for a gateway transaction, or nil.
func (r *PledgeRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.PledgeRecord, error) {
	start := time.Now()
	row := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT id, phone, region, amount, transaction_id, payment_method, verified, created_at
		FROM pledges WHERE transaction_id = ?`), transactionID)

	p, err := scanPledge(row)
	if errors.Is(err, sql.ErrNoRows) {
		r.metrics.RecordQuery(true, time.Since(start))
		return nil, nil
	}
	r.metrics.RecordQuery(err == nil, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("get pledge %s: %w", transactionID, err)
	}
	return p, nil
}

// Count returns the number of stored pledges.
func (r *PledgeRepository) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pledges").Scan(&count)
	r.metrics.RecordQuery(err == nil, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("count pledges: %w", err)
	}
	return count, nil
}

// RegionCounts reads the per-region view, most pledges first.
func (r *PledgeRepository) RegionCounts(ctx context.Context) ([]models.RegionAggregate, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT region, pledge_count FROM region_pledge_counts
		ORDER BY pledge_count DESC, region ASC`)
	if err != nil {
		r.metrics.RecordQuery(false, time.Since(start))
		return nil, fmt.Errorf("query region counts: %w", err)
	}
	defer rows.Close()

	result := make([]models.RegionAggregate, 0)
	for rows.Next() {
		var agg models.RegionAggregate
		if err := rows.Scan(&agg.Region, &agg.Count); err != nil {
			r.metrics.RecordQuery(false, time.Since(start))
			return nil, fmt.Errorf("scan region count: %w", err)
		}
		result = append(result, agg)
	}
	err = rows.Err()
	r.metrics.RecordQuery(err == nil, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("iterate region counts: %w", err)
	}
	return result, nil
}

func scanPledge(row *sql.Row) (*models.PledgeRecord, error) {
	var (
		p         models.PledgeRecord
		id        string
		amount    string
		createdAt string
	)
	if err := row.Scan(&id, &p.Phone, &p.Region, &amount, &p.TransactionID,
		&p.PaymentMethod, &p.Verified, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// rebind rewrites '?' placeholders as $1..$n for PostgreSQL.
func (r *PledgeRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a duplicate transaction ID on insert.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && (pqErr.Constraint == "" || pqErr.Constraint == transactionIDConstraint)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return strings.Contains(liteErr.Error(), "pledges.transaction_id")
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE") &&
				strings.Contains(liteErr.Error(), "pledges.transaction_id")
		}
	}
	return false
}
