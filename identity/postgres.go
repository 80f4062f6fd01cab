package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the identity table queried when none is configured.
const DefaultTable = "users"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Querier is the subset of pgxpool.Pool used by PostgresLookup.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLookup reads identities from a PostgreSQL table with id, role and
// status columns.
type PostgresLookup struct {
	db    Querier
	query string
}

// NewPostgresLookup builds a lookup over the given table.
func NewPostgresLookup(db Querier, table string) (*PostgresLookup, error) {
	if db == nil {
		return nil, errors.New("identity: postgres querier is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("identity: invalid table name %q", table)
	}
	return &PostgresLookup{
		db:    db,
		query: "SELECT id, role, status FROM " + table + " WHERE id = $1",
	}, nil
}

// Connect opens a pgx pool for the DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("identity: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("identity: ping: %w", err)
	}
	return pool, nil
}

// Find implements Lookup.
func (p *PostgresLookup) Find(ctx context.Context, subjectID string) (Record, error) {
	var record Record
	err := p.db.QueryRow(ctx, p.query, subjectID).Scan(&record.ID, &record.Role, &record.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("identity: query: %w", err)
	}
	return record, nil
}
