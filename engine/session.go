// engine package compiles validated data requests into parameterized SQL,
// executes them and shapes the rows into the wire response. The engine is
// stateless per request and performs reads only.
package engine

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Session executes read queries against the underlying store.
type Session interface {
	// Query executes a statement and returns the rows as column name to raw
	// value maps.
	Query(ctx context.Context, query string, values ...interface{}) ([]map[string]interface{}, error)

	// QueryCount executes a statement returning a single integer.
	QueryCount(ctx context.Context, query string, values ...interface{}) (int, error)
}

// PgxSession is the Postgres-backed session.
type PgxSession struct {
	pool *pgxpool.Pool
}

// NewPgxSession connects a session pool to the given database URL.
func NewPgxSession(ctx context.Context, databaseURL string) (*PgxSession, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PgxSession{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PgxSession) Close() {
	s.pool.Close()
}

func (s *PgxSession) Query(ctx context.Context, query string, values ...interface{}) ([]map[string]interface{}, error) {
	rows, err := s.pool.Query(ctx, query, values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	items := make([]map[string]interface{}, 0)
	for rows.Next() {
		rawValues, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			row[field.Name] = rawValues[i]
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PgxSession) QueryCount(ctx context.Context, query string, values ...interface{}) (int, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, query, values...).Scan(&count); err != nil {
		return 0, err
	}
	return int(count), nil
}
