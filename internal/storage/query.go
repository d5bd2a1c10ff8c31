package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// timeLayout is the on-disk representation of every timestamp column.
//
// Values are always UTC with a fixed width so that string comparison in SQL
// matches chronological order.
const timeLayout = "2006-01-02 15:04:05.000"

// formatTime renders t in the storage layout.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SelectBuilder provides a fluent interface for building SELECT queries.
//
// Rows are decoded by an explicit scan function, so the builder never needs
// reflection.
type SelectBuilder[T any] struct {
	db        querier
	tableName string
	columns   []string
	scan      func(rowScanner) (T, error)
	where     []whereClause
	groupBy   string
	orderBy   string
	limit     int
	offset    int
}

// whereClause represents a WHERE condition in a SQL query.
type whereClause struct {
	condition string
	args      []interface{}
}

// newSelect creates a SELECT builder for table using columns and scan.
func newSelect[T any](db querier, table string, columns []string, scan func(rowScanner) (T, error)) *SelectBuilder[T] {
	return &SelectBuilder[T]{
		db:        db,
		tableName: table,
		columns:   columns,
		scan:      scan,
	}
}

// Where adds a WHERE condition to the query.
//
// Multiple WHERE conditions are combined with AND.
func (sb *SelectBuilder[T]) Where(condition string, args ...interface{}) *SelectBuilder[T] {
	sb.where = append(sb.where, whereClause{
		condition: condition,
		args:      args,
	})
	return sb
}

// GroupBy sets the GROUP BY clause for the query.
func (sb *SelectBuilder[T]) GroupBy(groupBy string) *SelectBuilder[T] {
	sb.groupBy = groupBy
	return sb
}

// OrderBy sets the ORDER BY clause for the query.
func (sb *SelectBuilder[T]) OrderBy(orderBy string) *SelectBuilder[T] {
	sb.orderBy = orderBy
	return sb
}

// Limit sets the maximum number of rows to return.
func (sb *SelectBuilder[T]) Limit(limit int) *SelectBuilder[T] {
	sb.limit = limit
	return sb
}

// Offset sets the number of rows to skip before returning results.
func (sb *SelectBuilder[T]) Offset(offset int) *SelectBuilder[T] {
	sb.offset = offset
	return sb
}

// Execute runs the built query and returns the decoded rows.
func (sb *SelectBuilder[T]) Execute(ctx context.Context) ([]T, error) {
	query, args := sb.buildQuery()

	log.Debug().
		Str("query", query).
		Interface("args", args).
		Msg("Executing SELECT query")

	rows, err := sb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	results := make([]T, 0)
	for rows.Next() {
		item, err := sb.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}

// First executes the query with LIMIT 1.
//
// Returns ErrNotFound if no row matches.
func (sb *SelectBuilder[T]) First(ctx context.Context) (T, error) {
	sb.limit = 1
	results, err := sb.Execute(ctx)

	var zero T
	if err != nil {
		return zero, err
	}
	if len(results) == 0 {
		return zero, ErrNotFound
	}

	return results[0], nil
}

// Count executes a COUNT query with the builder's WHERE clauses.
func (sb *SelectBuilder[T]) Count(ctx context.Context) (int64, error) {
	query, args := sb.buildCountQuery()

	log.Debug().
		Str("query", query).
		Interface("args", args).
		Msg("Executing COUNT query")

	var count int64
	if err := sb.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}

	return count, nil
}

// buildQuery constructs the final SQL query string and parameter list.
func (sb *SelectBuilder[T]) buildQuery() (string, []interface{}) {
	var query strings.Builder

	query.WriteString("SELECT ")
	if len(sb.columns) > 0 {
		query.WriteString(strings.Join(sb.columns, ", "))
	} else {
		query.WriteString("*")
	}

	query.WriteString(" FROM ")
	query.WriteString(sb.tableName)

	args := sb.writeWhere(&query)

	if sb.groupBy != "" {
		query.WriteString(" GROUP BY ")
		query.WriteString(sb.groupBy)
	}

	if sb.orderBy != "" {
		query.WriteString(" ORDER BY ")
		query.WriteString(sb.orderBy)
	}

	if sb.limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", sb.limit))
	}

	if sb.offset > 0 {
		// SQLite requires a LIMIT before OFFSET
		if sb.limit <= 0 {
			query.WriteString(" LIMIT -1")
		}
		query.WriteString(fmt.Sprintf(" OFFSET %d", sb.offset))
	}

	return query.String(), args
}

// buildCountQuery constructs a COUNT query based on the current builder state.
func (sb *SelectBuilder[T]) buildCountQuery() (string, []interface{}) {
	var query strings.Builder

	query.WriteString("SELECT COUNT(*) FROM ")
	query.WriteString(sb.tableName)

	args := sb.writeWhere(&query)
	return query.String(), args
}

func (sb *SelectBuilder[T]) writeWhere(query *strings.Builder) []interface{} {
	if len(sb.where) == 0 {
		return nil
	}

	var args []interface{}
	conditions := make([]string, len(sb.where))
	for i, w := range sb.where {
		conditions[i] = w.condition
		args = append(args, w.args...)
	}

	query.WriteString(" WHERE ")
	query.WriteString(strings.Join(conditions, " AND "))
	return args
}
