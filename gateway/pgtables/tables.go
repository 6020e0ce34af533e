// Package pgtables implements gateway.Tables on Postgres with pgx.
//
// Table and column names come from callers, so every table must be
// registered up front and every identifier is quoted with pgx.Identifier.
package pgtables

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-content-admin/gateway"
)

var _ gateway.Tables = (*Tables)(nil)

// Executor is the subset of *pgxpool.Pool used by Tables
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type Tables struct {
	db      Executor
	allowed map[string]struct{}
}

// New returns Tables serving only the named tables
func New(db Executor, tables ...string) *Tables {
	allowed := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		allowed[t] = struct{}{}
	}
	return &Tables{db: db, allowed: allowed}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool.Ping: %w", err)
	}
	return pool, nil
}

func (t *Tables) Ping(ctx context.Context) error {
	return t.db.Ping(ctx)
}

func (t *Tables) Select(ctx context.Context, table string, q gateway.Query) (gateway.Result, error) {
	ident, err := t.tableIdent(table)
	if err != nil {
		return gateway.Result{}, err
	}

	where, args := whereClause(q.Filters, 1)
	result := gateway.Result{}

	if q.Count {
		if err := t.db.QueryRow(ctx, "SELECT count(*) FROM "+ident+where, args...).Scan(&result.Count); err != nil {
			return gateway.Result{}, fmt.Errorf("count %s: %w", table, err)
		}
	}

	var sql strings.Builder
	sql.WriteString("SELECT * FROM " + ident + where)
	if q.Order != nil {
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		sql.WriteString(" ORDER BY " + quote(q.Order.Column) + " " + dir)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := t.db.Query(ctx, sql.String(), args...)
	if err != nil {
		return gateway.Result{}, fmt.Errorf("select %s: %w", table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return gateway.Result{}, fmt.Errorf("select %s: %w", table, err)
	}

	result.Records = make([]gateway.Record, 0, len(maps))
	for _, m := range maps {
		result.Records = append(result.Records, toRecord(m))
	}
	return result, nil
}

func (t *Tables) Insert(ctx context.Context, table string, values gateway.Record) (gateway.Record, error) {
	ident, err := t.tableIdent(table)
	if err != nil {
		return nil, err
	}

	var sql string
	columns := sortedColumns(values)
	args := make([]any, 0, len(columns))
	if len(columns) == 0 {
		sql = "INSERT INTO " + ident + " DEFAULT VALUES RETURNING *"
	} else {
		quoted := make([]string, len(columns))
		params := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = quote(c)
			params[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, values[c])
		}
		sql = "INSERT INTO " + ident + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(params, ", ") + ") RETURNING *"
	}

	rows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return toRecord(row), nil
}

func (t *Tables) Update(ctx context.Context, table, id string, values gateway.Record, match ...gateway.Filter) (gateway.Record, error) {
	ident, err := t.tableIdent(table)
	if err != nil {
		return nil, err
	}

	columns := sortedColumns(values)
	if len(columns) == 0 {
		return t.findByID(ctx, table, id)
	}

	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+1+len(match))
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s = $%d", quote(c), i+1)
		args = append(args, values[c])
	}
	where, whereArgs := whereClause(append([]gateway.Filter{{Column: gateway.ColumnID, Value: id}}, match...), len(args)+1)
	args = append(args, whereArgs...)

	rows, err := t.db.Query(ctx, "UPDATE "+ident+" SET "+strings.Join(sets, ", ")+where+" RETURNING *", args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		if len(match) == 0 {
			return nil, gateway.ErrNotFound
		}
		// Distinguish a missing row from a failed precondition
		if _, err := t.findByID(ctx, table, id); err != nil {
			return nil, err
		}
		return nil, gateway.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	return toRecord(row), nil
}

func (t *Tables) Delete(ctx context.Context, table, id string) error {
	ident, err := t.tableIdent(table)
	if err != nil {
		return err
	}

	tag, err := t.db.Exec(ctx, "DELETE FROM "+ident+" WHERE "+quote(gateway.ColumnID)+" = $1", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return gateway.ErrNotFound
	}
	return nil
}

func (t *Tables) findByID(ctx context.Context, table, id string) (gateway.Record, error) {
	res, err := t.Select(ctx, table, gateway.Query{}.Eq(gateway.ColumnID, id).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, gateway.ErrNotFound
	}
	return res.Records[0], nil
}

func (t *Tables) tableIdent(table string) (string, error) {
	if _, ok := t.allowed[table]; !ok {
		return "", fmt.Errorf("%w: %s", gateway.ErrUnknownTable, table)
	}
	return quote(table), nil
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// whereClause renders filters as " WHERE a = $n AND b = $n+1" starting at placeholder first
func whereClause(filters []gateway.Filter, first int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	conds := make([]string, len(filters))
	args := make([]any, len(filters))
	for i, f := range filters {
		conds[i] = fmt.Sprintf("%s = $%d", quote(f.Column), first+i)
		args[i] = f.Value
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func sortedColumns(values gateway.Record) []string {
	columns := make([]string, 0, len(values))
	for c := range values {
		if c == gateway.ColumnID {
			continue
		}
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns
}

// toRecord converts driver values that do not render well (uuid byte arrays) into plain values
func toRecord(m map[string]any) gateway.Record {
	r := make(gateway.Record, len(m))
	for k, v := range m {
		if b, ok := v.([16]byte); ok {
			v = uuid.UUID(b).String()
		}
		r[k] = v
	}
	return r
}
