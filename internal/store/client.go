package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// Row is a loosely-typed database row as returned by the hosted backend's
// query surface. Key casing is whatever the access path produced, so callers
// run rows through the normalize package before trusting their shape.
type Row map[string]any

// Filter is a conjunction of column = value predicates.
type Filter map[string]any

type Order struct {
	Column string
	Desc   bool
}

type Span struct {
	Offset int
	Limit  int
}

// Client is a generic row-level query client over the hosted Postgres
// backend. Tables and columns are whitelisted; anything outside the schema
// map is rejected before SQL is built.
type Client struct {
	db *sql.DB
}

func NewClient(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

var tableColumns = map[string]map[string]bool{
	"artworks": {
		"id": true, "slug": true, "title": true, "description": true,
		"year": true, "medium": true, "dimensions": true,
		"published": true, "position": true,
		"created_at": true, "updated_at": true,
	},
	"artwork_images": {
		"id": true, "artwork_id": true, "url": true, "alt": true,
		"position": true, "hero": true, "kind": true,
	},
	"artwork_tags": {
		"artwork_id": true, "name": true, "value": true,
	},
}

func columnsFor(table string) (map[string]bool, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return cols, nil
}

// sortedKeys keeps generated SQL deterministic for a given filter/patch.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func buildWhere(cols map[string]bool, filter Filter, args *[]any) (string, error) {
	if len(filter) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filter))
	for _, key := range sortedKeys(filter) {
		if !cols[key] {
			return "", fmt.Errorf("unknown column %q", key)
		}
		*args = append(*args, filter[key])
		clauses = append(clauses, fmt.Sprintf("%s = $%d", key, len(*args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), nil
}

func (c *Client) Select(ctx context.Context, table string, filter Filter, order *Order, span *Span) ([]Row, error) {
	cols, err := columnsFor(table)
	if err != nil {
		return nil, err
	}
	var args []any
	where, err := buildWhere(cols, filter, &args)
	if err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + table + where
	if order != nil {
		if !cols[order.Column] {
			return nil, fmt.Errorf("unknown column %q", order.Column)
		}
		query += " ORDER BY " + order.Column
		if order.Desc {
			query += " DESC"
		}
	}
	if span != nil {
		query += fmt.Sprintf(" OFFSET %d LIMIT %d", span.Offset, span.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (c *Client) Insert(ctx context.Context, table string, values []Row) ([]Row, error) {
	cols, err := columnsFor(table)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert %s: %w", table, err)
	}

	inserted := make([]Row, 0, len(values))
	for _, value := range values {
		keys := sortedKeys(value)
		names := make([]string, 0, len(keys))
		placeholders := make([]string, 0, len(keys))
		args := make([]any, 0, len(keys))
		for _, key := range keys {
			if !cols[key] {
				_ = tx.Rollback()
				return nil, fmt.Errorf("unknown column %q", key)
			}
			args = append(args, value[key])
			names = append(names, key)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		query := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			table, strings.Join(names, ", "), strings.Join(placeholders, ", "),
		)
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert %s: %w", table, err)
		}
		returned, err := scanRows(rows)
		rows.Close()
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		inserted = append(inserted, returned...)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert %s: %w", table, err)
	}
	return inserted, nil
}

func (c *Client) Update(ctx context.Context, table string, filter Filter, patch Row) ([]Row, error) {
	cols, err := columnsFor(table)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("empty patch for %s", table)
	}

	var args []any
	sets := make([]string, 0, len(patch))
	for _, key := range sortedKeys(patch) {
		if !cols[key] {
			return nil, fmt.Errorf("unknown column %q", key)
		}
		args = append(args, patch[key])
		sets = append(sets, fmt.Sprintf("%s = $%d", key, len(args)))
	}
	where, err := buildWhere(cols, filter, &args)
	if err != nil {
		return nil, err
	}

	query := "UPDATE " + table + " SET " + strings.Join(sets, ", ") + where + " RETURNING *"
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (c *Client) Delete(ctx context.Context, table string, filter Filter) ([]Row, error) {
	cols, err := columnsFor(table)
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return nil, fmt.Errorf("refusing unfiltered delete on %s", table)
	}
	var args []any
	where, err := buildWhere(cols, filter, &args)
	if err != nil {
		return nil, err
	}

	query := "DELETE FROM " + table + where + " RETURNING *"
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", table, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
				continue
			}
			row[name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
