// Package sqlitemcp implements the bundled SQLite tool server: a fixed
// catalog of database tools exposed over an MCP transport.
package sqlitemcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store executes the tool operations against one SQLite database file.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// firstKeyword returns the leading SQL keyword, uppercased.
func firstKeyword(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// ReadQuery runs a SELECT and returns the rows as a JSON array of objects.
func (s *Store) ReadQuery(ctx context.Context, query string) (string, error) {
	if firstKeyword(query) != "SELECT" {
		return "", fmt.Errorf("only SELECT queries are allowed for read_query")
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	return rowsToJSON(rows)
}

// WriteQuery runs an INSERT, UPDATE, or DELETE and reports affected rows.
func (s *Store) WriteQuery(ctx context.Context, query string) (string, error) {
	switch firstKeyword(query) {
	case "INSERT", "UPDATE", "DELETE":
	case "SELECT":
		return "", fmt.Errorf("SELECT queries are not allowed for write_query; use read_query")
	default:
		return "", fmt.Errorf("only INSERT, UPDATE, or DELETE statements are allowed for write_query")
	}
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("statement failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("statement failed: %w", err)
	}
	return fmt.Sprintf(`{"affected_rows": %d}`, affected), nil
}

// CreateTable runs a CREATE TABLE statement.
func (s *Store) CreateTable(ctx context.Context, query string) (string, error) {
	fields := strings.Fields(strings.ToUpper(query))
	if len(fields) < 2 || fields[0] != "CREATE" || fields[1] != "TABLE" {
		return "", fmt.Errorf("only CREATE TABLE statements are allowed for create_table")
	}
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return "", fmt.Errorf("statement failed: %w", err)
	}
	return "Table created successfully", nil
}

// ListTables returns every user table in the database.
func (s *Store) ListTables(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	return rowsToJSON(rows)
}

// DescribeTable returns column metadata for one table via PRAGMA table_info.
// The table name is an identifier, not a value, so it is validated instead of
// bound as a parameter.
func (s *Store) DescribeTable(ctx context.Context, table string) (string, error) {
	if !identRe.MatchString(table) {
		return "", fmt.Errorf("invalid table name: %q", table)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out, err := rowsToJSON(rows)
	if err != nil {
		return "", err
	}
	if out == "[]" {
		return "", fmt.Errorf("no such table: %s", table)
	}
	return out, nil
}

const insightsSchema = `CREATE TABLE IF NOT EXISTS memo_insights (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	insight TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// AppendInsight records a business insight in the memo table, creating the
// table on first use.
func (s *Store) AppendInsight(ctx context.Context, insight string) (string, error) {
	if strings.TrimSpace(insight) == "" {
		return "", fmt.Errorf("insight must not be empty")
	}
	if _, err := s.db.ExecContext(ctx, insightsSchema); err != nil {
		return "", fmt.Errorf("statement failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO memo_insights (insight) VALUES (?)`, insight); err != nil {
		return "", fmt.Errorf("statement failed: %w", err)
	}
	return "Insight added to memo", nil
}

// rowsToJSON renders a result set as a JSON array of column-keyed objects.
func rowsToJSON(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			v := values[i]
			// The driver hands back []byte for TEXT columns; keep JSON readable.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rows: %w", err)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	return string(b), nil
}
