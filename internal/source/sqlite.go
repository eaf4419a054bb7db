package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"regexp"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// DefaultSQLiteTable is used when a sqlite:// location has no table parameter.
const DefaultSQLiteTable = "chat_data"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqliteSource reads input/response pairs from a SQLite table in rowid order.
type sqliteSource struct {
	location string
	path     string
	table    string
}

// NewSQLite parses a sqlite:// location. The path is the host plus path of
// the URL, so both sqlite:///abs/chat.db and sqlite://rel/chat.db work.
func NewSQLite(location string) (Source, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("source: parse %q: %w", location, err)
	}
	path := u.Host + u.Path
	if path == "" {
		return nil, fmt.Errorf("source: %q has no database path", location)
	}
	table := u.Query().Get("table")
	if table == "" {
		table = DefaultSQLiteTable
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("source: invalid table name %q", table)
	}
	return &sqliteSource{location: location, path: path, table: table}, nil
}

func (s *sqliteSource) String() string { return s.location }

func (s *sqliteSource) Scan(ctx context.Context, fn func(Row) error) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("open %s: %w", s.location, err)
	}

	conn, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open %s: %w", s.location, err)
	}
	defer conn.Close()

	if err := s.checkColumns(ctx, conn); err != nil {
		return err
	}

	rows, err := conn.QueryContext(ctx,
		fmt.Sprintf(`SELECT %q, %q FROM %q ORDER BY rowid`, ColumnInput, ColumnResponse, s.table))
	if err != nil {
		return fmt.Errorf("query %s: %w", s.location, err)
	}
	defer rows.Close()

	position := 0
	for rows.Next() {
		position++
		var input, response sql.NullString
		row := Row{Position: position}
		if err := rows.Scan(&input, &response); err != nil {
			row.Err = err
		} else {
			row.Input = input.String
			row.Response = response.String
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read %s: %w", s.location, err)
	}
	return nil
}

func (s *sqliteSource) checkColumns(ctx context.Context, conn *sql.DB) error {
	rows, err := conn.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, s.table)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", s.location, err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("inspect %s: %w", s.location, err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s: %w", s.location, err)
	}

	if len(found) == 0 {
		return fmt.Errorf("%s: table %q not found", s.location, s.table)
	}
	for _, col := range []string{ColumnInput, ColumnResponse} {
		if !found[col] {
			return fmt.Errorf("%s: %w %q", s.location, ErrMissingColumn, col)
		}
	}
	return nil
}
