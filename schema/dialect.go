package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect hides the differences between the SQL engines the blog can run on.
type Dialect interface {
	Name() string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	ColumnDDL(c Column) string
	// SourceText converts a column of an older table for copying into a
	// TEXT column.
	SourceText(ref string) string
	TableExistsQuery() string
	ColumnsQuery() string
	// ForUpdate is appended to selects that precede a write in the same tx.
	ForUpdate() string
	// AfterCopy runs once rows with explicit ids were copied into table.
	AfterCopy(ctx context.Context, tx *sql.Tx, table string, id string) error
}

type SQLite struct{}

func (SQLite) Name() string           { return "sqlite" }
func (SQLite) Placeholder(int) string { return "?" }
func (SQLite) ForUpdate() string      { return "" }

// SourceText is the identity: SQLite copies any storage class into TEXT.
func (SQLite) SourceText(ref string) string { return ref }

func (SQLite) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (SQLite) ColumnsQuery() string {
	return `SELECT name FROM pragma_table_info(?)`
}

func (SQLite) ColumnDDL(c Column) string {
	switch c.Kind {
	case KindID:
		return quoteIdent(c.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT"
	case KindInteger:
		return columnDDL(c, "INTEGER", `(strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`)
	default:
		return columnDDL(c, "TEXT", `(strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`)
	}
}

// AfterCopy is a no-op: AUTOINCREMENT tracks explicitly inserted ids.
func (SQLite) AfterCopy(context.Context, *sql.Tx, string, string) error { return nil }

type Postgres struct{}

func (Postgres) Name() string             { return "postgres" }
func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (Postgres) ForUpdate() string        { return " FOR UPDATE" }

// SourceText casts so that TEXT[] or timestamptz columns of older tables
// copy into TEXT. An array becomes its literal form, e.g. {a,b}.
func (Postgres) SourceText(ref string) string { return ref + "::text" }

func (Postgres) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
}

func (Postgres) ColumnsQuery() string {
	return `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`
}

func (Postgres) ColumnDDL(c Column) string {
	now := `(to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.MS"Z"'))`
	switch c.Kind {
	case KindID:
		return quoteIdent(c.Name) + " BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	case KindInteger:
		return columnDDL(c, "BIGINT", now)
	default:
		return columnDDL(c, "TEXT", now)
	}
}

// AfterCopy moves the identity sequence past the highest copied id.
func (Postgres) AfterCopy(ctx context.Context, tx *sql.Tx, table, id string) error {
	q := fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)`,
		table, id, quoteIdent(id), quoteIdent(table))
	_, err := tx.ExecContext(ctx, q)
	return err
}

// DialectFor maps a driver name from configuration to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func columnDDL(c Column, typ, now string) string {
	var b strings.Builder
	b.WriteString(quoteIdent(c.Name))
	b.WriteString(" ")
	b.WriteString(typ)
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	switch {
	case c.DefaultNow:
		b.WriteString(" DEFAULT " + now)
	case c.Default != nil:
		b.WriteString(" DEFAULT " + quoteLiteral(c.Default))
	}
	return b.String()
}

func createTableSQL(d Dialect, name string, t Table) string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, d.ColumnDDL(c))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", quoteIdent(name), strings.Join(defs, ",\n\t"))
}
