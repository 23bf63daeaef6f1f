package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// Migrator brings one table to its target shape and seeds it.
type Migrator struct {
	DB      *sql.DB
	Dialect Dialect
	Table   Table
	Log     *slog.Logger
}

func NewMigrator(db *sql.DB, d Dialect, t Table, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{DB: db, Dialect: d, Table: t, Log: log}
}

// EnsureSchema creates the table when absent and rebuilds it through a
// shadow table when columns are missing. A current table is left untouched,
// so calling it again after success does nothing.
func (m *Migrator) EnsureSchema(ctx context.Context) error {
	exists, err := m.tableExists(ctx, m.Table.Name)
	if err != nil {
		return fmt.Errorf("%w: check table %s: %w", ErrSchemaInspection, m.Table.Name, err)
	}
	if !exists {
		if _, err := m.DB.ExecContext(ctx, createTableSQL(m.Dialect, m.Table.Name, m.Table)); err != nil {
			return fmt.Errorf("%w: create table %s: %w", ErrMigrationStep, m.Table.Name, err)
		}
		m.Log.Info("created table", "table", m.Table.Name)
		return nil
	}

	existing, err := m.columns(ctx, m.Table.Name)
	if err != nil {
		return fmt.Errorf("%w: list columns of %s: %w", ErrSchemaInspection, m.Table.Name, err)
	}
	missing := m.Table.Missing(existing)
	if len(missing) == 0 {
		m.Log.Debug("schema is current", "table", m.Table.Name)
		return nil
	}

	m.Log.Info("rebuilding table", "table", m.Table.Name, "missing", missing)
	return m.rebuild(ctx, existing)
}

// rebuild copies the table into a shadow with the target schema and swaps
// it in. Renaming the shadow is the last statement: any earlier failure
// leaves the original table active and at worst an inert shadow behind,
// which the next attempt drops first.
func (m *Migrator) rebuild(ctx context.Context, existing []string) (err error) {
	table, shadow := m.Table.Name, m.Table.ShadowName()

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrMigrationStep, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	steps := []struct {
		name string
		sql  string
	}{
		{"drop leftover shadow", "DROP TABLE IF EXISTS " + quoteIdent(shadow)},
		{"create shadow", createTableSQL(m.Dialect, shadow, m.Table)},
		{"copy rows", m.copySQL(existing)},
	}
	for _, s := range steps {
		if _, err = tx.ExecContext(ctx, s.sql); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMigrationStep, s.name, err)
		}
	}
	if err = m.Dialect.AfterCopy(ctx, tx, shadow, m.idColumn()); err != nil {
		return fmt.Errorf("%w: sync ids: %w", ErrMigrationStep, err)
	}
	if _, err = tx.ExecContext(ctx, "DROP TABLE "+quoteIdent(table)); err != nil {
		return fmt.Errorf("%w: drop %s: %w", ErrMigrationStep, table, err)
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(shadow), quoteIdent(table))); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrMigrationStep, shadow, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrMigrationStep, err)
	}
	return nil
}

func (m *Migrator) copySQL(existing []string) string {
	have := make(map[string]string, len(existing))
	for _, name := range existing {
		have[strings.ToLower(name)] = name
	}
	var cols, exprs []string
	for _, c := range m.Table.Columns {
		expr, ok := c.sourceExpr(m.Dialect, have)
		if !ok {
			continue
		}
		cols = append(cols, quoteIdent(c.Name))
		exprs = append(exprs, expr)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		quoteIdent(m.Table.ShadowName()), strings.Join(cols, ", "), strings.Join(exprs, ", "), quoteIdent(m.Table.Name))
}

func (m *Migrator) idColumn() string {
	for _, c := range m.Table.Columns {
		if c.Kind == KindID {
			return c.Name
		}
	}
	return "id"
}

func (m *Migrator) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := m.DB.QueryRowContext(ctx, m.Dialect.TableExistsQuery(), name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *Migrator) columns(ctx context.Context, name string) ([]string, error) {
	rows, err := m.DB.QueryContext(ctx, m.Dialect.ColumnsQuery(), name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, rows.Err()
}
