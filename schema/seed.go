package schema

import (
	"context"
	"fmt"
	"strings"
)

// EnsureSeedData inserts the table's baseline rows when it is empty and
// reports how many rows were added. The count-then-insert is not guarded
// against concurrent writers; it runs once at startup before serving.
func (m *Migrator) EnsureSeedData(ctx context.Context) (int, error) {
	if m.Table.Seed == nil {
		return 0, nil
	}
	var n int
	q := "SELECT COUNT(*) FROM " + quoteIdent(m.Table.Name)
	if err := m.DB.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", ErrSchemaInspection, m.Table.Name, err)
	}
	if n > 0 {
		return 0, nil
	}

	var cols []string
	for _, c := range m.Table.Columns {
		if c.Kind != KindID {
			cols = append(cols, c.Name)
		}
	}
	marks := make([]string, len(cols))
	quoted := make([]string, len(cols))
	for i, name := range cols {
		marks[i] = m.Dialect.Placeholder(i + 1)
		quoted[i] = quoteIdent(name)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(m.Table.Name), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin seed: %w", ErrMigrationStep, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows := m.Table.Seed()
	for i, row := range rows {
		args := make([]any, len(cols))
		for j, name := range cols {
			args[j] = row[name]
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return 0, fmt.Errorf("%w: seed row %d: %w", ErrMigrationStep, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit seed: %w", ErrMigrationStep, err)
	}
	m.Log.Info("seeded table", "table", m.Table.Name, "rows", len(rows))
	return len(rows), nil
}
