package schema

import (
	"fmt"
	"strconv"
	"strings"
)

type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	// KindID is the storage-assigned integer primary key.
	KindID
)

// Role decides how a column is filled when an older table lacks it.
type Role int

const (
	RolePlain Role = iota
	// RoleClassifier columns are required and backfilled with Fallback.
	RoleClassifier
	// RoleReference columns are optional and backfilled with NULL.
	RoleReference
)

type Column struct {
	Name    string
	Kind    ColumnKind
	NotNull bool
	Role    Role

	// Default is the literal used in the column definition. DefaultNow
	// uses the current ISO-8601 timestamp instead.
	Default    any
	DefaultNow bool

	// Fallback is the backfill value for classifier columns.
	Fallback string
	// Backfill overrides the empty-string backfill of plain columns.
	Backfill any
	// Aliases name legacy columns that held this column's data.
	Aliases []string
}

// Row is one seed record keyed by column name.
type Row map[string]any

type Table struct {
	Name    string
	Columns []Column
	// Seed returns the baseline rows inserted into an empty table.
	Seed func() []Row
}

func (t Table) ShadowName() string { return t.Name + "_shadow" }

func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Missing returns the target columns absent from existing, in table order.
func (t Table) Missing(existing []string) []string {
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[strings.ToLower(name)] = true
	}
	var missing []string
	for _, c := range t.Columns {
		if !have[strings.ToLower(c.Name)] {
			missing = append(missing, c.Name)
		}
	}
	return missing
}

// backfill is the SQL literal for a column the source table cannot supply.
func (c Column) backfill() string {
	switch {
	case c.Role == RoleClassifier:
		return quoteLiteral(c.Fallback)
	case c.Role == RoleReference:
		return "NULL"
	case c.Backfill != nil:
		return quoteLiteral(c.Backfill)
	default:
		return "''"
	}
}

// sourceExpr picks the expression that fills c while copying from a table
// holding the given columns. ok is false when the column should be left to
// its default, which only happens for a missing primary key.
func (c Column) sourceExpr(d Dialect, have map[string]string) (expr string, ok bool) {
	src, found := have[strings.ToLower(c.Name)]
	for _, alias := range c.Aliases {
		if found {
			break
		}
		src, found = have[strings.ToLower(alias)]
	}
	if !found {
		if c.Kind == KindID {
			return "", false
		}
		return c.backfill(), true
	}
	ref := quoteIdent(src)
	if c.Kind == KindText {
		ref = d.SourceText(ref)
	}
	if c.NotNull || c.Role == RoleClassifier {
		return fmt.Sprintf("COALESCE(%s, %s)", ref, c.backfill()), true
	}
	return ref, true
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return quoteLiteral(fmt.Sprint(x))
	}
}
