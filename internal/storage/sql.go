package storage

import (
	"fmt"
	"strings"
)

// Placeholder renders the n-th (1-based) bind parameter of a SQL dialect.
type Placeholder func(n int) string

// Question is the SQLite style placeholder.
func Question(int) string { return "?" }

// Dollar is the PostgreSQL style placeholder.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Encoder adapts a normalized value to what a SQL driver binds.
type Encoder func(v any) any

var sqlOps = map[Op]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

type builder struct {
	sb   strings.Builder
	args []any
	ph   Placeholder
	enc  Encoder
}

func (b *builder) bind(v any) string {
	v = Normalize(v)
	if b.enc != nil {
		v = b.enc(v)
	}
	b.args = append(b.args, v)
	return b.ph(len(b.args))
}

func (b *builder) where(filters []Filter) {
	if len(filters) == 0 {
		return
	}
	b.sb.WriteString(" WHERE ")
	for i, f := range filters {
		if i > 0 {
			b.sb.WriteString(" AND ")
		}
		col := quote(f.Column)
		if f.Op == OpIn {
			values, _ := f.Value.([]any)
			if len(values) == 0 {
				b.sb.WriteString("1=0")
				continue
			}
			marks := make([]string, len(values))
			for j, v := range values {
				marks[j] = b.bind(v)
			}
			fmt.Fprintf(&b.sb, "%s IN (%s)", col, strings.Join(marks, ", "))
			continue
		}
		if f.Value == nil && (f.Op == OpEq || f.Op == OpNeq) {
			if f.Op == OpEq {
				fmt.Fprintf(&b.sb, "%s IS NULL", col)
			} else {
				fmt.Fprintf(&b.sb, "%s IS NOT NULL", col)
			}
			continue
		}
		fmt.Fprintf(&b.sb, "%s %s %s", col, sqlOps[f.Op], b.bind(f.Value))
	}
}

func quote(col string) string { return `"` + col + `"` }

// BuildSelect renders a validated query.
func BuildSelect(q Query, ph Placeholder, enc Encoder) (string, []any, error) {
	if err := ValidateQuery(q); err != nil {
		return "", nil, err
	}
	b := &builder{ph: ph, enc: enc}
	fmt.Fprintf(&b.sb, "SELECT * FROM %s", q.Table)
	b.where(q.Filters)
	if q.Order != nil {
		dir := "ASC"
		if q.Order.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b.sb, " ORDER BY %s %s", quote(q.Order.Column), dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b.sb, " LIMIT %d", q.Limit)
	}
	return b.sb.String(), b.args, nil
}

// BuildInsert renders an INSERT for a row already passed through PrepareInsert.
func BuildInsert(table string, row Row, ph Placeholder, enc Encoder) (string, []any) {
	b := &builder{ph: ph, enc: enc}
	cols := row.SortedKeys()
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
		marks[i] = b.bind(row[c])
	}
	fmt.Fprintf(&b.sb, "INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	return b.sb.String(), b.args
}

// BuildUpdate renders an UPDATE ... RETURNING * for a prepared patch.
func BuildUpdate(table string, filters []Filter, patch Row, ph Placeholder, enc Encoder) (string, []any) {
	b := &builder{ph: ph, enc: enc}
	fmt.Fprintf(&b.sb, "UPDATE %s SET ", table)
	for i, c := range patch.SortedKeys() {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		fmt.Fprintf(&b.sb, "%s = %s", quote(c), b.bind(patch[c]))
	}
	b.where(filters)
	b.sb.WriteString(" RETURNING *")
	return b.sb.String(), b.args
}

// BuildDelete renders a DELETE.
func BuildDelete(table string, filters []Filter, ph Placeholder, enc Encoder) (string, []any, error) {
	if _, err := Columns(table); err != nil {
		return "", nil, err
	}
	if err := validateFilters(table, filters); err != nil {
		return "", nil, err
	}
	b := &builder{ph: ph, enc: enc}
	fmt.Fprintf(&b.sb, "DELETE FROM %s", table)
	b.where(filters)
	return b.sb.String(), b.args, nil
}
