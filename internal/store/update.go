package store

import (
	"context"
	"strings"
)

// updateBuilder accumulates column/value pairs for a partial UPDATE so that
// only supplied fields are written.
type updateBuilder struct {
	table string
	cols  []string
	args  []any
}

func newUpdate(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

func (b *updateBuilder) set(col string, val any) *updateBuilder {
	b.cols = append(b.cols, col+" = ?")
	b.args = append(b.args, val)
	return b
}

// setRaw appends an expression such as "version = version + 1".
func (b *updateBuilder) setRaw(expr string) *updateBuilder {
	b.cols = append(b.cols, expr)
	return b
}

func (b *updateBuilder) empty() bool { return len(b.cols) == 0 }

func (b *updateBuilder) build(id string) (string, []any) {
	query := "UPDATE " + b.table + " SET " + strings.Join(b.cols, ", ") + " WHERE id = ?"
	args := append(append([]any(nil), b.args...), id)
	return query, args
}

// exec runs the update and reports whether a row matched.
func (b *updateBuilder) exec(ctx context.Context, q querier, id string) (bool, error) {
	query, args := b.build(id)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
