package db

import (
	"fmt"
	"strconv"
	"strings"
)

// Query is an executable statement plus its positional parameter list.
// Structural SQL and data values never share a string: identifiers go
// through Ident, values through bound parameters.
type Query struct {
	SQL  string
	Args []any
}

// Ident quotes identifier parts and joins them with dots, so schema, table
// and column names are never interpolated as literals.
func Ident(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ".")
}

// Fragment is a predicate or expression template. Each ? placeholder is
// replaced with a positional parameter when the fragment is written into a
// Builder.
type Fragment struct {
	sql  string
	args []any
}

// Frag creates a fragment. The number of ? placeholders must match the
// number of args; the mismatch surfaces when the fragment is composed.
func Frag(sql string, args ...any) Fragment {
	return Fragment{sql: sql, args: args}
}

// Builder assembles a Query from structural SQL and fragments, numbering
// parameters as it goes.
type Builder struct {
	sb   strings.Builder
	args []any
	err  error
}

// Raw appends structural SQL verbatim. It must never carry data values.
func (b *Builder) Raw(sql string) *Builder {
	b.sb.WriteString(sql)
	return b
}

// Bind appends one value and returns its placeholder.
func (b *Builder) Bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// Frag appends a fragment, rewriting its ? placeholders to positional ones.
func (b *Builder) Frag(f Fragment) *Builder {
	if b.err != nil {
		return b
	}
	if n := strings.Count(f.sql, "?"); n != len(f.args) {
		b.err = fmt.Errorf("fragment %q has %d placeholders for %d args", f.sql, n, len(f.args))
		return b
	}
	rest := f.sql
	for _, arg := range f.args {
		idx := strings.IndexByte(rest, '?')
		b.sb.WriteString(rest[:idx])
		b.sb.WriteString(b.Bind(arg))
		rest = rest[idx+1:]
	}
	b.sb.WriteString(rest)
	return b
}

// Where appends a WHERE clause AND-combining the fragments. No-op when the
// list is empty.
func (b *Builder) Where(frags []Fragment) *Builder {
	for i, f := range frags {
		if i == 0 {
			b.Raw(" WHERE ")
		} else {
			b.Raw(" AND ")
		}
		b.Frag(f)
	}
	return b
}

// Build returns the composed query, or the first composition error.
func (b *Builder) Build() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	return Query{SQL: b.sb.String(), Args: b.args}, nil
}
