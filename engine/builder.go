package engine

import (
	"fmt"
	"strings"

	"github.com/facilimate/tquery/schema"
)

// Builder accumulates the parts of one SELECT statement: joins (applied at
// most once per alias), select expressions aliased to logical column names,
// a parameterized WHERE clause, ordering and paging.
type Builder struct {
	schema *schema.Schema

	joined      map[string]bool
	joinClauses []string
	selects     []string
	groupBy     []string
	conditions  []string
	orderBy     []string
	params      []interface{}

	distinct  bool
	hasCount  bool
	limit     int
	offset    int
	hasPaging bool
}

// NewBuilder starts a statement over the schema's base table.
func NewBuilder(s *schema.Schema) *Builder {
	return &Builder{
		schema: s,
		joined: map[string]bool{s.Table: true},
	}
}

// bind collects a query parameter and returns its placeholder.
func (b *Builder) bind(value interface{}) string {
	b.params = append(b.params, value)
	return fmt.Sprintf("$%d", len(b.params))
}

// Params returns the collected parameters in placeholder order.
func (b *Builder) Params() []interface{} {
	return b.params
}

// JoinFor applies the join chain needed to reach the column's alias. Joins
// already applied are skipped, so any number of columns can reference the
// same join without duplicating it.
func (b *Builder) JoinFor(col schema.Column) error {
	return b.ensureJoin(col.TableAlias)
}

func (b *Builder) ensureJoin(alias string) error {
	if b.joined[alias] {
		return nil
	}
	join, ok := b.schema.JoinByAlias(alias)
	if !ok {
		return fmt.Errorf("no join provides alias %s", alias)
	}
	if err := b.ensureJoin(join.From); err != nil {
		return err
	}
	kind := "join"
	if join.Left {
		kind = "left join"
	}
	clause := fmt.Sprintf("%s %s on %s", kind, join.Table, join.Condition())
	if join.Table != join.Alias {
		clause = fmt.Sprintf("%s %s %s on %s", kind, join.Table, join.Alias, join.Condition())
	}
	b.joinClauses = append(b.joinClauses, clause)
	b.joined[alias] = true
	return nil
}

// Select adds one output expression aliased to the column's logical name.
func (b *Builder) Select(col schema.Column) {
	expr := col.SQLExpr()
	b.selects = append(b.selects, fmt.Sprintf(`%s as "%s"`, expr, col.Name))
	if col.Type == schema.TypeCount {
		b.hasCount = true
	} else {
		b.groupBy = append(b.groupBy, expr)
	}
}

// Distinct requests distinct rows. Together with a selected count column this
// turns the statement into a grouped aggregation.
func (b *Builder) Distinct() {
	b.distinct = true
}

// Where appends a condition ANDed with the rest of the clause.
func (b *Builder) Where(condition string) {
	b.conditions = append(b.conditions, condition)
}

// OrderBy appends one sort entry; entries apply in call order.
func (b *Builder) OrderBy(col schema.Column, desc bool) {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	b.orderBy = append(b.orderBy, col.SQLExpr()+" "+dir)
}

// Paging applies LIMIT/OFFSET from the one-based page number, or from the
// explicit zero-based offset when no number is given.
func (b *Builder) Paging(size, number, offset int) {
	b.limit = size
	if number > 0 {
		b.offset = (number - 1) * size
	} else {
		b.offset = offset
	}
	b.hasPaging = true
}

// SelectSQL renders the data statement.
func (b *Builder) SelectSQL() string {
	var sb strings.Builder
	sb.WriteString("select ")
	if b.distinct && !b.hasCount {
		sb.WriteString("distinct ")
	}
	sb.WriteString(strings.Join(b.selects, ", "))
	sb.WriteString(b.fromSQL())
	if b.distinct && b.hasCount && len(b.groupBy) > 0 {
		sb.WriteString(" group by ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" order by ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.hasPaging {
		// Paging values are trusted integers, rendered as literals so the
		// count statement can share the parameter list.
		sb.WriteString(fmt.Sprintf(" limit %d offset %d", b.limit, b.offset))
	}
	return sb.String()
}

// CountSQL renders the companion statement counting all matching rows. It
// shares the joins and filter but not the sort or paging.
func (b *Builder) CountSQL() string {
	if b.distinct {
		inner := "select distinct " + strings.Join(b.groupBy, ", ") + b.fromSQL()
		return fmt.Sprintf("select count(1) from (%s) as distinct_rows", inner)
	}
	return "select count(1)" + b.fromSQL()
}

func (b *Builder) fromSQL() string {
	var sb strings.Builder
	sb.WriteString(" from ")
	sb.WriteString(b.schema.Table)
	for _, join := range b.joinClauses {
		sb.WriteString(" ")
		sb.WriteString(join)
	}
	conditions := append([]string(nil), b.schema.Restrictions...)
	conditions = append(conditions, b.conditions...)
	if len(conditions) > 0 {
		sb.WriteString(" where ")
		sb.WriteString(strings.Join(conditions, " and "))
	}
	return sb.String()
}
