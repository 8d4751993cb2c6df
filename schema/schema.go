package schema

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/facilimate/tquery/types"
)

// Join declares how to reach a joined table. Declaring a column on the joined
// alias implicitly requires the join; the engine applies each distinct join at
// most once regardless of how many columns reference it.
type Join struct {
	// From is the alias of the table already present in the query.
	From string
	// Table is the physical table being joined.
	Table string
	// Alias under which the joined table is addressed. Unique per schema.
	Alias string
	// Key is the joining column name.
	Key string
	// Left makes the join a LEFT JOIN.
	Left bool
	// Inv selects the side holding the key: when true the key column lives on
	// the joined table (alias.key = from.id), otherwise on the source table
	// (alias.id = from.key).
	Inv bool
}

// Condition renders the ON clause of the join.
func (j Join) Condition() string {
	if j.Inv {
		return fmt.Sprintf("%s.%s = %s.id", j.Alias, j.Key, j.From)
	}
	return fmt.Sprintf("%s.id = %s.%s", j.Alias, j.From, j.Key)
}

// Column describes one queryable column of an entity.
type Column struct {
	// Name is the logical dotted name exposed to filters, sort and select.
	Name string
	Type ColumnType
	// TableAlias is the alias providing the column (base table or a join).
	TableAlias string
	// SQLColumn is the physical column name at that alias.
	SQLColumn string
	// DictionaryID constrains dict/dict_list values to one lookup table.
	DictionaryID string
}

// SQLExpr returns the select/filter expression for the column.
func (c Column) SQLExpr() string {
	switch c.Type {
	case TypeIsNull:
		return fmt.Sprintf("(%s.%s is null)", c.TableAlias, c.SQLColumn)
	case TypeIsNotNull:
		return fmt.Sprintf("(%s.%s is not null)", c.TableAlias, c.SQLColumn)
	case TypeCount:
		return "count(1)"
	default:
		return fmt.Sprintf("%s.%s", c.TableAlias, c.SQLColumn)
	}
}

// Binder allocates a statement placeholder for a value and collects it as a
// query parameter.
type Binder func(value interface{}) string

// CustomFilterFunc compiles a custom filter into a SQL condition. Values must
// go through bind, never into the SQL string.
type CustomFilterFunc func(bind Binder, params map[string]interface{}) (string, error)

// CustomFilter is a server-defined predicate not expressible through columns.
type CustomFilter struct {
	// AssociatedColumn hints the client where to place the filter control.
	AssociatedColumn string
	Compile          CustomFilterFunc
}

// Schema is the read-only per-entity column catalog. Computed once per entity
// kind; never mutated by a request.
type Schema struct {
	// Name identifies the queryable entity, e.g. "meetings".
	Name string
	// Table is the physical base table; it is also the base alias.
	Table string
	Columns []Column
	Joins   []Join
	// Restrictions are structural conditions always ANDed into the query,
	// e.g. limiting a users view to rows that are clients.
	Restrictions     []string
	CustomFilters    map[string]CustomFilter
	SuggestedColumns []string
	SuggestedSort    []types.SortColumn

	columnsByName map[string]int
	joinsByAlias  map[string]int
}

// Column returns the named column.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.columnsByName[name]
	if !ok {
		return Column{}, false
	}
	return s.Columns[i], true
}

// JoinByAlias returns the join providing the given alias.
func (s *Schema) JoinByAlias(alias string) (Join, bool) {
	i, ok := s.joinsByAlias[alias]
	if !ok {
		return Join{}, false
	}
	return s.Joins[i], true
}

// Wire converts the catalog to its client-facing form.
func (s *Schema) Wire() types.Schema {
	wire := types.Schema{
		SuggestedColumns: s.SuggestedColumns,
		SuggestedSort:    s.SuggestedSort,
	}
	for _, col := range s.Columns {
		wire.Columns = append(wire.Columns, types.ColumnSchema{
			Name:         col.Name,
			Type:         col.Type.BaseType().String(),
			Nullable:     col.Type.IsNullable(),
			DictionaryID: col.DictionaryID,
		})
	}
	if len(s.CustomFilters) > 0 {
		wire.CustomFilters = make(map[string]types.CustomFilterSchema, len(s.CustomFilters))
		for name, filter := range s.CustomFilters {
			wire.CustomFilters[name] = types.CustomFilterSchema{AssociatedColumn: filter.AssociatedColumn}
		}
	}
	return wire
}

// Builder assembles a Schema by composition: a base catalog extended with
// joined columns, restrictions and custom filters. Errors are collected and
// reported by Build.
type Builder struct {
	schema Schema
	err    error
}

// New starts a schema for an entity stored in the given base table.
func New(name, table string) *Builder {
	return &Builder{schema: Schema{
		Name:          name,
		Table:         table,
		CustomFilters: map[string]CustomFilter{},
	}}
}

// Extend starts a builder from an existing schema without mutating it. The
// extension gets its own name; everything else is copied.
func Extend(name string, base Schema) *Builder {
	extended := base
	extended.Name = name
	extended.Columns = append([]Column(nil), base.Columns...)
	extended.Joins = append([]Join(nil), base.Joins...)
	extended.Restrictions = append([]string(nil), base.Restrictions...)
	extended.SuggestedColumns = append([]string(nil), base.SuggestedColumns...)
	extended.SuggestedSort = append([]types.SortColumn(nil), base.SuggestedSort...)
	extended.CustomFilters = make(map[string]CustomFilter, len(base.CustomFilters))
	for filterName, filter := range base.CustomFilters {
		extended.CustomFilters[filterName] = filter
	}
	extended.columnsByName = nil
	extended.joinsByAlias = nil
	return &Builder{schema: extended}
}

func (b *Builder) fail(format string, args ...interface{}) *Builder {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
	return b
}

// Column adds a base-table column. The physical name is derived from the
// logical name's last segment (snake case).
func (b *Builder) Column(name string, columnType ColumnType) *Builder {
	return b.add(Column{
		Name:       name,
		Type:       columnType,
		TableAlias: b.schema.Table,
		SQLColumn:  sqlName(name),
	})
}

// ColumnAs adds a base-table column with an explicit physical name.
func (b *Builder) ColumnAs(name string, columnType ColumnType, sqlColumn string) *Builder {
	return b.add(Column{
		Name:       name,
		Type:       columnType,
		TableAlias: b.schema.Table,
		SQLColumn:  sqlColumn,
	})
}

// Dict adds a base-table dictionary column constrained to one lookup table.
func (b *Builder) Dict(name string, columnType ColumnType, dictionaryID string) *Builder {
	switch columnType.NotNullBaseType() {
	case TypeDict, TypeDictList:
	default:
		return b.fail("column %s: dictionary requires a dict type, got %s", name, columnType)
	}
	return b.add(Column{
		Name:         name,
		Type:         columnType,
		TableAlias:   b.schema.Table,
		SQLColumn:    sqlName(name),
		DictionaryID: dictionaryID,
	})
}

// Join declares a join reachable from an existing alias.
func (b *Builder) Join(join Join) *Builder {
	for _, existing := range b.schema.Joins {
		if existing.Alias == join.Alias {
			return b.fail("join alias %s declared twice", join.Alias)
		}
	}
	if !b.hasAlias(join.From) {
		return b.fail("join %s: unknown source alias %s", join.Alias, join.From)
	}
	b.schema.Joins = append(b.schema.Joins, join)
	return b
}

// Joined adds a column provided by a previously declared join. Declaring the
// column is what makes the join reachable from requests.
func (b *Builder) Joined(columnType ColumnType, tableAlias, sqlColumn, name string) *Builder {
	if !b.hasAlias(tableAlias) {
		return b.fail("column %s: unknown table alias %s", name, tableAlias)
	}
	return b.add(Column{
		Name:       name,
		Type:       columnType,
		TableAlias: tableAlias,
		SQLColumn:  sqlColumn,
	})
}

// JoinedDict adds a dictionary column provided by a join.
func (b *Builder) JoinedDict(columnType ColumnType, dictionaryID, tableAlias, sqlColumn, name string) *Builder {
	if !b.hasAlias(tableAlias) {
		return b.fail("column %s: unknown table alias %s", name, tableAlias)
	}
	return b.add(Column{
		Name:         name,
		Type:         columnType,
		TableAlias:   tableAlias,
		SQLColumn:    sqlColumn,
		DictionaryID: dictionaryID,
	})
}

// Restrict adds a structural condition ANDed into every query on the entity.
func (b *Builder) Restrict(condition string) *Builder {
	b.schema.Restrictions = append(b.schema.Restrictions, condition)
	return b
}

// CustomFilter registers a server-defined predicate.
func (b *Builder) CustomFilter(name, associatedColumn string, compile CustomFilterFunc) *Builder {
	if _, ok := b.schema.CustomFilters[name]; ok {
		return b.fail("custom filter %s declared twice", name)
	}
	b.schema.CustomFilters[name] = CustomFilter{AssociatedColumn: associatedColumn, Compile: compile}
	return b
}

// Suggest sets the default visible columns and sort used to initialize the
// client table state. Not enforced afterwards.
func (b *Builder) Suggest(columns []string, sort []types.SortColumn) *Builder {
	b.schema.SuggestedColumns = columns
	b.schema.SuggestedSort = sort
	return b
}

func (b *Builder) add(col Column) *Builder {
	for _, existing := range b.schema.Columns {
		if existing.Name == col.Name {
			return b.fail("column %s declared twice", col.Name)
		}
	}
	b.schema.Columns = append(b.schema.Columns, col)
	return b
}

func (b *Builder) hasAlias(alias string) bool {
	if alias == b.schema.Table {
		return true
	}
	for _, join := range b.schema.Joins {
		if join.Alias == alias {
			return true
		}
	}
	return false
}

// Build finalizes the schema, verifying suggested columns and sort refer to
// existing, appropriately typed columns.
func (b *Builder) Build() (Schema, error) {
	if b.err != nil {
		return Schema{}, fmt.Errorf("schema %s: %w", b.schema.Name, b.err)
	}
	s := b.schema
	s.columnsByName = make(map[string]int, len(s.Columns))
	for i, col := range s.Columns {
		s.columnsByName[col.Name] = i
	}
	s.joinsByAlias = make(map[string]int, len(s.Joins))
	for i, join := range s.Joins {
		s.joinsByAlias[join.Alias] = i
	}
	for _, name := range s.SuggestedColumns {
		if _, ok := s.columnsByName[name]; !ok {
			return Schema{}, fmt.Errorf("schema %s: suggested column %s does not exist", s.Name, name)
		}
	}
	for _, sort := range s.SuggestedSort {
		i, ok := s.columnsByName[sort.Column]
		if !ok {
			return Schema{}, fmt.Errorf("schema %s: suggested sort column %s does not exist", s.Name, sort.Column)
		}
		if !s.Columns[i].Type.IsSortable() {
			return Schema{}, fmt.Errorf("schema %s: suggested sort column %s is not sortable", s.Name, sort.Column)
		}
	}
	return s, nil
}

// MustBuild is Build for statically declared schemas.
func (b *Builder) MustBuild() Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// sqlName derives the physical column name from a logical dotted name.
func sqlName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strcase.ToSnake(name)
}
