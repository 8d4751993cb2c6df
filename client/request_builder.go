package client

import (
	"sync"
	"time"

	"github.com/facilimate/tquery/filter"
	"github.com/facilimate/tquery/types"
)

// DefaultPageSize is used when the table does not configure one.
const DefaultPageSize = 50

// globalFilterTypes are the column types the quick search text matches
// against, with a substring filter per visible column.
var globalFilterTypes = map[string]bool{
	"string": true,
	"text":   true,
}

// sortableTypes mirrors the server-side sortability rule so the builder never
// emits a sort the server would reject.
var sortableTypes = map[string]bool{
	"bool":     true,
	"date":     true,
	"datetime": true,
	"int":      true,
	"string":   true,
}

// RequestBuilder tracks the interactive state of one data table (visible
// columns, filters, sort, page) and derives the next DataRequest from it.
// All methods are safe for concurrent use.
type RequestBuilder struct {
	mu       sync.Mutex
	schema   types.Schema
	reductor *filter.Reductor

	intrinsic     types.Filter
	visibility    map[string]bool
	lastVisible   []string
	globalFilter  string
	columnFilters map[string]types.Filter
	sorting       []types.SortColumn
	pageNumber    int
	pageSize      int

	debounce time.Duration
	timer    *time.Timer
	onChange func()
}

// BuilderOption configures a RequestBuilder.
type BuilderOption func(*RequestBuilder)

// WithIntrinsicFilter sets a fixed filter combined into every request.
func WithIntrinsicFilter(f types.Filter) BuilderOption {
	return func(b *RequestBuilder) { b.intrinsic = f }
}

// WithPageSize sets the initial page size.
func WithPageSize(size int) BuilderOption {
	return func(b *RequestBuilder) { b.pageSize = size }
}

// WithDebounce delays global filter changes by d before they take effect.
func WithDebounce(d time.Duration) BuilderOption {
	return func(b *RequestBuilder) { b.debounce = d }
}

// WithOnChange registers a callback invoked after every effective state
// change. Typically it triggers a fetch.
func WithOnChange(fn func()) BuilderOption {
	return func(b *RequestBuilder) { b.onChange = fn }
}

// NewRequestBuilder creates a builder seeded from the schema's suggestions:
// suggested columns are visible (all columns when there are none) and the
// suggested sort is active.
func NewRequestBuilder(schema types.Schema, options ...BuilderOption) *RequestBuilder {
	b := &RequestBuilder{
		schema:        schema,
		reductor:      filter.NewReductor(schema),
		visibility:    make(map[string]bool),
		columnFilters: make(map[string]types.Filter),
		pageNumber:    1,
		pageSize:      DefaultPageSize,
	}
	if len(schema.SuggestedColumns) > 0 {
		for _, name := range schema.SuggestedColumns {
			if schema.ColumnByName(name) != nil {
				b.visibility[name] = true
			}
		}
	}
	if len(b.visibility) == 0 {
		for _, column := range schema.Columns {
			b.visibility[column.Name] = true
		}
	}
	b.sorting = append(b.sorting, schema.SuggestedSort...)
	for _, option := range options {
		option(b)
	}
	b.lastVisible = b.visibleColumnsLocked()
	return b
}

// SetColumnVisible shows or hides a column. Hiding the last visible column is
// not allowed; the previous visible set is restored instead, so a request for
// zero columns can never be produced.
func (b *RequestBuilder) SetColumnVisible(name string, visible bool) {
	if b.schema.ColumnByName(name) == nil {
		return
	}
	b.mu.Lock()
	if visible {
		b.visibility[name] = true
	} else {
		delete(b.visibility, name)
	}
	if len(b.visibility) == 0 {
		for _, previous := range b.lastVisible {
			b.visibility[previous] = true
		}
		b.mu.Unlock()
		return
	}
	b.lastVisible = b.visibleColumnsLocked()
	b.mu.Unlock()
	b.notify()
}

// SetGlobalFilter sets the quick search text. The change is debounced when a
// debounce interval is configured and resets pagination to the first page.
func (b *RequestBuilder) SetGlobalFilter(text string) {
	b.mu.Lock()
	if b.debounce <= 0 {
		changed := b.globalFilter != text
		b.globalFilter = text
		if changed {
			b.pageNumber = 1
		}
		b.mu.Unlock()
		if changed {
			b.notify()
		}
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, func() {
		b.mu.Lock()
		changed := b.globalFilter != text
		b.globalFilter = text
		if changed {
			b.pageNumber = 1
		}
		b.mu.Unlock()
		if changed {
			b.notify()
		}
	})
	b.mu.Unlock()
}

// SetColumnFilter installs a per-column filter, or clears it when f is nil.
// Any change resets pagination to the first page.
func (b *RequestBuilder) SetColumnFilter(column string, f types.Filter) {
	b.mu.Lock()
	if f == nil {
		delete(b.columnFilters, column)
	} else {
		b.columnFilters[column] = f
	}
	b.pageNumber = 1
	b.mu.Unlock()
	b.notify()
}

// SetSorting replaces the sort order and resets pagination to the first page.
func (b *RequestBuilder) SetSorting(sorting []types.SortColumn) {
	b.mu.Lock()
	b.sorting = nil
	for _, sort := range sorting {
		column := b.schema.ColumnByName(sort.Column)
		if column == nil || !sortableTypes[column.Type] {
			continue
		}
		b.sorting = append(b.sorting, sort)
	}
	b.pageNumber = 1
	b.mu.Unlock()
	b.notify()
}

// SetPage moves to the given 1-based page.
func (b *RequestBuilder) SetPage(number int) {
	if number < 1 {
		number = 1
	}
	b.mu.Lock()
	b.pageNumber = number
	b.mu.Unlock()
	b.notify()
}

// SetPageSize changes the page size and returns to the first page.
func (b *RequestBuilder) SetPageSize(size int) {
	if size < 1 {
		return
	}
	b.mu.Lock()
	b.pageSize = size
	b.pageNumber = 1
	b.mu.Unlock()
	b.notify()
}

// Page returns the current 1-based page number.
func (b *RequestBuilder) Page() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pageNumber
}

// VisibleColumns returns the currently visible column names in schema order.
func (b *RequestBuilder) VisibleColumns() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visibleColumnsLocked()
}

func (b *RequestBuilder) visibleColumnsLocked() []string {
	var visible []string
	for _, column := range b.schema.Columns {
		if b.visibility[column.Name] {
			visible = append(visible, column.Name)
		}
	}
	return visible
}

// BuildRequest derives the DataRequest for the current state. The effective
// filter is the reduced conjunction of the intrinsic filter, the global
// substring filter and all column filters.
func (b *RequestBuilder) BuildRequest() (types.DataRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var columns []types.Column
	for _, name := range b.visibleColumnsLocked() {
		columns = append(columns, types.Column{Type: "column", Column: name})
	}

	combined, err := b.reductor.Reduce(&types.BoolOpFilter{
		Op:  types.BoolAnd,
		Val: b.effectiveFiltersLocked(),
	})
	if err != nil {
		return types.DataRequest{}, err
	}

	request := types.DataRequest{
		Columns: columns,
		Filter:  combined,
		Sort:    append([]types.SortColumn(nil), b.sorting...),
		Paging:  types.Paging{Size: b.pageSize, Number: b.pageNumber},
	}
	return request, nil
}

func (b *RequestBuilder) effectiveFiltersLocked() []types.Filter {
	var filters []types.Filter
	if b.intrinsic != nil {
		filters = append(filters, b.intrinsic)
	}
	if global := b.globalFilterLocked(); global != nil {
		filters = append(filters, global)
	}
	for _, column := range b.schema.Columns {
		if f, ok := b.columnFilters[column.Name]; ok {
			filters = append(filters, f)
		}
	}
	return filters
}

// globalFilterLocked expands the search text into a disjunction of substring
// filters over the visible text-like columns. An empty disjunction means no
// column can match, so the whole filter collapses to never during reduction.
func (b *RequestBuilder) globalFilterLocked() types.Filter {
	if b.globalFilter == "" {
		return nil
	}
	var alternatives []types.Filter
	for _, column := range b.schema.Columns {
		if !b.visibility[column.Name] || !globalFilterTypes[column.Type] {
			continue
		}
		alternatives = append(alternatives, &types.ColumnFilter{
			Column: column.Name,
			Op:     types.OpContains,
			Val:    b.globalFilter,
		})
	}
	return &types.BoolOpFilter{Op: types.BoolOr, Val: alternatives}
}

func (b *RequestBuilder) notify() {
	if b.onChange != nil {
		b.onChange()
	}
}
