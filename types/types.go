// types package contains the public API types
// that are shared between the query engine and the table client.
package types

// Column requests one output column by its logical (dotted) name.
type Column struct {
	Type   string `json:"type" validate:"required,eq=column"`
	Column string `json:"column" validate:"required"`
}

// SortDirection of a single sort entry.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortColumn is one entry of the sort specification. The first entry of a sort
// list has the highest priority.
type SortColumn struct {
	Type   string        `json:"type" validate:"required,eq=column"`
	Column string        `json:"column" validate:"required"`
	Dir    SortDirection `json:"dir,omitempty" validate:"omitempty,oneof=asc desc"`
}

// Paging selects one page of results. Either the one-based page Number or the
// zero-based record Offset is used, Number taking precedence when set.
type Paging struct {
	Size   int `json:"size" validate:"required,min=1"`
	Number int `json:"number,omitempty" validate:"omitempty,min=1"`
	Offset int `json:"offset,omitempty" validate:"omitempty,min=0"`
}

// DataRequest describes one projection of an entity: which columns to return,
// the filter limiting the rows, the ordering and the page. Created fresh per
// query round-trip.
type DataRequest struct {
	Columns  []Column     `json:"columns" validate:"required,min=1,dive"`
	Filter   Filter       `json:"filter,omitempty"`
	Sort     []SortColumn `json:"sort" validate:"dive"`
	Paging   Paging       `json:"paging"`
	Distinct bool         `json:"distinct,omitempty"`
}

// DataResponseMeta carries result set metadata.
type DataResponseMeta struct {
	// Columns echoes the selected columns with their resolved types.
	Columns []ResponseColumn `json:"columns,omitempty"`
	// TotalDataSize is the number of records across all pages of results.
	TotalDataSize int `json:"totalDataSize"`
}

// ResponseColumn describes one returned column.
type ResponseColumn struct {
	Type   string `json:"type"`
	Column string `json:"column"`
}

// DataItem maps a requested column name to its rendered value.
type DataItem map[string]interface{}

// DataResponse is the result of a DataRequest. Regenerated on every request.
type DataResponse struct {
	Meta DataResponseMeta `json:"meta"`
	Data []DataItem       `json:"data"`
}

// ColumnSchema describes one queryable column as exposed to the client.
type ColumnSchema struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	// DictionaryID is present only for dict and dict_list columns.
	DictionaryID string `json:"dictionaryId,omitempty"`
}

// CustomFilterSchema describes a server-defined predicate that is not
// expressible through column filters.
type CustomFilterSchema struct {
	// AssociatedColumn hints the client where to place the filter control.
	AssociatedColumn string `json:"associatedColumn"`
}

// Schema is the per-entity column catalog, fetched once per entity kind.
// It is read-only data, never mutated by a request.
type Schema struct {
	Columns          []ColumnSchema                `json:"columns"`
	CustomFilters    map[string]CustomFilterSchema `json:"customFilters,omitempty"`
	SuggestedColumns []string                      `json:"suggestedColumns,omitempty"`
	SuggestedSort    []SortColumn                  `json:"suggestedSort,omitempty"`
}

// ColumnByName returns the schema of the named column, or nil.
func (s *Schema) ColumnByName(name string) *ColumnSchema {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}
