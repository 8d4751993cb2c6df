package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/facilimate/tquery/types"
)

// CellRenderer turns one response value into display text.
type CellRenderer func(value interface{}) string

// ColumnConfig describes how one table column is presented.
type ColumnConfig struct {
	Name   string
	Header string
	// Renderer overrides the type-derived default when set.
	Renderer CellRenderer
}

// GridOption configures a Grid.
type GridOption func(*Grid)

// WithDevColumns appends unconfigured schema columns to the grid, rendered
// with type-derived defaults. Meant for development builds only.
func WithDevColumns() GridOption {
	return func(g *Grid) { g.devColumns = true }
}

// Grid renders query responses as rows of display text, resolving a renderer
// per column: explicit config first, then the default for the column type.
type Grid struct {
	columns    []ColumnConfig
	devColumns bool
}

// NewGrid creates a grid from the configured columns.
func NewGrid(columns []ColumnConfig, options ...GridOption) *Grid {
	g := &Grid{columns: append([]ColumnConfig(nil), columns...)}
	for _, option := range options {
		option(g)
	}
	return g
}

// Columns resolves the effective column list against a schema. Configured
// columns missing from the schema are dropped; in dev mode the remaining
// schema columns are appended so new backend columns surface immediately.
func (g *Grid) Columns(schema *types.Schema) []ColumnConfig {
	var resolved []ColumnConfig
	configured := make(map[string]bool, len(g.columns))
	for _, column := range g.columns {
		if schema.ColumnByName(column.Name) == nil {
			continue
		}
		configured[column.Name] = true
		if column.Header == "" {
			column.Header = column.Name
		}
		resolved = append(resolved, column)
	}
	if g.devColumns {
		for _, column := range schema.Columns {
			if configured[column.Name] {
				continue
			}
			resolved = append(resolved, ColumnConfig{Name: column.Name, Header: column.Name})
		}
	}
	return resolved
}

// Render turns a response into header and cell text using the schema's column
// types for defaults.
func (g *Grid) Render(schema *types.Schema, response *types.DataResponse) (headers []string, rows [][]string) {
	columns := g.Columns(schema)
	for _, column := range columns {
		headers = append(headers, column.Header)
	}
	for _, item := range response.Data {
		row := make([]string, 0, len(columns))
		for _, column := range columns {
			renderer := column.Renderer
			if renderer == nil {
				renderer = DefaultRenderer(schema.ColumnByName(column.Name).Type)
			}
			row = append(row, renderer(item[column.Name]))
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// DefaultRenderer returns the display renderer for a wire column type.
func DefaultRenderer(columnType string) CellRenderer {
	switch columnType {
	case "bool":
		return renderBool
	case "datetime":
		return renderDatetime
	case "uuid":
		return renderUUID
	case "list", "dict_list", "string_list":
		return renderList
	default:
		return renderPlain
	}
}

func renderPlain(value interface{}) string {
	if value == nil {
		return ""
	}
	return cast.ToString(value)
}

func renderBool(value interface{}) string {
	if value == nil {
		return ""
	}
	if cast.ToBool(value) {
		return "yes"
	}
	return "no"
}

// renderDatetime shows wire datetimes (RFC 3339, UTC) as local wall time.
func renderDatetime(value interface{}) string {
	if value == nil {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, cast.ToString(value))
	if err != nil {
		return cast.ToString(value)
	}
	return parsed.Local().Format("2006-01-02 15:04")
}

// renderUUID shows the first identifier block, enough to eyeball in a table.
func renderUUID(value interface{}) string {
	if value == nil {
		return ""
	}
	id := cast.ToString(value)
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func renderList(value interface{}) string {
	if value == nil {
		return ""
	}
	items, ok := value.([]interface{})
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, cast.ToString(item))
	}
	return strings.Join(parts, ", ")
}
