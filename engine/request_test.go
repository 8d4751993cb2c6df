package engine

import (
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilimate/tquery/filter"
	e "github.com/facilimate/tquery/rest/errors"
	"github.com/facilimate/tquery/schema"
	"github.com/facilimate/tquery/types"
)

func requestTestSchema() schema.Schema {
	return schema.New("things", "things").
		Column("id", schema.TypeUUID).
		Column("name", schema.TypeString).
		Column("email", schema.TypeStringNullable).
		Column("age", schema.TypeInt).
		ColumnAs("total", schema.TypeCount, "total").
		MustBuild()
}

func parse(t *testing.T, s schema.Schema, raw types.DataRequest) (*Request, error) {
	t.Helper()
	return ParseRequest(&s, filter.NewReductor(s.Wire()), raw)
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *e.ValidationError
	require.True(t, goerrors.As(err, &verr), "expected validation error, got %v", err)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	return fields
}

func TestParseRequestValid(t *testing.T) {
	req, err := parse(t, requestTestSchema(), types.DataRequest{
		Columns: []types.Column{
			{Type: "column", Column: "name"},
			{Type: "column", Column: "email"},
		},
		Filter: &types.ColumnFilter{Column: "age", Op: types.OpIn, Val: []interface{}{18.0}},
		Sort:   []types.SortColumn{{Type: "column", Column: "name", Dir: types.SortAsc}},
		Paging: types.Paging{Size: 10, Number: 1},
	})
	require.NoError(t, err)

	assert.Len(t, req.Select, 2)
	// referenced columns keep select, filter, sort order without duplicates
	names := make([]string, 0, len(req.AllColumns))
	for _, col := range req.AllColumns {
		names = append(names, col.Name)
	}
	assert.Equal(t, []string{"name", "email", "age"}, names)
	// single-member in was reduced to eq
	assert.Equal(t, &types.ColumnFilter{Column: "age", Op: types.OpEq, Val: 18.0}, req.Filter)
}

func TestParseRequestStructValidation(t *testing.T) {
	_, err := parse(t, requestTestSchema(), types.DataRequest{
		Columns: []types.Column{{Type: "column", Column: "name"}},
	})
	fields := validationFields(t, err)
	assert.Contains(t, fields, "paging.size")

	_, err = parse(t, requestTestSchema(), types.DataRequest{Paging: types.Paging{Size: 10}})
	fields = validationFields(t, err)
	assert.Contains(t, fields, "columns")
}

func TestParseRequestUnknownColumn(t *testing.T) {
	_, err := parse(t, requestTestSchema(), types.DataRequest{
		Columns: []types.Column{{Type: "column", Column: "nope"}},
		Paging:  types.Paging{Size: 10},
	})
	assert.Contains(t, validationFields(t, err), "columns[0].column")
}

func TestParseRequestCountRequiresDistinct(t *testing.T) {
	raw := types.DataRequest{
		Columns: []types.Column{
			{Type: "column", Column: "name"},
			{Type: "column", Column: "total"},
		},
		Paging: types.Paging{Size: 10},
	}
	_, err := parse(t, requestTestSchema(), raw)
	assert.Contains(t, validationFields(t, err), "columns[1].column")

	raw.Distinct = true
	req, err := parse(t, requestTestSchema(), raw)
	require.NoError(t, err)
	assert.True(t, req.Distinct)
	assert.Len(t, req.Select, 2)
}

func TestParseRequestUnsortableColumn(t *testing.T) {
	_, err := parse(t, requestTestSchema(), types.DataRequest{
		Columns: []types.Column{{Type: "column", Column: "name"}},
		Sort:    []types.SortColumn{{Type: "column", Column: "id", Dir: types.SortAsc}},
		Paging:  types.Paging{Size: 10},
	})
	assert.Contains(t, validationFields(t, err), "sort[0].column")
}

func TestParseRequestFilterValidation(t *testing.T) {
	items := []struct {
		name   string
		filter types.Filter
		field  string
	}{
		{"unknown column",
			&types.ColumnFilter{Column: "nope", Op: types.OpEq, Val: "x"},
			"filter.column"},
		{"operator not in the type's set",
			&types.ColumnFilter{Column: "age", Op: types.OpHas, Val: "x"},
			"filter.op"},
		{"operand fails the value rule",
			&types.ColumnFilter{Column: "name", Op: types.OpEq, Val: " x"},
			"filter.val"},
		{"empty boolean operation",
			&types.BoolOpFilter{Op: types.BoolAnd},
			"filter.val"},
		{"nested path attribution",
			&types.BoolOpFilter{Op: types.BoolAnd, Val: []types.Filter{
				&types.ColumnFilter{Column: "name", Op: types.OpEq, Val: "ok"},
				&types.ColumnFilter{Column: "email", Op: types.OpHasAny, Val: []interface{}{"x"}},
			}},
			"filter.val[1].op"},
		{"unknown custom filter",
			&types.CustomFilter{CustomFilter: "nope"},
			"filter.customFilter"},
	}
	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			_, err := parse(t, requestTestSchema(), types.DataRequest{
				Columns: []types.Column{{Type: "column", Column: "name"}},
				Filter:  item.filter,
				Paging:  types.Paging{Size: 10},
			})
			assert.Contains(t, validationFields(t, err), item.field)
		})
	}
}

func TestParseRequestCollectsAllProblems(t *testing.T) {
	_, err := parse(t, requestTestSchema(), types.DataRequest{
		Columns: []types.Column{{Type: "column", Column: "nope"}},
		Filter:  &types.ColumnFilter{Column: "age", Op: types.OpHas, Val: "x"},
		Sort:    []types.SortColumn{{Type: "column", Column: "id"}},
		Paging:  types.Paging{Size: 10},
	})
	fields := validationFields(t, err)
	assert.Contains(t, fields, "columns[0].column")
	assert.Contains(t, fields, "filter.op")
	assert.Contains(t, fields, "sort[0].column")
}
