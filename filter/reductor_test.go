package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilimate/tquery/types"
)

func testSchema() types.Schema {
	return types.Schema{Columns: []types.ColumnSchema{
		{Name: "name", Type: "string"},
		{Name: "email", Type: "string", Nullable: true},
		{Name: "age", Type: "int"},
		{Name: "active", Type: "bool"},
		{Name: "tags", Type: "string_list"},
		{Name: "labels", Type: "string_list", Nullable: true},
		{Name: "notes", Type: "text", Nullable: true},
		{Name: "total", Type: "count"},
	}}
}

func contains(column, val string) *types.ColumnFilter {
	return &types.ColumnFilter{Column: column, Op: types.OpContains, Val: val}
}

func TestReduceConstants(t *testing.T) {
	r := NewReductor(testSchema())

	items := []struct {
		filter   types.Filter
		expected types.Filter
	}{
		{nil, types.Always},
		{types.Always, types.Always},
		{types.Never, types.Never},
		{&types.ConstFilterNode{Val: types.Always}, types.Always},
		{&types.ConstFilterNode{Val: types.Never}, types.Never},
		{&types.ConstFilterNode{Val: types.Never, Inv: true}, types.Always},
		{&types.ConstFilterNode{Val: types.Always, Inv: true}, types.Never},
	}
	for _, item := range items {
		reduced, err := r.Reduce(item.filter)
		require.NoError(t, err)
		assert.Equal(t, item.expected, reduced)
	}
}

func TestReduceBoolOpIdentityAndAbsorbing(t *testing.T) {
	r := NewReductor(testSchema())
	a := contains("name", "x")

	items := []struct {
		name     string
		filter   types.Filter
		expected types.Filter
	}{
		{"and identity dropped",
			&types.BoolOpFilter{Op: types.BoolAnd, Val: []types.Filter{types.Always, a}}, a},
		{"and absorbed by never",
			&types.BoolOpFilter{Op: types.BoolAnd, Val: []types.Filter{types.Never, a}}, types.Never},
		{"or identity dropped",
			&types.BoolOpFilter{Op: types.BoolOr, Val: []types.Filter{types.Never, a}}, a},
		{"or absorbed by always",
			&types.BoolOpFilter{Op: types.BoolOr, Val: []types.Filter{types.Always, a}}, types.Always},
		{"empty and is always",
			&types.BoolOpFilter{Op: types.BoolAnd}, types.Always},
		{"empty or is never",
			&types.BoolOpFilter{Op: types.BoolOr}, types.Never},
		{"inverted absorbed and",
			&types.BoolOpFilter{Op: types.BoolAnd, Val: []types.Filter{types.Never, a}, Inv: true}, types.Always},
		{"single survivor unwrapped",
			&types.BoolOpFilter{Op: types.BoolOr, Val: []types.Filter{a, types.Never}}, a},
	}
	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			reduced, err := r.Reduce(item.filter)
			require.NoError(t, err)
			assert.Equal(t, item.expected, reduced)
		})
	}
}

func TestReduceUnnestsSameOperator(t *testing.T) {
	r := NewReductor(testSchema())
	a := contains("name", "a")
	b := contains("name", "b")
	c := contains("name", "c")

	reduced, err := r.Reduce(&types.BoolOpFilter{
		Op: types.BoolAnd,
		Val: []types.Filter{
			a,
			&types.BoolOpFilter{Op: types.BoolAnd, Val: []types.Filter{b, c}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, &types.BoolOpFilter{Op: types.BoolAnd, Val: []types.Filter{a, b, c}}, reduced)
}

func TestReduceAppliesDeMorgan(t *testing.T) {
	r := NewReductor(testSchema())
	a := contains("name", "a")
	b := contains("name", "b")
	c := &types.ColumnFilter{Column: "active", Op: types.OpEq, Val: true}

	// c | !(a & b) becomes c | !a | !b.
	reduced, err := r.Reduce(&types.BoolOpFilter{
		Op: types.BoolOr,
		Val: []types.Filter{
			c,
			&types.BoolOpFilter{Op: types.BoolAnd, Val: []types.Filter{a, b}, Inv: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, &types.BoolOpFilter{Op: types.BoolOr, Val: []types.Filter{
		c,
		&types.ColumnFilter{Column: "name", Op: types.OpContains, Val: "a", Inv: true},
		&types.ColumnFilter{Column: "name", Op: types.OpContains, Val: "b", Inv: true},
	}}, reduced)
}

func TestReduceIsIdempotent(t *testing.T) {
	r := NewReductor(testSchema())

	filters := []types.Filter{
		contains("name", "x"),
		&types.ColumnFilter{Column: "email", Op: types.OpEq, Val: ""},
		&types.ColumnFilter{Column: "name", Op: types.OpIn, Val: []interface{}{"a", "b", "a"}},
		&types.BoolOpFilter{Op: types.BoolAnd, Val: []types.Filter{
			contains("name", "x"),
			&types.BoolOpFilter{Op: types.BoolOr, Val: []types.Filter{
				&types.ColumnFilter{Column: "active", Op: types.OpEq, Val: true},
				&types.ColumnFilter{Column: "age", Op: types.OpGE, Val: 18.0},
			}, Inv: true},
		}},
		&types.BoolOpFilter{Op: types.BoolAnd, Val: []types.Filter{
			contains("name", "x"),
			contains("name", "y"),
		}, Inv: true},
		&types.CustomFilter{CustomFilter: "attendant", Params: map[string]interface{}{"userId": "u"}},
	}
	for _, f := range filters {
		once, err := r.Reduce(f)
		require.NoError(t, err)
		twice, err := r.Reduce(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestReduceDoubleInversion(t *testing.T) {
	r := NewReductor(testSchema())

	filters := []types.Filter{
		contains("name", "x"),
		&types.ColumnFilter{Column: "email", Op: types.OpNull},
		&types.BoolOpFilter{Op: types.BoolOr, Val: []types.Filter{
			contains("name", "x"),
			&types.ColumnFilter{Column: "active", Op: types.OpEq, Val: false},
		}},
		types.Never,
	}
	for _, f := range filters {
		direct, err := r.Reduce(f)
		require.NoError(t, err)
		doubled, err := r.Reduce(types.Invert(types.Invert(f)))
		require.NoError(t, err)
		assert.Equal(t, direct, doubled)
	}
}

func TestReduceNullOperator(t *testing.T) {
	r := NewReductor(testSchema())

	items := []struct {
		filter   *types.ColumnFilter
		expected types.Filter
	}{
		{&types.ColumnFilter{Column: "email", Op: types.OpNull},
			&types.ColumnFilter{Column: "email", Op: types.OpNull}},
		{&types.ColumnFilter{Column: "email", Op: types.OpNull, Inv: true},
			&types.ColumnFilter{Column: "email", Op: types.OpNull, Inv: true}},
		// null on a non-nullable column cannot match anything
		{&types.ColumnFilter{Column: "name", Op: types.OpNull}, types.Never},
		{&types.ColumnFilter{Column: "name", Op: types.OpNull, Inv: true}, types.Always},
	}
	for _, item := range items {
		reduced, err := r.Reduce(item.filter)
		require.NoError(t, err)
		assert.Equal(t, item.expected, reduced)
	}
}

func TestReduceEmptyStringOperand(t *testing.T) {
	r := NewReductor(testSchema())
	emailNull := &types.ColumnFilter{Column: "email", Op: types.OpNull}

	items := []struct {
		name     string
		filter   *types.ColumnFilter
		expected types.Filter
	}{
		{"eq on nullable becomes null",
			&types.ColumnFilter{Column: "email", Op: types.OpEq, Val: ""}, emailNull},
		{"eq on non-nullable is never",
			&types.ColumnFilter{Column: "name", Op: types.OpEq, Val: ""}, types.Never},
		{"binary eq becomes null",
			&types.ColumnFilter{Column: "email", Op: types.OpBinEq, Val: ""}, emailNull},
		{"like becomes null",
			&types.ColumnFilter{Column: "email", Op: types.OpLike, Val: ""}, emailNull},
		{"le becomes null",
			&types.ColumnFilter{Column: "email", Op: types.OpLE, Val: ""}, emailNull},
		{"gt becomes not null",
			&types.ColumnFilter{Column: "email", Op: types.OpGT, Val: ""}, types.Invert(emailNull)},
		{"ge is always",
			&types.ColumnFilter{Column: "email", Op: types.OpGE, Val: ""}, types.Always},
		{"contains is always",
			&types.ColumnFilter{Column: "email", Op: types.OpContains, Val: ""}, types.Always},
		{"starts-with is always",
			&types.ColumnFilter{Column: "email", Op: types.OpStartsWith, Val: ""}, types.Always},
		{"ends-with is always",
			&types.ColumnFilter{Column: "email", Op: types.OpEndsWith, Val: ""}, types.Always},
		{"regexp is always",
			&types.ColumnFilter{Column: "email", Op: types.OpRegexp, Val: ""}, types.Always},
		{"lt is never",
			&types.ColumnFilter{Column: "email", Op: types.OpLT, Val: ""}, types.Never},
		{"has is never",
			&types.ColumnFilter{Column: "tags", Op: types.OpHas, Val: ""}, types.Never},
		{"inverted eq flips the rewrite",
			&types.ColumnFilter{Column: "email", Op: types.OpEq, Val: "", Inv: true}, types.Invert(emailNull)},
	}
	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			reduced, err := r.Reduce(item.filter)
			require.NoError(t, err)
			assert.Equal(t, item.expected, reduced)
		})
	}
}

func TestReduceEmptyStringWithArrayOperatorFails(t *testing.T) {
	r := NewReductor(testSchema())

	for _, op := range []types.Operator{types.OpIn, types.OpHasAll, types.OpHasAny, types.OpHasOnly} {
		_, err := r.Reduce(&types.ColumnFilter{Column: "tags", Op: op, Val: ""})
		var bad *BadFilterError
		assert.ErrorAs(t, err, &bad)
	}
}

func TestReduceUntrimmedOperand(t *testing.T) {
	r := NewReductor(testSchema())

	items := []struct {
		filter   *types.ColumnFilter
		expected types.Filter
	}{
		{&types.ColumnFilter{Column: "name", Op: types.OpEq, Val: " x"}, types.Never},
		{&types.ColumnFilter{Column: "name", Op: types.OpBinEq, Val: "x "}, types.Never},
		{&types.ColumnFilter{Column: "tags", Op: types.OpHas, Val: " x"}, types.Never},
		// substring match is free to contain whitespace
		{&types.ColumnFilter{Column: "name", Op: types.OpContains, Val: " x"},
			&types.ColumnFilter{Column: "name", Op: types.OpContains, Val: " x"}},
	}
	for _, item := range items {
		reduced, err := r.Reduce(item.filter)
		require.NoError(t, err)
		assert.Equal(t, item.expected, reduced)
	}
}

func TestReduceListOperands(t *testing.T) {
	r := NewReductor(testSchema())

	items := []struct {
		name     string
		filter   *types.ColumnFilter
		expected types.Filter
	}{
		{"in deduplicates preserving order",
			&types.ColumnFilter{Column: "name", Op: types.OpIn, Val: []interface{}{"b", "a", "b"}},
			&types.ColumnFilter{Column: "name", Op: types.OpIn, Val: []interface{}{"b", "a"}}},
		{"in with one member becomes eq",
			&types.ColumnFilter{Column: "name", Op: types.OpIn, Val: []interface{}{"a"}},
			&types.ColumnFilter{Column: "name", Op: types.OpEq, Val: "a"}},
		{"in with no members is never",
			&types.ColumnFilter{Column: "name", Op: types.OpIn, Val: []interface{}{}},
			types.Never},
		{"in strips empty members",
			&types.ColumnFilter{Column: "name", Op: types.OpIn, Val: []interface{}{"", "a"}},
			&types.ColumnFilter{Column: "name", Op: types.OpEq, Val: "a"}},
		{"in keeps earlier strips when hitting a non-string",
			&types.ColumnFilter{Column: "age", Op: types.OpIn, Val: []interface{}{"", 5.0, "x"}},
			&types.ColumnFilter{Column: "age", Op: types.OpIn, Val: []interface{}{5.0, "x"}}},
		{"list eq with stripped member is never",
			&types.ColumnFilter{Column: "tags", Op: types.OpEq, Val: []interface{}{"a", " b"}},
			types.Never},
		{"list eq with no members on nullable becomes null",
			&types.ColumnFilter{Column: "labels", Op: types.OpEq, Val: []interface{}{}},
			&types.ColumnFilter{Column: "labels", Op: types.OpNull}},
		{"has-all of nothing is always",
			&types.ColumnFilter{Column: "tags", Op: types.OpHasAll, Val: []interface{}{}},
			types.Always},
		{"has-all of one becomes has",
			&types.ColumnFilter{Column: "tags", Op: types.OpHasAll, Val: []interface{}{"a"}},
			&types.ColumnFilter{Column: "tags", Op: types.OpHas, Val: "a"}},
		{"has-any of nothing is never",
			&types.ColumnFilter{Column: "tags", Op: types.OpHasAny, Val: []interface{}{}},
			types.Never},
		{"has-any of one becomes has",
			&types.ColumnFilter{Column: "tags", Op: types.OpHasAny, Val: []interface{}{"a"}},
			&types.ColumnFilter{Column: "tags", Op: types.OpHas, Val: "a"}},
		{"has-only of nothing on non-nullable is never",
			&types.ColumnFilter{Column: "tags", Op: types.OpHasOnly, Val: []interface{}{}},
			types.Never},
		{"has-only of nothing on nullable becomes null",
			&types.ColumnFilter{Column: "labels", Op: types.OpHasOnly, Val: []interface{}{}},
			&types.ColumnFilter{Column: "labels", Op: types.OpNull}},
		{"inverted empty in is always",
			&types.ColumnFilter{Column: "name", Op: types.OpIn, Val: []interface{}{}, Inv: true},
			types.Always},
	}
	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			reduced, err := r.Reduce(item.filter)
			require.NoError(t, err)
			assert.Equal(t, item.expected, reduced)
		})
	}
}

func TestReduceUnknownColumn(t *testing.T) {
	r := NewReductor(testSchema())

	_, err := r.Reduce(&types.ColumnFilter{Column: "nope", Op: types.OpEq, Val: "x"})
	var bad *BadFilterError
	require.ErrorAs(t, err, &bad)
	assert.Contains(t, bad.Error(), "nope")
}

func TestReduceCustomFilterPassthrough(t *testing.T) {
	r := NewReductor(testSchema())

	f := &types.CustomFilter{
		CustomFilter: "attendant",
		Params:       map[string]interface{}{"userId": "u1"},
		Inv:          true,
	}
	reduced, err := r.Reduce(f)
	require.NoError(t, err)
	assert.Equal(t, f, reduced)
}
