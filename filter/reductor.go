// filter package normalizes filter trees before they are compiled or sent to
// the backend: boolean simplification plus type-aware edge case rewriting.
// Reduction is pure; the same reductor can be shared by any number of
// requests against one schema.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/facilimate/tquery/types"
)

// BadFilterError marks a filter that violates construction invariants, e.g.
// an array operator with an empty-string operand. It indicates a defect in
// the filter producer, not bad user input.
type BadFilterError struct {
	Filter types.Filter
}

func (e *BadFilterError) Error() string {
	encoded, err := json.Marshal(e.Filter)
	if err != nil {
		return "bad filter"
	}
	return "bad filter: " + string(encoded)
}

// Reductor reduces filter trees against one entity schema. The output of
// Reduce is minimal and fully valid; reducing it again returns it unchanged.
type Reductor struct {
	columns map[string]types.ColumnSchema
}

// NewReductor builds a reductor for the given schema.
func NewReductor(schema types.Schema) *Reductor {
	columns := make(map[string]types.ColumnSchema, len(schema.Columns))
	for _, col := range schema.Columns {
		columns[col.Name] = col
	}
	return &Reductor{columns: columns}
}

// Reduce returns the reduced form of the filter.
func (r *Reductor) Reduce(f types.Filter) (types.Filter, error) {
	switch filter := f.(type) {
	case nil:
		return types.Always, nil
	case types.ConstFilter:
		return filter, nil
	case *types.ConstFilterNode:
		if (filter.Val == types.Always) != filter.Inv {
			return types.Always, nil
		}
		return types.Never, nil
	case *types.BoolOpFilter:
		return r.reduceBoolOp(filter)
	case *types.ColumnFilter:
		return r.reduceColumnOp(filter)
	case *types.CustomFilter:
		// Passes through with bookkeeping fields stripped.
		return &types.CustomFilter{
			CustomFilter: filter.CustomFilter,
			Params:       filter.Params,
			Inv:          filter.Inv,
		}, nil
	default:
		return nil, &BadFilterError{Filter: f}
	}
}

// invertIf applies the node's own inv flag to an already reduced filter.
func invertIf(f types.Filter, inv bool) types.Filter {
	if !inv {
		return f
	}
	return types.Invert(f)
}

// reduceBoolOp reduces the sub-filters depth-first, drops identity elements,
// short-circuits on the absorbing element, flattens nested operations of the
// same operator and applies De Morgan's law to inverted operations of the
// opposite operator. Processing goes through an explicit reversed stack so
// that unnesting preserves the original sub-filter order.
func (r *Reductor) reduceBoolOp(filter *types.BoolOpFilter) (types.Filter, error) {
	op := filter.Op
	identity := op.Identity()
	absorbing := op.Absorbing()

	var survivors []types.Filter
	stack := reversed(filter.Val)
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sub, err := r.Reduce(next)
		if err != nil {
			return nil, err
		}
		if constant, ok := sub.(types.ConstFilter); ok {
			if constant == absorbing {
				// The whole operation is absorbed.
				return invertIf(absorbing, filter.Inv), nil
			}
			// Identity element, dropped.
			continue
		}
		if nested, ok := sub.(*types.BoolOpFilter); ok {
			if nested.Op == op && !nested.Inv {
				// Unnest an operation of the same type.
				stack = append(stack, reversed(nested.Val)...)
				continue
			}
			if nested.Op == op.Other() && nested.Inv {
				// De Morgan: the inverted opposite operation becomes this
				// operation over individually inverted sub-filters.
				inverted := make([]types.Filter, len(nested.Val))
				for i, child := range nested.Val {
					inverted[i] = types.Invert(child)
				}
				stack = append(stack, reversed(inverted)...)
				continue
			}
		}
		survivors = append(survivors, sub)
	}

	var reduced types.Filter
	switch len(survivors) {
	case 0:
		reduced = identity
	case 1:
		reduced = survivors[0]
	default:
		reduced = &types.BoolOpFilter{Op: op, Val: survivors}
	}
	return invertIf(reduced, filter.Inv), nil
}

// reduceColumnOp applies the type- and nullability-aware rewrite rules to a
// leaf predicate. When no rule applies the filter is kept as-is, including
// its inv flag.
func (r *Reductor) reduceColumnOp(filter *types.ColumnFilter) (types.Filter, error) {
	column, ok := r.columns[filter.Column]
	if !ok {
		return nil, &BadFilterError{Filter: filter}
	}
	nullable := column.Type != "count" && column.Nullable
	keep := &types.ColumnFilter{Column: filter.Column, Op: filter.Op, Val: filter.Val, Inv: filter.Inv}

	if filter.Op == types.OpNull {
		if !nullable {
			// Selecting null on a non-nullable column matches nothing.
			return invertIf(types.Never, filter.Inv), nil
		}
		return keep, nil
	}

	// The null-match fallback for operand shapes equivalent to "no value".
	nullFilter := func() types.Filter {
		if nullable {
			return &types.ColumnFilter{Column: filter.Column, Op: types.OpNull}
		}
		return types.Never
	}

	if s, ok := filter.Val.(string); ok {
		if s == "" {
			// The client presents a null value of a string column as an empty
			// string, so each operator has an explicit empty-operand policy.
			switch filter.Op {
			case types.OpEq, types.OpBinEq, types.OpLike, types.OpLE:
				return invertIf(nullFilter(), filter.Inv), nil
			case types.OpGT:
				return invertIf(types.Invert(nullFilter()), filter.Inv), nil
			case types.OpGE, types.OpStartsWith, types.OpEndsWith, types.OpContains, types.OpRegexp:
				return invertIf(types.Always, filter.Inv), nil
			case types.OpLT, types.OpHas:
				// A null value does not contain anything, not even emptiness.
				return invertIf(types.Never, filter.Inv), nil
			case types.OpIn, types.OpHasAll, types.OpHasAny, types.OpHasOnly:
				return nil, &BadFilterError{Filter: filter}
			}
		}
		if s != strings.TrimSpace(s) {
			switch filter.Op {
			case types.OpEq, types.OpBinEq, types.OpHas:
				// Stored values are always trimmed, so this cannot match.
				return invertIf(types.Never, filter.Inv), nil
			}
		}
	}

	if list, ok := filter.Val.([]interface{}); ok {
		return r.reduceListOp(filter, list, nullFilter)
	}
	return keep, nil
}

// reduceListOp deduplicates array operands, strips invalid string members and
// applies the per-operator cardinality collapse.
func (r *Reductor) reduceListOp(
	filter *types.ColumnFilter,
	list []interface{},
	nullFilter func() types.Filter,
) (types.Filter, error) {
	vals := dedup(list)
	// Strips empty and untrimmed string members. Bails out without further
	// changes at the first non-string member, where it cannot safely reason.
	deleteInvalidVals := func() bool {
		modified := false
		kept := vals[:0]
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				vals = append(kept, vals[i:]...)
				return false
			}
			if s == "" || s != strings.TrimSpace(s) {
				modified = true
				continue
			}
			kept = append(kept, v)
		}
		vals = kept
		return modified
	}
	column := filter.Column
	single := func(op types.Operator) types.Filter {
		return &types.ColumnFilter{Column: column, Op: op, Val: vals[0]}
	}
	multi := func(op types.Operator) types.Filter {
		return &types.ColumnFilter{Column: column, Op: op, Val: vals}
	}

	var reduced types.Filter
	switch filter.Op {
	case types.OpIn:
		deleteInvalidVals()
		switch len(vals) {
		case 0:
			reduced = types.Never
		case 1:
			reduced = single(types.OpEq)
		default:
			reduced = multi(types.OpIn)
		}
	case types.OpEq:
		switch {
		case deleteInvalidVals():
			reduced = types.Never
		case len(vals) == 0:
			reduced = nullFilter()
		default:
			reduced = multi(types.OpEq)
		}
	case types.OpHasAll:
		switch {
		case deleteInvalidVals():
			reduced = types.Never
		case len(vals) == 0:
			// An empty required set is vacuously satisfied.
			reduced = types.Always
		case len(vals) == 1:
			reduced = single(types.OpHas)
		default:
			reduced = multi(types.OpHasAll)
		}
	case types.OpHasAny:
		deleteInvalidVals()
		switch len(vals) {
		case 0:
			// An empty any-of set is never satisfied.
			reduced = types.Never
		case 1:
			reduced = single(types.OpHas)
		default:
			reduced = multi(types.OpHasAny)
		}
	case types.OpHasOnly:
		deleteInvalidVals()
		if len(vals) == 0 {
			reduced = nullFilter()
		} else {
			reduced = multi(types.OpHasOnly)
		}
	default:
		return nil, &BadFilterError{Filter: filter}
	}
	return invertIf(reduced, filter.Inv), nil
}

// reversed returns a reversed copy, so that popping off the stack end visits
// the filters in their original order.
func reversed(filters []types.Filter) []types.Filter {
	out := make([]types.Filter, len(filters))
	for i, f := range filters {
		out[len(filters)-1-i] = f
	}
	return out
}

// dedup keeps the first occurrence of each member, preserving order.
func dedup(list []interface{}) []interface{} {
	seen := make(map[interface{}]struct{}, len(list))
	out := make([]interface{}, 0, len(list))
	for _, v := range list {
		key := v
		if !hashable(v) {
			key = fmt.Sprintf("%#v", v)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func hashable(v interface{}) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float64, nil:
		return true
	default:
		return false
	}
}
