package engine

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	e "github.com/facilimate/tquery/rest/errors"
	"github.com/facilimate/tquery/schema"
	"github.com/facilimate/tquery/types"
)

// ApplyFilter compiles the (already reduced and validated) filter tree into
// the WHERE clause. A top-level "never" compiles to a constant-false
// predicate, guaranteeing zero rows without relying on the tree shape.
func (b *Builder) ApplyFilter(f types.Filter) error {
	condition, err := b.compileFilter(f)
	if err != nil {
		return err
	}
	b.Where(condition)
	return nil
}

func (b *Builder) compileFilter(f types.Filter) (string, error) {
	switch filter := f.(type) {
	case nil:
		return "true", nil
	case types.ConstFilter:
		if filter == types.Always {
			return "true", nil
		}
		return "false", nil
	case *types.BoolOpFilter:
		return b.compileBoolOp(filter)
	case *types.ColumnFilter:
		return b.compileColumnFilter(filter)
	case *types.CustomFilter:
		return b.compileCustomFilter(filter)
	default:
		return "", e.NewInternalError(fmt.Sprintf("cannot compile filter of type %T", f))
	}
}

func (b *Builder) compileBoolOp(filter *types.BoolOpFilter) (string, error) {
	glue := " and "
	if filter.Op == types.BoolOr {
		glue = " or "
	}
	parts := make([]string, 0, len(filter.Val))
	for _, sub := range filter.Val {
		part, err := b.compileFilter(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	condition := "(" + strings.Join(parts, glue) + ")"
	if filter.Inv {
		condition = "not " + condition
	}
	return condition, nil
}

func (b *Builder) compileCustomFilter(filter *types.CustomFilter) (string, error) {
	custom, ok := b.schema.CustomFilters[filter.CustomFilter]
	if !ok {
		return "", e.NewInternalError("unknown custom filter " + filter.CustomFilter)
	}
	condition, err := custom.Compile(b.bind, filter.Params)
	if err != nil {
		return "", err
	}
	if filter.Inv {
		condition = "not (" + condition + ")"
	}
	return condition, nil
}

func (b *Builder) compileColumnFilter(filter *types.ColumnFilter) (string, error) {
	col, ok := b.schema.Column(filter.Column)
	if !ok {
		return "", e.NewInternalError("unknown column " + filter.Column)
	}
	condition, err := columnCondition(col, filter.Op, filter.Val, b.bind)
	if err != nil {
		return "", err
	}
	if filter.Inv {
		if filter.Op != types.OpNull && col.Type.IsNullable() {
			// NULL never matches the positive condition; the inverted
			// condition has to match it.
			return "not coalesce(" + condition + ", false)", nil
		}
		return "not (" + condition + ")", nil
	}
	return condition, nil
}

// columnCondition maps one operator to its SQL form. Every operand goes
// through bind, never into the statement text.
func columnCondition(col schema.Column, op types.Operator, val interface{}, bind schema.Binder) (string, error) {
	expr := col.SQLExpr()
	if types.OperatorIn(op, types.LikeOperators) && col.Type.NotNullBaseType() == schema.TypeInt {
		expr = "(" + expr + ")::text"
	}
	switch op {
	case types.OpNull:
		return expr + " is null", nil
	case types.OpEq:
		if col.Type.IsList() {
			member := bind(stringSlice(val))
			return fmt.Sprintf("(%s @> %s and %s <@ %s)", expr, member, expr, member), nil
		}
		return expr + " = " + bind(val), nil
	case types.OpBinEq:
		return expr + ` collate "C" = ` + bind(val), nil
	case types.OpGT, types.OpLT, types.OpGE, types.OpLE:
		return fmt.Sprintf("%s %s %s", expr, op, bind(val)), nil
	case types.OpIn:
		list, ok := val.([]interface{})
		if !ok || len(list) == 0 {
			return "", e.NewInternalError("operator in requires a non-empty list")
		}
		placeholders := make([]string, len(list))
		for i, member := range list {
			placeholders[i] = bind(member)
		}
		return expr + " in (" + strings.Join(placeholders, ", ") + ")", nil
	case types.OpEndsWith:
		return expr + " like " + bind("%"+escapeLike(cast.ToString(val))), nil
	case types.OpStartsWith:
		return expr + " like " + bind(escapeLike(cast.ToString(val))+"%"), nil
	case types.OpContains:
		return expr + " like " + bind("%"+escapeLike(cast.ToString(val))+"%"), nil
	case types.OpLike:
		return expr + " like " + bind(cast.ToString(val)), nil
	case types.OpRegexp:
		return expr + " ~ " + bind(cast.ToString(val)), nil
	case types.OpHas:
		return bind(val) + " = any(" + expr + ")", nil
	case types.OpHasAll:
		return expr + " @> " + bind(stringSlice(val)), nil
	case types.OpHasAny:
		return expr + " && " + bind(stringSlice(val)), nil
	case types.OpHasOnly:
		return expr + " <@ " + bind(stringSlice(val)), nil
	default:
		return "", e.NewInternalError(fmt.Sprintf("operator %s has no SQL form", op))
	}
}

// escapeLike escapes LIKE wildcards in a literal substring operand.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// stringSlice converts a decoded JSON array operand to the array parameter
// form the driver encodes.
func stringSlice(val interface{}) []string {
	switch v := val.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, member := range v {
			out = append(out, cast.ToString(member))
		}
		return out
	default:
		return []string{cast.ToString(val)}
	}
}
