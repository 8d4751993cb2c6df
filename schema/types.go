// schema package is the single source of truth for column types: which filter
// operators are legal on a column, how operands are validated and how values
// are rendered, plus the per-entity column catalogs.
package schema

import (
	"fmt"

	"github.com/facilimate/tquery/types"
)

// ColumnType is the closed set of queryable column types. Nullable variants
// and the is_null/is_not_null pseudo-types exist only server-side; the client
// sees the base type plus a nullable flag.
type ColumnType int

const (
	TypeBool ColumnType = iota
	TypeDate
	TypeDatetime
	TypeInt
	TypeString
	TypeUUID
	TypeText
	TypeDict
	TypeList
	TypeObject
	TypeStringList
	TypeUUIDList
	TypeDictList
	TypeCount
	// nullable variants
	TypeBoolNullable
	TypeDateNullable
	TypeDatetimeNullable
	TypeIntNullable
	TypeStringNullable
	TypeUUIDNullable
	TypeTextNullable
	TypeDictNullable
	// query-only pseudo-types, boolean projections of another column's nullability
	TypeIsNull
	TypeIsNotNull
)

var columnTypeNames = map[ColumnType]string{
	TypeBool:             "bool",
	TypeDate:             "date",
	TypeDatetime:         "datetime",
	TypeInt:              "int",
	TypeString:           "string",
	TypeUUID:             "uuid",
	TypeText:             "text",
	TypeDict:             "dict",
	TypeList:             "list",
	TypeObject:           "object",
	TypeStringList:       "string_list",
	TypeUUIDList:         "uuid_list",
	TypeDictList:         "dict_list",
	TypeCount:            "count",
	TypeBoolNullable:     "bool",
	TypeDateNullable:     "date",
	TypeDatetimeNullable: "datetime",
	TypeIntNullable:      "int",
	TypeStringNullable:   "string",
	TypeUUIDNullable:     "uuid",
	TypeTextNullable:     "text",
	TypeDictNullable:     "dict",
	TypeIsNull:           "bool",
	TypeIsNotNull:        "bool",
}

// String returns the client-facing name of the type. Nullable variants and
// pseudo-types collapse to their base name; nullability travels separately.
func (t ColumnType) String() string {
	name, ok := columnTypeNames[t]
	if !ok {
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
	return name
}

// IsNullable reports whether the column may hold NULL.
func (t ColumnType) IsNullable() bool {
	switch t {
	case TypeBoolNullable, TypeDateNullable, TypeDatetimeNullable, TypeIntNullable,
		TypeStringNullable, TypeUUIDNullable, TypeTextNullable, TypeDictNullable:
		return true
	default:
		return false
	}
}

// NotNullType maps a nullable variant to its non-nullable counterpart.
func (t ColumnType) NotNullType() ColumnType {
	switch t {
	case TypeBoolNullable:
		return TypeBool
	case TypeDateNullable:
		return TypeDate
	case TypeDatetimeNullable:
		return TypeDatetime
	case TypeIntNullable:
		return TypeInt
	case TypeStringNullable:
		return TypeString
	case TypeUUIDNullable:
		return TypeUUID
	case TypeTextNullable:
		return TypeText
	case TypeDictNullable:
		return TypeDict
	default:
		return t
	}
}

// BaseType strips the query-only pseudo-types to their effective type.
func (t ColumnType) BaseType() ColumnType {
	switch t {
	case TypeIsNull, TypeIsNotNull:
		return TypeBool
	default:
		return t
	}
}

// NotNullBaseType combines BaseType and NotNullType.
func (t ColumnType) NotNullBaseType() ColumnType {
	return t.BaseType().NotNullType()
}

// IsList reports whether the column holds multiple values.
func (t ColumnType) IsList() bool {
	switch t.NotNullBaseType() {
	case TypeList, TypeStringList, TypeUUIDList, TypeDictList:
		return true
	default:
		return false
	}
}

// IsSortable reports whether ORDER BY on the column is meaningful to end
// users. Free-text and identifier columns are excluded, as are lists.
func (t ColumnType) IsSortable() bool {
	switch t.NotNullBaseType() {
	case TypeUUID, TypeText, TypeDict, TypeList, TypeObject,
		TypeStringList, TypeUUIDList, TypeDictList:
		return false
	default:
		return true
	}
}

// Operators returns the set of filter operators legal on a column of this
// type. The legal operators are a pure function of the type and nullability.
func (t ColumnType) Operators() []types.Operator {
	var ops []types.Operator
	if t.IsNullable() {
		ops = append(ops, types.OpNull)
	}
	switch t.NotNullBaseType() {
	case TypeBool:
		ops = append(ops, types.OpEq)
	case TypeDate:
		ops = append(ops, types.OpEq, types.OpIn)
		ops = append(ops, types.CmpOperators...)
	case TypeDatetime:
		// Datetimes are points too precise for exact match.
		ops = append(ops, types.CmpOperators...)
	case TypeInt:
		ops = append(ops, types.OpEq, types.OpIn)
		ops = append(ops, types.CmpOperators...)
		ops = append(ops, types.OpEndsWith, types.OpStartsWith, types.OpContains, types.OpLike)
	case TypeString:
		ops = append(ops, types.OpEq, types.OpBinEq, types.OpIn)
		ops = append(ops, types.CmpOperators...)
		ops = append(ops, types.LikeOperators...)
	case TypeUUID, TypeDict:
		// Identifiers are opaque: no ordering, no substring match.
		ops = append(ops, types.OpEq, types.OpIn)
	case TypeText:
		// Long text is never compared for exact equality.
		ops = append(ops, types.LikeOperators...)
	case TypeStringList, TypeUUIDList, TypeDictList:
		ops = append(ops, types.OpEq, types.OpHas, types.OpHasAll, types.OpHasAny, types.OpHasOnly)
	case TypeList, TypeObject, TypeCount:
		// Not filterable.
	}
	return ops
}

// HasOperator reports whether op is legal on this column type.
func (t ColumnType) HasOperator(op types.Operator) bool {
	return types.OperatorIn(op, t.Operators())
}
