package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operator identifies a column filter operator as it appears on the wire.
type Operator string

const (
	OpNull       Operator = "null"
	OpEq         Operator = "="
	OpBinEq      Operator = "=="
	OpIn         Operator = "in"
	OpGT         Operator = ">"
	OpLT         Operator = "<"
	OpGE         Operator = ">="
	OpLE         Operator = "<="
	OpEndsWith   Operator = "%v"
	OpStartsWith Operator = "v%"
	OpContains   Operator = "%v%"
	OpLike       Operator = "lv"
	OpRegexp     Operator = "/v/"
	OpHas        Operator = "has"
	OpHasAll     Operator = "has_all"
	OpHasAny     Operator = "has_any"
	OpHasOnly    Operator = "has_only"
)

// CmpOperators are the ordering comparisons.
var CmpOperators = []Operator{OpGT, OpLT, OpGE, OpLE}

// LikeOperators match a part or pattern of a textual column. Their operand is
// always a plain string, regardless of the column's base type.
var LikeOperators = []Operator{OpEndsWith, OpStartsWith, OpContains, OpLike, OpRegexp}

// ArrayOperators take a list of values as the operand.
var ArrayOperators = []Operator{OpIn, OpHasAll, OpHasAny, OpHasOnly}

// TrimmedOperators require string operands to be already trimmed. An untrimmed
// operand can never match because the backend never stores untrimmed values.
var TrimmedOperators = []Operator{OpEq, OpBinEq, OpIn, OpHas, OpHasAll, OpHasAny, OpHasOnly}

// OperatorIn reports whether op is a member of the given set.
func OperatorIn(op Operator, set []Operator) bool {
	for _, o := range set {
		if o == op {
			return true
		}
	}
	return false
}

// BoolOp is the operator of a boolean operation filter.
type BoolOp string

const (
	BoolAnd BoolOp = "&"
	BoolOr  BoolOp = "|"
)

// Other returns the opposite boolean operator.
func (op BoolOp) Other() BoolOp {
	if op == BoolAnd {
		return BoolOr
	}
	return BoolAnd
}

// Identity returns the identity element of the operation: a sub-filter equal
// to it can be dropped without changing the result.
func (op BoolOp) Identity() ConstFilter {
	if op == BoolAnd {
		return Always
	}
	return Never
}

// Absorbing returns the absorbing element of the operation: a sub-filter equal
// to it absorbs the whole operation.
func (op BoolOp) Absorbing() ConstFilter {
	if op == BoolAnd {
		return Never
	}
	return Always
}

// Filter is a node of the filter tree sent in a DataRequest.
type Filter interface {
	filterNode()
}

// ConstFilter matches everything ("always") or nothing ("never"). The identity
// and absorbing elements of the boolean filter algebra.
type ConstFilter string

const (
	Always ConstFilter = "always"
	Never  ConstFilter = "never"
)

// ConstFilterNode is the object form of a constant filter, as produced by
// filter UI controls that need a place for the inv flag.
type ConstFilterNode struct {
	Val ConstFilter `json:"val"`
	Inv bool        `json:"inv,omitempty"`
}

// BoolOpFilter combines sub-filters with a boolean AND or OR.
type BoolOpFilter struct {
	Op  BoolOp   `json:"op"`
	Val []Filter `json:"val"`
	Inv bool     `json:"inv,omitempty"`
}

// ColumnFilter is a leaf predicate on a single column.
type ColumnFilter struct {
	Column string      `json:"column"`
	Op     Operator    `json:"op"`
	Val    interface{} `json:"val,omitempty"`
	Inv    bool        `json:"inv,omitempty"`
}

// CustomFilter invokes a server-defined predicate by name.
type CustomFilter struct {
	CustomFilter string                 `json:"customFilter"`
	Params       map[string]interface{} `json:"params,omitempty"`
	Inv          bool                   `json:"inv,omitempty"`
}

func (ConstFilter) filterNode()      {}
func (*ConstFilterNode) filterNode() {}
func (*BoolOpFilter) filterNode()    {}
func (*ColumnFilter) filterNode()    {}
func (*CustomFilter) filterNode()    {}

// Invert returns the filter matching the complement of f. Double inversion
// returns a filter equal to the original.
func Invert(f Filter) Filter {
	switch filter := f.(type) {
	case ConstFilter:
		if filter == Always {
			return Never
		}
		return Always
	case *ConstFilterNode:
		return &ConstFilterNode{Val: filter.Val, Inv: !filter.Inv}
	case *BoolOpFilter:
		return &BoolOpFilter{Op: filter.Op, Val: filter.Val, Inv: !filter.Inv}
	case *ColumnFilter:
		return &ColumnFilter{Column: filter.Column, Op: filter.Op, Val: filter.Val, Inv: !filter.Inv}
	case *CustomFilter:
		return &CustomFilter{CustomFilter: filter.CustomFilter, Params: filter.Params, Inv: !filter.Inv}
	default:
		return f
	}
}

type taggedFilter struct {
	Type string `json:"type"`
}

func (f *ConstFilterNode) MarshalJSON() ([]byte, error) {
	type node ConstFilterNode
	return marshalTagged("const", (*node)(f))
}

func (f *BoolOpFilter) MarshalJSON() ([]byte, error) {
	type node BoolOpFilter
	return marshalTagged("op", (*node)(f))
}

func (f *ColumnFilter) MarshalJSON() ([]byte, error) {
	type node ColumnFilter
	return marshalTagged("column", (*node)(f))
}

func (f *CustomFilter) MarshalJSON() ([]byte, error) {
	type node CustomFilter
	return marshalTagged("custom", (*node)(f))
}

// marshalTagged injects the "type" discriminator into the node's object form.
func marshalTagged(typeName string, node interface{}) ([]byte, error) {
	body, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(taggedFilter{Type: typeName})
	if err != nil {
		return nil, err
	}
	if bytes.Equal(body, []byte("{}")) {
		return tag, nil
	}
	out := append(tag[:len(tag)-1], ',')
	out = append(out, body[1:]...)
	return out, nil
}

// UnmarshalFilter decodes a filter tree node: either a constant string
// ("always"/"never") or a tagged object.
func UnmarshalFilter(data []byte) (Filter, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		switch ConstFilter(s) {
		case Always, Never:
			return ConstFilter(s), nil
		}
		return nil, fmt.Errorf("unknown constant filter %q", s)
	}
	var tag taggedFilter
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "const":
		node := &ConstFilterNode{}
		if err := json.Unmarshal(data, node); err != nil {
			return nil, err
		}
		if node.Val != Always && node.Val != Never {
			return nil, fmt.Errorf("unknown constant filter %q", node.Val)
		}
		return node, nil
	case "op":
		var raw struct {
			Op  BoolOp            `json:"op"`
			Val []json.RawMessage `json:"val"`
			Inv bool              `json:"inv"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw.Op != BoolAnd && raw.Op != BoolOr {
			return nil, fmt.Errorf("unknown boolean operator %q", raw.Op)
		}
		node := &BoolOpFilter{Op: raw.Op, Inv: raw.Inv, Val: make([]Filter, 0, len(raw.Val))}
		for _, sub := range raw.Val {
			subFilter, err := UnmarshalFilter(sub)
			if err != nil {
				return nil, err
			}
			node.Val = append(node.Val, subFilter)
		}
		return node, nil
	case "column":
		node := &ColumnFilter{}
		if err := json.Unmarshal(data, node); err != nil {
			return nil, err
		}
		return node, nil
	case "custom":
		node := &CustomFilter{}
		if err := json.Unmarshal(data, node); err != nil {
			return nil, err
		}
		return node, nil
	}
	return nil, fmt.Errorf("unknown filter type %q", tag.Type)
}

func (r *DataRequest) UnmarshalJSON(data []byte) error {
	type request DataRequest
	var raw struct {
		request
		Filter json.RawMessage `json:"filter"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	filter, err := UnmarshalFilter(raw.Filter)
	if err != nil {
		return err
	}
	*r = DataRequest(raw.request)
	r.Filter = filter
	return nil
}
