package engine

import (
	"fmt"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/facilimate/tquery/filter"
	e "github.com/facilimate/tquery/rest/errors"
	"github.com/facilimate/tquery/schema"
	"github.com/facilimate/tquery/types"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()

	uni := ut.New(en.New(), en.New())
	trans, _ = uni.GetTranslator("en")

	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
}

// Request is a fully validated, reduced data request bound to one schema.
type Request struct {
	Schema *schema.Schema
	// Select lists the output columns in request order.
	Select []schema.Column
	// AllColumns lists every column referenced anywhere in the request;
	// each one's join must be applied before compilation.
	AllColumns []schema.Column
	// Filter is the reduced filter tree.
	Filter   types.Filter
	Sort     []types.SortColumn
	Paging   types.Paging
	Distinct bool
}

// ParseRequest validates the raw request against the schema and reduces its
// filter. All user input problems are reported together as a ValidationError;
// nothing is compiled or executed for an invalid request.
func ParseRequest(s *schema.Schema, reductor *filter.Reductor, raw types.DataRequest) (*Request, error) {
	if err := validate.Struct(raw); err != nil {
		return nil, e.TranslateValidatorError(err, trans)
	}

	verr := e.NewValidationError()
	req := &Request{
		Schema:   s,
		Filter:   types.Always,
		Sort:     raw.Sort,
		Paging:   raw.Paging,
		Distinct: raw.Distinct,
	}

	for i, requested := range raw.Columns {
		path := fmt.Sprintf("columns[%d].column", i)
		col, ok := s.Column(requested.Column)
		if !ok {
			verr.Add(path, "unknown column")
			continue
		}
		if col.Type == schema.TypeCount && !raw.Distinct {
			verr.Add(path, "count column requires a distinct request")
			continue
		}
		req.Select = append(req.Select, col)
	}

	for i, sort := range raw.Sort {
		path := fmt.Sprintf("sort[%d].column", i)
		col, ok := s.Column(sort.Column)
		if !ok {
			verr.Add(path, "unknown column")
			continue
		}
		if !col.Type.IsSortable() {
			verr.Add(path, "column is not sortable")
		}
	}

	if raw.Filter != nil {
		validateFilter(s, raw.Filter, "filter", verr)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if raw.Filter != nil {
		reduced, err := reductor.Reduce(raw.Filter)
		if err != nil {
			return nil, err
		}
		req.Filter = reduced
	}
	req.AllColumns = referencedColumns(s, req)
	return req, nil
}

// validateFilter walks the raw tree checking every leaf against the column
// type system: the column must exist, the operator must be in the type's
// operator set and the operand must satisfy the operator's value rule.
func validateFilter(s *schema.Schema, f types.Filter, path string, verr *e.ValidationError) {
	switch node := f.(type) {
	case types.ConstFilter, *types.ConstFilterNode, nil:
	case *types.BoolOpFilter:
		if len(node.Val) == 0 {
			verr.Add(path+".val", "boolean operation requires at least one sub-filter")
			return
		}
		for i, sub := range node.Val {
			validateFilter(s, sub, fmt.Sprintf("%s.val[%d]", path, i), verr)
		}
	case *types.ColumnFilter:
		col, ok := s.Column(node.Column)
		if !ok {
			verr.Add(path+".column", "unknown column")
			return
		}
		if !col.Type.HasOperator(node.Op) {
			verr.Add(path+".op", fmt.Sprintf("operator %s is not valid for column %s", node.Op, node.Column))
			return
		}
		valueValidator, err := col.Type.ValidatorFor(node.Op)
		if err != nil {
			verr.Add(path+".op", err.Error())
			return
		}
		if err := valueValidator(node.Val); err != nil {
			verr.Add(path+".val", err.Error())
		}
	case *types.CustomFilter:
		if _, ok := s.CustomFilters[node.CustomFilter]; !ok {
			verr.Add(path+".customFilter", "unknown custom filter")
		}
	default:
		verr.Add(path, "unknown filter type")
	}
}

// referencedColumns collects every column the request touches, in a stable
// order: select, filter, then sort.
func referencedColumns(s *schema.Schema, req *Request) []schema.Column {
	seen := map[string]bool{}
	var out []schema.Column
	add := func(name string) {
		if seen[name] {
			return
		}
		if col, ok := s.Column(name); ok {
			seen[name] = true
			out = append(out, col)
		}
	}
	for _, col := range req.Select {
		add(col.Name)
	}
	collectFilterColumns(req.Filter, add)
	for _, sort := range req.Sort {
		add(sort.Column)
	}
	return out
}

func collectFilterColumns(f types.Filter, add func(string)) {
	switch node := f.(type) {
	case *types.BoolOpFilter:
		for _, sub := range node.Val {
			collectFilterColumns(sub, add)
		}
	case *types.ColumnFilter:
		add(node.Column)
	}
}
