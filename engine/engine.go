package engine

import (
	"context"

	"github.com/facilimate/tquery/filter"
	"github.com/facilimate/tquery/log"
	e "github.com/facilimate/tquery/rest/errors"
	"github.com/facilimate/tquery/schema"
	"github.com/facilimate/tquery/types"
)

// Engine executes data requests against one entity schema. It is stateless
// per request; a single engine serves concurrent requests.
type Engine struct {
	schema   schema.Schema
	reductor *filter.Reductor
	session  Session
	logger   log.Logger
	debug    bool
}

// New builds an engine for the schema. With debug enabled, the generated SQL
// is attached to internal errors for operators.
func New(s schema.Schema, session Session, logger log.Logger, debug bool) *Engine {
	return &Engine{
		schema:   s,
		reductor: filter.NewReductor(s.Wire()),
		session:  session,
		logger:   logger,
		debug:    debug,
	}
}

// Schema returns the client-facing form of the engine's schema.
func (eng *Engine) Schema() types.Schema {
	return eng.schema.Wire()
}

// Run validates and executes one request. The intrinsic filter is the
// non-removable scope supplied by the embedding context (e.g. facility
// authorization); it is ANDed with the user filter and trusted as-is.
func (eng *Engine) Run(ctx context.Context, raw types.DataRequest, intrinsic types.Filter) (*types.DataResponse, error) {
	req, err := ParseRequest(&eng.schema, eng.reductor, raw)
	if err != nil {
		return nil, err
	}
	if intrinsic != nil {
		combined, err := eng.reductor.Reduce(&types.BoolOpFilter{
			Op:  types.BoolAnd,
			Val: []types.Filter{intrinsic, req.Filter},
		})
		if err != nil {
			return nil, err
		}
		req.Filter = combined
		req.AllColumns = referencedColumns(&eng.schema, req)
	}

	b := NewBuilder(&eng.schema)
	for _, col := range req.AllColumns {
		if err := b.JoinFor(col); err != nil {
			return nil, e.NewInternalError(err.Error())
		}
	}
	for _, col := range req.Select {
		b.Select(col)
	}
	if req.Distinct {
		b.Distinct()
	}
	if err := b.ApplyFilter(req.Filter); err != nil {
		return nil, err
	}
	for _, sort := range req.Sort {
		col, _ := eng.schema.Column(sort.Column)
		b.OrderBy(col, sort.Dir == types.SortDesc)
	}
	b.Paging(req.Paging.Size, req.Paging.Number, req.Paging.Offset)

	dataSQL := b.SelectSQL()
	countSQL := b.CountSQL()

	rows, err := eng.session.Query(ctx, dataSQL, b.Params()...)
	if err != nil {
		return nil, eng.executionError(dataSQL, err)
	}
	total, err := eng.session.QueryCount(ctx, countSQL, b.Params()...)
	if err != nil {
		return nil, eng.executionError(countSQL, err)
	}

	response := &types.DataResponse{
		Meta: types.DataResponseMeta{TotalDataSize: total},
		Data: make([]types.DataItem, 0, len(rows)),
	}
	for _, col := range req.Select {
		response.Meta.Columns = append(response.Meta.Columns, types.ResponseColumn{
			Type:   col.Type.BaseType().String(),
			Column: col.Name,
		})
	}
	for _, row := range rows {
		item := make(types.DataItem, len(req.Select))
		for _, col := range req.Select {
			item[col.Name] = RenderValue(col, row[col.Name])
		}
		response.Data = append(response.Data, item)
	}
	return response, nil
}

// executionError hides the underlying failure from end users; the cause and
// statement go to the log, and the SQL onto the error only in debug mode.
func (eng *Engine) executionError(sql string, err error) error {
	eng.logger.Error("query execution failed",
		"entity", eng.schema.Name,
		"error", err,
		"sql", sql)
	wrapped := e.NewInternalError("data query failed")
	if eng.debug {
		wrapped = wrapped.WithSQL(sql)
	}
	return wrapped
}
