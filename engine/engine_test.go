package engine

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/facilimate/tquery/log"
	e "github.com/facilimate/tquery/rest/errors"
	"github.com/facilimate/tquery/schema"
	"github.com/facilimate/tquery/types"
)

func TestRunReturnsPageAndTotal(t *testing.T) {
	sessionMock := NewSessionMock()
	sessionMock.On("Query", mock.Anything, mock.Anything).Return([]map[string]interface{}{
		{"name": "Ann", "email": "ann@example.com"},
		{"name": "Bob", "email": nil},
	}, nil)
	sessionMock.On("QueryCount", mock.Anything, mock.Anything).Return(25, nil)

	eng := New(schema.Users(), sessionMock, log.NewNopLogger(), false)
	response, err := eng.Run(context.Background(), types.DataRequest{
		Columns: []types.Column{
			{Type: "column", Column: "name"},
			{Type: "column", Column: "email"},
		},
		Sort:   []types.SortColumn{{Type: "column", Column: "name", Dir: types.SortAsc}},
		Paging: types.Paging{Size: 10, Number: 1},
	}, nil)
	require.NoError(t, err)

	// one page of data, total across all pages
	assert.Equal(t, 25, response.Meta.TotalDataSize)
	assert.Equal(t, []types.ResponseColumn{
		{Type: "string", Column: "name"},
		{Type: "string", Column: "email"},
	}, response.Meta.Columns)
	require.Len(t, response.Data, 2)
	assert.Equal(t, types.DataItem{"name": "Ann", "email": "ann@example.com"}, response.Data[0])
	assert.Equal(t, types.DataItem{"name": "Bob", "email": nil}, response.Data[1])

	dataSQL := `select users.name as "name", users.email as "email"` +
		` from users where true order by users.name asc limit 10 offset 0`
	countSQL := `select count(1) from users where true`
	sessionMock.AssertCalled(t, "Query", dataSQL, mock.Anything)
	sessionMock.AssertCalled(t, "QueryCount", countSQL, mock.Anything)
	sessionMock.AssertExpectations(t)
}

func TestRunAppliesIntrinsicFilter(t *testing.T) {
	sessionMock := NewSessionMock()
	sessionMock.On("Query", mock.Anything, mock.Anything).Return([]map[string]interface{}{}, nil)
	sessionMock.On("QueryCount", mock.Anything, mock.Anything).Return(0, nil)

	eng := New(schema.Meetings(), sessionMock, log.NewNopLogger(), false)
	intrinsic := &types.ColumnFilter{
		Column: "facility.id",
		Op:     types.OpEq,
		Val:    "a2a41d23-f447-4b22-a93a-3db4ff3b9f17",
	}
	_, err := eng.Run(context.Background(), types.DataRequest{
		Columns: []types.Column{{Type: "column", Column: "id"}},
		Paging:  types.Paging{Size: 10, Number: 1},
	}, intrinsic)
	require.NoError(t, err)

	require.NotEmpty(t, sessionMock.Calls)
	dataSQL := sessionMock.Calls[0].Arguments.String(0)
	params := sessionMock.Calls[0].Arguments.Get(1).([]interface{})
	assert.Contains(t, dataSQL, "meetings.facility_id = $1")
	assert.Equal(t, []interface{}{"a2a41d23-f447-4b22-a93a-3db4ff3b9f17"}, params)
}

func TestRunSharesParamsBetweenDataAndCount(t *testing.T) {
	sessionMock := NewSessionMock()
	sessionMock.On("Query", mock.Anything, mock.Anything).Return([]map[string]interface{}{}, nil)
	sessionMock.On("QueryCount", mock.Anything, mock.Anything).Return(0, nil)

	eng := New(schema.Users(), sessionMock, log.NewNopLogger(), false)
	_, err := eng.Run(context.Background(), types.DataRequest{
		Columns: []types.Column{{Type: "column", Column: "name"}},
		Filter:  &types.ColumnFilter{Column: "name", Op: types.OpContains, Val: "ann"},
		Paging:  types.Paging{Size: 5, Number: 3},
	}, nil)
	require.NoError(t, err)

	require.Len(t, sessionMock.Calls, 2)
	dataParams := sessionMock.Calls[0].Arguments.Get(1)
	countParams := sessionMock.Calls[1].Arguments.Get(1)
	assert.Equal(t, dataParams, countParams)
	assert.Contains(t, sessionMock.Calls[0].Arguments.String(0), "limit 5 offset 10")
	assert.NotContains(t, sessionMock.Calls[1].Arguments.String(0), "limit")
}

func TestRunHidesExecutionFailures(t *testing.T) {
	sessionMock := NewSessionMock()
	sessionMock.On("Query", mock.Anything, mock.Anything).
		Return([]map[string]interface{}(nil), fmt.Errorf("connection refused"))

	eng := New(schema.Users(), sessionMock, log.NewNopLogger(), false)
	_, err := eng.Run(context.Background(), types.DataRequest{
		Columns: []types.Column{{Type: "column", Column: "name"}},
		Paging:  types.Paging{Size: 10, Number: 1},
	}, nil)

	var internal *e.InternalError
	require.True(t, goerrors.As(err, &internal))
	assert.NotContains(t, internal.Error(), "connection refused")
	assert.Empty(t, internal.DebugSQL())
}

func TestRunAttachesSQLInDebugMode(t *testing.T) {
	sessionMock := NewSessionMock()
	sessionMock.On("Query", mock.Anything, mock.Anything).
		Return([]map[string]interface{}(nil), fmt.Errorf("boom"))

	eng := New(schema.Users(), sessionMock, log.NewNopLogger(), true)
	_, err := eng.Run(context.Background(), types.DataRequest{
		Columns: []types.Column{{Type: "column", Column: "name"}},
		Paging:  types.Paging{Size: 10, Number: 1},
	}, nil)

	var internal *e.InternalError
	require.True(t, goerrors.As(err, &internal))
	assert.Contains(t, internal.DebugSQL(), "select")
}

func TestRunRejectsInvalidRequestBeforeQuerying(t *testing.T) {
	sessionMock := NewSessionMock()
	eng := New(schema.Users(), sessionMock, log.NewNopLogger(), false)

	_, err := eng.Run(context.Background(), types.DataRequest{
		Columns: []types.Column{{Type: "column", Column: "nope"}},
		Paging:  types.Paging{Size: 10, Number: 1},
	}, nil)

	var verr *e.ValidationError
	require.True(t, goerrors.As(err, &verr))
	sessionMock.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}
