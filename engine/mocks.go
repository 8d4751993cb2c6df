package engine

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type SessionMock struct {
	mock.Mock
}

func (o *SessionMock) Query(ctx context.Context, query string, values ...interface{}) ([]map[string]interface{}, error) {
	args := o.Called(query, values)
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

func (o *SessionMock) QueryCount(ctx context.Context, query string, values ...interface{}) (int, error) {
	args := o.Called(query, values)
	return args.Int(0), args.Error(1)
}

func NewSessionMock() *SessionMock {
	return &SessionMock{}
}
