package client

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/facilimate/tquery/types"
)

// QueryFunc executes one data request, typically Client.Query bound to a
// table name.
type QueryFunc func(ctx context.Context, request types.DataRequest) (*types.DataResponse, error)

// Fetcher runs data requests with last-request-wins semantics: starting a new
// fetch cancels the in-flight one, and a response arriving after a newer fetch
// has started is discarded. Cancellation of a superseded request is reported
// to neither callback.
type Fetcher struct {
	run     QueryFunc
	onData  func(*types.DataResponse)
	onError func(error)

	seq    atomic.Int64
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewFetcher creates a fetcher delivering results to onData and failures to
// onError. Either callback may be nil.
func NewFetcher(run QueryFunc, onData func(*types.DataResponse), onError func(error)) *Fetcher {
	return &Fetcher{run: run, onData: onData, onError: onError}
}

// Fetch starts the request asynchronously, superseding any in-flight fetch.
func (f *Fetcher) Fetch(ctx context.Context, request types.DataRequest) {
	id := f.seq.Inc()

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()

	go func() {
		defer cancel()
		response, err := f.run(ctx, request)
		if f.seq.Load() != id {
			return
		}
		if err != nil {
			if f.onError != nil {
				f.onError(err)
			}
			return
		}
		if f.onData != nil {
			f.onData(response)
		}
	}()
}

// Stop cancels the in-flight fetch, if any, and discards its result.
func (f *Fetcher) Stop() {
	f.seq.Inc()
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.mu.Unlock()
}
