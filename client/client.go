// client package is the consumer side of the tabular query protocol: an HTTP
// client for the schema and query endpoints, a request builder deriving
// DataRequests from table UI state, and schema-driven row rendering.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/facilimate/tquery/types"
)

// RequestError is a non-2xx response from the query API.
type RequestError struct {
	Status      int
	Description string
	Fields      []FieldIssue
}

// FieldIssue attributes a validation failure to a request field.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("query api: %d %s", e.Status, e.Description)
}

// Client calls the tabular query API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	facilityID string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithFacility scopes all requests to one facility.
func WithFacility(facilityID string) Option {
	return func(c *Client) { c.facilityID = facilityID }
}

// New creates a client for the API at baseURL.
func New(baseURL string, options ...Option) *Client {
	c := &Client{baseURL: baseURL, httpClient: http.DefaultClient}
	for _, option := range options {
		option(c)
	}
	return c
}

// Schema fetches the column catalog of a table. Fetched once per entity kind
// and cached by the caller; it never changes within a session.
func (c *Client) Schema(ctx context.Context, table string) (*types.Schema, error) {
	var schema types.Schema
	if err := c.do(ctx, http.MethodGet, "/v1/tables/"+table+"/schema", nil, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// Query executes one data request against a table.
func (c *Client) Query(ctx context.Context, table string, request types.DataRequest) (*types.DataResponse, error) {
	var response types.DataResponse
	if err := c.do(ctx, http.MethodPost, "/v1/tables/"+table+"/query", &request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if c.facilityID != "" {
		request.Header.Set("X-Facility-Id", c.facilityID)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= 400 {
		var failure struct {
			Error struct {
				Description string       `json:"description"`
				Fields      []FieldIssue `json:"fields"`
			} `json:"error"`
		}
		_ = json.NewDecoder(response.Body).Decode(&failure)
		return &RequestError{
			Status:      response.StatusCode,
			Description: failure.Error.Description,
			Fields:      failure.Error.Fields,
		}
	}
	return json.NewDecoder(response.Body).Decode(out)
}
