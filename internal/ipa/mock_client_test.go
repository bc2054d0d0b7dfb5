package ipa

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements the Client interface for testing managers.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Login(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Call(ctx context.Context, method string, params []any, options map[string]any) (*Response, error) {
	args := m.Called(ctx, method, params, options)
	var resp *Response
	if r := args.Get(0); r != nil {
		resp = r.(*Response)
	}
	return resp, args.Error(1)
}

func (m *MockClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// responseFromJSON decodes a JSON-RPC response body as the server would send it.
func responseFromJSON(t *testing.T, body string) *Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return &resp
}

// errorResponse builds a response carrying only an error object.
func errorResponse(t *testing.T, code int, name string) *Response {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"result": nil,
		"error": map[string]any{
			"code":    code,
			"name":    name,
			"message": name + " raised",
			"data":    map[string]any{"name": "gidnumber"},
		},
	})
	require.NoError(t, err)
	return responseFromJSON(t, string(body))
}
