package common

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RealZimboGuy/graphflow/internal/util"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// Do sends body as JSON with the test API key and returns the response.
func (c *Client) Do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.BaseURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", APIKey)

	resp, err := c.HTTP.Do(req)
	require.NoError(t, err)
	return resp
}

// DoJSON expects status and decodes the body into T.
func DoJSON[T any](t *testing.T, c *Client, method, path string, body any, status int) T {
	t.Helper()
	resp := c.Do(t, method, path, body)
	require.Equal(t, status, resp.StatusCode, "%s %s", method, path)
	out, err := util.DecodeJSONBodyResponse[T](resp)
	require.NoError(t, err)
	return out
}
