package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/bissquit/roadmap-api/internal/pkg/tracing"
)

// Client calls the API as one user and validates responses against the
// OpenAPI document when a Validator is set.
type Client struct {
	BaseURL       string
	Token         string
	CorrelationID string
	HTTPClient    *http.Client
	Validator     *OpenAPIValidator
	t             *testing.T
}

// NewClient creates a client that authenticates with token. An empty token
// sends no Authorization header.
func NewClient(t *testing.T, baseURL, token string, validator *OpenAPIValidator) *Client {
	t.Helper()
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{},
		Validator:  validator,
		t:          t,
	}
}

// WithoutValidation returns a copy of the client with validation disabled.
// Use this for requests the API is expected to reject before routing.
func (c *Client) WithoutValidation() *Client {
	clone := *c
	clone.Validator = nil
	return &clone
}

// GET performs a GET request.
func (c *Client) GET(path string) *http.Response {
	return c.do(http.MethodGet, path, nil)
}

// POST performs a POST request with JSON body.
func (c *Client) POST(path string, body interface{}) *http.Response {
	return c.do(http.MethodPost, path, body)
}

// PATCH performs a PATCH request with JSON body.
func (c *Client) PATCH(path string, body interface{}) *http.Response {
	return c.do(http.MethodPatch, path, body)
}

func (c *Client) do(method, path string, body interface{}) *http.Response {
	c.t.Helper()

	var bodyBytes []byte
	if body != nil {
		var err error
		if bodyBytes, err = json.Marshal(body); err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		c.t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.CorrelationID != "" {
		req.Header.Set(tracing.HeaderCorrelationID, c.CorrelationID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}

	if c.Validator != nil {
		validationReq, _ := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(bodyBytes))
		validationReq.Header = req.Header
		c.Validator.ValidateRequest(c.t, validationReq)
		c.Validator.ValidateResponse(c.t, validationReq, resp)
	}

	return resp
}

// DecodeJSON decodes response body into v and closes it.
func DecodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// ReadBody reads and returns response body as string.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

// ErrorMessage decodes an error body and returns its message.
func ErrorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &body)
	if body.Message == "" {
		t.Fatalf("error response without message (status %d)", resp.StatusCode)
	}
	return fmt.Sprint(body.Message)
}
