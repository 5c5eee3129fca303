package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/json-iterator/go"
)

const defaultTimeout = 10 * time.Second

// HTTPError is a non 2xx reply from the server.
type HTTPError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("HTTP %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithToken sends token as the bearer credential of every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Version(ctx context.Context) (*GetVersionRsp, error) {
	var rsp GetVersionRsp
	if err := c.Do(ctx, http.MethodGet, "/version", nil, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// Do sends req as JSON to path and decodes the reply into rsp. Either may be nil.
func (c *Client) Do(ctx context.Context, method, path string, req, rsp any) error {
	var body io.Reader
	if req != nil {
		b, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if req != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		b, _ := io.ReadAll(response.Body)
		httpErr := &HTTPError{StatusCode: response.StatusCode, Message: string(b)}
		var errRsp struct {
			Kind  string `json:"kind"`
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &errRsp) == nil && errRsp.Error != "" {
			httpErr.Kind = errRsp.Kind
			httpErr.Message = errRsp.Error
		}
		return httpErr
	}
	if rsp == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(rsp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
