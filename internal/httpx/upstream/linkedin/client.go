package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.linkedin.com"
	defaultTimeout = 30 * time.Second
)

// Client is a LinkedIn REST API client for member posts
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new LinkedIn API client
func New(accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error from the LinkedIn API
type APIError struct {
	Message       string `json:"message"`
	ServiceCode   int    `json:"serviceErrorCode"`
	Status        int    `json:"status"`
	RequestID     string `json:"requestId,omitempty"`
	httpStatus    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("linkedin API error: %s (status: %d, code: %d)", e.Message, e.Status, e.ServiceCode)
}

// CreateShareInput represents input for creating a UGC post
type CreateShareInput struct {
	AuthorURN string
	Text      string
}

// CreateShareOutput represents output from creating a UGC post
type CreateShareOutput struct {
	ID string `json:"id"`
}

// CreateShare creates a text UGC post on behalf of the author.
// POST /v2/ugcPosts
func (c *Client) CreateShare(ctx context.Context, in CreateShareInput) (*CreateShareOutput, error) {
	endpoint := fmt.Sprintf("%s/v2/ugcPosts", c.baseURL)

	body := map[string]any{
		"author":         in.AuthorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary": map[string]any{
					"text": in.Text,
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	var out CreateShareOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// do executes an HTTP request and decodes the response
func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
		apiErr.httpStatus = resp.StatusCode
		return &apiErr
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
