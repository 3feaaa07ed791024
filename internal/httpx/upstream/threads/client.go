package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL    = "https://graph.threads.net"
	defaultAPIVersion = "v1.0"
	defaultTimeout    = 30 * time.Second
)

// Client is a Threads Graph API client for content publishing
type Client struct {
	baseURL     string
	apiVersion  string
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

// WithAPIVersion sets the API version
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new Threads API client
func New(accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		apiVersion:  defaultAPIVersion,
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

// APIError represents an error from the Threads API
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	TraceID      string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("threads API error: %s (code: %d, subcode: %d)", e.Message, e.Code, e.ErrorSubcode)
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// CreateContainerInput represents input for creating a media container
type CreateContainerInput struct {
	UserID   string
	Text     string
	ImageURL string
}

// CreateContainerOutput represents output from creating a media container
type CreateContainerOutput struct {
	ID string `json:"id"`
}

// CreateContainer creates a media container for publishing.
// Step 1 of the publishing process.
func (c *Client) CreateContainer(ctx context.Context, in CreateContainerInput) (*CreateContainerOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/threads", c.baseURL, c.apiVersion, in.UserID)

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("text", in.Text)

	if in.ImageURL != "" {
		params.Set("media_type", "IMAGE")
		params.Set("image_url", in.ImageURL)
	} else {
		params.Set("media_type", "TEXT")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out CreateContainerOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// PublishContainerInput represents input for publishing a container
type PublishContainerInput struct {
	UserID      string
	ContainerID string
}

// PublishContainerOutput represents output from publishing a container
type PublishContainerOutput struct {
	ID string `json:"id"` // Threads Media ID
}

// PublishContainer publishes a previously created container.
// Step 2 of the publishing process.
func (c *Client) PublishContainer(ctx context.Context, in PublishContainerInput) (*PublishContainerOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/threads_publish", c.baseURL, c.apiVersion, in.UserID)

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("creation_id", in.ContainerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out PublishContainerOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// do executes an HTTP request and decodes the response
func (c *Client) do(req *http.Request, out interface{}) error {
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
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
		return &errResp.Error
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
