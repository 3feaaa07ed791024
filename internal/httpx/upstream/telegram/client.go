package telegram

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
	defaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 30 * time.Second
)

// Client is a Telegram Bot API client
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
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

// New creates a new Telegram Bot API client
func New(botToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  defaultBaseURL,
		botToken: botToken,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error from the Telegram Bot API
type APIError struct {
	Code        int    `json:"error_code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error: %s (code: %d)", e.Description, e.Code)
}

// apiResponse is the Bot API envelope common to every method
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Code        int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Message is the subset of the Bot API message object we use
type Message struct {
	MessageID int64 `json:"message_id"`
}

// SendMessageInput represents input for sending a text message
type SendMessageInput struct {
	ChatID string
	Text   string
}

// SendMessage sends a text message to a chat or channel
func (c *Client) SendMessage(ctx context.Context, in SendMessageInput) (*Message, error) {
	params := url.Values{}
	params.Set("chat_id", in.ChatID)
	params.Set("text", in.Text)

	return c.call(ctx, "sendMessage", params)
}

// SendPhotoInput represents input for sending a photo with a caption
type SendPhotoInput struct {
	ChatID   string
	PhotoURL string
	Caption  string
}

// SendPhoto sends a photo by URL with an optional caption
func (c *Client) SendPhoto(ctx context.Context, in SendPhotoInput) (*Message, error) {
	params := url.Values{}
	params.Set("chat_id", in.ChatID)
	params.Set("photo", in.PhotoURL)
	if in.Caption != "" {
		params.Set("caption", in.Caption)
	}

	return c.call(ctx, "sendPhoto", params)
}

// call executes a Bot API method and decodes the message result
func (c *Client) call(ctx context.Context, method string, params url.Values) (*Message, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var env apiResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if !env.OK {
		return nil, &APIError{Code: env.Code, Description: env.Description}
	}

	var msg Message
	if err := json.Unmarshal(env.Result, &msg); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}

	return &msg, nil
}
