// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/council-tui/internal/catalog"
)

// Configuration constants for the council backend API.
const (
	// DefaultBaseURL is the local development address of the backend.
	DefaultBaseURL = "http://localhost:8001"

	// DefaultTimeout is the timeout for unary API requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed unary response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client with connection pooling for unary requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests.
	// No timeout: stream lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrAuthFailed indicates the backend rejected the API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrVersionSkew indicates the backend lacks a route this client
	// expects. The running backend predates the client; restarting it
	// picks up the current routes.
	ErrVersionSkew = errors.New("backend is missing this route; restart the backend to update it")
)

// APIError represents an error response from the backend.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// apiErrorResponse is the backend's error body shape.
type apiErrorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ModelsResponse is the catalog endpoint payload.
type ModelsResponse struct {
	Models   []catalog.Model  `json:"models"`
	Defaults catalog.Defaults `json:"defaults"`
}

// FXRate is the USD to INR exchange rate payload.
type FXRate struct {
	USDINR    float64 `json:"usd_inr"`
	Source    string  `json:"source"`
	FetchedAt string  `json:"fetched_at"`
	Stale     bool    `json:"stale"`
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	CreatedAt    string `json:"created_at"`
}

// WireMessage is one message of a fetched conversation. User messages carry
// Content; assistant messages carry the stage payloads.
type WireMessage struct {
	Role     string          `json:"role"`
	Content  string          `json:"content,omitempty"`
	Stage1   json.RawMessage `json:"stage1,omitempty"`
	Stage2   json.RawMessage `json:"stage2,omitempty"`
	Stage3   json.RawMessage `json:"stage3,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Conversation is a fully fetched conversation.
type Conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt string        `json:"created_at"`
	Messages  []WireMessage `json:"messages"`
}

// MessageRequest is the body for sending a user turn. Model fields are
// omitted when the user follows server defaults.
type MessageRequest struct {
	Content       string   `json:"content"`
	CouncilModels []string `json:"council_models,omitempty"`
	ChairmanModel string   `json:"chairman_model,omitempty"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client communicates with the council orchestration backend.
type Client struct {
	baseURL string

	// keyFn supplies the current API key on every request, so settings
	// changes apply without rebuilding the client. May return "".
	keyFn func() string
}

// NewClient creates a client for the backend at baseURL. keyFn may be nil
// when no key source exists yet.
func NewClient(baseURL string, keyFn func() string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if keyFn == nil {
		keyFn = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		keyFn:   keyFn,
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders sets the required headers for backend requests.
// SECURITY: The key travels in a header only, never in URLs or bodies.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "council-tui/0.1.0")
	if key := c.keyFn(); key != "" {
		req.Header.Set("X-OpenRouter-Key", key)
	}
}

// handleErrorResponse converts HTTP error responses to appropriate Go errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	message := ""
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Detail != "" {
			message = apiErr.Detail
		} else if apiErr.Error != "" {
			message = apiErr.Error
		}
	}

	switch statusCode {
	case http.StatusUnauthorized:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, message)
		}
		return ErrAuthFailed
	case http.StatusNotFound:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return ErrNotFound
	case http.StatusTooManyRequests:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrRateLimited, message)
		}
		return ErrRateLimited
	default:
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		return &APIError{Status: statusCode, Message: message}
	}
}

// do performs a unary request and decodes the JSON response into out.
// A nil out discards the body.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("API %s %s: %d (%v)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	limited := io.LimitReader(resp.Body, MaxResponseSize)
	data, err := io.ReadAll(limited)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// =============================================================================
// CATALOG AND EXCHANGE RATE
// =============================================================================

// Models fetches the model catalog and the server default selection.
func (c *Client) Models(ctx context.Context) (*ModelsResponse, error) {
	var out ModelsResponse
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// USDINRRate fetches the current USD to INR exchange rate. The backend
// serves a cached rate and marks it stale when its upstream fetch failed.
func (c *Client) USDINRRate(ctx context.Context) (*FXRate, error) {
	var out FXRate
	if err := c.do(ctx, http.MethodGet, "/api/fx/usd-inr", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// CONVERSATION CRUD
// =============================================================================

// ListConversations fetches all conversation summaries, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var out []ConversationSummary
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateConversation creates an empty conversation on the backend.
func (c *Client) CreateConversation(ctx context.Context) (*Conversation, error) {
	var out Conversation
	if err := c.do(ctx, http.MethodPost, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConversation fetches a full conversation by ID.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var out Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// routeMissing reports whether err means the route itself is absent
// (as opposed to the resource): older backends predate some routes.
func routeMissing(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusMethodNotAllowed
	}
	return errors.Is(err, ErrNotFound)
}

// RenameConversation sets a conversation's title. It tries the POST
// /rename route first and falls back to PATCH for older backends. When
// neither route exists the backend is stale and needs a restart.
func (c *Client) RenameConversation(ctx context.Context, id, title string) error {
	body := map[string]string{"title": title}
	path := "/api/conversations/" + url.PathEscape(id)

	err := c.do(ctx, http.MethodPost, path+"/rename", body, nil)
	if err == nil || !routeMissing(err) {
		return err
	}

	fallbackErr := c.do(ctx, http.MethodPatch, path, body, nil)
	if fallbackErr == nil || !routeMissing(fallbackErr) {
		return fallbackErr
	}
	return fmt.Errorf("%w: rename failed (%v)", ErrVersionSkew, err)
}

// DeleteConversation removes a conversation. It tries the POST /delete
// route first and falls back to DELETE for older backends.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	path := "/api/conversations/" + url.PathEscape(id)

	err := c.do(ctx, http.MethodPost, path+"/delete", nil, nil)
	if err == nil || !routeMissing(err) {
		return err
	}

	fallbackErr := c.do(ctx, http.MethodDelete, path, nil, nil)
	if fallbackErr == nil || !routeMissing(fallbackErr) {
		return fallbackErr
	}
	return fmt.Errorf("%w: delete failed (%v)", ErrVersionSkew, err)
}

// =============================================================================
// MESSAGES
// =============================================================================

// SendMessage runs a full deliberation turn without streaming and returns
// the updated conversation.
func (c *Client) SendMessage(ctx context.Context, id string, req MessageRequest) (*Conversation, error) {
	var out Conversation
	path := "/api/conversations/" + url.PathEscape(id) + "/message"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamMessage sends a user turn and consumes the deliberation event
// stream, invoking callback per event until the server closes the stream
// or ctx is cancelled. There is no default timeout; cancel ctx to abort.
func (c *Client) StreamMessage(ctx context.Context, id string, msg MessageRequest, callback EventCallback) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	path := c.baseURL + "/api/conversations/" + url.PathEscape(id) + "/message/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return c.handleErrorResponse(resp.StatusCode, body)
	}

	return NewEventReader(resp.Body).Read(ctx, callback)
}

// =============================================================================
// KEY PROBING
// =============================================================================

// HasServerKey reports whether the backend can serve requests without a
// client-side API key, meaning it holds its own fallback credential. The
// probe is an unauthenticated catalog fetch.
func (c *Client) HasServerKey(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", "council-tui/0.1.0")

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))

	return resp.StatusCode == http.StatusOK
}
