// Package backend is the REST client for the Cyber Buddy backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"cyberbuddy/internal/history"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 10 * 1024 * 1024

// Client handles communication with the backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string

	mu    sync.RWMutex
	token string
}

// NewClient creates a new backend client. A zero timeout keeps the transport default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	// publicsuffix keeps the jar from sharing cookies across unrelated hosts
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		userAgent: "cyberbuddy/1.0",
	}
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// History fetches every session of the authenticated user with full messages
func (c *Client) History(ctx context.Context) ([]history.Session, error) {
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, "/api/chat/history", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	sessions := make([]history.Session, len(resp.History))
	for i, s := range resp.History {
		sessions[i] = s.toSession()
	}
	return sessions, nil
}

// Chat sends a user message and returns the assistant reply
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	var reply ChatReply
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, &reply); err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	return &reply, nil
}

// EditMessage replaces a user message and returns the regenerated pair
func (c *Client) EditMessage(ctx context.Context, req EditRequest) (*EditReply, error) {
	var resp editResponse
	if err := c.do(ctx, http.MethodPut, "/api/chat/editMessage", req, &resp); err != nil {
		return nil, fmt.Errorf("edit request failed: %w", err)
	}

	user := resp.UserMessage.toMessage()
	user.Sender = history.SenderUser
	ai := resp.AIMessage.toMessage()
	ai.Sender = history.SenderAssistant

	return &EditReply{UserMessage: user, AIMessage: ai}, nil
}

// DeleteSession removes a session on the backend
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/chat/"+url.PathEscape(sessionID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ScanURL asks the backend for a reputation report on a URL
func (c *Client) ScanURL(ctx context.Context, target string) (*ScanReport, error) {
	var report ScanReport
	body := map[string]string{"url": target}
	if err := c.do(ctx, http.MethodPost, "/api/chat/virustotal-scan", body, &report); err != nil {
		return nil, fmt.Errorf("URL scan failed: %w", err)
	}
	return &report, nil
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login failed: no token in response")
	}
	return resp.Token, nil
}

// Register creates an account and returns its bearer token
func (c *Client) Register(ctx context.Context, name, email, password string) (string, error) {
	var resp tokenResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &resp); err != nil {
		return "", fmt.Errorf("registration failed: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("registration failed: no token in response")
	}
	return resp.Token, nil
}

// Me returns the profile of the authenticated user
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp meResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return &resp.User, nil
}

// Search finds sessions matching a query. An unsuccessful search yields no results.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Add("query", query)

	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, "/api/chats/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if !resp.Success {
		return []SearchResult{}, nil
	}
	return resp.Results, nil
}

// ForgotPassword asks the backend to email a password reset link. The
// backend answers the same way whether or not the account exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", body, nil); err != nil {
		return fmt.Errorf("password reset request failed: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using the token from a reset link
func (c *Client) ResetPassword(ctx context.Context, token, email, password string) error {
	body := map[string]string{"token": token, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPut, "/api/auth/reset-password", body, nil); err != nil {
		return fmt.Errorf("password reset failed: %w", err)
	}
	return nil
}

// UploadAvatar replaces the profile picture and returns the updated profile
func (c *Client) UploadAvatar(ctx context.Context, filename, contentType string, data []byte) (*User, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="avatar"; filename="%s"`, quoteEscaper.Replace(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	var resp meResponse
	if err := c.send(ctx, http.MethodPut, "/api/auth/avatar", &buf, mw.FormDataContentType(), &resp); err != nil {
		return nil, fmt.Errorf("avatar upload failed: %w", err)
	}
	return &resp.User, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// do executes a JSON request and decodes the response into out (if non-nil)
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if in == nil {
		return c.send(ctx, method, path, nil, "", out)
	}

	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.send(ctx, method, path, bytes.NewReader(jsonData), "application/json", out)
}

// send executes a request with the given body and decodes a JSON response into out (if non-nil)
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	// Create HTTP request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
