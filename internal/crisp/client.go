// Package crisp is a thin client for the Crisp-style customer-messaging
// platform. It exposes only the handful of conversation, message and contact
// operations the relay needs.
package crisp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client calls the messaging platform's REST API for a single website.
type Client struct {
	httpClient *http.Client
	baseURL    string
	websiteID  string
	identifier string
	key        string
}

// NewClient creates a client authenticated with the given plugin identifier
// and key, scoped to one website.
func NewClient(baseURL, websiteID, identifier, key string) *Client {
	return &Client{
		baseURL:    baseURL,
		websiteID:  websiteID,
		identifier: identifier,
		key:        key,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateConversation opens a new empty conversation and returns its session ID.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	var resp struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/conversation", map[string]any{}, &resp); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	if resp.Data.SessionID == "" {
		return "", fmt.Errorf("create conversation: response has no session_id")
	}
	return resp.Data.SessionID, nil
}

// UpdateMeta replaces the conversation's metadata blob.
func (c *Client) UpdateMeta(ctx context.Context, sessionID string, meta Meta) error {
	path := fmt.Sprintf("/conversation/%s/meta", url.PathEscape(sessionID))
	if err := c.do(ctx, http.MethodPatch, path, meta, nil); err != nil {
		return fmt.Errorf("update conversation meta: %w", err)
	}
	return nil
}

// GetMeta reads the conversation's metadata blob.
func (c *Client) GetMeta(ctx context.Context, sessionID string) (Meta, error) {
	path := fmt.Sprintf("/conversation/%s/meta", url.PathEscape(sessionID))
	var resp struct {
		Data Meta `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return Meta{}, fmt.Errorf("get conversation meta: %w", err)
	}
	return resp.Data, nil
}

// Assign routes the conversation to the given agent.
func (c *Client) Assign(ctx context.Context, sessionID, agentID string) error {
	path := fmt.Sprintf("/conversation/%s/routing", url.PathEscape(sessionID))
	payload := map[string]any{
		"assigned": map[string]any{"user_id": agentID},
		"silent":   false,
	}
	if err := c.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("assign conversation: %w", err)
	}
	return nil
}

// Unassign clears the conversation's agent, moving it out of the active queue.
func (c *Client) Unassign(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/conversation/%s/routing", url.PathEscape(sessionID))
	payload := map[string]any{
		"assigned": map[string]any{},
		"silent":   true,
	}
	if err := c.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("unassign conversation: %w", err)
	}
	return nil
}

// SendMessage posts a text message into the conversation. The platform
// rejects some from/origin combinations depending on plugin permissions, so
// after a failed user/email attempt it retries once as operator/chat before
// giving up. 201 and 202 both count as delivered.
func (c *Client) SendMessage(ctx context.Context, sessionID, content string) error {
	path := fmt.Sprintf("/conversation/%s/message", url.PathEscape(sessionID))

	attempts := []map[string]any{
		{"type": "text", "content": content, "from": "user", "origin": "email"},
		{"type": "text", "content": content, "from": "operator", "origin": "chat"},
	}

	var lastErr error
	for i, payload := range attempts {
		status, err := c.doStatus(ctx, http.MethodPost, path, payload)
		if err != nil {
			lastErr = err
			continue
		}
		if status == http.StatusCreated || status == http.StatusAccepted {
			return nil
		}
		lastErr = fmt.Errorf("message rejected with status %d", status)
		if i == 0 {
			slog.Warn("message post rejected, retrying as operator",
				"session_id", sessionID,
				"status", status,
			)
		}
	}
	return fmt.Errorf("send message: %w", lastErr)
}

// SendNote posts an operator-only note into the conversation. Notes are not
// visible to the customer.
func (c *Client) SendNote(ctx context.Context, sessionID, content string) error {
	path := fmt.Sprintf("/conversation/%s/message", url.PathEscape(sessionID))
	payload := map[string]any{
		"type":    "note",
		"content": content,
		"from":    "operator",
		"origin":  "chat",
	}
	status, err := c.doStatus(ctx, http.MethodPost, path, payload)
	if err != nil {
		return fmt.Errorf("send note: %w", err)
	}
	if status != http.StatusCreated && status != http.StatusAccepted {
		return fmt.Errorf("send note: rejected with status %d", status)
	}
	return nil
}

// ListMessages returns the conversation's message history.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	path := fmt.Sprintf("/conversation/%s/messages", url.PathEscape(sessionID))
	var resp struct {
		Data []Message `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return resp.Data, nil
}

// SearchProfiles looks up existing people profiles by email.
func (c *Client) SearchProfiles(ctx context.Context, email string) ([]Profile, error) {
	path := "/people/profile?search_text=" + url.QueryEscape(email)
	var resp struct {
		Data []Profile `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return resp.Data, nil
}

// UpdateContact updates an existing people profile.
func (c *Client) UpdateContact(ctx context.Context, peopleID, email string, person Person) error {
	path := fmt.Sprintf("/people/profile/%s", url.PathEscape(peopleID))
	payload := map[string]any{
		"email":  email,
		"person": person,
	}
	if err := c.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	return nil
}

// do performs a request against the website-scoped API and decodes the
// response into result when it is non-nil. Any non-2xx status is an error.
func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	status, body, err := c.request(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("API returned status %d: %s", status, truncate(body, 512))
	}
	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// doStatus performs a request and returns the status code without treating
// non-2xx as an error; SendMessage needs the code to drive its fallback.
func (c *Client) doStatus(ctx context.Context, method, path string, payload any) (int, error) {
	status, _, err := c.request(ctx, method, path, payload)
	return status, err
}

func (c *Client) request(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	endpoint := fmt.Sprintf("%s/website/%s%s", c.baseURL, c.websiteID, path)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.identifier, c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Crisp-Tier", "plugin")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
