// Package mailer sends outbound email through a Mailgun-style HTTP API.
// Replies are threaded back to the service by addressing the Reply-To header
// at conversation+<session-id>@<domain>, which the provider routes to the
// inbound webhook.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Attachment is a file carried on an outbound email.
type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Email describes one outbound send. SessionID, when set, is woven into the
// Reply-To address and an X-Session-ID header so the next inbound reply can
// be correlated with its conversation.
type Email struct {
	To          string
	CC          string
	Subject     string
	Text        string
	HTML        string
	SessionID   string
	Tags        []string
	Attachments []Attachment
}

// Client sends email through the provider's messages endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	domain     string
	fromEmail  string
	fromName   string
}

// NewClient creates a mail client for the given sending domain.
func NewClient(baseURL, apiKey, domain, fromEmail, fromName string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		domain:    domain,
		fromEmail: fromEmail,
		fromName:  fromName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ReplyAddress returns the threading address for a session, following the
// conversation+<session-id>@<domain> convention.
func (c *Client) ReplyAddress(sessionID string) string {
	return fmt.Sprintf("conversation+%s@%s", sessionID, c.domain)
}

// Send delivers the email. Attachments force a multipart request; plain
// sends go form-encoded.
func (c *Client) Send(ctx context.Context, em Email) error {
	if em.To == "" {
		return fmt.Errorf("send email: no recipient")
	}

	fields := c.fields(em)

	var body io.Reader
	var contentType string
	if len(em.Attachments) == 0 {
		body = strings.NewReader(fields.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else {
		var err error
		body, contentType, err = multipartBody(fields, em.Attachments)
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", c.baseURL, c.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("send email: build request: %w", err)
	}
	req.SetBasicAuth("api", c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send email: API returned status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

func (c *Client) fields(em Email) url.Values {
	v := url.Values{}
	v.Set("from", fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail))
	v.Set("to", em.To)
	if em.CC != "" {
		v.Set("cc", em.CC)
	}
	v.Set("subject", em.Subject)
	v.Set("text", em.Text)
	if em.HTML != "" {
		v.Set("html", em.HTML)
	}

	if em.SessionID != "" {
		v.Set("h:Reply-To", c.ReplyAddress(em.SessionID))
		v.Set("h:X-Session-ID", em.SessionID)
	} else {
		v.Set("h:Reply-To", c.fromEmail)
	}
	for _, tag := range em.Tags {
		v.Add("o:tag", tag)
	}
	return v
}

func multipartBody(fields url.Values, attachments []Attachment) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, values := range fields {
		for _, value := range values {
			if err := w.WriteField(key, value); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", key, err)
			}
		}
	}
	for _, a := range attachments {
		part, err := w.CreateFormFile("attachment", a.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("create attachment part: %w", err)
		}
		if _, err := part.Write(a.Content); err != nil {
			return nil, "", fmt.Errorf("write attachment %s: %w", a.FileName, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
