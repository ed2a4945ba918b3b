package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/relaydesk/relaydesk/internal/geo"
	"github.com/relaydesk/relaydesk/internal/mailer"
	"github.com/relaydesk/relaydesk/internal/reply"
	"github.com/relaydesk/relaydesk/internal/submission"
	"github.com/relaydesk/relaydesk/internal/web/middleware"
)

// maxInboundBody caps how much of an inbound email delivery is parsed into
// memory, attachments included.
const maxInboundBody = 32 << 20

// SubmissionProcessor runs the form-to-conversation pipeline.
type SubmissionProcessor interface {
	Process(ctx context.Context, sub submission.Submission, loc geo.Location, clientIP string) bool
}

// GeoLookup resolves an IP address to a location.
type GeoLookup interface {
	Lookup(ctx context.Context, ip string) (geo.Location, error)
}

// ReplyRouter handles inbound email reply events.
type ReplyRouter interface {
	Handle(ctx context.Context, ev reply.Event) reply.Outcome
}

// WebhookHandler serves the form-provider and email-provider webhooks.
type WebhookHandler struct {
	processor SubmissionProcessor
	geo       GeoLookup
	replies   ReplyRouter
	validate  *validator.Validate
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(processor SubmissionProcessor, geo GeoLookup, replies ReplyRouter) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		geo:       geo,
		replies:   replies,
		validate:  validator.New(),
	}
}

// HandleFormSubmission accepts a contact-form webhook delivery, as JSON or as
// a form post carrying a rawRequest JSON field.
func (h *WebhookHandler) HandleFormSubmission(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFormPayload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Status: "error", Error: "invalid payload"})
		return
	}

	sub := submission.FromFields(fields)
	if sub.Email == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Status: "error", Error: "email is required"})
		return
	}
	if err := h.validate.Var(sub.Email, "email"); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Status: "error", Error: "email is invalid"})
		return
	}

	clientIP := clientIPFrom(fields, r)

	loc, err := h.geo.Lookup(r.Context(), clientIP)
	if err != nil {
		// Enrichment only; the submission still goes through.
		slog.Warn("geolocation lookup failed", "error", err, "ip", clientIP,
			"delivery_id", middleware.GetDeliveryID(r.Context()))
		loc = geo.Location{}
	}

	if !h.processor.Process(r.Context(), sub, loc, clientIP) {
		writeJSON(w, http.StatusInternalServerError, jsonResponse{Status: "error", Error: "conversation creation failed"})
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{Status: "success", Message: "submission processed"})
}

// HandleInboundEmail accepts an inbound email delivery from the email
// provider's route, forwarded as a multipart or urlencoded form post.
func (h *WebhookHandler) HandleInboundEmail(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxInboundBody); err != nil {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, jsonResponse{Status: "error", Error: "invalid form data"})
			return
		}
	}

	body := r.FormValue("body-plain")
	if body == "" {
		body = r.FormValue("stripped-text")
	}

	ev := reply.Event{
		Sender:      r.FormValue("sender"),
		Recipient:   r.FormValue("recipient"),
		Subject:     r.FormValue("subject"),
		TextBody:    body,
		HTMLBody:    r.FormValue("body-html"),
		MessageID:   r.FormValue("Message-Id"),
		Signature:   r.FormValue("signature"),
		Token:       r.FormValue("token"),
		Timestamp:   r.FormValue("timestamp"),
		SessionID:   r.FormValue("X-Session-ID"),
		Attachments: readAttachments(r),
	}

	switch h.replies.Handle(r.Context(), ev) {
	case reply.Forwarded:
		writeJSON(w, http.StatusOK, jsonResponse{Status: "forwarded"})
	case reply.PostedOnly:
		writeJSON(w, http.StatusOK, jsonResponse{Status: "posted"})
	case reply.Duplicate:
		writeJSON(w, http.StatusOK, jsonResponse{Status: "duplicate"})
	default:
		writeJSON(w, http.StatusBadRequest, jsonResponse{Status: "error", Error: "no conversation for recipient"})
	}
}

// parseFormPayload normalizes the webhook body into a field map. JSON bodies
// are decoded directly; form posts are flattened, and a rawRequest field
// holding the original submission JSON takes precedence when present.
func parseFormPayload(r *http.Request) (map[string]any, error) {
	fields := map[string]any{}

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			return nil, err
		}
	} else {
		if err := r.ParseMultipartForm(maxInboundBody); err != nil {
			if err := r.ParseForm(); err != nil {
				return nil, err
			}
		}
		for key, values := range r.Form {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
	}

	if raw, ok := fields["rawRequest"].(string); ok && raw != "" {
		inner := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &inner); err == nil {
			for key, value := range fields {
				if _, exists := inner[key]; !exists {
					inner[key] = value
				}
			}
			return inner, nil
		}
	}
	return fields, nil
}

// clientIPFrom prefers the form provider's reported submitter IP over the
// webhook connection's remote address.
func clientIPFrom(fields map[string]any, r *http.Request) string {
	if ip, ok := fields["ip"].(string); ok && ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// readAttachments collects the numbered attachment parts of an inbound email
// delivery. Parts that fail to read are skipped.
func readAttachments(r *http.Request) []mailer.Attachment {
	if r.MultipartForm == nil {
		return nil
	}

	count, _ := strconv.Atoi(r.FormValue("attachment-count"))
	var attachments []mailer.Attachment
	for i := 1; i <= count; i++ {
		file, header, err := r.FormFile("attachment-" + strconv.Itoa(i))
		if err != nil {
			continue
		}
		attachments = append(attachments, readAttachment(file, header))
		file.Close()
	}
	return attachments
}

func readAttachment(file multipart.File, header *multipart.FileHeader) mailer.Attachment {
	content, err := io.ReadAll(file)
	if err != nil {
		slog.Warn("attachment read failed", "filename", header.Filename, "error", err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return mailer.Attachment{
		FileName:    header.Filename,
		ContentType: contentType,
		Content:     content,
	}
}
