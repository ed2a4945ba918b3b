// Package reply routes inbound email replies back into their conversations
// and relays them between customer and distributor.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/relaydesk/relaydesk/internal/crisp"
	"github.com/relaydesk/relaydesk/internal/dedup"
	"github.com/relaydesk/relaydesk/internal/mailer"
)

// Outcome reports how an inbound email event was handled.
type Outcome string

const (
	// Forwarded means the reply was posted to the conversation and relayed
	// to its counterpart by email.
	Forwarded Outcome = "forwarded"
	// PostedOnly means the reply was posted to the conversation but no
	// email relay happened, either because the sender could not be
	// attributed, the counterpart had no usable address, or sending failed.
	PostedOnly Outcome = "posted_only"
	// Duplicate means the event was already handled and nothing was done.
	Duplicate Outcome = "duplicate"
	// Rejected means the event could not be tied to a conversation.
	Rejected Outcome = "rejected"
)

// Event is a normalized inbound email delivery.
type Event struct {
	Sender    string
	Recipient string
	Subject   string
	TextBody  string
	HTMLBody  string

	MessageID string
	Signature string
	Token     string
	Timestamp string

	// SessionID is trusted when the provider carries it through a header;
	// otherwise it is recovered from the recipient address.
	SessionID string

	Attachments []mailer.Attachment
}

// Conversations is the slice of the messaging platform the router needs.
type Conversations interface {
	GetMeta(ctx context.Context, sessionID string) (crisp.Meta, error)
	SendMessage(ctx context.Context, sessionID, content string) error
}

// EmailSender delivers relayed replies.
type EmailSender interface {
	Send(ctx context.Context, em mailer.Email) error
}

// Router handles inbound reply events at most once each.
type Router struct {
	conversations Conversations
	mail          EmailSender
	seen          *dedup.Set
}

func NewRouter(conversations Conversations, mail EmailSender, seen *dedup.Set) *Router {
	return &Router{conversations: conversations, mail: mail, seen: seen}
}

// Handle posts a reply into its conversation and relays it to the other
// party. Deduplication is checked before any side effect, so retried
// deliveries produce neither a second transcript entry nor a second email.
func (r *Router) Handle(ctx context.Context, ev Event) Outcome {
	sessionID := ev.SessionID
	if sessionID == "" {
		sessionID = SessionFromAddress(ev.Recipient)
	}
	if sessionID == "" {
		slog.Warn("inbound email without session", "sender", ev.Sender, "recipient", ev.Recipient)
		return Rejected
	}
	ev.SessionID = sessionID

	sig := ev.DedupSignature()
	if r.seen.Seen(sig) {
		slog.Info("duplicate inbound email dropped", "session_id", sessionID, "signature", sig)
		return Duplicate
	}

	var customer, distributor string
	meta, err := r.conversations.GetMeta(ctx, sessionID)
	if err != nil {
		slog.Error("metadata fetch failed", "error", err, "session_id", sessionID)
	} else {
		customer = meta.DataValue(crisp.DataCustomerEmail)
		if customer == "" {
			customer = meta.Email
		}
		distributor = meta.DataValue(crisp.DataDistributorEmail)
		if strings.EqualFold(distributor, "none") {
			distributor = ""
		}
	}

	role := attributeSender(ev.Sender, customer, distributor)
	body := CleanBody(ev.TextBody)
	html := ev.HTMLBody
	if body == "" {
		// HTML-only reply: the markup doubles as the text body and is not
		// repeated as a separate HTML part.
		body = CleanBody(ev.HTMLBody)
		html = ""
	}

	if err := r.conversations.SendMessage(ctx, sessionID, summarize(role, ev, body)); err != nil {
		slog.Error("reply post failed", "error", err, "session_id", sessionID)
	}

	target := ""
	switch role {
	case roleCustomer:
		target = distributor
	case roleDistributor:
		target = customer
	}
	if !strings.Contains(target, "@") {
		slog.Info("reply not relayed", "session_id", sessionID, "role", string(role))
		return PostedOnly
	}

	em := mailer.Email{
		To:          target,
		Subject:     "Re: " + ev.Subject,
		Text:        body,
		HTML:        html,
		SessionID:   sessionID,
		Tags:        []string{"reply-forwarding"},
		Attachments: ev.Attachments,
	}
	if err := r.mail.Send(ctx, em); err != nil {
		slog.Error("reply relay failed", "error", err, "session_id", sessionID, "target", target)
		return PostedOnly
	}

	slog.Info("reply relayed", "session_id", sessionID, "role", string(role), "target", target)
	return Forwarded
}

// replyPrefix is the local-part prefix of per-conversation reply addresses.
const replyPrefix = "conversation+"

// SessionFromAddress recovers a session identifier from a reply address of
// the form conversation+<session>@<domain>. It returns "" when the address
// does not follow that shape.
func SessionFromAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return ""
	}
	local := addr[:at]
	if !strings.HasPrefix(local, replyPrefix) {
		return ""
	}
	return local[len(replyPrefix):]
}

type senderRole string

const (
	roleCustomer    senderRole = "customer"
	roleDistributor senderRole = "distributor"
	roleUnknown     senderRole = "unknown"
)

// attributeSender matches the envelope sender against the conversation's
// parties. Sender values often arrive as "Name <addr>", so a
// case-insensitive substring match is used, customer first.
func attributeSender(sender, customer, distributor string) senderRole {
	s := strings.ToLower(sender)
	if customer != "" && strings.Contains(s, strings.ToLower(customer)) {
		return roleCustomer
	}
	if distributor != "" && strings.Contains(s, strings.ToLower(distributor)) {
		return roleDistributor
	}
	return roleUnknown
}

// summarize renders the transcript entry for an inbound reply.
func summarize(role senderRole, ev Event, body string) string {
	label := ev.Sender
	switch role {
	case roleCustomer:
		label = "Customer"
	case roleDistributor:
		label = "Distributor"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Email reply from %s (%s):", label, ev.Sender)
	if body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	if len(ev.Attachments) > 0 {
		b.WriteString("\n\nAttachments:")
		for _, a := range ev.Attachments {
			fmt.Fprintf(&b, "\n- %s (%s)", a.FileName, a.ContentType)
		}
	}
	return b.String()
}
