// Package forward implements the operator-triggered handoff of a
// conversation to the distributor responsible for its country.
package forward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relaydesk/relaydesk/internal/crisp"
	"github.com/relaydesk/relaydesk/internal/mailer"
	"github.com/relaydesk/relaydesk/internal/routing"
)

var (
	// ErrNoCustomerEmail means the conversation carries no usable customer
	// address, so there is nothing the distributor could reply to.
	ErrNoCustomerEmail = errors.New("conversation has no customer email")
	// ErrNoDistributor means the conversation's country has no distributor
	// in the routing table.
	ErrNoDistributor = errors.New("no distributor for conversation country")
	// ErrSendFailed means the handoff email could not be delivered.
	ErrSendFailed = errors.New("distributor email delivery failed")
)

// Conversations is the slice of the messaging platform the service needs.
type Conversations interface {
	GetMeta(ctx context.Context, sessionID string) (crisp.Meta, error)
	Assign(ctx context.Context, sessionID, agentID string) error
	Unassign(ctx context.Context, sessionID string) error
	ListMessages(ctx context.Context, sessionID string) ([]crisp.Message, error)
	SendMessage(ctx context.Context, sessionID, content string) error
	SendNote(ctx context.Context, sessionID, content string) error
}

// EmailSender delivers the handoff email.
type EmailSender interface {
	Send(ctx context.Context, em mailer.Email) error
}

// Service forwards a conversation to its country's distributor on demand.
type Service struct {
	conversations Conversations
	mail          EmailSender
	table         *routing.Table
	helpDeskAgent string
}

func NewService(conversations Conversations, mail EmailSender, table *routing.Table, helpDeskAgent string) *Service {
	return &Service{
		conversations: conversations,
		mail:          mail,
		table:         table,
		helpDeskAgent: helpDeskAgent,
	}
}

// Forward emails the conversation's latest customer message to the
// distributor for its geolocated country, tells the customer, records an
// internal note, and releases the conversation from the operator queue. It
// returns the distributor address on success. There is no rollback: steps
// after the email are best effort.
func (s *Service) Forward(ctx context.Context, sessionID string) (string, error) {
	meta, err := s.conversations.GetMeta(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("fetch conversation meta: %w", err)
	}

	customer := meta.DataValue(crisp.DataCustomerEmail)
	if customer == "" {
		customer = meta.Email
	}
	if customer == "" {
		return "", ErrNoCustomerEmail
	}

	if s.helpDeskAgent != "" {
		if err := s.conversations.Assign(ctx, sessionID, s.helpDeskAgent); err != nil {
			slog.Error("help desk assignment failed", "error", err, "session_id", sessionID)
		}
	}

	message := s.latestCustomerMessage(ctx, sessionID)
	if message == "" {
		message = meta.DataValue(crisp.DataFormMessage)
	}

	country := ""
	if meta.Device != nil && meta.Device.Geolocation != nil {
		country = meta.Device.Geolocation.Country
	}
	_, distributor := s.table.Lookup(country)
	if distributor == "" {
		return "", ErrNoDistributor
	}

	name := meta.DataValue(crisp.DataCustomerName)
	if name == "" {
		name = meta.Nickname
	}
	inquiry := mailer.Inquiry{
		CustomerName:  name,
		CustomerEmail: customer,
		Message:       message,
		Country:       meta.DataValue(crisp.DataFormCountry),
		City:          meta.DataValue(crisp.DataFormCity),
		CountryCode:   country,
	}
	em := mailer.Email{
		To:        distributor,
		CC:        customer,
		Subject:   fmt.Sprintf("Forwarded Customer Inquiry - %s (%s)", name, country),
		Text:      mailer.NewInquiryTextBody(inquiry),
		HTML:      mailer.NewInquiryHTMLBody(inquiry),
		SessionID: sessionID,
		Tags:      []string{"form-integration", "manual-forwarding"},
	}
	if err := s.mail.Send(ctx, em); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	slog.Info("conversation forwarded", "session_id", sessionID, "distributor", distributor, "country", country)

	disclosure := fmt.Sprintf(
		"We have forwarded your inquiry to our local distributor (%s), who will contact you directly by email.",
		distributor,
	)
	if err := s.conversations.SendMessage(ctx, sessionID, disclosure); err != nil {
		slog.Error("disclosure message failed", "error", err, "session_id", sessionID)
	}

	note := fmt.Sprintf("Forwarded to distributor %s (country %s).", distributor, country)
	if err := s.conversations.SendNote(ctx, sessionID, note); err != nil {
		slog.Error("forward note failed", "error", err, "session_id", sessionID)
	}

	if err := s.conversations.Unassign(ctx, sessionID); err != nil {
		slog.Error("unassign failed", "error", err, "session_id", sessionID)
	}

	return distributor, nil
}

// latestCustomerMessage finds the newest text message the customer wrote.
func (s *Service) latestCustomerMessage(ctx context.Context, sessionID string) string {
	msgs, err := s.conversations.ListMessages(ctx, sessionID)
	if err != nil {
		slog.Error("message history fetch failed", "error", err, "session_id", sessionID)
		return ""
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].From != "user" || msgs[i].Type != "text" {
			continue
		}
		if text := msgs[i].Text(); text != "" {
			return text
		}
	}
	return ""
}
